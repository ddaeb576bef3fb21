package mfa

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newChallengeStoreTest(t *testing.T) (*ChallengeStore, *miniredis.Miniredis, func()) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewChallengeStore(rdb, "mc")
	return store, mr, func() {
		rdb.Close()
		mr.Close()
	}
}

func testChallenge(principalID string, ttl time.Duration) *Challenge {
	return &Challenge{
		PrincipalID: principalID,
		Method:      MethodTOTP,
		ExpiresAt:   time.Now().Add(ttl).Unix(),
	}
}

func TestChallengeTokenRandomness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		token, err := NewChallengeToken()
		if err != nil {
			t.Fatalf("new token: %v", err)
		}
		if token == "" || seen[token] {
			t.Fatalf("token %q empty or repeated", token)
		}
		seen[token] = true
	}
}

func TestChallengeSaveGet(t *testing.T) {
	store, _, done := newChallengeStoreTest(t)
	defer done()
	ctx := context.Background()

	ch := testChallenge("user-1", 10*time.Minute)
	if err := store.Save(ctx, "tok-1", ch, 10*time.Minute); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := store.Get(ctx, "tok-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.PrincipalID != "user-1" || got.Method != MethodTOTP || got.Attempts != 0 {
		t.Fatalf("unexpected challenge: %+v", got)
	}

	if _, err := store.Get(ctx, "tok-missing"); !errors.Is(err, ErrChallengeNotFound) {
		t.Fatalf("expected ErrChallengeNotFound, got %v", err)
	}
}

func TestChallengeExpiresWithTTL(t *testing.T) {
	store, mr, done := newChallengeStoreTest(t)
	defer done()
	ctx := context.Background()

	if err := store.Save(ctx, "tok-1", testChallenge("user-1", time.Minute), time.Minute); err != nil {
		t.Fatalf("save: %v", err)
	}

	mr.FastForward(2 * time.Minute)

	if _, err := store.Get(ctx, "tok-1"); !errors.Is(err, ErrChallengeNotFound) {
		t.Fatalf("expected ErrChallengeNotFound after TTL, got %v", err)
	}
}

func TestChallengeDeleteSingleUse(t *testing.T) {
	store, _, done := newChallengeStoreTest(t)
	defer done()
	ctx := context.Background()

	if err := store.Save(ctx, "tok-1", testChallenge("user-1", time.Minute), time.Minute); err != nil {
		t.Fatalf("save: %v", err)
	}

	deleted, err := store.Delete(ctx, "tok-1")
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if !deleted {
		t.Fatal("first delete must report the record existed")
	}

	deleted, err = store.Delete(ctx, "tok-1")
	if err != nil {
		t.Fatalf("second delete: %v", err)
	}
	if deleted {
		t.Fatal("second delete must report nothing to delete")
	}
}

func TestChallengeAttemptCap(t *testing.T) {
	store, _, done := newChallengeStoreTest(t)
	defer done()
	ctx := context.Background()

	if err := store.Save(ctx, "tok-1", testChallenge("user-1", 10*time.Minute), 10*time.Minute); err != nil {
		t.Fatalf("save: %v", err)
	}

	const maxAttempts = 3
	for i := 1; i < maxAttempts; i++ {
		exceeded, err := store.RecordFailure(ctx, "tok-1", maxAttempts)
		if err != nil {
			t.Fatalf("failure %d: %v", i, err)
		}
		if exceeded {
			t.Fatalf("cap hit after %d failures", i)
		}
		got, err := store.Get(ctx, "tok-1")
		if err != nil {
			t.Fatalf("get after failure %d: %v", i, err)
		}
		if int(got.Attempts) != i {
			t.Fatalf("expected %d attempts, got %d", i, got.Attempts)
		}
	}

	exceeded, err := store.RecordFailure(ctx, "tok-1", maxAttempts)
	if err != nil {
		t.Fatalf("final failure: %v", err)
	}
	if !exceeded {
		t.Fatal("final failure must hit the cap")
	}

	// The cap destroys the challenge outright.
	if _, err := store.Get(ctx, "tok-1"); !errors.Is(err, ErrChallengeNotFound) {
		t.Fatalf("expected challenge destroyed, got %v", err)
	}
}

func TestRecordFailureMissingChallenge(t *testing.T) {
	store, _, done := newChallengeStoreTest(t)
	defer done()

	if _, err := store.RecordFailure(context.Background(), "tok-missing", 5); !errors.Is(err, ErrChallengeNotFound) {
		t.Fatalf("expected ErrChallengeNotFound, got %v", err)
	}
}

func TestChallengeCodecRoundTrip(t *testing.T) {
	ch := &Challenge{
		PrincipalID: "user-1",
		Method:      MethodEmail,
		ExpiresAt:   time.Now().Add(time.Hour).Unix(),
		Attempts:    4,
	}

	data, err := encodeChallenge(ch)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := decodeChallenge(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if *decoded != *ch {
		t.Fatalf("round trip mismatch: %+v vs %+v", decoded, ch)
	}

	if _, err := decodeChallenge([]byte{42}); err == nil {
		t.Fatal("expected error for unknown version")
	}
	if _, err := decodeChallenge(data[:3]); err == nil {
		t.Fatal("expected error for truncated record")
	}
}
