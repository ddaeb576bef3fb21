package revocation

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newStoreTest(t *testing.T, failOpen bool, observer func(error)) (*Store, *miniredis.Miniredis, func()) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewStore(rdb, "rv", failOpen, observer)
	return store, mr, func() {
		rdb.Close()
		mr.Close()
	}
}

func TestRevokeAndCheck(t *testing.T) {
	store, _, done := newStoreTest(t, false, nil)
	defer done()
	ctx := context.Background()

	revoked, err := store.IsRevoked(ctx, "jti-1")
	if err != nil {
		t.Fatalf("is revoked: %v", err)
	}
	if revoked {
		t.Fatal("fresh jti must not be revoked")
	}

	if err := store.Revoke(ctx, "jti-1", time.Minute); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	revoked, err = store.IsRevoked(ctx, "jti-1")
	if err != nil {
		t.Fatalf("is revoked: %v", err)
	}
	if !revoked {
		t.Fatal("revoked jti must report revoked")
	}
}

func TestRevokeExpiredNoOp(t *testing.T) {
	store, _, done := newStoreTest(t, false, nil)
	defer done()
	ctx := context.Background()

	if err := store.Revoke(ctx, "jti-1", 0); err != nil {
		t.Fatalf("zero ttl: %v", err)
	}
	if err := store.Revoke(ctx, "jti-1", -time.Minute); err != nil {
		t.Fatalf("negative ttl: %v", err)
	}

	revoked, err := store.IsRevoked(ctx, "jti-1")
	if err != nil {
		t.Fatalf("is revoked: %v", err)
	}
	if revoked {
		t.Fatal("expired-token revocation must not write an entry")
	}
}

func TestEntryExpiresWithTokenLifetime(t *testing.T) {
	store, mr, done := newStoreTest(t, false, nil)
	defer done()
	ctx := context.Background()

	if err := store.Revoke(ctx, "jti-1", time.Minute); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	mr.FastForward(2 * time.Minute)

	revoked, err := store.IsRevoked(ctx, "jti-1")
	if err != nil {
		t.Fatalf("is revoked: %v", err)
	}
	if revoked {
		t.Fatal("denylist entry must expire with the token lifetime")
	}
}

func TestCheckAndRevokeSingleWinner(t *testing.T) {
	store, _, done := newStoreTest(t, true, nil)
	defer done()
	ctx := context.Background()

	const contenders = 16
	var wins atomic.Int64
	var wg sync.WaitGroup
	start := make(chan struct{})

	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			err := store.CheckAndRevoke(ctx, "jti-race", time.Minute)
			switch {
			case err == nil:
				wins.Add(1)
			case errors.Is(err, ErrAlreadyRevoked):
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}

	close(start)
	wg.Wait()

	if got := wins.Load(); got != 1 {
		t.Fatalf("expected exactly one winner, got %d", got)
	}
}

func TestCheckAndRevokeSequential(t *testing.T) {
	store, _, done := newStoreTest(t, false, nil)
	defer done()
	ctx := context.Background()

	if err := store.CheckAndRevoke(ctx, "jti-1", time.Minute); err != nil {
		t.Fatalf("first check-and-revoke: %v", err)
	}
	if err := store.CheckAndRevoke(ctx, "jti-1", time.Minute); !errors.Is(err, ErrAlreadyRevoked) {
		t.Fatalf("expected ErrAlreadyRevoked, got %v", err)
	}
	// A token past exp has nothing left to protect.
	if err := store.CheckAndRevoke(ctx, "jti-2", 0); !errors.Is(err, ErrAlreadyRevoked) {
		t.Fatalf("expected ErrAlreadyRevoked for expired ttl, got %v", err)
	}
}

func TestFailOpenPolicy(t *testing.T) {
	var observed atomic.Int64
	store, mr, done := newStoreTest(t, true, func(error) { observed.Add(1) })
	defer done()
	ctx := context.Background()

	mr.Close()

	revoked, err := store.IsRevoked(ctx, "jti-1")
	if err != nil {
		t.Fatalf("fail-open read must not error: %v", err)
	}
	if revoked {
		t.Fatal("fail-open must report not revoked")
	}
	if observed.Load() == 0 {
		t.Fatal("fail-open decision must invoke the observer")
	}

	// The burn on rotation never fails open.
	if err := store.CheckAndRevoke(ctx, "jti-1", time.Minute); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable from CheckAndRevoke, got %v", err)
	}
}

func TestFailClosedPolicy(t *testing.T) {
	store, mr, done := newStoreTest(t, false, nil)
	defer done()

	mr.Close()

	if _, err := store.IsRevoked(context.Background(), "jti-1"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}
