package lockout

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newGuardTest(t *testing.T, cfg Config) (*Guard, *miniredis.Miniredis, func()) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	guard := NewGuard(rdb, "lo", cfg)
	return guard, mr, func() {
		rdb.Close()
		mr.Close()
	}
}

func TestLockAtThreshold(t *testing.T) {
	guard, _, done := newGuardTest(t, Config{Threshold: 5, Duration: 30 * time.Minute})
	defer done()
	ctx := context.Background()

	for i := 1; i <= 4; i++ {
		locked, err := guard.RecordFailure(ctx, "user-1")
		if err != nil {
			t.Fatalf("failure %d: %v", i, err)
		}
		if locked {
			t.Fatalf("locked after %d failures", i)
		}
		count, err := guard.FailureCount(ctx, "user-1")
		if err != nil {
			t.Fatalf("count: %v", err)
		}
		if count != i {
			t.Fatalf("expected count %d, got %d", i, count)
		}
	}

	locked, err := guard.RecordFailure(ctx, "user-1")
	if err != nil {
		t.Fatalf("fifth failure: %v", err)
	}
	if !locked {
		t.Fatal("fifth failure must trigger the lock")
	}

	isLocked, err := guard.IsLocked(ctx, "user-1")
	if err != nil {
		t.Fatalf("is locked: %v", err)
	}
	if !isLocked {
		t.Fatal("expected locked state")
	}

	until, ok, err := guard.LockedUntil(ctx, "user-1")
	if err != nil || !ok {
		t.Fatalf("locked until: ok=%v err=%v", ok, err)
	}
	if remaining := time.Until(until); remaining < 29*time.Minute || remaining > 31*time.Minute {
		t.Fatalf("unexpected unlock deadline, %v away", remaining)
	}
}

func TestSuccessResetsCounter(t *testing.T) {
	guard, _, done := newGuardTest(t, Config{Threshold: 5, Duration: time.Minute})
	defer done()
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		if _, err := guard.RecordFailure(ctx, "user-1"); err != nil {
			t.Fatalf("failure: %v", err)
		}
	}
	if err := guard.RecordSuccess(ctx, "user-1"); err != nil {
		t.Fatalf("success: %v", err)
	}

	count, err := guard.FailureCount(ctx, "user-1")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected counter reset, got %d", count)
	}

	// After the reset the next failure starts a fresh sequence.
	locked, err := guard.RecordFailure(ctx, "user-1")
	if err != nil {
		t.Fatalf("failure after reset: %v", err)
	}
	if locked {
		t.Fatal("single failure after reset must not lock")
	}
}

func TestLockExpiresWithTTL(t *testing.T) {
	guard, mr, done := newGuardTest(t, Config{Threshold: 2, Duration: time.Minute})
	defer done()
	ctx := context.Background()

	if _, err := guard.RecordFailure(ctx, "user-1"); err != nil {
		t.Fatalf("failure: %v", err)
	}
	locked, err := guard.RecordFailure(ctx, "user-1")
	if err != nil {
		t.Fatalf("failure: %v", err)
	}
	if !locked {
		t.Fatal("second failure must lock at threshold 2")
	}

	mr.FastForward(2 * time.Minute)

	isLocked, err := guard.IsLocked(ctx, "user-1")
	if err != nil {
		t.Fatalf("is locked: %v", err)
	}
	if isLocked {
		t.Fatal("lock must expire with its TTL")
	}
	count, err := guard.FailureCount(ctx, "user-1")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected counter cleared after lock, got %d", count)
	}
}

func TestFailureWindowRolls(t *testing.T) {
	guard, mr, done := newGuardTest(t, Config{Threshold: 5, Duration: time.Minute})
	defer done()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := guard.RecordFailure(ctx, "user-1"); err != nil {
			t.Fatalf("failure: %v", err)
		}
	}

	mr.FastForward(2 * time.Minute)

	count, err := guard.FailureCount(ctx, "user-1")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected stale counter to expire, got %d", count)
	}
}

func TestExplicitReset(t *testing.T) {
	guard, _, done := newGuardTest(t, Config{Threshold: 1, Duration: time.Hour})
	defer done()
	ctx := context.Background()

	locked, err := guard.RecordFailure(ctx, "user-1")
	if err != nil || !locked {
		t.Fatalf("expected immediate lock: locked=%v err=%v", locked, err)
	}

	if err := guard.Reset(ctx, "user-1"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	isLocked, err := guard.IsLocked(ctx, "user-1")
	if err != nil {
		t.Fatalf("is locked: %v", err)
	}
	if isLocked {
		t.Fatal("explicit reset must clear the lock")
	}
}

func TestEmptyPrincipalNoOp(t *testing.T) {
	guard, _, done := newGuardTest(t, Config{Threshold: 1, Duration: time.Minute})
	defer done()

	locked, err := guard.RecordFailure(context.Background(), "")
	if err != nil || locked {
		t.Fatalf("empty principal must be a no-op: locked=%v err=%v", locked, err)
	}
}
