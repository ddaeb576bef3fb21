package lockout

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrUnavailable indicates the lockout backend is unreachable. Callers
// surface it as a service-unavailable condition; login never proceeds with
// an unknown lock state.
var ErrUnavailable = errors.New("lockout backend unavailable")

// Config holds the lockout policy.
type Config struct {
	Threshold int           // consecutive failures before locking
	Duration  time.Duration // lock duration; also the failure-count window
}

// recordFailureScript increments the failure counter and, when the counter
// reaches the threshold, sets the lock key in the same atomic step. The
// counter key carries a rolling window equal to the lock duration. Returns
// {count, locked}.
const recordFailureScript = `
local count = redis.call("INCR", KEYS[1])
if count == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
if count >= tonumber(ARGV[1]) then
  redis.call("SET", KEYS[2], ARGV[3], "PX", ARGV[2])
  redis.call("DEL", KEYS[1])
  return {count, 1}
end
return {count, 0}
`

var recordFailureLua = redis.NewScript(recordFailureScript)

// Guard is the Redis-backed lockout state machine:
// ACTIVE → (failures ≥ threshold) → LOCKED → (lock TTL expires) → ACTIVE.
type Guard struct {
	redis  redis.UniversalClient
	prefix string
	config Config
}

// NewGuard creates a Guard. prefix namespaces the counter and lock keys.
func NewGuard(redisClient redis.UniversalClient, prefix string, cfg Config) *Guard {
	if prefix == "" {
		prefix = "alo"
	}
	return &Guard{redis: redisClient, prefix: prefix, config: cfg}
}

func (g *Guard) failKey(principalID string) string {
	return g.prefix + ":f:" + principalID
}

func (g *Guard) lockKey(principalID string) string {
	return g.prefix + ":l:" + principalID
}

// RecordFailure atomically increments the failure counter and locks the
// account when the threshold is reached. Returns whether this failure
// triggered the lock.
func (g *Guard) RecordFailure(ctx context.Context, principalID string) (bool, error) {
	if principalID == "" {
		return false, nil
	}

	unlockAt := time.Now().Add(g.config.Duration).UnixMilli()
	result, err := recordFailureLua.Run(
		ctx,
		g.redis,
		[]string{g.failKey(principalID), g.lockKey(principalID)},
		g.config.Threshold,
		g.config.Duration.Milliseconds(),
		strconv.FormatInt(unlockAt, 10),
	).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	parts, ok := result.([]interface{})
	if !ok || len(parts) != 2 {
		return false, fmt.Errorf("%w: invalid lockout script response", ErrUnavailable)
	}
	locked, ok := parts[1].(int64)
	if !ok {
		return false, fmt.Errorf("%w: invalid lockout script status", ErrUnavailable)
	}
	return locked == 1, nil
}

// RecordSuccess resets the failure counter and clears any lock. Called on
// successful login and on explicit password reset; nothing else resets the
// counter.
func (g *Guard) RecordSuccess(ctx context.Context, principalID string) error {
	if principalID == "" {
		return nil
	}
	if err := g.redis.Del(ctx, g.failKey(principalID), g.lockKey(principalID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Reset is the explicit administrative unlock. Identical to RecordSuccess;
// named separately so call sites read as intent.
func (g *Guard) Reset(ctx context.Context, principalID string) error {
	return g.RecordSuccess(ctx, principalID)
}

// IsLocked reports whether the principal is currently locked. The ACTIVE
// transition after the lock window needs no write: the lock key simply
// expires.
func (g *Guard) IsLocked(ctx context.Context, principalID string) (bool, error) {
	n, err := g.redis.Exists(ctx, g.lockKey(principalID)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return n > 0, nil
}

// LockedUntil returns the unlock deadline while locked. The second return
// is false when the account is not locked.
func (g *Guard) LockedUntil(ctx context.Context, principalID string) (time.Time, bool, error) {
	val, err := g.redis.Get(ctx, g.lockKey(principalID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	ms, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("%w: corrupt lock value", ErrUnavailable)
	}
	return time.UnixMilli(ms), true, nil
}

// FailureCount returns the current consecutive-failure count.
func (g *Guard) FailureCount(ctx context.Context, principalID string) (int, error) {
	count, err := g.redis.Get(ctx, g.failKey(principalID)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return int(count), nil
}
