package revocation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrUnavailable indicates the revocation backend is unreachable and
	// the configured policy does not permit recovery.
	ErrUnavailable = errors.New("revocation backend unavailable")
	// ErrAlreadyRevoked is returned by CheckAndRevoke when the token ID was
	// revoked before the call. On the refresh path this is reuse.
	ErrAlreadyRevoked = errors.New("token id already revoked")
)

// Store is the Redis-backed jti denylist.
type Store struct {
	redis    redis.UniversalClient
	prefix   string
	failOpen bool
	observer func(err error)
}

// NewStore creates a Store. observer is invoked on every fail-open decision
// with the backend error that triggered it; nil disables the callback (the
// decision is still taken, but the builder always wires logging here).
func NewStore(redisClient redis.UniversalClient, prefix string, failOpen bool, observer func(err error)) *Store {
	if prefix == "" {
		prefix = "arv"
	}
	return &Store{redis: redisClient, prefix: prefix, failOpen: failOpen, observer: observer}
}

func (s *Store) key(jti string) string {
	return s.prefix + ":" + jti
}

// Revoke denylists a token ID for ttl, which must be the token's remaining
// lifetime. A non-positive ttl means the token has already expired and the
// call is a no-op, not an error.
func (s *Store) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if jti == "" || ttl <= 0 {
		return nil
	}
	if err := s.redis.Set(ctx, s.key(jti), "1", ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// CheckAndRevoke atomically verifies the token ID is not yet revoked and
// revokes it, via SET NX with TTL. Exactly one of any number of concurrent
// callers succeeds; the rest get [ErrAlreadyRevoked]. Backend failures are
// always ErrUnavailable here regardless of the fail-open setting.
func (s *Store) CheckAndRevoke(ctx context.Context, jti string, ttl time.Duration) error {
	if jti == "" {
		return ErrAlreadyRevoked
	}
	if ttl <= 0 {
		// The token is already past exp; nothing left to protect.
		return ErrAlreadyRevoked
	}

	ok, err := s.redis.SetNX(ctx, s.key(jti), "1", ttl).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if !ok {
		return ErrAlreadyRevoked
	}
	return nil
}

// IsRevoked reports whether the token ID is denylisted. On backend failure
// the configured policy applies: fail-open reports not-revoked (observed via
// the callback), fail-closed returns ErrUnavailable.
func (s *Store) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := s.redis.Exists(ctx, s.key(jti)).Result()
	if err != nil {
		if s.failOpen {
			if s.observer != nil {
				s.observer(err)
			}
			return false, nil
		}
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return n > 0, nil
}

// FailOpen reports the active availability policy, for introspection and
// startup logging.
func (s *Store) FailOpen() bool {
	return s.failOpen
}
