package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrUnavailable indicates the session backend is unreachable.
var ErrUnavailable = errors.New("session backend unavailable")

// Registry is the Redis-backed session registry. Each session is stored
// under its refresh jti with the refresh token's TTL, and a per-principal
// set indexes the live session keys for list and invalidate-all.
type Registry struct {
	redis  redis.UniversalClient
	prefix string
}

// NewRegistry creates a Registry. prefix namespaces all keys.
func NewRegistry(redisClient redis.UniversalClient, prefix string) *Registry {
	if prefix == "" {
		prefix = "ases"
	}
	return &Registry{redis: redisClient, prefix: prefix}
}

func (r *Registry) sessionKey(principalID, refreshID string) string {
	return r.prefix + ":s:" + principalID + ":" + refreshID
}

func (r *Registry) indexKey(principalID string) string {
	return r.prefix + ":u:" + principalID
}

// Record persists a session with the given TTL and indexes it under the
// principal. The index set's TTL is refreshed to ttl on every write, so an
// abandoned principal's index disappears no later than its newest session.
func (r *Registry) Record(ctx context.Context, rec *Record, ttl time.Duration) error {
	data, err := Encode(rec)
	if err != nil {
		return err
	}

	_, err = r.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.sessionKey(rec.PrincipalID, rec.RefreshID), data, ttl)
		pipe.SAdd(ctx, r.indexKey(rec.PrincipalID), rec.RefreshID)
		pipe.Expire(ctx, r.indexKey(rec.PrincipalID), ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Replace swaps one session for its rotated successor in a single
// transaction: the burned refresh ID leaves the registry as the new one
// enters.
func (r *Registry) Replace(ctx context.Context, oldRefreshID string, rec *Record, ttl time.Duration) error {
	data, err := Encode(rec)
	if err != nil {
		return err
	}

	index := r.indexKey(rec.PrincipalID)
	_, err = r.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, r.sessionKey(rec.PrincipalID, oldRefreshID))
		pipe.SRem(ctx, index, oldRefreshID)
		pipe.Set(ctx, r.sessionKey(rec.PrincipalID, rec.RefreshID), data, ttl)
		pipe.SAdd(ctx, index, rec.RefreshID)
		pipe.Expire(ctx, index, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// List returns the principal's live sessions. Index entries whose session
// key has already expired are pruned as a side effect.
func (r *Registry) List(ctx context.Context, principalID string) ([]*Record, error) {
	refreshIDs, err := r.redis.SMembers(ctx, r.indexKey(principalID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []*Record{}, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(refreshIDs) == 0 {
		return []*Record{}, nil
	}

	pipe := r.redis.Pipeline()
	cmds := make([]*redis.StringCmd, len(refreshIDs))
	for i, id := range refreshIDs {
		cmds[i] = pipe.Get(ctx, r.sessionKey(principalID, id))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	records := make([]*Record, 0, len(refreshIDs))
	var stale []interface{}
	for i, cmd := range cmds {
		data, cmdErr := cmd.Bytes()
		if cmdErr != nil {
			if errors.Is(cmdErr, redis.Nil) {
				stale = append(stale, refreshIDs[i])
				continue
			}
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, cmdErr)
		}
		rec, decErr := Decode(data)
		if decErr != nil {
			return nil, decErr
		}
		records = append(records, rec)
	}

	if len(stale) > 0 {
		if err := r.redis.SRem(ctx, r.indexKey(principalID), stale...).Err(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	}

	return records, nil
}

// Delete removes a single session. Deleting an absent session is not an
// error.
func (r *Registry) Delete(ctx context.Context, principalID, refreshID string) error {
	_, err := r.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, r.sessionKey(principalID, refreshID))
		pipe.SRem(ctx, r.indexKey(principalID), refreshID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// DeleteAll removes every session of the principal and returns the deleted
// records so the caller can revoke their refresh tokens.
//
// ATOMICITY NOTE: the read and delete phases are separate commands. A
// session recorded between them survives this call; it is caught by the
// next DeleteAll or expires naturally. Mass invalidation on password change
// tolerates that window because the old password no longer mints sessions.
func (r *Registry) DeleteAll(ctx context.Context, principalID string) ([]*Record, error) {
	records, err := r.List(ctx, principalID)
	if err != nil {
		return nil, err
	}

	_, err = r.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, rec := range records {
			pipe.Del(ctx, r.sessionKey(principalID, rec.RefreshID))
		}
		pipe.Del(ctx, r.indexKey(principalID))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return records, nil
}

// Count returns the number of indexed sessions for a principal.
func (r *Registry) Count(ctx context.Context, principalID string) (int, error) {
	n, err := r.redis.SCard(ctx, r.indexKey(principalID)).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return int(n), nil
}

// Ping reports backend availability and round-trip latency.
func (r *Registry) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := r.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return time.Since(start), nil
}
