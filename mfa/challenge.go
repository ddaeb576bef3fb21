package mfa

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"
)

// Method is the second-factor transport. Only TOTP has a verification
// algorithm; SMS and email exist as enum cases and fail with
// not-implemented at the engine boundary.
type Method uint8

const (
	MethodTOTP Method = iota
	MethodSMS
	MethodEmail
)

const (
	challengeRecordVersion1 = 1
	challengeTokenBytes     = 24
)

var (
	// ErrChallengeNotFound covers absent, expired, and mismatched
	// challenges alike; callers cannot tell which case occurred.
	ErrChallengeNotFound = errors.New("mfa challenge not found")
	// ErrChallengeExpired is an internal refinement of not-found used
	// between store and engine.
	ErrChallengeExpired = errors.New("mfa challenge expired")
	// ErrChallengeExceeded is returned when the failure cap deletes the
	// challenge.
	ErrChallengeExceeded = errors.New("mfa challenge attempts exceeded")
	// ErrUnavailable indicates the challenge backend is unreachable.
	ErrUnavailable = errors.New("mfa challenge backend unavailable")
)

// Challenge is the stored state of one issued MFA challenge.
type Challenge struct {
	PrincipalID string
	Method      Method
	ExpiresAt   int64 // unix seconds
	Attempts    uint16
}

// ChallengeStore keeps issued challenges in Redis, keyed by the opaque
// challenge token round-tripped through the client.
type ChallengeStore struct {
	redis  redis.UniversalClient
	prefix string
}

// NewChallengeStore creates a ChallengeStore.
func NewChallengeStore(redisClient redis.UniversalClient, prefix string) *ChallengeStore {
	if prefix == "" {
		prefix = "amc"
	}
	return &ChallengeStore{redis: redisClient, prefix: prefix}
}

// NewChallengeToken returns a fresh random challenge token in compact
// base64url form.
func NewChallengeToken() (string, error) {
	raw := make([]byte, challengeTokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

func (s *ChallengeStore) key(challengeToken string) string {
	return s.prefix + ":" + challengeToken
}

// Save stores a challenge under its token with the given TTL.
func (s *ChallengeStore) Save(ctx context.Context, challengeToken string, ch *Challenge, ttl time.Duration) error {
	encoded, err := encodeChallenge(ch)
	if err != nil {
		return err
	}
	if err := s.redis.Set(ctx, s.key(challengeToken), encoded, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Get retrieves a live challenge. Expired records are deleted on read and
// reported as expired.
func (s *ChallengeStore) Get(ctx context.Context, challengeToken string) (*Challenge, error) {
	data, err := s.redis.Get(ctx, s.key(challengeToken)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrChallengeNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	ch, err := decodeChallenge(data)
	if err != nil {
		return nil, err
	}
	if time.Now().Unix() > ch.ExpiresAt {
		_, _ = s.redis.Del(ctx, s.key(challengeToken)).Result()
		return nil, ErrChallengeExpired
	}
	return ch, nil
}

// Delete removes a challenge and reports whether it existed. The single-use
// guarantee hinges on this: of two racing verifications, only the one whose
// Delete returns true may proceed to token issuance.
func (s *ChallengeStore) Delete(ctx context.Context, challengeToken string) (bool, error) {
	n, err := s.redis.Del(ctx, s.key(challengeToken)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return n > 0, nil
}

// RecordFailure increments the challenge's failure counter inside a WATCH
// transaction, deleting the challenge when maxAttempts is reached. Returns
// whether the cap was hit.
func (s *ChallengeStore) RecordFailure(ctx context.Context, challengeToken string, maxAttempts int) (bool, error) {
	const maxRetries = 4
	key := s.key(challengeToken)

	for i := 0; i < maxRetries; i++ {
		var exceeded bool
		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				return err
			}

			ch, err := decodeChallenge(data)
			if err != nil {
				return err
			}
			if time.Now().Unix() > ch.ExpiresAt {
				if _, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.Del(ctx, key)
					return nil
				}); err != nil {
					return err
				}
				return ErrChallengeExpired
			}

			ch.Attempts++
			if int(ch.Attempts) >= maxAttempts {
				exceeded = true
				_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.Del(ctx, key)
					return nil
				})
				return err
			}

			ttl := time.Until(time.Unix(ch.ExpiresAt, 0))
			if ttl <= 0 {
				if _, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.Del(ctx, key)
					return nil
				}); err != nil {
					return err
				}
				return ErrChallengeExpired
			}

			updated, err := encodeChallenge(ch)
			if err != nil {
				return err
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, updated, ttl)
				return nil
			})
			return err
		}, key)

		if err == redis.TxFailedErr {
			continue
		}
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return false, ErrChallengeNotFound
			}
			if errors.Is(err, ErrChallengeExpired) {
				return false, err
			}
			return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return exceeded, nil
	}

	return false, ErrChallengeNotFound
}

func encodeChallenge(ch *Challenge) ([]byte, error) {
	if len(ch.PrincipalID) > 65535 {
		return nil, errors.New("mfa principal id length exceeded")
	}

	var buf bytes.Buffer
	buf.WriteByte(challengeRecordVersion1)
	buf.WriteByte(byte(ch.Method))

	if err := binary.Write(&buf, binary.BigEndian, ch.Attempts); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, ch.ExpiresAt); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, uint16(len(ch.PrincipalID))); err != nil {
		return nil, err
	}
	buf.WriteString(ch.PrincipalID)

	return buf.Bytes(), nil
}

func decodeChallenge(data []byte) (*Challenge, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != challengeRecordVersion1 {
		return nil, errors.New("invalid mfa challenge version")
	}

	method, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}

	ch := &Challenge{Method: Method(method)}
	if err := binary.Read(reader, binary.BigEndian, &ch.Attempts); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &ch.ExpiresAt); err != nil {
		return nil, err
	}

	var idLen uint16
	if err := binary.Read(reader, binary.BigEndian, &idLen); err != nil {
		return nil, err
	}
	id := make([]byte, idLen)
	if _, err := io.ReadFull(reader, id); err != nil {
		return nil, err
	}
	ch.PrincipalID = string(id)

	return ch, nil
}
