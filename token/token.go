package token

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Type tags a token as an access or refresh credential. The two kinds are
// never interchangeable: validation rejects a token presented as the wrong
// kind with [ErrWrongType].
type Type string

const (
	// TypeAccess is the short-lived credential authorizing API calls.
	TypeAccess Type = "access"
	// TypeRefresh is the longer-lived single-use credential that mints new
	// access/refresh pairs.
	TypeRefresh Type = "refresh"
)

var (
	// ErrExpired is returned when a token's exp has passed. The signature
	// was otherwise valid.
	ErrExpired = errors.New("token expired")
	// ErrInvalid is returned for malformed payloads, bad signatures, and
	// unexpected signing algorithms.
	ErrInvalid = errors.New("invalid token")
	// ErrWrongType is returned when an access token is presented where a
	// refresh token is required, or vice versa.
	ErrWrongType = errors.New("wrong token type")
)

// Claims is the full payload of an issued token. jti and sub map onto the
// registered ID and Subject claims; Roles and TokenType are private claims.
// Claims are immutable after issuance; a changed token is always a newly
// issued one.
type Claims struct {
	Roles     []string `json:"roles,omitempty"`
	TokenType Type     `json:"type"`
	jwt.RegisteredClaims
}

// Config holds signing material and expiry policy for a [Service].
type Config struct {
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	PrivateKey []byte // ed25519 seed/private key, raw or PEM
	PublicKey  []byte // ed25519 public key, raw or PEM
	Issuer     string
	Leeway     time.Duration // clock skew tolerance on exp/iat comparison
}

// Service signs and verifies tokens. Instances are configured once and are
// safe for concurrent use.
type Service struct {
	config    Config
	signKey   ed25519.PrivateKey
	verifyKey ed25519.PublicKey
}

// NewService validates cfg and parses the key material. A private key is
// only required when the service issues tokens; validators may construct a
// Service with just the public key.
func NewService(cfg Config) (*Service, error) {
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}

	s := &Service{config: cfg}

	if len(cfg.PrivateKey) > 0 {
		key, err := parsePrivateKey(cfg.PrivateKey)
		if err != nil {
			return nil, err
		}
		s.signKey = key
		s.verifyKey = key.Public().(ed25519.PublicKey)
	}
	if len(cfg.PublicKey) > 0 {
		key, err := parsePublicKey(cfg.PublicKey)
		if err != nil {
			return nil, err
		}
		s.verifyKey = key
	}
	if s.verifyKey == nil {
		return nil, errors.New("ed25519 public or private key required")
	}

	return s, nil
}

// IssueAccess signs a new access token for the principal. The jti is a
// fresh UUID and exp is now + AccessTTL.
func (s *Service) IssueAccess(principalID string, roles []string) (string, *Claims, error) {
	return s.issue(principalID, roles, TypeAccess, s.config.AccessTTL)
}

// IssueRefresh signs a new refresh token with exp = now + RefreshTTL.
func (s *Service) IssueRefresh(principalID string, roles []string) (string, *Claims, error) {
	return s.issue(principalID, roles, TypeRefresh, s.config.RefreshTTL)
}

func (s *Service) issue(principalID string, roles []string, kind Type, ttl time.Duration) (string, *Claims, error) {
	if s.signKey == nil {
		return "", nil, errors.New("service has no signing key")
	}

	now := time.Now()
	claims := &Claims{
		Roles:     append([]string(nil), roles...),
		TokenType: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   principalID,
			Issuer:    s.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims).SignedString(s.signKey)
	if err != nil {
		return "", nil, err
	}
	return signed, claims, nil
}

// Decode verifies the signature and expiry of a token string. Expiry
// failures map to [ErrExpired]; every other failure maps to [ErrInvalid].
func (s *Service) Decode(tokenStr string) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodEdDSA.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if s.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(s.config.Leeway))
	}
	if s.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(s.config.Issuer))
	}

	parsed, err := jwt.NewParser(options...).ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodEdDSA.Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		return s.verifyKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %v", ErrExpired, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalid
	}
	if claims.ID == "" || claims.Subject == "" {
		return nil, ErrInvalid
	}
	switch claims.TokenType {
	case TypeAccess, TypeRefresh:
	default:
		return nil, ErrInvalid
	}

	return claims, nil
}

// DecodeUnsafe parses claims without failing on expiry. Used by revocation,
// where an already-expired token is a no-op rather than an error.
func (s *Service) DecodeUnsafe(tokenStr string) (*Claims, error) {
	claims, err := s.Decode(tokenStr)
	if err == nil {
		return claims, nil
	}
	if !errors.Is(err, ErrExpired) {
		return nil, err
	}

	expired := &Claims{}
	_, parseErr := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodEdDSA.Alg()}),
		jwt.WithoutClaimsValidation(),
	).ParseWithClaims(tokenStr, expired, func(t *jwt.Token) (interface{}, error) {
		return s.verifyKey, nil
	})
	if parseErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, parseErr)
	}
	return expired, nil
}

// RemainingTTL reports how long the token is still usable. The result is
// clamped at zero for expired tokens.
func RemainingTTL(claims *Claims, now time.Time) time.Duration {
	if claims == nil || claims.ExpiresAt == nil {
		return 0
	}
	remaining := claims.ExpiresAt.Time.Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// GenerateKeys produces a fresh Ed25519 key pair in the raw byte form
// accepted by [Config].
func GenerateKeys() (publicKey, privateKey []byte, err error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, nil, err
	}
	return pub, priv, nil
}

func parsePrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	if len(key) == ed25519.SeedSize {
		return ed25519.NewKeyFromSeed(key), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 private key")
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("invalid ed25519 private key type")
	}
	return edKey, nil
}

func parsePublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("invalid ed25519 public key type")
	}
	return edKey, nil
}
