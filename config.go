package authkit

import (
	"errors"
	"time"
)

// TokenConfig holds signing material and token lifetimes.
type TokenConfig struct {
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	PrivateKey []byte // ed25519 seed/private key, raw or PEM
	PublicKey  []byte // ed25519 public key, raw or PEM
	Issuer     string
	Leeway     time.Duration
}

// PasswordConfig holds the argon2id work factors and history policy.
type PasswordConfig struct {
	Memory      uint32 // in KB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
	// HistoryLimit is how many previous hashes are retained and checked
	// against reuse on password change.
	HistoryLimit int
}

// LockoutConfig holds the failed-login lockout policy.
type LockoutConfig struct {
	Threshold int
	Duration  time.Duration
}

// MFAConfig holds the challenge and TOTP policy.
type MFAConfig struct {
	ChallengeTTL time.Duration
	// MaxAttempts is how many wrong codes a single challenge absorbs before
	// it is destroyed.
	MaxAttempts int
	TOTPDigits  int
	TOTPPeriod  int
	TOTPSkew    int
}

// RevocationConfig holds the denylist availability policy.
type RevocationConfig struct {
	// FailOpen controls IsRevoked behavior when the backend is down: treat
	// the token as not revoked (favoring availability) or fail the request.
	// Rotation ignores this and always fails closed.
	FailOpen bool
}

// RedisConfig namespaces the engine's keys.
type RedisConfig struct {
	KeyPrefix string
}

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
}

// Config is the complete engine configuration. Zero-value fields are filled
// from defaults by the builder; explicit values always win.
type Config struct {
	Token      TokenConfig
	Password   PasswordConfig
	Lockout    LockoutConfig
	MFA        MFAConfig
	Revocation RevocationConfig
	Redis      RedisConfig
	Audit      AuditConfig
}

func defaultConfig() Config {
	return Config{
		Token: TokenConfig{
			AccessTTL:  15 * time.Minute,
			RefreshTTL: 168 * time.Hour,
			Leeway:     30 * time.Second,
		},
		Password: PasswordConfig{
			Memory:       64 * 1024,
			Time:         3,
			Parallelism:  2,
			SaltLength:   16,
			KeyLength:    32,
			HistoryLimit: 10,
		},
		Lockout: LockoutConfig{
			Threshold: 5,
			Duration:  30 * time.Minute,
		},
		MFA: MFAConfig{
			ChallengeTTL: 10 * time.Minute,
			MaxAttempts:  5,
			TOTPDigits:   6,
			TOTPPeriod:   30,
			TOTPSkew:     1,
		},
		Revocation: RevocationConfig{
			FailOpen: true,
		},
		Redis: RedisConfig{
			KeyPrefix: "authkit",
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 256,
		},
	}
}

// Validate checks the configuration for values the engine cannot run with.
func (c *Config) Validate() error {
	if c.Token.AccessTTL <= 0 {
		return errors.New("Token.AccessTTL must be positive")
	}
	if c.Token.RefreshTTL <= c.Token.AccessTTL {
		return errors.New("Token.RefreshTTL must exceed Token.AccessTTL")
	}
	if c.Lockout.Threshold < 1 {
		return errors.New("Lockout.Threshold must be >= 1")
	}
	if c.Lockout.Duration <= 0 {
		return errors.New("Lockout.Duration must be positive")
	}
	if c.MFA.ChallengeTTL <= 0 {
		return errors.New("MFA.ChallengeTTL must be positive")
	}
	if c.MFA.MaxAttempts < 1 {
		return errors.New("MFA.MaxAttempts must be >= 1")
	}
	if c.Password.HistoryLimit < 0 {
		return errors.New("Password.HistoryLimit must not be negative")
	}
	if c.Audit.Enabled && c.Audit.BufferSize < 1 {
		return errors.New("Audit.BufferSize must be >= 1 when audit is enabled")
	}
	return nil
}

// applyDefaults fills zero-value fields from the default configuration so a
// partially specified Config stays usable.
func applyDefaults(cfg Config) Config {
	def := defaultConfig()

	if cfg.Token.AccessTTL == 0 {
		cfg.Token.AccessTTL = def.Token.AccessTTL
	}
	if cfg.Token.RefreshTTL == 0 {
		cfg.Token.RefreshTTL = def.Token.RefreshTTL
	}
	if cfg.Token.Leeway == 0 {
		cfg.Token.Leeway = def.Token.Leeway
	}
	if cfg.Password.Memory == 0 {
		cfg.Password.Memory = def.Password.Memory
	}
	if cfg.Password.Time == 0 {
		cfg.Password.Time = def.Password.Time
	}
	if cfg.Password.Parallelism == 0 {
		cfg.Password.Parallelism = def.Password.Parallelism
	}
	if cfg.Password.SaltLength == 0 {
		cfg.Password.SaltLength = def.Password.SaltLength
	}
	if cfg.Password.KeyLength == 0 {
		cfg.Password.KeyLength = def.Password.KeyLength
	}
	if cfg.Password.HistoryLimit == 0 {
		cfg.Password.HistoryLimit = def.Password.HistoryLimit
	}
	if cfg.Lockout.Threshold == 0 {
		cfg.Lockout.Threshold = def.Lockout.Threshold
	}
	if cfg.Lockout.Duration == 0 {
		cfg.Lockout.Duration = def.Lockout.Duration
	}
	if cfg.MFA.ChallengeTTL == 0 {
		cfg.MFA.ChallengeTTL = def.MFA.ChallengeTTL
	}
	if cfg.MFA.MaxAttempts == 0 {
		cfg.MFA.MaxAttempts = def.MFA.MaxAttempts
	}
	if cfg.MFA.TOTPDigits == 0 {
		cfg.MFA.TOTPDigits = def.MFA.TOTPDigits
	}
	if cfg.MFA.TOTPPeriod == 0 {
		cfg.MFA.TOTPPeriod = def.MFA.TOTPPeriod
	}
	if cfg.MFA.TOTPSkew == 0 {
		cfg.MFA.TOTPSkew = def.MFA.TOTPSkew
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = def.Redis.KeyPrefix
	}
	if cfg.Audit.Enabled && cfg.Audit.BufferSize == 0 {
		cfg.Audit.BufferSize = def.Audit.BufferSize
	}

	return cfg
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Token.PrivateKey = cloneBytes(cfg.Token.PrivateKey)
	out.Token.PublicKey = cloneBytes(cfg.Token.PublicKey)
	return out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
