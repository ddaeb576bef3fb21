package authkit

import (
	"time"

	"github.com/caarlos0/env/v11"
)

type envConfig struct {
	AccessTokenTTL       time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"15m"`
	RefreshTokenTTL      time.Duration `env:"REFRESH_TOKEN_TTL" envDefault:"168h"`
	LockoutThreshold     int           `env:"LOCKOUT_THRESHOLD" envDefault:"5"`
	LockoutDuration      time.Duration `env:"LOCKOUT_DURATION" envDefault:"30m"`
	MFAChallengeTTL      time.Duration `env:"MFA_CHALLENGE_TTL" envDefault:"10m"`
	PasswordHistoryLimit int           `env:"PASSWORD_HISTORY_LIMIT" envDefault:"10"`
	BlacklistFailOpen    bool          `env:"BLACKLIST_FAIL_OPEN" envDefault:"true"`
	RedisKeyPrefix       string        `env:"AUTH_REDIS_KEY_PREFIX" envDefault:"authkit"`
	TokenIssuer          string        `env:"TOKEN_ISSUER"`
}

// ConfigFromEnv builds a Config from environment variables layered over the
// defaults. Signing keys never travel through the environment; set them on
// the returned Config before Build.
func ConfigFromEnv() (Config, error) {
	var ec envConfig
	if err := env.Parse(&ec); err != nil {
		return Config{}, err
	}

	cfg := defaultConfig()
	cfg.Token.AccessTTL = ec.AccessTokenTTL
	cfg.Token.RefreshTTL = ec.RefreshTokenTTL
	cfg.Token.Issuer = ec.TokenIssuer
	cfg.Lockout.Threshold = ec.LockoutThreshold
	cfg.Lockout.Duration = ec.LockoutDuration
	cfg.MFA.ChallengeTTL = ec.MFAChallengeTTL
	cfg.Password.HistoryLimit = ec.PasswordHistoryLimit
	cfg.Revocation.FailOpen = ec.BlacklistFailOpen
	cfg.Redis.KeyPrefix = ec.RedisKeyPrefix

	return cfg, nil
}
