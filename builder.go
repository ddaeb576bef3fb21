package authkit

import (
	"errors"
	"log"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/taskhive/authkit/lockout"
	"github.com/taskhive/authkit/mfa"
	"github.com/taskhive/authkit/password"
	"github.com/taskhive/authkit/rbac"
	"github.com/taskhive/authkit/revocation"
	"github.com/taskhive/authkit/session"
	"github.com/taskhive/authkit/token"
)

// Builder assembles an Engine. Configure it during initialization, call
// Build once, and discard it.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	userProvider UserProvider
	roleUsage    rbac.RoleUsage
	customRoles  map[string][]rbac.Permission

	auditSink AuditSink
	registry  prometheus.Registerer
	logger    *log.Logger

	built bool
}

// New returns a Builder carrying the default configuration.
func New() *Builder {
	return &Builder{
		config:      defaultConfig(),
		customRoles: make(map[string][]rbac.Permission),
	}
}

// WithConfig replaces the configuration. Zero-value fields are filled from
// defaults at Build time.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the Redis client backing lockout, revocation, session, and
// MFA challenge state.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithUserProvider sets the user store collaborator.
func (b *Builder) WithUserProvider(up UserProvider) *Builder {
	b.userProvider = up
	return b
}

// WithRoleUsage sets the collaborator consulted before a custom role is
// deleted. Without it, deletion skips the in-use check.
func (b *Builder) WithRoleUsage(usage rbac.RoleUsage) *Builder {
	b.roleUsage = usage
	return b
}

// WithCustomRole registers a non-system role seeded at Build time.
func (b *Builder) WithCustomRole(name string, perms []rbac.Permission) *Builder {
	b.customRoles[name] = perms
	return b
}

// WithAuditSink sets the audit destination. Without one, audit events are
// dropped.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMetricsRegistry sets the Prometheus registerer for the engine's
// collectors. Without one they register on a private registry.
func (b *Builder) WithMetricsRegistry(reg prometheus.Registerer) *Builder {
	b.registry = reg
	return b
}

// WithLogger sets the logger for policy warnings, fail-open decisions
// included.
func (b *Builder) WithLogger(logger *log.Logger) *Builder {
	b.logger = logger
	return b
}

// Build validates the configuration, wires every store, seeds the role
// table, and returns a ready Engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := applyDefaults(cloneConfig(b.config))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if b.userProvider == nil {
		return nil, errors.New("user provider required")
	}
	if len(cfg.Token.PrivateKey) == 0 {
		return nil, errors.New("signing key required")
	}

	logger := b.logger
	if logger == nil {
		logger = log.New(os.Stderr, "authkit: ", log.LstdFlags)
	}

	tokens, err := token.NewService(token.Config{
		AccessTTL:  cfg.Token.AccessTTL,
		RefreshTTL: cfg.Token.RefreshTTL,
		PrivateKey: cfg.Token.PrivateKey,
		PublicKey:  cfg.Token.PublicKey,
		Issuer:     cfg.Token.Issuer,
		Leeway:     cfg.Token.Leeway,
	})
	if err != nil {
		return nil, err
	}

	hasher, err := password.NewHasher(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		return nil, err
	}

	roles := rbac.NewTable(b.roleUsage)
	for name, perms := range b.customRoles {
		if err := roles.CreateRole(name, perms); err != nil {
			return nil, err
		}
	}

	metrics := newMetrics(b.registry)

	engine := &Engine{
		config:  cfg,
		tokens:  tokens,
		hasher:  hasher,
		roles:   roles,
		users:   b.userProvider,
		metrics: metrics,
		logger:  logger,
	}

	prefix := cfg.Redis.KeyPrefix
	engine.guard = lockout.NewGuard(b.redis, prefix+":lo", lockout.Config{
		Threshold: cfg.Lockout.Threshold,
		Duration:  cfg.Lockout.Duration,
	})
	engine.revoked = revocation.NewStore(b.redis, prefix+":rv", cfg.Revocation.FailOpen, func(err error) {
		metrics.failOpenReads.Inc()
		logger.Printf("revocation backend down, failing open: %v", err)
	})
	engine.sessions = session.NewRegistry(b.redis, prefix+":se")
	engine.challenges = mfa.NewChallengeStore(b.redis, prefix+":mc")
	engine.totp = mfa.NewTOTPVerifier(mfa.TOTPConfig{
		Digits: cfg.MFA.TOTPDigits,
		Period: cfg.MFA.TOTPPeriod,
		Skew:   cfg.MFA.TOTPSkew,
	})
	engine.audit = newAuditDispatcher(cfg.Audit, b.auditSink)

	if cfg.Revocation.FailOpen {
		logger.Printf("revocation checks fail open; rotation still fails closed")
	}

	b.built = true

	return engine, nil
}
