package authkit

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "authkit"

// Metrics holds the engine's Prometheus collectors. All collectors are
// registered on the registerer given to the builder; with none given they
// live on a private registry and cost almost nothing.
type Metrics struct {
	loginSuccess  prometheus.Counter
	loginFailure  prometheus.Counter
	loginLocked   prometheus.Counter
	mfaIssued     prometheus.Counter
	mfaSuccess    prometheus.Counter
	mfaFailure    prometheus.Counter
	rotations     prometheus.Counter
	rotationReuse prometheus.Counter
	revocations   prometheus.Counter
	failOpenReads prometheus.Counter
	sessionsOpen  prometheus.Counter
	sessionsEnded prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Metrics{
		loginSuccess: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "login_success_total",
			Help:      "Successful logins, including MFA completions.",
		}),
		loginFailure: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "login_failure_total",
			Help:      "Failed credential checks.",
		}),
		loginLocked: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "login_locked_total",
			Help:      "Login attempts rejected by an active lockout.",
		}),
		mfaIssued: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "mfa_challenges_issued_total",
			Help:      "MFA challenges issued after a successful credential check.",
		}),
		mfaSuccess: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "mfa_success_total",
			Help:      "MFA challenges completed successfully.",
		}),
		mfaFailure: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "mfa_failure_total",
			Help:      "Wrong MFA codes.",
		}),
		rotations: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "refresh_rotations_total",
			Help:      "Successful refresh token rotations.",
		}),
		rotationReuse: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "refresh_reuse_detected_total",
			Help:      "Refresh rotations rejected because the token was already burned.",
		}),
		revocations: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "tokens_revoked_total",
			Help:      "Tokens explicitly revoked.",
		}),
		failOpenReads: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "revocation_fail_open_total",
			Help:      "Revocation checks answered not-revoked because the backend was down.",
		}),
		sessionsOpen: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "sessions_created_total",
			Help:      "Sessions recorded at login and MFA completion.",
		}),
		sessionsEnded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "sessions_invalidated_total",
			Help:      "Sessions removed by logout, logout-all, and reuse response.",
		}),
	}
}
