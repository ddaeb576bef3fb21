package authkit

import (
	"context"
	"errors"
	"log"
	"sync/atomic"
	"time"

	"github.com/taskhive/authkit/lockout"
	"github.com/taskhive/authkit/mfa"
	"github.com/taskhive/authkit/password"
	"github.com/taskhive/authkit/rbac"
	"github.com/taskhive/authkit/revocation"
	"github.com/taskhive/authkit/session"
	"github.com/taskhive/authkit/token"
)

// Engine is the authentication and authorization core. Construct it through
// [New] and [Builder.Build]; all methods are safe for concurrent use.
type Engine struct {
	config Config

	tokens     *token.Service
	hasher     *password.Hasher
	guard      *lockout.Guard
	revoked    *revocation.Store
	sessions   *session.Registry
	challenges *mfa.ChallengeStore
	totp       *mfa.TOTPVerifier
	roles      *rbac.Table
	users      UserProvider

	audit   *auditDispatcher
	metrics *Metrics
	logger  *log.Logger

	closed atomic.Bool
}

// Close flushes the audit dispatcher. The engine must not be used after
// Close returns.
func (e *Engine) Close() {
	if e.closed.Swap(true) {
		return
	}
	e.audit.close()
}

func (e *Engine) checkOpen() error {
	if e.closed.Load() {
		return ErrEngineClosed
	}
	return nil
}

// IssueAccessToken signs a fresh access token for the principal.
func (e *Engine) IssueAccessToken(p Principal) (string, error) {
	if err := e.checkOpen(); err != nil {
		return "", err
	}
	signed, _, err := e.tokens.IssueAccess(p.ID, p.Roles)
	return signed, err
}

// IssueRefreshToken signs a fresh refresh token for the principal.
func (e *Engine) IssueRefreshToken(principalID string, roles []string) (string, error) {
	if err := e.checkOpen(); err != nil {
		return "", err
	}
	signed, _, err := e.tokens.IssueRefresh(principalID, roles)
	return signed, err
}

// ValidateAccessToken verifies signature, expiry, type, and revocation
// state of an access token, returning its claims.
func (e *Engine) ValidateAccessToken(ctx context.Context, tokenStr string) (*token.Claims, error) {
	return e.validateToken(ctx, tokenStr, token.TypeAccess)
}

// ValidateRefreshToken verifies signature, expiry, type, and revocation
// state of a refresh token, returning its claims. Validation does not burn
// the token; use [Engine.RotateRefreshToken] for that.
func (e *Engine) ValidateRefreshToken(ctx context.Context, tokenStr string) (*token.Claims, error) {
	return e.validateToken(ctx, tokenStr, token.TypeRefresh)
}

func (e *Engine) validateToken(ctx context.Context, tokenStr string, want token.Type) (*token.Claims, error) {
	if err := e.checkOpen(); err != nil {
		return nil, err
	}

	claims, err := e.tokens.Decode(tokenStr)
	if err != nil {
		return nil, mapTokenError(err)
	}
	if claims.TokenType != want {
		return nil, ErrWrongTokenType
	}

	revoked, err := e.revoked.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, ErrServiceUnavailable
	}
	if revoked {
		return nil, ErrTokenRevoked
	}

	return claims, nil
}

// Revoke denylists the presented token for its remaining lifetime. Revoking
// an already-expired token is a no-op. Malformed tokens are rejected.
func (e *Engine) Revoke(ctx context.Context, tokenStr string) error {
	if err := e.checkOpen(); err != nil {
		return err
	}

	claims, err := e.tokens.DecodeUnsafe(tokenStr)
	if err != nil {
		return mapTokenError(err)
	}

	ttl := token.RemainingTTL(claims, time.Now())
	if ttl <= 0 {
		return nil
	}
	if err := e.revoked.Revoke(ctx, claims.ID, ttl); err != nil {
		return ErrServiceUnavailable
	}

	e.metrics.revocations.Inc()
	e.audit.emit(AuditEvent{
		EventType:   AuditTokenRevoked,
		PrincipalID: claims.Subject,
		IP:          clientIP(ctx),
		Success:     true,
	})
	return nil
}

// Sessions lists the principal's live sessions.
func (e *Engine) Sessions(ctx context.Context, principalID string) ([]*session.Record, error) {
	if err := e.checkOpen(); err != nil {
		return nil, err
	}
	records, err := e.sessions.List(ctx, principalID)
	if err != nil {
		return nil, ErrServiceUnavailable
	}
	return records, nil
}

// FailureCount returns the principal's current consecutive-failure count.
func (e *Engine) FailureCount(ctx context.Context, principalID string) (int, error) {
	if err := e.checkOpen(); err != nil {
		return 0, err
	}
	return e.guard.FailureCount(ctx, principalID)
}

// LockedUntil returns the unlock deadline while the principal is locked.
func (e *Engine) LockedUntil(ctx context.Context, principalID string) (time.Time, bool, error) {
	if err := e.checkOpen(); err != nil {
		return time.Time{}, false, err
	}
	return e.guard.LockedUntil(ctx, principalID)
}

// ResetLockout clears the principal's failure counter and any active lock.
// Administrative operation; nothing else unlocks before the window expires.
func (e *Engine) ResetLockout(ctx context.Context, principalID string) error {
	if err := e.checkOpen(); err != nil {
		return err
	}
	if err := e.guard.Reset(ctx, principalID); err != nil {
		return ErrServiceUnavailable
	}
	return nil
}

// issuePair signs an access/refresh pair and records the session keyed by
// the refresh jti.
func (e *Engine) issuePair(ctx context.Context, principalID string, roles []string) (*TokenPair, error) {
	access, _, err := e.tokens.IssueAccess(principalID, roles)
	if err != nil {
		return nil, err
	}
	refresh, refreshClaims, err := e.tokens.IssueRefresh(principalID, roles)
	if err != nil {
		return nil, err
	}

	rec := &session.Record{
		PrincipalID:      principalID,
		RefreshID:        refreshClaims.ID,
		RefreshExpiresAt: refreshClaims.ExpiresAt.Unix(),
		CreatedAt:        time.Now().Unix(),
	}
	if err := e.sessions.Record(ctx, rec, token.RemainingTTL(refreshClaims, time.Now())); err != nil {
		return nil, ErrServiceUnavailable
	}

	e.metrics.sessionsOpen.Inc()
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// lookupUser translates provider misses into ErrUserNotFound and backend
// failures into ErrServiceUnavailable.
func (e *Engine) lookupUser(ctx context.Context, id string) (*UserRecord, error) {
	user, err := e.users.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, ErrServiceUnavailable
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}
