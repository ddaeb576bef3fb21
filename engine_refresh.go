package authkit

import (
	"context"
	"errors"
	"time"

	"github.com/taskhive/authkit/revocation"
	"github.com/taskhive/authkit/session"
	"github.com/taskhive/authkit/token"
)

// RotateRefreshToken exchanges a refresh token for a fresh access/refresh
// pair, burning the presented token in the same step.
//
// The burn is a compare-and-set on the denylist: of any number of concurrent
// rotations of one token, exactly one wins. The losers see reuse, which is
// reported as [ErrTokenRevoked] and additionally tears down the session the
// token belonged to. Rotation always fails closed when the denylist is
// unreachable, even when validation is configured to fail open.
func (e *Engine) RotateRefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if err := e.checkOpen(); err != nil {
		return nil, err
	}

	claims, err := e.tokens.Decode(refreshToken)
	if err != nil {
		return nil, mapTokenError(err)
	}
	if claims.TokenType != token.TypeRefresh {
		return nil, ErrWrongTokenType
	}

	remaining := token.RemainingTTL(claims, time.Now())
	if err := e.revoked.CheckAndRevoke(ctx, claims.ID, remaining); err != nil {
		if errors.Is(err, revocation.ErrAlreadyRevoked) {
			return nil, e.handleRefreshReuse(ctx, claims)
		}
		return nil, ErrServiceUnavailable
	}

	user, err := e.lookupUser(ctx, claims.Subject)
	if err != nil {
		return nil, err
	}
	switch user.Status {
	case StatusDisabled:
		return nil, ErrAccountDisabled
	case StatusPendingVerification:
		return nil, ErrEmailVerificationRequired
	}

	access, _, err := e.tokens.IssueAccess(user.ID, user.Roles)
	if err != nil {
		return nil, err
	}
	refresh, refreshClaims, err := e.tokens.IssueRefresh(user.ID, user.Roles)
	if err != nil {
		return nil, err
	}

	rec := &session.Record{
		PrincipalID:      user.ID,
		RefreshID:        refreshClaims.ID,
		RefreshExpiresAt: refreshClaims.ExpiresAt.Unix(),
		CreatedAt:        time.Now().Unix(),
	}
	if err := e.sessions.Replace(ctx, claims.ID, rec, token.RemainingTTL(refreshClaims, time.Now())); err != nil {
		return nil, ErrServiceUnavailable
	}

	e.metrics.rotations.Inc()
	e.audit.emit(AuditEvent{
		EventType:   AuditTokenRefreshed,
		PrincipalID: user.ID,
		IP:          clientIP(ctx),
		Success:     true,
	})

	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// handleRefreshReuse responds to a rotation of an already-burned token. The
// session the token belonged to is torn down; presenting a burned refresh
// token means either a very stale client or a stolen token, and the session
// is not worth keeping in either case.
func (e *Engine) handleRefreshReuse(ctx context.Context, claims *token.Claims) error {
	e.metrics.rotationReuse.Inc()
	e.audit.emit(AuditEvent{
		EventType:   AuditRefreshReuse,
		PrincipalID: claims.Subject,
		IP:          clientIP(ctx),
		Error:       ErrTokenRevoked.Error(),
	})

	if err := e.sessions.Delete(ctx, claims.Subject, claims.ID); err != nil {
		e.logger.Printf("session teardown after refresh reuse for %s failed: %v", claims.Subject, err)
	} else {
		e.metrics.sessionsEnded.Inc()
	}

	return ErrTokenRevoked
}
