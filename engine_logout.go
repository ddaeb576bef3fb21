package authkit

import (
	"context"
	"strconv"
	"time"

	"github.com/taskhive/authkit/token"
)

// Logout revokes the pair's tokens for their remaining lifetimes and
// removes the session. Expired tokens are tolerated; a logout with an
// already-expired refresh token still succeeds.
func (e *Engine) Logout(ctx context.Context, accessToken, refreshToken string) error {
	if err := e.checkOpen(); err != nil {
		return err
	}

	accessClaims, err := e.tokens.DecodeUnsafe(accessToken)
	if err != nil {
		return mapTokenError(err)
	}
	refreshClaims, err := e.tokens.DecodeUnsafe(refreshToken)
	if err != nil {
		return mapTokenError(err)
	}
	if refreshClaims.TokenType != token.TypeRefresh {
		return ErrWrongTokenType
	}

	now := time.Now()
	if err := e.revoked.Revoke(ctx, accessClaims.ID, token.RemainingTTL(accessClaims, now)); err != nil {
		return ErrServiceUnavailable
	}
	if err := e.revoked.Revoke(ctx, refreshClaims.ID, token.RemainingTTL(refreshClaims, now)); err != nil {
		return ErrServiceUnavailable
	}

	if err := e.sessions.Delete(ctx, refreshClaims.Subject, refreshClaims.ID); err != nil {
		return ErrServiceUnavailable
	}

	e.metrics.sessionsEnded.Inc()
	e.audit.emit(AuditEvent{
		EventType:   AuditLogout,
		PrincipalID: refreshClaims.Subject,
		IP:          clientIP(ctx),
		Success:     true,
	})

	return nil
}

// LogoutAll tears down every session of the principal and revokes each
// session's outstanding refresh token for its remaining lifetime. Access
// tokens already in the wild stay valid until they expire; their short TTL
// bounds the exposure.
func (e *Engine) LogoutAll(ctx context.Context, principalID string) error {
	if err := e.checkOpen(); err != nil {
		return err
	}

	records, err := e.sessions.DeleteAll(ctx, principalID)
	if err != nil {
		return ErrServiceUnavailable
	}

	now := time.Now().Unix()
	for _, rec := range records {
		remaining := time.Duration(rec.RefreshExpiresAt-now) * time.Second
		if err := e.revoked.Revoke(ctx, rec.RefreshID, remaining); err != nil {
			return ErrServiceUnavailable
		}
		e.metrics.sessionsEnded.Inc()
	}

	e.audit.emit(AuditEvent{
		EventType:   AuditLogoutAll,
		PrincipalID: principalID,
		IP:          clientIP(ctx),
		Success:     true,
		Metadata:    map[string]string{"sessions": strconv.Itoa(len(records))},
	})

	return nil
}
