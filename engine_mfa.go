package authkit

import (
	"context"
	"errors"
	"time"

	"github.com/taskhive/authkit/mfa"
)

// VerifyMFA completes a challenge issued by Login and returns a token pair.
//
// Challenges are single use: the record is deleted before any tokens are
// signed, so a correct code can never be replayed. When two verifications
// race, the one that deletes the record wins and the other fails as if the
// challenge never existed.
func (e *Engine) VerifyMFA(ctx context.Context, principalID, challengeToken, code string) (*TokenPair, error) {
	if err := e.checkOpen(); err != nil {
		return nil, err
	}

	challenge, err := e.challenges.Get(ctx, challengeToken)
	if err != nil {
		switch {
		case errors.Is(err, mfa.ErrChallengeNotFound), errors.Is(err, mfa.ErrChallengeExpired):
			return nil, ErrMFAChallengeNotFound
		default:
			return nil, ErrServiceUnavailable
		}
	}
	if challenge.PrincipalID != principalID {
		return nil, ErrMFAChallengeNotFound
	}
	if challenge.Method != mfa.MethodTOTP {
		return nil, ErrMFAMethodNotImplemented
	}

	secret, err := e.users.GetTOTPSecret(ctx, principalID)
	if err != nil {
		return nil, ErrServiceUnavailable
	}

	match, err := e.totp.VerifyCode(secret, code, time.Now())
	if err != nil {
		return nil, err
	}
	if !match {
		return nil, e.recordMFAFailure(ctx, principalID, challengeToken)
	}

	deleted, err := e.challenges.Delete(ctx, challengeToken)
	if err != nil {
		return nil, ErrServiceUnavailable
	}
	if !deleted {
		// Lost the race against a concurrent verification.
		return nil, ErrMFAChallengeNotFound
	}

	user, err := e.lookupUser(ctx, principalID)
	if err != nil {
		return nil, err
	}
	switch user.Status {
	case StatusDisabled:
		return nil, ErrAccountDisabled
	case StatusPendingVerification:
		return nil, ErrEmailVerificationRequired
	}

	pair, err := e.issuePair(ctx, user.ID, user.Roles)
	if err != nil {
		return nil, err
	}

	e.metrics.mfaSuccess.Inc()
	e.metrics.loginSuccess.Inc()
	e.audit.emit(AuditEvent{
		EventType:   AuditMFAVerified,
		PrincipalID: user.ID,
		IP:          clientIP(ctx),
		Success:     true,
	})

	return pair, nil
}

func (e *Engine) recordMFAFailure(ctx context.Context, principalID, challengeToken string) error {
	exceeded, err := e.challenges.RecordFailure(ctx, challengeToken, e.config.MFA.MaxAttempts)
	if err != nil && !errors.Is(err, mfa.ErrChallengeNotFound) && !errors.Is(err, mfa.ErrChallengeExpired) {
		return ErrServiceUnavailable
	}

	e.metrics.mfaFailure.Inc()
	e.audit.emit(AuditEvent{
		EventType:   AuditMFAFailed,
		PrincipalID: principalID,
		IP:          clientIP(ctx),
		Error:       ErrMFACodeInvalid.Error(),
	})
	if exceeded {
		return ErrMFAChallengeNotFound
	}
	return ErrMFACodeInvalid
}
