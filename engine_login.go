package authkit

import (
	"context"
	"errors"
	"time"

	"github.com/taskhive/authkit/mfa"
)

// Login verifies the principal's credentials and either returns a token
// pair or, for MFA-enabled accounts, an MFA challenge to complete through
// [Engine.VerifyMFA].
//
// Unknown emails and wrong passwords are indistinguishable to the caller. A
// locked account is rejected before the password is checked, so probing a
// locked account leaks nothing about the password.
func (e *Engine) Login(ctx context.Context, email, plainPassword string) (*LoginResult, error) {
	if err := e.checkOpen(); err != nil {
		return nil, err
	}

	user, err := e.users.GetUserByEmail(ctx, email)
	if err != nil && !errors.Is(err, ErrUserNotFound) {
		return nil, ErrServiceUnavailable
	}
	if user == nil {
		e.metrics.loginFailure.Inc()
		e.audit.emit(AuditEvent{
			EventType: AuditLoginFailed,
			IP:        clientIP(ctx),
			Error:     ErrInvalidCredentials.Error(),
		})
		return nil, ErrInvalidCredentials
	}

	locked, err := e.guard.IsLocked(ctx, user.ID)
	if err != nil {
		return nil, ErrServiceUnavailable
	}
	if locked {
		e.metrics.loginLocked.Inc()
		e.audit.emit(AuditEvent{
			EventType:   AuditLoginFailed,
			PrincipalID: user.ID,
			IP:          clientIP(ctx),
			Error:       ErrAccountLocked.Error(),
		})
		return nil, ErrAccountLocked
	}

	match, err := e.hasher.Verify(plainPassword, user.PasswordHash)
	if err != nil {
		e.logger.Printf("stored password hash for %s is unreadable: %v", user.ID, err)
		return nil, ErrInvalidCredentials
	}
	if !match {
		return nil, e.recordLoginFailure(ctx, user.ID)
	}

	if err := e.guard.RecordSuccess(ctx, user.ID); err != nil {
		return nil, ErrServiceUnavailable
	}

	switch user.Status {
	case StatusDisabled:
		return nil, ErrAccountDisabled
	case StatusPendingVerification:
		return nil, ErrEmailVerificationRequired
	}

	e.maybeUpgradeHash(ctx, user, plainPassword)

	if user.TOTPEnabled {
		return e.issueMFAChallenge(ctx, user)
	}

	pair, err := e.issuePair(ctx, user.ID, user.Roles)
	if err != nil {
		return nil, err
	}

	e.metrics.loginSuccess.Inc()
	e.audit.emit(AuditEvent{
		EventType:   AuditLogin,
		PrincipalID: user.ID,
		IP:          clientIP(ctx),
		Success:     true,
	})

	return &LoginResult{
		PrincipalID:  user.ID,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}, nil
}

// recordLoginFailure counts the failure and locks at the threshold. The
// failing attempt itself reports invalid credentials; the lock answers the
// next attempt.
func (e *Engine) recordLoginFailure(ctx context.Context, principalID string) error {
	justLocked, err := e.guard.RecordFailure(ctx, principalID)
	if err != nil {
		return ErrServiceUnavailable
	}

	e.metrics.loginFailure.Inc()
	e.audit.emit(AuditEvent{
		EventType:   AuditLoginFailed,
		PrincipalID: principalID,
		IP:          clientIP(ctx),
		Error:       ErrInvalidCredentials.Error(),
	})
	if justLocked {
		e.audit.emit(AuditEvent{
			EventType:   AuditAccountLocked,
			PrincipalID: principalID,
			IP:          clientIP(ctx),
		})
	}

	return ErrInvalidCredentials
}

// maybeUpgradeHash rehashes the password when the stored hash was produced
// with weaker work factors. Best effort: a failed rewrite only logs.
func (e *Engine) maybeUpgradeHash(ctx context.Context, user *UserRecord, plainPassword string) {
	upgrade, err := e.hasher.NeedsUpgrade(user.PasswordHash)
	if err != nil || !upgrade {
		return
	}

	newHash, err := e.hasher.Hash(plainPassword)
	if err != nil {
		e.logger.Printf("password rehash for %s failed: %v", user.ID, err)
		return
	}
	if err := e.users.UpdatePasswordHash(ctx, user.ID, newHash, user.PasswordHistory); err != nil {
		e.logger.Printf("password rehash persist for %s failed: %v", user.ID, err)
	}
}

func (e *Engine) issueMFAChallenge(ctx context.Context, user *UserRecord) (*LoginResult, error) {
	challengeToken, err := mfa.NewChallengeToken()
	if err != nil {
		return nil, err
	}

	challenge := &mfa.Challenge{
		PrincipalID: user.ID,
		Method:      mfa.MethodTOTP,
		ExpiresAt:   time.Now().Add(e.config.MFA.ChallengeTTL).Unix(),
	}
	if err := e.challenges.Save(ctx, challengeToken, challenge, e.config.MFA.ChallengeTTL); err != nil {
		return nil, ErrServiceUnavailable
	}

	e.metrics.mfaIssued.Inc()
	e.audit.emit(AuditEvent{
		EventType:   AuditMFAIssued,
		PrincipalID: user.ID,
		IP:          clientIP(ctx),
		Success:     true,
	})

	return &LoginResult{
		PrincipalID:  user.ID,
		MFARequired:  true,
		MFAChallenge: challengeToken,
	}, nil
}
