package authkit

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/taskhive/authkit/password"
	"github.com/taskhive/authkit/rbac"
)

// Register creates a new account in the pending-verification state. The
// password is checked against the strength policy and stored only as a
// hash; login is refused until [Engine.VerifyEmail] activates the account.
func (e *Engine) Register(ctx context.Context, email, plainPassword string) (*UserRecord, error) {
	if err := e.checkOpen(); err != nil {
		return nil, err
	}

	email = strings.TrimSpace(strings.ToLower(email))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, ErrEmailInvalid
	}

	if err := password.CheckStrength(plainPassword); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPasswordPolicy, err)
	}

	hash, err := e.hasher.Hash(plainPassword)
	if err != nil {
		return nil, err
	}

	user, err := e.users.CreateUser(ctx, CreateUserInput{
		Email:        email,
		PasswordHash: hash,
		Roles:        []string{rbac.RoleTeamMember},
		Status:       StatusPendingVerification,
	})
	if err != nil {
		if errors.Is(err, ErrAccountExists) {
			return nil, ErrAccountExists
		}
		return nil, ErrServiceUnavailable
	}

	e.audit.emit(AuditEvent{
		EventType:   AuditRegistered,
		PrincipalID: user.ID,
		IP:          clientIP(ctx),
		Success:     true,
	})

	return user, nil
}

// VerifyEmail activates a pending account. Verifying an already-active
// account is a no-op.
func (e *Engine) VerifyEmail(ctx context.Context, principalID string) error {
	if err := e.checkOpen(); err != nil {
		return err
	}

	user, err := e.lookupUser(ctx, principalID)
	if err != nil {
		return err
	}
	if user.Status == StatusActive {
		return nil
	}
	if user.Status == StatusDisabled {
		return ErrAccountDisabled
	}

	if err := e.users.UpdateAccountStatus(ctx, principalID, StatusActive); err != nil {
		return ErrServiceUnavailable
	}

	e.audit.emit(AuditEvent{
		EventType:   AuditEmailVerified,
		PrincipalID: principalID,
		IP:          clientIP(ctx),
		Success:     true,
	})

	return nil
}

// ChangePassword replaces the principal's password after verifying the
// current one. The new password must satisfy the strength policy and differ
// from every retained history entry. On success the failure counter resets
// and every session is torn down; the caller must log in again.
func (e *Engine) ChangePassword(ctx context.Context, principalID, oldPassword, newPassword string) error {
	if err := e.checkOpen(); err != nil {
		return err
	}

	user, err := e.lookupUser(ctx, principalID)
	if err != nil {
		return err
	}

	match, err := e.hasher.Verify(oldPassword, user.PasswordHash)
	if err != nil {
		e.logger.Printf("stored password hash for %s is unreadable: %v", user.ID, err)
		return ErrInvalidCredentials
	}
	if !match {
		return ErrInvalidCredentials
	}

	return e.setPassword(ctx, user, newPassword)
}

// SetPassword replaces the password without checking the current one.
// Administrative operation for recovery flows; everything else about the
// change, history check and session teardown included, matches
// ChangePassword.
func (e *Engine) SetPassword(ctx context.Context, principalID, newPassword string) error {
	if err := e.checkOpen(); err != nil {
		return err
	}

	user, err := e.lookupUser(ctx, principalID)
	if err != nil {
		return err
	}

	return e.setPassword(ctx, user, newPassword)
}

func (e *Engine) setPassword(ctx context.Context, user *UserRecord, newPassword string) error {
	if err := password.CheckStrength(newPassword); err != nil {
		return fmt.Errorf("%w: %v", ErrPasswordPolicy, err)
	}

	reused, err := e.passwordReused(user, newPassword)
	if err != nil {
		return err
	}
	if reused {
		return ErrPasswordReused
	}

	newHash, err := e.hasher.Hash(newPassword)
	if err != nil {
		return err
	}

	history := append([]string{user.PasswordHash}, user.PasswordHistory...)
	if limit := e.config.Password.HistoryLimit; len(history) > limit {
		history = history[:limit]
	}

	if err := e.users.UpdatePasswordHash(ctx, user.ID, newHash, history); err != nil {
		return ErrServiceUnavailable
	}

	if err := e.guard.Reset(ctx, user.ID); err != nil {
		e.logger.Printf("lockout reset for %s after password change failed: %v", user.ID, err)
	}
	if err := e.LogoutAll(ctx, user.ID); err != nil {
		e.logger.Printf("session teardown for %s after password change failed: %v", user.ID, err)
	}

	e.audit.emit(AuditEvent{
		EventType:   AuditPasswordChange,
		PrincipalID: user.ID,
		IP:          clientIP(ctx),
		Success:     true,
	})

	return nil
}

// passwordReused checks the candidate against the current hash and every
// retained history entry.
func (e *Engine) passwordReused(user *UserRecord, candidate string) (bool, error) {
	hashes := append([]string{user.PasswordHash}, user.PasswordHistory...)
	for _, h := range hashes {
		match, err := e.hasher.Verify(candidate, h)
		if err != nil {
			// Unreadable history entries cannot block the change.
			e.logger.Printf("skipping unreadable history entry for %s: %v", user.ID, err)
			continue
		}
		if match {
			return true, nil
		}
	}
	return false, nil
}
