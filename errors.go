package authkit

import (
	"errors"

	"github.com/taskhive/authkit/lockout"
	"github.com/taskhive/authkit/mfa"
	"github.com/taskhive/authkit/revocation"
	"github.com/taskhive/authkit/session"
	"github.com/taskhive/authkit/token"
)

var (
	// ErrInvalidCredentials is returned when the email is unknown or the
	// password does not match. The two cases are indistinguishable at the
	// login boundary.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserNotFound is returned by non-login operations that address a
	// principal directly.
	ErrUserNotFound = errors.New("user not found")
	// ErrAccountLocked is returned while the lockout window is active.
	ErrAccountLocked = errors.New("account locked")
	// ErrAccountDisabled is returned for login attempts on a disabled
	// account.
	ErrAccountDisabled = errors.New("account disabled")
	// ErrEmailVerificationRequired is returned for login attempts on an
	// account that has not verified its email address.
	ErrEmailVerificationRequired = errors.New("email verification required")
	// ErrAccountExists is returned by Register when the email is taken.
	ErrAccountExists = errors.New("account already exists")
	// ErrEmailInvalid is returned by Register for a malformed email.
	ErrEmailInvalid = errors.New("invalid email address")

	// ErrTokenExpired is returned when a presented token is past its exp.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenInvalid is returned for malformed or mis-signed tokens.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrTokenRevoked is returned when a token's jti is denylisted, and for
	// refresh reuse detected during rotation.
	ErrTokenRevoked = errors.New("token revoked")
	// ErrWrongTokenType is returned when an access token is presented on a
	// refresh path or vice versa.
	ErrWrongTokenType = errors.New("wrong token type")

	// ErrMFARequired signals that login succeeded past the credential check
	// and a second factor must be completed.
	ErrMFARequired = errors.New("mfa required")
	// ErrMFAChallengeNotFound covers missing, expired, replayed, and
	// principal-mismatched challenges alike.
	ErrMFAChallengeNotFound = errors.New("mfa challenge not found")
	// ErrMFACodeInvalid is returned for a wrong one-time code.
	ErrMFACodeInvalid = errors.New("invalid mfa code")
	// ErrMFAMethodNotImplemented is returned for challenge methods without a
	// delivery transport.
	ErrMFAMethodNotImplemented = errors.New("mfa method not implemented")

	// ErrPasswordPolicy is returned when a new password fails the strength
	// policy.
	ErrPasswordPolicy = errors.New("password policy violation")
	// ErrPasswordReused is returned when a new password matches a retained
	// history entry.
	ErrPasswordReused = errors.New("password was used recently")

	// ErrPermissionDenied is returned by authorization-gated operations.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrServiceUnavailable is returned when a backing store is unreachable
	// and the fail policy does not permit recovery.
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrEngineClosed is returned by operations after Close.
	ErrEngineClosed = errors.New("engine closed")
)

// IsAuthenticationError reports whether err means the caller failed to prove
// who they are.
func IsAuthenticationError(err error) bool {
	for _, target := range []error{
		ErrInvalidCredentials,
		ErrUserNotFound,
		ErrAccountLocked,
		ErrAccountDisabled,
		ErrEmailVerificationRequired,
		ErrTokenExpired,
		ErrTokenInvalid,
		ErrTokenRevoked,
		ErrWrongTokenType,
		ErrMFARequired,
		ErrMFAChallengeNotFound,
		ErrMFACodeInvalid,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsAuthorizationError reports whether err means an authenticated caller
// lacks permission.
func IsAuthorizationError(err error) bool {
	return errors.Is(err, ErrPermissionDenied)
}

// IsValidationError reports whether err is a rejected input rather than a
// failed check against stored state.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrPasswordPolicy) ||
		errors.Is(err, ErrPasswordReused) ||
		errors.Is(err, ErrEmailInvalid)
}

// IsServiceUnavailable reports whether err is a backend availability
// failure, at any layer.
func IsServiceUnavailable(err error) bool {
	return errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, lockout.ErrUnavailable) ||
		errors.Is(err, revocation.ErrUnavailable) ||
		errors.Is(err, session.ErrUnavailable) ||
		errors.Is(err, mfa.ErrUnavailable)
}

// mapTokenError translates token package sentinels into the engine's error
// surface.
func mapTokenError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, token.ErrExpired):
		return ErrTokenExpired
	case errors.Is(err, token.ErrWrongType):
		return ErrWrongTokenType
	default:
		return ErrTokenInvalid
	}
}
