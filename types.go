package authkit

import (
	"context"

	"github.com/taskhive/authkit/rbac"
)

// AccountStatus is the lifecycle state of a user record.
type AccountStatus string

const (
	// StatusActive allows login.
	StatusActive AccountStatus = "active"
	// StatusPendingVerification blocks login until the email is verified.
	StatusPendingVerification AccountStatus = "pending_verification"
	// StatusDisabled blocks login until an administrator re-enables the
	// account.
	StatusDisabled AccountStatus = "disabled"
)

// Principal is the identity authorization decisions run against.
type Principal = rbac.Principal

// UserRecord is the engine's view of a stored user. The engine never writes
// records directly; all mutation goes through the [UserProvider].
type UserRecord struct {
	ID           string
	Email        string
	PasswordHash string
	// PasswordHistory holds previous hashes, newest first, already trimmed
	// to the provider's retention limit.
	PasswordHistory []string
	Roles           []string
	Organizations   []string
	Projects        []string
	Status          AccountStatus
	TOTPEnabled     bool
}

// Principal builds the authorization identity for this record.
func (u *UserRecord) Principal() Principal {
	return Principal{
		ID:            u.ID,
		Roles:         append([]string(nil), u.Roles...),
		Organizations: append([]string(nil), u.Organizations...),
		Projects:      append([]string(nil), u.Projects...),
	}
}

// CreateUserInput is the record handed to the provider by Register. The
// password arrives pre-hashed; providers never see plaintext.
type CreateUserInput struct {
	Email        string
	PasswordHash string
	Roles        []string
	Status       AccountStatus
}

// UserProvider is the collaborator interface over the caller's user store.
// Lookup misses are reported with (nil, nil); errors are reserved for
// backend failures. CreateUser must refuse duplicate emails with
// [ErrAccountExists].
type UserProvider interface {
	GetUserByEmail(ctx context.Context, email string) (*UserRecord, error)
	GetUserByID(ctx context.Context, id string) (*UserRecord, error)
	CreateUser(ctx context.Context, input CreateUserInput) (*UserRecord, error)
	UpdateAccountStatus(ctx context.Context, id string, status AccountStatus) error
	// UpdatePasswordHash replaces the stored hash and persists history,
	// newest first, trimmed to the configured retention limit.
	UpdatePasswordHash(ctx context.Context, id, newHash string, history []string) error
	GetTOTPSecret(ctx context.Context, id string) ([]byte, error)
}

// TokenPair is an access/refresh token set from a single issuance.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// LoginResult is the outcome of a successful credential check. Exactly one
// of the two shapes is populated: a token pair, or MFARequired with the
// challenge token the client must echo back through VerifyMFA.
type LoginResult struct {
	PrincipalID  string
	AccessToken  string
	RefreshToken string
	MFARequired  bool
	MFAChallenge string
}
