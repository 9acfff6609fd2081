package adminauth

import (
	"context"
	"time"
)

// Account is the repository-side account record. The engine never writes
// it; password hash upgrades and login bookkeeping go back through
// AccountRepository.
type Account struct {
	ID           string
	Identifier   string
	PasswordHash string
	Active       bool
	Superuser    bool
	Roles        []string
	LastLoginAt  time.Time
}

// AccountView is the projection of an Account handed to callers after
// authentication. It never carries the password hash.
type AccountView struct {
	ID          string    `json:"id"`
	Identifier  string    `json:"identifier"`
	Active      bool      `json:"active"`
	Superuser   bool      `json:"superuser"`
	Roles       []string  `json:"roles"`
	LastLoginAt time.Time `json:"last_login_at,omitempty"`
}

// View projects the account for external consumption.
func (a *Account) View() AccountView {
	roles := make([]string, len(a.Roles))
	copy(roles, a.Roles)
	return AccountView{
		ID:          a.ID,
		Identifier:  a.Identifier,
		Active:      a.Active,
		Superuser:   a.Superuser,
		Roles:       roles,
		LastLoginAt: a.LastLoginAt,
	}
}

// AccountRepository is the caller-supplied account database. FindByIdentifier
// returning (nil, nil) means "no such account"; the engine collapses that
// into ErrInvalidCredentials so the repository does not need its own
// sentinel.
type AccountRepository interface {
	FindByIdentifier(ctx context.Context, identifier string) (*Account, error)
	FindByID(ctx context.Context, id string) (*Account, error)
	// RecordLoginOutcome persists last-login bookkeeping after an attempt
	// against an existing account. Failures here are logged, not fatal;
	// the login outcome is already decided.
	RecordLoginOutcome(ctx context.Context, accountID string, success bool, at time.Time) error
	// UpdatePasswordHash stores a new hash, used by reset confirmation and
	// transparent hash upgrades.
	UpdatePasswordHash(ctx context.Context, accountID, newHash string) error
}

// LoginResult is the successful outcome of Authenticate.
type LoginResult struct {
	Account      AccountView
	AccessToken  string
	RefreshToken string
	SessionID    string
	// ExpiresIn is the access token lifetime in seconds.
	ExpiresIn int64
}

// RefreshResult is the successful outcome of Refresh. The session ID is
// unchanged; only the token pair is new.
type RefreshResult struct {
	AccessToken  string
	RefreshToken string
	SessionID    string
	ExpiresIn    int64
}

// ResetChallenge is handed back by RequestPasswordReset. The secret goes
// to the account holder out of band; only its hash is stored.
type ResetChallenge struct {
	ID        string
	Secret    string
	ExpiresAt time.Time
}
