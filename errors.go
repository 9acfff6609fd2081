package adminauth

import (
	"errors"

	"github.com/adminkit/adminauth/lockout"
	"github.com/adminkit/adminauth/session"
	"github.com/adminkit/adminauth/token"
)

var (
	// ErrInvalidCredentials covers unknown identifier and wrong password.
	// The two cases are deliberately indistinguishable to callers.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountInactive is returned for a correct password on a disabled
	// account.
	ErrAccountInactive = errors.New("account inactive")
	// ErrAccountLocked is returned while a lockout window is active.
	ErrAccountLocked = errors.New("account temporarily locked")
	// ErrSessionInvalid is returned when a token's session is gone,
	// expired, or unreachable.
	ErrSessionInvalid = errors.New("session invalid")
	// ErrPermissionDenied is returned by permission-gated operations.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrResetInvalid covers unknown, expired, and already-used password
	// reset challenges.
	ErrResetInvalid = errors.New("reset challenge invalid")
	// ErrStoreUnavailable is returned when a backing store that must be
	// consulted cannot be reached.
	ErrStoreUnavailable = errors.New("backing store unavailable")
)

// Code maps an engine error to a stable machine-readable code for API
// responses and audit records. Unrecognized errors map to "internal".
func Code(err error) string {
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, ErrAccountInactive):
		return "account_inactive"
	case errors.Is(err, ErrAccountLocked), errors.Is(err, lockout.ErrLocked):
		return "account_locked"
	case errors.Is(err, ErrSessionInvalid), errors.Is(err, session.ErrNotFound):
		return "session_invalid"
	case errors.Is(err, token.ErrExpired):
		return "token_expired"
	case errors.Is(err, token.ErrWrongType):
		return "token_wrong_type"
	case errors.Is(err, token.ErrBadSignature), errors.Is(err, token.ErrMalformed):
		return "token_invalid"
	case errors.Is(err, ErrPermissionDenied):
		return "permission_denied"
	case errors.Is(err, ErrResetInvalid):
		return "reset_invalid"
	case errors.Is(err, ErrStoreUnavailable), errors.Is(err, session.ErrStoreUnavailable):
		return "store_unavailable"
	case err == nil:
		return ""
	default:
		return "internal"
	}
}

// PublicMessage returns the text safe to show an end user. Everything that
// could confirm whether an identifier exists collapses to the credentials
// message; lockout stays distinct because it is observable through timing
// anyway and the caller needs to render a retry hint.
func PublicMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrAccountLocked), errors.Is(err, lockout.ErrLocked):
		return "too many failed attempts, try again later"
	case errors.Is(err, ErrInvalidCredentials), errors.Is(err, ErrAccountInactive):
		return "invalid credentials"
	case errors.Is(err, ErrPermissionDenied):
		return "permission denied"
	case errors.Is(err, ErrResetInvalid):
		return "reset link is invalid or has expired"
	case errors.Is(err, ErrStoreUnavailable), errors.Is(err, session.ErrStoreUnavailable):
		return "service temporarily unavailable"
	default:
		return "authentication required"
	}
}
