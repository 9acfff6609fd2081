package session

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a session does not exist or has expired.
var ErrNotFound = errors.New("session not found")

// ErrStoreUnavailable wraps transport failures talking to the backing
// store. Callers treat it as fail-closed: an unreachable store means no
// session can be considered live.
var ErrStoreUnavailable = errors.New("session store unavailable")

// Store persists sessions.
type Store interface {
	// Create persists a new session with the given TTL.
	Create(ctx context.Context, sess *Session, ttl time.Duration) error
	// Get returns the session or ErrNotFound.
	Get(ctx context.Context, id string) (*Session, error)
	// Touch marks the session as active now and extends its deadline by
	// ttl. Returns ErrNotFound for missing or expired sessions.
	Touch(ctx context.Context, id string, ttl time.Duration) (*Session, error)
	// Invalidate deletes one session. Deleting an absent session is not an
	// error.
	Invalidate(ctx context.Context, id string) error
	// InvalidateAll deletes every session of one account and returns how
	// many were removed.
	InvalidateAll(ctx context.Context, accountID string) (int, error)
	// ActiveIDs lists the live session IDs of one account.
	ActiveIDs(ctx context.Context, accountID string) ([]string, error)
}
