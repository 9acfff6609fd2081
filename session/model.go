package session

import "time"

// Session is one authenticated login. The record is keyed by a random ID
// minted at login; the same ID rides inside the token pair's sid claim.
type Session struct {
	ID           string    `json:"id"`
	AccountID    string    `json:"account_id"`
	IP           string    `json:"ip,omitempty"`
	UserAgent    string    `json:"user_agent,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Expired reports whether the session's own deadline has passed. The store
// TTL normally enforces this, but the record carries the deadline so a
// store with coarser expiry still answers correctly.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}
