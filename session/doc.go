// Package session stores the server-side half of a login.
//
// Tokens are stateless; the session record is what makes revocation real.
// Every token check round-trips through the store, so a deleted session
// kills its tokens immediately, and a session whose TTL has run out kills
// tokens that are otherwise still within their exp.
package session
