// Package adminauth is the authentication and authorization core for an
// admin panel.
//
// The Engine verifies credentials against a caller-supplied account
// repository, issues JWT access/refresh pairs bound to Redis-backed
// sessions, throttles credential guessing with per-identifier and per-IP
// lockout counters, resolves role permissions through a named-permission
// catalog, and emits audit events for every security-relevant outcome.
//
// Storage for accounts stays on the caller's side behind
// AccountRepository; everything volatile (sessions, lockout counters,
// reset challenges) lives in Redis or the in-memory fallbacks.
package adminauth
