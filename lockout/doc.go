// Package lockout throttles credential guessing with fixed-window failure
// counters, one per identifier and one per source address.
//
// The guard sits in front of password hashing: a locked identifier is
// rejected before any hash work, so lockout also caps the CPU an attacker
// can burn. Counter storage failing never locks anyone out; the guard
// degrades open and reports the degradation instead.
package lockout
