// Package password hashes and verifies login credentials.
//
// Argon2id is the current scheme; bcrypt is recognized read-only so hashes
// imported from an older deployment keep verifying. The Verifier fans out to
// the hasher whose format marker matches the stored string and reports when a
// hash should be re-written under the current scheme.
package password
