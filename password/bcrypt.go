package password

import (
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Bcrypt verifies hashes carried over from deployments that used bcrypt.
// It never mints new hashes; successful logins against a bcrypt hash are
// expected to be re-hashed under the current scheme.
type Bcrypt struct{}

// NewBcrypt creates a verify-only bcrypt hasher.
func NewBcrypt() *Bcrypt { return &Bcrypt{} }

// Hash always fails; bcrypt is retained for verification only.
func (b *Bcrypt) Hash(string) (string, error) {
	return "", ErrHashOnly
}

// Verify compares the password against a bcrypt hash. Malformed input
// verifies as false.
func (b *Bcrypt) Verify(password, encoded string) bool {
	return bcrypt.CompareHashAndPassword([]byte(encoded), []byte(password)) == nil
}

// Recognizes reports whether encoded carries a bcrypt version marker.
func (b *Bcrypt) Recognizes(encoded string) bool {
	return strings.HasPrefix(encoded, "$2a$") ||
		strings.HasPrefix(encoded, "$2b$") ||
		strings.HasPrefix(encoded, "$2y$")
}
