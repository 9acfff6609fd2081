// Package secret generates and hashes the opaque secrets used by
// password reset challenges.
package secret

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"io"
)

// New returns 32 bytes of randomness as unpadded base64url, safe to embed
// in a link.
func New() (string, error) {
	buf := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Hash digests a secret for storage. Only the digest ever touches the
// store, so a store dump cannot replay outstanding challenges.
func Hash(s string) [32]byte {
	return sha256.Sum256([]byte(s))
}

// Equal compares two digests in constant time.
func Equal(a, b [32]byte) bool {
	return subtle.ConstantTimeCompare(a[:], b[:]) == 1
}
