package password

import "errors"

// ErrUnsupportedHash is returned when no registered hasher recognizes the
// stored hash format.
var ErrUnsupportedHash = errors.New("unsupported password hash format")

// ErrHashOnly is returned by legacy hashers that verify but no longer mint
// new hashes.
var ErrHashOnly = errors.New("scheme is verify-only")

// Hasher is one password hashing scheme.
type Hasher interface {
	// Hash produces a self-describing encoded hash for the password.
	Hash(password string) (string, error)
	// Verify reports whether the password matches the encoded hash. A
	// malformed hash is a mismatch, not an error.
	Verify(password, encoded string) bool
	// Recognizes reports whether the encoded string is in this scheme's
	// format.
	Recognizes(encoded string) bool
}

// Verifier fans out verification across schemes. The first scheme is
// current: Hash always uses it, and NeedsUpgrade reports true for any
// stored hash the current scheme did not produce with its present cost
// parameters.
type Verifier struct {
	schemes []Hasher
}

// NewVerifier builds a Verifier. The first hasher is the current scheme
// and must support Hash.
func NewVerifier(current Hasher, legacy ...Hasher) *Verifier {
	return &Verifier{schemes: append([]Hasher{current}, legacy...)}
}

// Hash hashes with the current scheme.
func (v *Verifier) Hash(password string) (string, error) {
	return v.schemes[0].Hash(password)
}

// Verify checks the password against the stored hash using whichever scheme
// recognizes it. Unrecognized or malformed hashes verify as false.
func (v *Verifier) Verify(password, encoded string) bool {
	for _, s := range v.schemes {
		if s.Recognizes(encoded) {
			return s.Verify(password, encoded)
		}
	}
	return false
}

// NeedsUpgrade reports whether a stored hash should be re-hashed under the
// current scheme after a successful verification.
func (v *Verifier) NeedsUpgrade(encoded string) bool {
	current := v.schemes[0]
	if !current.Recognizes(encoded) {
		return true
	}
	if a, ok := current.(*Argon2); ok {
		return a.needsRehash(encoded)
	}
	return false
}
