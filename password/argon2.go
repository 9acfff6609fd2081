package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

const argon2Prefix = "$argon2id$"

// Argon2Params are the cost parameters for new hashes. Stored hashes carry
// their own parameters, so raising these only affects hashes minted after
// the change.
type Argon2Params struct {
	Memory      uint32 // KiB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultArgon2Params returns the parameters used when none are configured.
func DefaultArgon2Params() Argon2Params {
	return Argon2Params{
		Memory:      64 * 1024,
		Time:        3,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,
	}
}

func (p Argon2Params) validate() error {
	if p.Memory < 8*1024 {
		return errors.New("argon2 memory must be >= 8192 KiB")
	}
	if p.Time < 1 {
		return errors.New("argon2 time must be >= 1")
	}
	if p.Parallelism < 1 {
		return errors.New("argon2 parallelism must be >= 1")
	}
	if p.SaltLength < 16 {
		return errors.New("argon2 salt length must be >= 16")
	}
	if p.KeyLength < 16 {
		return errors.New("argon2 key length must be >= 16")
	}
	return nil
}

// Argon2 hashes with argon2id in PHC string format.
type Argon2 struct {
	params Argon2Params
}

// NewArgon2 creates an Argon2 hasher with the given cost parameters.
func NewArgon2(params Argon2Params) (*Argon2, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	return &Argon2{params: params}, nil
}

// Hash derives an argon2id hash with a fresh random salt and encodes it as
// $argon2id$v=19$m=...,t=...,p=...$salt$hash.
func (a *Argon2) Hash(password string) (string, error) {
	salt := make([]byte, a.params.SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", err
	}

	key := argon2.IDKey([]byte(password), salt,
		a.params.Time, a.params.Memory, a.params.Parallelism, a.params.KeyLength)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		a.params.Memory, a.params.Time, a.params.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify recomputes the key with the parameters stored in the hash and
// compares in constant time. Malformed input verifies as false.
func (a *Argon2) Verify(password, encoded string) bool {
	dec, err := decodePHC(encoded)
	if err != nil {
		return false
	}

	key := argon2.IDKey([]byte(password), dec.salt,
		dec.time, dec.memory, dec.parallelism, uint32(len(dec.key)))

	return subtle.ConstantTimeCompare(key, dec.key) == 1
}

// Recognizes reports whether encoded carries the argon2id PHC marker.
func (a *Argon2) Recognizes(encoded string) bool {
	return strings.HasPrefix(encoded, argon2Prefix)
}

// needsRehash reports whether the stored hash was minted with weaker
// parameters than currently configured.
func (a *Argon2) needsRehash(encoded string) bool {
	dec, err := decodePHC(encoded)
	if err != nil {
		return true
	}
	return dec.memory < a.params.Memory ||
		dec.time < a.params.Time ||
		dec.parallelism < a.params.Parallelism ||
		uint32(len(dec.key)) != a.params.KeyLength
}

type phcHash struct {
	memory      uint32
	time        uint32
	parallelism uint8
	salt        []byte
	key         []byte
}

func decodePHC(encoded string) (*phcHash, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return nil, errors.New("not an argon2id PHC string")
	}

	version, err := strconv.Atoi(strings.TrimPrefix(parts[2], "v="))
	if err != nil || !strings.HasPrefix(parts[2], "v=") || version != argon2.Version {
		return nil, errors.New("unsupported argon2 version")
	}

	var dec phcHash
	var m, t, p uint64
	for _, pair := range strings.Split(parts[3], ",") {
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, errors.New("bad argon2 parameter")
		}
		switch k {
		case "m":
			m, err = strconv.ParseUint(v, 10, 32)
		case "t":
			t, err = strconv.ParseUint(v, 10, 32)
		case "p":
			p, err = strconv.ParseUint(v, 10, 8)
		default:
			return nil, errors.New("bad argon2 parameter")
		}
		if err != nil {
			return nil, errors.New("bad argon2 parameter")
		}
	}
	if m == 0 || t == 0 || p == 0 {
		return nil, errors.New("missing argon2 parameter")
	}
	dec.memory, dec.time, dec.parallelism = uint32(m), uint32(t), uint8(p)

	if dec.salt, err = base64.RawStdEncoding.DecodeString(parts[4]); err != nil || len(dec.salt) < 8 {
		return nil, errors.New("bad argon2 salt")
	}
	if dec.key, err = base64.RawStdEncoding.DecodeString(parts[5]); err != nil || len(dec.key) == 0 {
		return nil, errors.New("bad argon2 key")
	}
	return &dec, nil
}
