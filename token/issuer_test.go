package token

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hs256Config() Config {
	return Config{
		SigningMethod: MethodHS256,
		Secret:        []byte("0123456789abcdef0123456789abcdef"),
		Issuer:        "adminauth-test",
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    24 * time.Hour,
	}
}

func TestIssueAndVerifyPair(t *testing.T) {
	iss, err := NewIssuer(hs256Config())
	require.NoError(t, err)

	pair, err := iss.IssuePair("acct-1", "sess-1")
	require.NoError(t, err)
	assert.Equal(t, int64(900), pair.ExpiresIn)

	access, err := iss.Verify(pair.AccessToken, TypeAccess)
	require.NoError(t, err)
	assert.Equal(t, "acct-1", access.AccountID)
	assert.Equal(t, "sess-1", access.SessionID)
	assert.Equal(t, TypeAccess, access.TokenType)

	refresh, err := iss.Verify(pair.RefreshToken, TypeRefresh)
	require.NoError(t, err)
	assert.Equal(t, "sess-1", refresh.SessionID)
}

func TestVerifyRejectsWrongType(t *testing.T) {
	iss, err := NewIssuer(hs256Config())
	require.NoError(t, err)

	pair, err := iss.IssuePair("acct-1", "sess-1")
	require.NoError(t, err)

	_, err = iss.Verify(pair.RefreshToken, TypeAccess)
	assert.ErrorIs(t, err, ErrWrongType)
	_, err = iss.Verify(pair.AccessToken, TypeRefresh)
	assert.ErrorIs(t, err, ErrWrongType)
}

func TestVerifyRejectsExpired(t *testing.T) {
	cfg := hs256Config()
	cfg.AccessTTL = time.Millisecond
	cfg.RefreshTTL = time.Millisecond
	iss, err := NewIssuer(cfg)
	require.NoError(t, err)

	pair, err := iss.IssuePair("acct-1", "sess-1")
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)
	_, err = iss.Verify(pair.AccessToken, TypeAccess)
	assert.ErrorIs(t, err, ErrExpired)
}

func TestVerifyRejectsForeignSignature(t *testing.T) {
	iss, err := NewIssuer(hs256Config())
	require.NoError(t, err)

	other := hs256Config()
	other.Secret = []byte("ffffffffffffffffffffffffffffffff")
	foreign, err := NewIssuer(other)
	require.NoError(t, err)

	pair, err := foreign.IssuePair("acct-1", "sess-1")
	require.NoError(t, err)

	_, err = iss.Verify(pair.AccessToken, TypeAccess)
	assert.ErrorIs(t, err, ErrBadSignature)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	iss, err := NewIssuer(hs256Config())
	require.NoError(t, err)

	for _, s := range []string{"", "not.a.jwt", "a.b", "eyJhbGciOiJub25lIn0..x"} {
		_, err := iss.Verify(s, TypeAccess)
		assert.ErrorIs(t, err, ErrMalformed, "token %q", s)
	}
}

func TestEd25519RoundTrip(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	cfg := hs256Config()
	cfg.SigningMethod = MethodEd25519
	cfg.Secret = nil
	cfg.PrivateKey = priv
	cfg.PublicKey = pub

	iss, err := NewIssuer(cfg)
	require.NoError(t, err)

	pair, err := iss.IssuePair("acct-9", "sess-9")
	require.NoError(t, err)

	claims, err := iss.Verify(pair.AccessToken, TypeAccess)
	require.NoError(t, err)
	assert.Equal(t, "acct-9", claims.AccountID)
}

func TestNewIssuerConfigValidation(t *testing.T) {
	cfg := hs256Config()
	cfg.Secret = []byte("short")
	_, err := NewIssuer(cfg)
	assert.Error(t, err)

	cfg = hs256Config()
	cfg.RefreshTTL = time.Minute
	cfg.AccessTTL = time.Hour
	_, err = NewIssuer(cfg)
	assert.Error(t, err)

	cfg = hs256Config()
	cfg.SigningMethod = "rs256"
	_, err = NewIssuer(cfg)
	assert.Error(t, err)
}
