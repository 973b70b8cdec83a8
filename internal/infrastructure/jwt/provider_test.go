package jwtinfra

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sign(t *testing.T, key *rsa.PrivateKey, claims Claims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func newKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return key
}

func TestVerify_ValidToken(t *testing.T) {
	key := newKey(t)
	p := NewProviderFromKey(&key.PublicKey)
	tok := sign(t, key, Claims{Role: "admin", RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "op-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}})

	claims, err := p.Verify(tok)

	require.NoError(t, err)
	assert.Equal(t, "admin", claims.Role)
	assert.Equal(t, "op-1", claims.Subject)
}

func TestVerify_Rejects(t *testing.T) {
	key := newKey(t)
	other := newKey(t)
	p := NewProviderFromKey(&key.PublicKey)
	future := jwt.NewNumericDate(time.Now().Add(time.Hour))

	tests := map[string]string{
		"expired":     sign(t, key, Claims{Role: "admin", RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute))}}),
		"no expiry":   sign(t, key, Claims{Role: "admin"}),
		"wrong key":   sign(t, other, Claims{Role: "admin", RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: future}}),
		"not a token": "abc.def",
	}
	hs, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{Role: "admin", RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: future}}).SignedString([]byte("secret"))
	require.NoError(t, err)
	tests["hmac"] = hs

	for name, tok := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := p.Verify(tok)
			assert.Error(t, err)
		})
	}
}

func TestNewProvider_ReadsPEM(t *testing.T) {
	key := newKey(t)
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "pub.pem")
	require.NoError(t, os.WriteFile(path, pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}), 0o600))

	p, err := NewProvider(path)

	require.NoError(t, err)
	assert.True(t, p.publicKey.Equal(&key.PublicKey))

	_, err = NewProvider(filepath.Join(t.TempDir(), "missing.pem"))
	assert.Error(t, err)
}
