package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	jose "gopkg.in/square/go-jose.v2"
	"gopkg.in/square/go-jose.v2/jwt"
)

func signedToken(t *testing.T, claims jwt.Claims) string {
	t.Helper()
	signer, err := jose.NewSigner(jose.SigningKey{Algorithm: jose.HS256, Key: []byte("0123456789abcdef0123456789abcdef")}, nil)
	require.NoError(t, err)
	token, err := jwt.Signed(signer).Claims(claims).CompactSerialize()
	require.NoError(t, err)
	return token
}

func TestTokenExpiry(t *testing.T) {
	exp := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	token := signedToken(t, jwt.Claims{Subject: "u1", Expiry: jwt.NewNumericDate(exp)})

	got, ok := TokenExpiry(token)
	require.True(t, ok)
	assert.True(t, exp.Equal(got))

	_, ok = TokenExpiry(signedToken(t, jwt.Claims{Subject: "u1"}))
	assert.False(t, ok, "no exp claim")

	_, ok = TokenExpiry("opaque-session-token-value")
	assert.False(t, ok)

	_, ok = TokenExpiry("a.b.c")
	assert.False(t, ok, "three segments but not a JWT")
}

func TestTokenExpired(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	expired := signedToken(t, jwt.Claims{Expiry: jwt.NewNumericDate(now.Add(-time.Minute))})
	valid := signedToken(t, jwt.Claims{Expiry: jwt.NewNumericDate(now.Add(time.Hour))})

	assert.True(t, TokenExpired(expired, now))
	assert.False(t, TokenExpired(valid, now))
	assert.False(t, TokenExpired("opaque-token-never-expires", now))
}
