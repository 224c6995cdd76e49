package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signToken(t *testing.T, method jwt.SigningMethod, key any, claims jwt.Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func TestJWTProviderLookup(t *testing.T) {
	secret := "super-secret-jwt-token"
	p := NewJWTProvider(secret)
	ctx := context.Background()

	valid := signToken(t, jwt.SigningMethodHS256, []byte(secret), jwt.RegisteredClaims{
		Subject:   "user-7",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	id, err := p.Lookup(ctx, valid)
	require.NoError(t, err)
	assert.Equal(t, "user-7", id)

	expired := signToken(t, jwt.SigningMethodHS256, []byte(secret), jwt.RegisteredClaims{
		Subject:   "user-7",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	})
	_, err = p.Lookup(ctx, expired)
	assert.True(t, errors.Is(err, ErrUnauthorized))

	wrongKey := signToken(t, jwt.SigningMethodHS256, []byte("other"), jwt.RegisteredClaims{
		Subject:   "user-7",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	_, err = p.Lookup(ctx, wrongKey)
	assert.True(t, errors.Is(err, ErrUnauthorized))

	noSubject := signToken(t, jwt.SigningMethodHS256, []byte(secret), jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	_, err = p.Lookup(ctx, noSubject)
	assert.True(t, errors.Is(err, ErrNoUser))

	_, err = p.Lookup(ctx, "not-a-jwt")
	assert.True(t, errors.Is(err, ErrUnauthorized))
}
