package auth

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "unit-test-secret"

func mintToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestExternalID(t *testing.T) {
	v := NewVerifier(testSecret)
	token := mintToken(t, testSecret, jwt.MapClaims{
		"sub": "user_2abc",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	sub, err := v.ExternalID(token)
	require.NoError(t, err)
	assert.Equal(t, "user_2abc", sub)
}

func TestExternalIDWrongSecret(t *testing.T) {
	v := NewVerifier(testSecret)
	token := mintToken(t, "other-secret", jwt.MapClaims{
		"sub": "user_2abc",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	_, err := v.ExternalID(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestExternalIDExpired(t *testing.T) {
	v := NewVerifier(testSecret)
	token := mintToken(t, testSecret, jwt.MapClaims{
		"sub": "user_2abc",
		"exp": time.Now().Add(-time.Minute).Unix(),
	})

	_, err := v.ExternalID(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

// Tokens without an expiry are rejected outright.
func TestExternalIDNoExpiry(t *testing.T) {
	v := NewVerifier(testSecret)
	token := mintToken(t, testSecret, jwt.MapClaims{"sub": "user_2abc"})

	_, err := v.ExternalID(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestExternalIDMissingSubject(t *testing.T) {
	v := NewVerifier(testSecret)
	token := mintToken(t, testSecret, jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	_, err := v.ExternalID(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestExternalIDAlgNone(t *testing.T) {
	v := NewVerifier(testSecret)
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": "user_2abc",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = v.ExternalID(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestBearerToken(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set("Authorization", "Bearer abc.def.ghi")
	token, err := BearerToken(r)
	require.NoError(t, err)
	assert.Equal(t, "abc.def.ghi", token)

	r.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	_, err = BearerToken(r)
	assert.ErrorIs(t, err, ErrInvalidToken)

	r.Header.Del("Authorization")
	_, err = BearerToken(r)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
