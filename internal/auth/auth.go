// Package auth verifies caller identity. Tokens are minted by the external
// identity provider and verified here with a shared secret; the subject claim
// is the provider's user id, which the API layer resolves to an internal user
// row once per request.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrInvalidToken = errors.New("invalid token")

// BearerToken extracts the token from the Authorization header.
func BearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found || token == "" {
		return "", ErrInvalidToken
	}
	return token, nil
}

type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// ExternalID validates the token and returns its subject.
func (v *Verifier) ExternalID(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}
	sub, err := token.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", ErrInvalidToken
	}
	return sub, nil
}

// ──────────────────── Request context ────────────────────

type contextKey string

const contextUser contextKey = "user"

// ContextUserData is the resolved caller: the internal user id for the
// verified external identity.
type ContextUserData struct {
	UserID uuid.UUID
}

func WithUser(ctx context.Context, data ContextUserData) context.Context {
	return context.WithValue(ctx, contextUser, data)
}

// UserFromContext returns the resolved caller, or nil for anonymous
// requests.
func UserFromContext(ctx context.Context) *ContextUserData {
	if v, ok := ctx.Value(contextUser).(ContextUserData); ok {
		return &v
	}
	return nil
}
