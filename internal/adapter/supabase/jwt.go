// Package supabase verifies Supabase-issued bearer tokens.
package supabase

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/startupai/internal/domain"
)

// Audience is the aud claim Supabase puts on end-user access tokens.
const Audience = "authenticated"

type claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
	Role  string `json:"role"`
}

// JWTAuthenticator verifies HS256 access tokens locally against the project's JWT secret.
type JWTAuthenticator struct {
	secret []byte
	clock  clockwork.Clock
}

var _ domain.Authenticator = (*JWTAuthenticator)(nil)

func NewJWTAuthenticator(secret string, clock clockwork.Clock) *JWTAuthenticator {
	return &JWTAuthenticator{secret: []byte(secret), clock: clock}
}

func (a *JWTAuthenticator) Authenticate(_ context.Context, token string) (*domain.User, error) {
	if token == "" {
		return nil, domain.ErrMissingToken
	}
	if len(a.secret) == 0 {
		return nil, errors.New("jwt secret is not configured")
	}

	parsed, err := jwt.ParseWithClaims(token, &claims{},
		func(*jwt.Token) (any, error) { return a.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(Audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.clock.Now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidToken, err)
	}

	c, ok := parsed.Claims.(*claims)
	if !ok || !parsed.Valid {
		return nil, domain.ErrInvalidToken
	}

	id, err := uuid.Parse(c.Subject)
	if err != nil {
		return nil, fmt.Errorf("%w: subject is not a user id", domain.ErrInvalidToken)
	}

	return &domain.User{ID: id, Email: c.Email, Role: c.Role}, nil
}
