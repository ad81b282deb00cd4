package domain

import (
	"context"

	"github.com/google/uuid"
)

// User is the authenticated caller resolved from a Supabase access token.
type User struct {
	ID    uuid.UUID
	Email string
	Role  string
}

type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*User, error)
}
