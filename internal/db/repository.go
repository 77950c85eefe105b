package db

import (
	"context"
	"fmt"
	"time"
)

// CreateUserParams is the input to UserRepository.Create. The repository
// generates the id and creation timestamp itself.
type CreateUserParams struct {
	Email        string
	PasswordHash string
	Role         Role
}

// UserRepository owns user records and enforces email uniqueness. The email
// arguments are expected in canonical form (see CanonicalEmail); Create
// canonicalizes defensively.
//
// Contract:
//   - FindByEmail / FindByID / FindByPasswordResetToken return (nil, nil)
//     on a miss, never an error.
//   - Create fails with AUTH_EMAIL_ALREADY_EXISTS when the canonical email
//     is taken. Two concurrent Create calls for the same email must not
//     both succeed.
//   - UpdatePassword and SetPasswordResetToken fail with USER_NOT_FOUND
//     for an unknown id.
//   - FindByPasswordResetToken treats a token whose expiry is not strictly
//     in the future as a miss; expiry is the repository's job.
//   - ClearPasswordResetToken is idempotent and silent for unknown ids.
type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id string) (*User, error)
	Create(ctx context.Context, params CreateUserParams) (*User, error)
	UpdatePassword(ctx context.Context, userID string, passwordHash string) error
	SetPasswordResetToken(ctx context.Context, userID string, token string, expiresAt time.Time) error
	FindByPasswordResetToken(ctx context.Context, token string) (*User, error)
	ClearPasswordResetToken(ctx context.Context, userID string) error
}

// NewUserRepository selects a backend by name: "memory" for the transient
// store, "postgres" for the durable one. The chosen instance is injected
// into the auth service at startup; swapping backends never changes caller
// behavior.
func NewUserRepository(store string, database *DB) (UserRepository, error) {
	switch store {
	case "memory":
		return NewMemoryUserRepository(), nil
	case "postgres":
		if database == nil {
			return nil, fmt.Errorf("postgres user store requires a database connection")
		}
		return NewPostgresUserRepository(database), nil
	default:
		return nil, fmt.Errorf("unknown user store %q", store)
	}
}
