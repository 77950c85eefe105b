package db

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/authstarter/backend/internal/errors"
)

// MemoryUserRepository is the transient backend used for development and
// tests. State lives in the instance, never in package-level globals, so
// separate instances never share data.
type MemoryUserRepository struct {
	mu      sync.Mutex
	users   map[uuid.UUID]*User
	byEmail map[string]uuid.UUID
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		users:   make(map[uuid.UUID]*User),
		byEmail: make(map[string]uuid.UUID),
	}
}

func (r *MemoryUserRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byEmail[CanonicalEmail(email)]
	if !ok {
		return nil, nil
	}
	return copyUser(r.users[id]), nil
}

func (r *MemoryUserRepository) FindByID(ctx context.Context, id string) (*User, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[uid]
	if !ok {
		return nil, nil
	}
	return copyUser(user), nil
}

// Create performs the existence check and the insert under one lock so two
// concurrent calls for the same email cannot both succeed.
func (r *MemoryUserRepository) Create(ctx context.Context, params CreateUserParams) (*User, error) {
	email := CanonicalEmail(params.Email)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byEmail[email]; exists {
		return nil, apperrors.EmailExists()
	}

	user := &User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: params.PasswordHash,
		Role:         params.Role,
		CreatedAt:    time.Now().UTC(),
	}

	r.users[user.ID] = user
	r.byEmail[email] = user.ID

	return copyUser(user), nil
}

func (r *MemoryUserRepository) UpdatePassword(ctx context.Context, userID string, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user := r.lookup(userID)
	if user == nil {
		return apperrors.UserNotFound()
	}

	user.PasswordHash = passwordHash
	return nil
}

func (r *MemoryUserRepository) SetPasswordResetToken(ctx context.Context, userID string, token string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user := r.lookup(userID)
	if user == nil {
		return apperrors.UserNotFound()
	}

	user.PasswordResetToken = &token
	expiry := expiresAt
	user.PasswordResetExpiresAt = &expiry
	return nil
}

func (r *MemoryUserRepository) FindByPasswordResetToken(ctx context.Context, token string) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	for _, user := range r.users {
		if user.PasswordResetToken == nil || user.PasswordResetExpiresAt == nil {
			continue
		}
		if *user.PasswordResetToken != token {
			continue
		}
		// Expiry must be strictly in the future; a stale token is a miss
		// even though the field is still populated.
		if !user.PasswordResetExpiresAt.After(now) {
			continue
		}
		return copyUser(user), nil
	}
	return nil, nil
}

func (r *MemoryUserRepository) ClearPasswordResetToken(ctx context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user := r.lookup(userID)
	if user == nil {
		return nil
	}

	user.PasswordResetToken = nil
	user.PasswordResetExpiresAt = nil
	return nil
}

// lookup must be called with the mutex held.
func (r *MemoryUserRepository) lookup(userID string) *User {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return nil
	}
	return r.users[uid]
}

// copyUser returns a detached copy so callers cannot mutate stored state.
func copyUser(u *User) *User {
	if u == nil {
		return nil
	}
	out := *u
	if u.PasswordResetToken != nil {
		token := *u.PasswordResetToken
		out.PasswordResetToken = &token
	}
	if u.PasswordResetExpiresAt != nil {
		expiry := *u.PasswordResetExpiresAt
		out.PasswordResetExpiresAt = &expiry
	}
	return &out
}
