package db

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/authstarter/backend/internal/errors"
)

func createTestUser(t *testing.T, repo *MemoryUserRepository, email string) *User {
	t.Helper()
	user, err := repo.Create(context.Background(), CreateUserParams{
		Email:        email,
		PasswordHash: "hashed",
		Role:         RoleUser,
	})
	require.NoError(t, err)
	return user
}

func TestMemoryCreateAndFind(t *testing.T) {
	repo := NewMemoryUserRepository()
	ctx := context.Background()

	user := createTestUser(t, repo, "User@Example.com")
	assert.Equal(t, "user@example.com", user.Email, "stored email must be canonical")
	assert.False(t, user.CreatedAt.IsZero())

	found, err := repo.FindByEmail(ctx, "USER@example.COM")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, user.ID, found.ID)

	byID, err := repo.FindByID(ctx, user.ID.String())
	require.NoError(t, err)
	require.NotNil(t, byID)
	assert.Equal(t, user.Email, byID.Email)
}

func TestMemoryFindMisses(t *testing.T) {
	repo := NewMemoryUserRepository()
	ctx := context.Background()

	user, err := repo.FindByEmail(ctx, "nobody@example.com")
	require.NoError(t, err)
	assert.Nil(t, user)

	user, err = repo.FindByID(ctx, "not-a-uuid")
	require.NoError(t, err)
	assert.Nil(t, user)

	user, err = repo.FindByPasswordResetToken(ctx, "no-such-token")
	require.NoError(t, err)
	assert.Nil(t, user)
}

func TestMemoryDuplicateEmail(t *testing.T) {
	repo := NewMemoryUserRepository()
	createTestUser(t, repo, "user@example.com")

	_, err := repo.Create(context.Background(), CreateUserParams{
		Email:        "User@EXAMPLE.com",
		PasswordHash: "other",
		Role:         RoleUser,
	})
	require.Error(t, err)
	appErr, ok := err.(*apperrors.AppError)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeEmailExists, appErr.Code)
}

func TestMemoryConcurrentCreateSameEmail(t *testing.T) {
	repo := NewMemoryUserRepository()
	ctx := context.Background()

	const attempts = 16
	var wg sync.WaitGroup
	errs := make([]error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = repo.Create(ctx, CreateUserParams{
				Email:        "race@example.com",
				PasswordHash: "hashed",
				Role:         RoleUser,
			})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		}
	}
	assert.Equal(t, 1, succeeded, "exactly one concurrent create may win")
}

func TestMemoryUpdatePassword(t *testing.T) {
	repo := NewMemoryUserRepository()
	ctx := context.Background()
	user := createTestUser(t, repo, "user@example.com")

	require.NoError(t, repo.UpdatePassword(ctx, user.ID.String(), "newhash"))

	found, err := repo.FindByID(ctx, user.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "newhash", found.PasswordHash)

	err = repo.UpdatePassword(ctx, "00000000-0000-0000-0000-000000000000", "x")
	require.Error(t, err)
	appErr, ok := err.(*apperrors.AppError)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeUserNotFound, appErr.Code)
}

func TestMemoryResetTokenLifecycle(t *testing.T) {
	repo := NewMemoryUserRepository()
	ctx := context.Background()
	user := createTestUser(t, repo, "user@example.com")

	expiresAt := time.Now().Add(30 * time.Minute)
	require.NoError(t, repo.SetPasswordResetToken(ctx, user.ID.String(), "tok-live", expiresAt))

	found, err := repo.FindByPasswordResetToken(ctx, "tok-live")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, user.ID, found.ID)

	require.NoError(t, repo.ClearPasswordResetToken(ctx, user.ID.String()))

	found, err = repo.FindByPasswordResetToken(ctx, "tok-live")
	require.NoError(t, err)
	assert.Nil(t, found, "cleared token must be a miss")

	// Clearing again, or for an unknown id, stays silent.
	require.NoError(t, repo.ClearPasswordResetToken(ctx, user.ID.String()))
	require.NoError(t, repo.ClearPasswordResetToken(ctx, "not-a-uuid"))
}

func TestMemoryExpiredResetTokenIsMiss(t *testing.T) {
	repo := NewMemoryUserRepository()
	ctx := context.Background()
	user := createTestUser(t, repo, "user@example.com")

	require.NoError(t, repo.SetPasswordResetToken(ctx, user.ID.String(), "tok-stale", time.Now().Add(-time.Second)))

	found, err := repo.FindByPasswordResetToken(ctx, "tok-stale")
	require.NoError(t, err)
	assert.Nil(t, found, "expired token must behave like a miss")
}

func TestMemorySetResetTokenUnknownUser(t *testing.T) {
	repo := NewMemoryUserRepository()

	err := repo.SetPasswordResetToken(context.Background(), "00000000-0000-0000-0000-000000000000", "tok", time.Now().Add(time.Hour))
	require.Error(t, err)
	appErr, ok := err.(*apperrors.AppError)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeUserNotFound, appErr.Code)
}

func TestMemoryReturnsDetachedCopies(t *testing.T) {
	repo := NewMemoryUserRepository()
	ctx := context.Background()
	user := createTestUser(t, repo, "user@example.com")

	found, err := repo.FindByID(ctx, user.ID.String())
	require.NoError(t, err)
	found.PasswordHash = "tampered"

	again, err := repo.FindByID(ctx, user.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "hashed", again.PasswordHash, "mutating a returned record must not touch the store")
}

func TestMemoryInstancesAreIsolated(t *testing.T) {
	a := NewMemoryUserRepository()
	b := NewMemoryUserRepository()
	createTestUser(t, a, "user@example.com")

	found, err := b.FindByEmail(context.Background(), "user@example.com")
	require.NoError(t, err)
	assert.Nil(t, found, "separate instances must not share state")
}
