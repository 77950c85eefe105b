package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	apperrors "github.com/authstarter/backend/internal/errors"
)

// uniqueViolation is the Postgres error code for a unique constraint breach.
const uniqueViolation = "23505"

// PostgresUserRepository is the durable backend. Email uniqueness is enforced
// by the users.email constraint rather than a check-then-insert sequence, so
// concurrent registrations race safely.
type PostgresUserRepository struct {
	db *DB
}

func NewPostgresUserRepository(db *DB) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

const userColumns = `id, email, password_hash, role, created_at, password_reset_token, password_reset_expires_at`

func (r *PostgresUserRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return r.queryUser(ctx, query, CanonicalEmail(email))
}

func (r *PostgresUserRepository) FindByID(ctx context.Context, id string) (*User, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, nil
	}
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.queryUser(ctx, query, uid)
}

func (r *PostgresUserRepository) Create(ctx context.Context, params CreateUserParams) (*User, error) {
	user := &User{
		ID:           uuid.New(),
		Email:        CanonicalEmail(params.Email),
		PasswordHash: params.PasswordHash,
		Role:         params.Role,
		CreatedAt:    time.Now().UTC(),
	}

	query := `
		INSERT INTO users (id, email, password_hash, role, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.ExecContext(ctx, query,
		user.ID, user.Email, user.PasswordHash, string(user.Role), user.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return nil, apperrors.EmailExists()
		}
		return nil, apperrors.DatabaseError("failed to create user").WithCause(err)
	}

	return user, nil
}

func (r *PostgresUserRepository) UpdatePassword(ctx context.Context, userID string, passwordHash string) error {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return apperrors.UserNotFound()
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET password_hash = $1 WHERE id = $2`, passwordHash, uid)
	if err != nil {
		return apperrors.DatabaseError("failed to update password").WithCause(err)
	}
	return requireMatch(res)
}

func (r *PostgresUserRepository) SetPasswordResetToken(ctx context.Context, userID string, token string, expiresAt time.Time) error {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return apperrors.UserNotFound()
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET password_reset_token = $1, password_reset_expires_at = $2 WHERE id = $3`,
		token, expiresAt, uid)
	if err != nil {
		return apperrors.DatabaseError("failed to set reset token").WithCause(err)
	}
	return requireMatch(res)
}

func (r *PostgresUserRepository) FindByPasswordResetToken(ctx context.Context, token string) (*User, error) {
	// Expiry is enforced here, not by the caller: stale tokens are misses.
	query := `SELECT ` + userColumns + ` FROM users
		WHERE password_reset_token = $1 AND password_reset_expires_at > NOW()`
	return r.queryUser(ctx, query, token)
}

func (r *PostgresUserRepository) ClearPasswordResetToken(ctx context.Context, userID string) error {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return nil
	}

	_, err = r.db.ExecContext(ctx,
		`UPDATE users SET password_reset_token = NULL, password_reset_expires_at = NULL WHERE id = $1`, uid)
	if err != nil {
		return apperrors.DatabaseError("failed to clear reset token").WithCause(err)
	}
	return nil
}

func (r *PostgresUserRepository) queryUser(ctx context.Context, query string, arg any) (*User, error) {
	user := &User{}
	var role string
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID, &user.Email, &user.PasswordHash, &role, &user.CreatedAt,
		&user.PasswordResetToken, &user.PasswordResetExpiresAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, apperrors.DatabaseError("failed to query user").WithCause(err)
	}
	user.Role = Role(role)
	return user, nil
}

func requireMatch(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return apperrors.DatabaseError("failed to read update result").WithCause(err)
	}
	if affected == 0 {
		return apperrors.UserNotFound()
	}
	return nil
}
