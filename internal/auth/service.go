package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/authstarter/backend/internal/db"
	"github.com/authstarter/backend/internal/email"
	apperrors "github.com/authstarter/backend/internal/errors"
	"github.com/authstarter/backend/internal/logger"
)

const (
	// ResetTokenExpiry is how long a password-reset link stays valid.
	ResetTokenExpiry = 30 * time.Minute

	// resetTokenBytes of randomness, hex-encoded, for the opaque reset token.
	resetTokenBytes = 32
)

// AuthResult is returned by Register and Login.
type AuthResult struct {
	User         *db.PublicUser `json:"user"`
	AccessToken  string         `json:"accessToken"`
	RefreshToken string         `json:"refreshToken"`
}

// Service orchestrates the credential repository, the password hasher, the
// token issuer and the mailer. Stateless per call; all state lives in the
// user record.
type Service struct {
	repo   db.UserRepository
	hasher PasswordHasher
	tokens *TokenService
	mailer email.Mailer
	log    *logger.Logger
	appURL string

	// dummyHash absorbs the missing-user login path so its cost matches a
	// real password check and response timing does not reveal whether the
	// account exists.
	dummyHash string
}

func NewService(repo db.UserRepository, hasher PasswordHasher, tokens *TokenService, mailer email.Mailer, log *logger.Logger, appURL string) *Service {
	dummyHash, err := hasher.Hash("authstarter-dummy-timing-password")
	if err != nil {
		dummyHash = ""
	}
	return &Service{
		repo:      repo,
		hasher:    hasher,
		tokens:    tokens,
		mailer:    mailer,
		log:       log.WithComponent("auth"),
		appURL:    appURL,
		dummyHash: dummyHash,
	}
}

// Register creates a user with role "user" and issues both tokens.
func (s *Service) Register(ctx context.Context, emailAddr, password string) (*AuthResult, error) {
	normalized := db.CanonicalEmail(emailAddr)

	existing, err := s.repo.FindByEmail(ctx, normalized)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperrors.EmailExists()
	}

	passwordHash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, apperrors.InternalError("failed to hash password").WithCause(err)
	}

	user, err := s.repo.Create(ctx, db.CreateUserParams{
		Email:        normalized,
		PasswordHash: passwordHash,
		Role:         db.RoleUser,
	})
	if err != nil {
		return nil, err
	}

	result, err := s.issueTokens(user.Public())
	if err != nil {
		return nil, err
	}

	s.log.AuthEvent(ctx, "register_success", map[string]interface{}{
		"userId": user.ID.String(),
		"email":  user.Email,
	})

	return result, nil
}

// Login verifies credentials and issues both tokens. The missing-user and
// wrong-password paths fail with the identical error; they differ only in
// the audit event emitted.
func (s *Service) Login(ctx context.Context, emailAddr, password string) (*AuthResult, error) {
	normalized := db.CanonicalEmail(emailAddr)

	user, err := s.repo.FindByEmail(ctx, normalized)
	if err != nil {
		return nil, err
	}
	if user == nil {
		// Burn a hash comparison so this path costs the same as a real one.
		if s.dummyHash != "" {
			s.hasher.Verify(password, s.dummyHash)
		}
		s.log.AuthEvent(ctx, "login_failed_no_user", map[string]interface{}{
			"email": normalized,
		})
		return nil, apperrors.InvalidCredentials()
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		s.log.AuthEvent(ctx, "login_failed_bad_password", map[string]interface{}{
			"userId": user.ID.String(),
		})
		return nil, apperrors.InvalidCredentials()
	}

	result, err := s.issueTokens(user.Public())
	if err != nil {
		return nil, err
	}

	s.log.AuthEvent(ctx, "login_success", map[string]interface{}{
		"userId": user.ID.String(),
	})

	return result, nil
}

// GetUserFromAccessToken rebuilds the public user view from the token
// payload without a repository round-trip. Role or email changes therefore
// only become visible once the token is reissued.
func (s *Service) GetUserFromAccessToken(token string) (*db.PublicUser, error) {
	claims, err := s.tokens.VerifyAccessToken(token)
	if err != nil {
		return nil, err
	}
	return claims.PublicUser(), nil
}

// RequestPasswordReset implements the forgot-password flow. For an unknown
// email it reports success without side effects so callers cannot probe for
// accounts; the returned token is empty in that case. For a known email it
// stores a fresh single-use token and mails the reset link.
func (s *Service) RequestPasswordReset(ctx context.Context, emailAddr string) (string, error) {
	normalized := db.CanonicalEmail(emailAddr)

	user, err := s.repo.FindByEmail(ctx, normalized)
	if err != nil {
		return "", err
	}
	if user == nil {
		s.log.AuthEvent(ctx, "forgot_password_nonexistent_email", map[string]interface{}{
			"email": normalized,
		})
		return "", nil
	}

	token, err := generateResetToken()
	if err != nil {
		return "", apperrors.InternalError("failed to generate reset token").WithCause(err)
	}
	expiresAt := time.Now().Add(ResetTokenExpiry)

	if err := s.repo.SetPasswordResetToken(ctx, user.ID.String(), token, expiresAt); err != nil {
		return "", err
	}

	resetLink := s.appURL + "/reset-password?token=" + token
	if err := s.mailer.SendPasswordResetEmail(ctx, normalized, resetLink); err != nil {
		return "", apperrors.ResetEmailFailed().WithCause(err)
	}

	s.log.AuthEvent(ctx, "forgot_password_requested", map[string]interface{}{
		"userId": user.ID.String(),
	})

	return token, nil
}

// ResetPasswordWithToken consumes a reset token: looks up the user it
// belongs to (expired tokens are misses), updates the password, then clears
// the token so it can never be used twice.
func (s *Service) ResetPasswordWithToken(ctx context.Context, token, newPassword string) error {
	user, err := s.repo.FindByPasswordResetToken(ctx, token)
	if err != nil {
		return err
	}
	if user == nil {
		return apperrors.ResetTokenInvalid()
	}
	return s.ResetPassword(ctx, user.ID.String(), newPassword)
}

// ResetPassword replaces the password hash for a user and clears any pending
// reset token. The clear step only runs after the update succeeds, so a
// failed update never strands a consumed-but-unused token.
func (s *Service) ResetPassword(ctx context.Context, userID, newPassword string) error {
	passwordHash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return apperrors.InternalError("failed to hash password").WithCause(err)
	}

	if err := s.repo.UpdatePassword(ctx, userID, passwordHash); err != nil {
		// Domain failures (e.g. USER_NOT_FOUND) pass through untouched;
		// anything else becomes a generic PASSWORD_RESET_FAILED.
		if appErr, ok := err.(*apperrors.AppError); ok && appErr.Category == apperrors.CategoryClient {
			return err
		}
		return apperrors.PasswordResetFailed().WithCause(err)
	}

	if err := s.repo.ClearPasswordResetToken(ctx, userID); err != nil {
		return err
	}

	s.log.AuthEvent(ctx, "password_reset_success", map[string]interface{}{
		"userId": userID,
	})

	return nil
}

func (s *Service) issueTokens(user *db.PublicUser) (*AuthResult, error) {
	accessToken, err := s.tokens.GenerateAccessToken(user)
	if err != nil {
		return nil, apperrors.InternalError("failed to sign access token").WithCause(err)
	}

	refreshToken, err := s.tokens.GenerateRefreshToken(user)
	if err != nil {
		return nil, apperrors.InternalError("failed to sign refresh token").WithCause(err)
	}

	return &AuthResult{
		User:         user,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

func generateResetToken() (string, error) {
	buf := make([]byte, resetTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
