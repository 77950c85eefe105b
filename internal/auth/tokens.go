package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/authstarter/backend/internal/db"
	apperrors "github.com/authstarter/backend/internal/errors"
)

const (
	AccessTokenExpiry  = 15 * time.Minute
	RefreshTokenExpiry = 7 * 24 * time.Hour

	tokenIssuer = "authstarter"
)

// Claims is the payload shared by access and refresh tokens: the public user
// snapshot plus the registered sub/iat/exp fields.
type Claims struct {
	Email     string    `json:"email"`
	Role      db.Role   `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies the two signed token classes. Access and
// refresh tokens share the payload shape but are signed with distinct
// secrets and carry distinct expiries.
type TokenService struct {
	accessSecret  []byte
	refreshSecret []byte
	accessExpiry  time.Duration
	refreshExpiry time.Duration
}

func NewTokenService(accessSecret, refreshSecret string) *TokenService {
	return &TokenService{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessExpiry:  AccessTokenExpiry,
		refreshExpiry: RefreshTokenExpiry,
	}
}

func (s *TokenService) GenerateAccessToken(user *db.PublicUser) (string, error) {
	return s.generate(user, s.accessSecret, s.accessExpiry)
}

func (s *TokenService) GenerateRefreshToken(user *db.PublicUser) (string, error) {
	return s.generate(user, s.refreshSecret, s.refreshExpiry)
}

// VerifyAccessToken validates signature and expiry. All failure modes
// collapse to one TOKEN_INVALID error; callers never learn whether the token
// was malformed or merely expired.
func (s *TokenService) VerifyAccessToken(token string) (*Claims, error) {
	claims, err := s.verify(token, s.accessSecret)
	if err != nil {
		return nil, apperrors.TokenInvalid()
	}
	return claims, nil
}

// VerifyRefreshToken is the refresh-class analog of VerifyAccessToken.
func (s *TokenService) VerifyRefreshToken(token string) (*Claims, error) {
	claims, err := s.verify(token, s.refreshSecret)
	if err != nil {
		return nil, apperrors.RefreshTokenInvalid()
	}
	return claims, nil
}

func (s *TokenService) generate(user *db.PublicUser, secret []byte, expiry time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		Email:     user.Email,
		Role:      user.Role,
		CreatedAt: user.CreatedAt,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

func (s *TokenService) verify(tokenString string, secret []byte) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}

	return claims, nil
}

// PublicUser rebuilds the public view carried in the token payload.
func (c *Claims) PublicUser() *db.PublicUser {
	return &db.PublicUser{
		ID:        c.Subject,
		Email:     c.Email,
		Role:      c.Role,
		CreatedAt: c.CreatedAt,
	}
}
