package db

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
)

// Role is the access level attached to a user record.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User is the persisted credential record. PasswordHash and the reset-token
// fields never leave the server; callers only ever see the PublicUser view.
type User struct {
	ID                     uuid.UUID
	Email                  string
	PasswordHash           string
	Role                   Role
	CreatedAt              time.Time
	PasswordResetToken     *string
	PasswordResetExpiresAt *time.Time
}

// PublicUser is the only user representation returned to clients or embedded
// in token payloads: exactly these fields, nothing else.
type PublicUser struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

// Public strips the sensitive fields from a user record.
func (u *User) Public() *PublicUser {
	return &PublicUser{
		ID:        u.ID.String(),
		Email:     u.Email,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}

// CanonicalEmail produces the canonical uniqueness key for an email address:
// trimmed, NFC-normalized, lowercased. "A@B.com" and " a@b.com " collide.
func CanonicalEmail(email string) string {
	s := strings.TrimSpace(email)
	s = norm.NFC.String(s)
	return strings.ToLower(s)
}
