package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims is the single claims shape shared by registered and guest
// sessions. Guest and registered tokens differ only in TTL and the Guest flag;
// downstream consumers cannot structurally tell them apart.
type SessionClaims struct {
	jwt.RegisteredClaims
	Login     string   `json:"login,omitempty"`
	Name      string   `json:"name,omitempty"`
	AvatarURL string   `json:"avatarUrl,omitempty"`
	Email     string   `json:"email,omitempty"`
	UserRole  UserRole `json:"role,omitempty"`
	Guest     bool     `json:"guest"`
}

// UserID returns the subject identifier.
func (c *SessionClaims) UserID() string {
	return c.RegisteredClaims.Subject
}

// Role returns the global role, empty for unprivileged users and guests.
func (c *SessionClaims) Role() UserRole {
	return c.UserRole
}

// IsGuest reports whether the session belongs to a stateless guest identity.
func (c *SessionClaims) IsGuest() bool {
	return c.Guest
}

// Expires returns the expiration time
func (c *SessionClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// IssuedAt returns the issued at time
func (c *SessionClaims) IssuedAt() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}

// ClaimsFromUser builds session claims for a persisted user record.
func ClaimsFromUser(user *User) *SessionClaims {
	return &SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: user.ID.String(),
		},
		Login:     user.Login,
		Name:      user.Name,
		AvatarURL: user.AvatarURL,
		Email:     user.Email,
		UserRole:  user.Role,
		Guest:     false,
	}
}
