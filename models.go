package auth

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// UserRole is the user's role
type UserRole = string

const (
	// RoleNone marks a user without elevated privilege. Stored as the empty
	// string; serialized as an absent role claim.
	RoleNone UserRole = ""
	// RoleAdmin may issue and list invitation codes.
	RoleAdmin UserRole = "admin"
)

// User is the user model. Guest identities are never written here; they exist
// only inside a signed token.
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Login         string     `bun:"login,notnull" json:"login,omitempty"`
	Name          string     `bun:"name" json:"name,omitempty"`
	AvatarURL     string     `bun:"avatar_url" json:"avatar_url,omitempty"`
	Email         string     `bun:"email,unique" json:"email,omitempty"`
	Role          UserRole   `bun:"role" json:"role,omitempty"`
	Guest         bool       `bun:"guest" json:"guest"`
	LastSeenAt    *time.Time `bun:"last_seen_at,nullzero" json:"last_seen_at,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// VerificationCode is a one-time email login code. Records are retained after
// consumption for audit; Verified flips false to true exactly once.
type VerificationCode struct {
	bun.BaseModel `bun:"table:email_verification_codes,alias:evc"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Email         string     `bun:"email,notnull" json:"email,omitempty"`
	Code          string     `bun:"code,notnull" json:"code,omitempty"`
	ExpiresAt     time.Time  `bun:"expires_at,notnull" json:"expires_at"`
	Verified      bool       `bun:"verified" json:"verified"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// Expired reports whether the code is past its expiry at the given instant.
func (v *VerificationCode) Expired(now time.Time) bool {
	return now.After(v.ExpiresAt)
}

// InvitationCode is an admin-issued single-use registration gate. IsUsed is
// monotonic false to true; a used or expired code is never valid again.
type InvitationCode struct {
	bun.BaseModel `bun:"table:invitation_codes,alias:inv"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Code          string     `bun:"code,notnull,unique" json:"code,omitempty"`
	CreatedBy     uuid.UUID  `bun:"created_by,notnull,type:uuid" json:"created_by,omitempty"`
	IsUsed        bool       `bun:"is_used" json:"is_used"`
	UsedBy        *uuid.UUID `bun:"used_by,type:uuid" json:"used_by,omitempty"`
	UsedAt        *time.Time `bun:"used_at,nullzero" json:"used_at,omitempty"`
	ExpiresAt     *time.Time `bun:"expires_at,nullzero" json:"expires_at,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`

	// UsedByEmail is populated by the listing join, never persisted.
	UsedByEmail string `bun:"used_by_email,scanonly" json:"used_by_email,omitempty"`
}

// Expired reports whether the invitation is past its expiry at the given
// instant. Invitations without an expiry never expire.
func (i *InvitationCode) Expired(now time.Time) bool {
	return i.ExpiresAt != nil && now.After(*i.ExpiresAt)
}
