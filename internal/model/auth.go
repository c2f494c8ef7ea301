package model

import (
	"time"

	"github.com/google/uuid"
)

// Role is carried in the JWT, not persisted on profile rows. At sign-up it
// is consumed once to create the matching stub profile.
type Role string

const (
	RoleClient Role = "client"
	RoleMedic  Role = "medic"
	RoleAdmin  Role = "admin"
)

// User is an authentication account.
type User struct {
	Base
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	Role         Role       `db:"role" json:"role"`
	LastLoginAt  *time.Time `db:"last_login_at" json:"last_login_at,omitempty"`
}

// Session identifies the authenticated caller of a domain operation. It is
// passed explicitly into every service call so the domain can be exercised
// without a live identity provider.
type Session struct {
	UserID uuid.UUID `json:"user_id"`
	Email  string    `json:"email"`
	Role   Role      `json:"role"`
}

// IsAdmin reports whether the session belongs to an administrator.
func (s Session) IsAdmin() bool {
	return s.Role == RoleAdmin
}

type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Role     Role   `json:"role" binding:"required,oneof=client medic"`
	Phone    string `json:"phone"`
	Region   string `json:"region"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}
