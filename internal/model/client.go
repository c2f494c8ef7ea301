package model

import (
	"github.com/google/uuid"
)

// Client is an emergency requester profile. Created as a stub on first
// sign-in with role client; only contact info changes afterwards.
type Client struct {
	Base
	UserID uuid.UUID `db:"user_id" json:"user_id"`
	Email  string    `db:"email" json:"email"`
	Phone  string    `db:"phone" json:"phone"`
	Region string    `db:"region" json:"region"`
}
