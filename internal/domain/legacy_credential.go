package domain

import (
	"time"

	"github.com/google/uuid"
)

// LegacyCredential is a password hash carried over from a previous deployment.
// The hash string is kept verbatim in its original format.
type LegacyCredential struct {
	ID           int64      `db:"id" json:"id"`
	UserID       uuid.UUID  `db:"user_id" json:"user_id"`
	PasswordHash string     `db:"password_hash" json:"-"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	LastUsedAt   *time.Time `db:"last_used_at" json:"last_used_at,omitempty"`
}
