package domain

import (
	"time"

	"github.com/google/uuid"
)

type Session struct {
	ID                 uuid.UUID `db:"id" json:"id"`
	UserID             uuid.UUID `db:"user_id" json:"user_id"`
	Token              string    `db:"token" json:"-"`
	NeedsPasswordReset bool      `db:"needs_password_reset" json:"needs_password_reset"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
	ExpiresAt          time.Time `db:"expires_at" json:"expires_at"`
	IsActive           bool      `db:"is_active" json:"is_active"`
}

// RequiresPasswordReset reports whether the session is still confined to the
// forced reset. A flag left on a session outlives its meaning once the account
// no longer falls back to legacy hashes.
func (s *Session) RequiresPasswordReset(user *User) bool {
	return s != nil && s.NeedsPasswordReset && user != nil && user.UseLegacyHashes
}
