package domain

import (
	"time"

	"github.com/google/uuid"
)

type PasswordResetReason string

const (
	PasswordResetReasonLegacyMigration PasswordResetReason = "legacy_migration"
)

// PasswordReset records a completed forced password reset.
type PasswordReset struct {
	ID          int64               `db:"id" json:"id"`
	UserID      uuid.UUID           `db:"user_id" json:"user_id"`
	SessionID   uuid.UUID           `db:"session_id" json:"session_id"`
	Reason      PasswordResetReason `db:"reason" json:"reason"`
	CompletedAt time.Time           `db:"completed_at" json:"completed_at"`
}
