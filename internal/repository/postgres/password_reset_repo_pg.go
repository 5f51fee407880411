package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/tjdests/tjdests/internal/domain"
)

type PasswordResetRepository struct {
	db sqlx.ExtContext
}

func NewPasswordResetRepo(db sqlx.ExtContext) *PasswordResetRepository {
	return &PasswordResetRepository{db: db}
}

func (r *PasswordResetRepository) Record(ctx context.Context, reset *domain.PasswordReset) (*domain.PasswordReset, error) {
	const query = `
        INSERT INTO password_reset (user_id, session_id, reason)
        VALUES ($1, $2, $3)
        RETURNING id, user_id, session_id, reason, completed_at
    `
	row := r.db.QueryRowxContext(ctx, query, reset.UserID, reset.SessionID, reset.Reason)
	var recorded domain.PasswordReset
	if err := row.StructScan(&recorded); err != nil {
		return nil, mapError(err)
	}
	return &recorded, nil
}

func (r *PasswordResetRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.PasswordReset, error) {
	const query = `
        SELECT id, user_id, session_id, reason, completed_at
        FROM password_reset
        WHERE user_id = $1
        ORDER BY completed_at DESC
    `
	var resets []domain.PasswordReset
	if err := sqlx.SelectContext(ctx, r.db, &resets, query, userID); err != nil {
		return nil, mapError(err)
	}
	return resets, nil
}
