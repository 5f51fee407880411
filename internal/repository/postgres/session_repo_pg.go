package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/tjdests/tjdests/internal/domain"
)

type SessionRepository struct {
	db sqlx.ExtContext
}

func NewSessionRepo(db sqlx.ExtContext) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) CreateSession(ctx context.Context, session *domain.Session) (*domain.Session, error) {
	const query = `
        INSERT INTO user_session (id, user_id, token, needs_password_reset, expires_at, is_active)
        VALUES ($1, $2, $3, $4, $5, true)
        RETURNING id, user_id, token, needs_password_reset, created_at, expires_at, is_active
    `
	row := r.db.QueryRowxContext(ctx, query, session.ID, session.UserID, session.Token, session.NeedsPasswordReset, session.ExpiresAt)
	var created domain.Session
	if err := row.StructScan(&created); err != nil {
		return nil, mapError(err)
	}
	return &created, nil
}

func (r *SessionRepository) DeactivateSession(ctx context.Context, id uuid.UUID) error {
	const query = `
        UPDATE user_session SET is_active = false, expires_at = NOW()
        WHERE id = $1 AND is_active = true
    `
	_, err := r.db.ExecContext(ctx, query, id)
	return mapError(err)
}

func (r *SessionRepository) DeactivateFlaggedByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	const query = `
        UPDATE user_session SET is_active = false, expires_at = NOW()
        WHERE user_id = $1 AND needs_password_reset = true AND is_active = true
    `
	res, err := r.db.ExecContext(ctx, query, userID)
	if err != nil {
		return 0, mapError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, mapError(err)
	}
	return n, nil
}

func (r *SessionRepository) FindActiveSession(ctx context.Context, token string) (*domain.Session, error) {
	const query = `
        SELECT id, user_id, token, needs_password_reset, created_at, expires_at, is_active
        FROM user_session
        WHERE token = $1 AND is_active = true AND expires_at > NOW()
    `
	var session domain.Session
	if err := sqlx.GetContext(ctx, r.db, &session, query, token); err != nil {
		return nil, mapError(err)
	}
	return &session, nil
}
