package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/tjdests/tjdests/internal/domain"
)

type LegacyCredentialRepository struct {
	db sqlx.ExtContext
}

func NewLegacyCredentialRepo(db sqlx.ExtContext) *LegacyCredentialRepository {
	return &LegacyCredentialRepository{db: db}
}

func (r *LegacyCredentialRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.LegacyCredential, error) {
	const query = `
        SELECT id, user_id, password_hash, created_at, last_used_at
        FROM legacy_password_hash
        WHERE user_id = $1
        ORDER BY created_at DESC, id DESC
    `
	var creds []domain.LegacyCredential
	if err := sqlx.SelectContext(ctx, r.db, &creds, query, userID); err != nil {
		return nil, mapError(err)
	}
	return creds, nil
}

func (r *LegacyCredentialRepository) Create(ctx context.Context, userID uuid.UUID, passwordHash string) (*domain.LegacyCredential, error) {
	const query = `
        INSERT INTO legacy_password_hash (user_id, password_hash)
        VALUES ($1, $2)
        RETURNING id, user_id, password_hash, created_at, last_used_at
    `
	row := r.db.QueryRowxContext(ctx, query, userID, passwordHash)
	var cred domain.LegacyCredential
	if err := row.StructScan(&cred); err != nil {
		return nil, mapError(err)
	}
	return &cred, nil
}

func (r *LegacyCredentialRepository) CountByUser(ctx context.Context, userID uuid.UUID) (int, error) {
	const query = `SELECT COUNT(*) FROM legacy_password_hash WHERE user_id = $1`
	var count int
	if err := sqlx.GetContext(ctx, r.db, &count, query, userID); err != nil {
		return 0, mapError(err)
	}
	return count, nil
}

func (r *LegacyCredentialRepository) TouchLastUsed(ctx context.Context, id int64, usedAt time.Time) error {
	const query = `UPDATE legacy_password_hash SET last_used_at = $2 WHERE id = $1`
	return requireAffected(r.db.ExecContext(ctx, query, id, usedAt))
}
