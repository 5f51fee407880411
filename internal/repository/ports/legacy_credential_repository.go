package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tjdests/tjdests/internal/domain"
)

type LegacyCredentialRepository interface {
	// ListByUser returns the user's legacy hashes, newest first.
	ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.LegacyCredential, error)
	Create(ctx context.Context, userID uuid.UUID, passwordHash string) (*domain.LegacyCredential, error)
	CountByUser(ctx context.Context, userID uuid.UUID) (int, error)
	TouchLastUsed(ctx context.Context, id int64, usedAt time.Time) error
}
