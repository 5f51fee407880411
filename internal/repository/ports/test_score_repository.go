package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/tjdests/tjdests/internal/domain"
)

type TestScoreRepository interface {
	Create(ctx context.Context, score *domain.TestScore) (*domain.TestScore, error)
	Update(ctx context.Context, score *domain.TestScore) (*domain.TestScore, error)
	Delete(ctx context.Context, id int64) error
	FindByID(ctx context.Context, id int64) (*domain.TestScore, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.TestScore, error)
	ListByUsers(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID][]domain.TestScore, error)
}
