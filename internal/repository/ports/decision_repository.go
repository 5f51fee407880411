package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/tjdests/tjdests/internal/domain"
)

type DecisionRepository interface {
	Create(ctx context.Context, decision *domain.Decision) (*domain.Decision, error)
	Update(ctx context.Context, decision *domain.Decision) (*domain.Decision, error)
	// Upsert keeps one decision per (user, college).
	Upsert(ctx context.Context, decision *domain.Decision) (*domain.Decision, error)
	Delete(ctx context.Context, id int64) error
	FindByID(ctx context.Context, id int64) (*domain.Decision, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Decision, error)
	ListByUsers(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID][]domain.Decision, error)
}
