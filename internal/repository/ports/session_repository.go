package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/tjdests/tjdests/internal/domain"
)

type SessionRepository interface {
	CreateSession(ctx context.Context, session *domain.Session) (*domain.Session, error)
	DeactivateSession(ctx context.Context, id uuid.UUID) error
	// DeactivateFlaggedByUser ends every active session of the user that is
	// still waiting on a forced reset and reports how many were ended.
	DeactivateFlaggedByUser(ctx context.Context, userID uuid.UUID) (int64, error)
	FindActiveSession(ctx context.Context, token string) (*domain.Session, error)
}
