package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/tjdests/tjdests/internal/domain"
)

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	UpdateProfile(ctx context.Context, user *domain.User) (*domain.User, error)
	// ReplacePrimaryCredential swaps the primary hash and clears the legacy
	// fallback flag in a single row update.
	ReplacePrimaryCredential(ctx context.Context, id uuid.UUID, passwordHash, passwordSalt []byte) error
	AcceptTerms(ctx context.Context, id uuid.UUID, passwordHash, passwordSalt []byte) error
	SetAttendingDecision(ctx context.Context, id uuid.UUID, decisionID *int64) error
	ListAll(ctx context.Context) ([]domain.User, error)
}
