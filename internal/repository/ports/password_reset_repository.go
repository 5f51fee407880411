package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/tjdests/tjdests/internal/domain"
)

type PasswordResetRepository interface {
	Record(ctx context.Context, reset *domain.PasswordReset) (*domain.PasswordReset, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.PasswordReset, error)
}
