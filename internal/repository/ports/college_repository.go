package ports

import (
	"context"

	"github.com/tjdests/tjdests/internal/domain"
)

type CollegeRepository interface {
	Create(ctx context.Context, name, location string) (*domain.College, error)
	FindByID(ctx context.Context, id int64) (*domain.College, error)
	FindByNameLocation(ctx context.Context, name, location string) (*domain.College, error)
	ListAll(ctx context.Context) ([]domain.College, error)
}
