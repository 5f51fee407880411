package ports

import (
	"context"

	"github.com/tjdests/tjdests/internal/domain"
)

// DestinationRepository serves the read-only aggregate listings.
type DestinationRepository interface {
	ListStudents(ctx context.Context, filter domain.StudentListFilter) ([]domain.User, int, error)
	ListCollegeStats(ctx context.Context, filter domain.CollegeListFilter) ([]domain.CollegeStats, int, error)
	ListPublishedGraduationYears(ctx context.Context) ([]int, error)
}
