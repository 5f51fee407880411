package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tjdests/tjdests/internal/domain"
	"github.com/tjdests/tjdests/internal/repository/ports"
)

const destinationsPageSize = 20

type StudentQuery struct {
	All     bool
	Year    string
	College string
	Search  string
	Page    int
}

type CollegeQuery struct {
	Year   string
	Search string
	Page   int
}

type StudentListing struct {
	domain.Page[domain.StudentEntry]
	SelectedYear        int             `json:"selected_year"`
	AvailableYears      []int           `json:"available_years"`
	CurrentAcademicYear int             `json:"current_academic_year"`
	College             *domain.College `json:"college,omitempty"`
	SearchQuery         string          `json:"search_query"`
}

type CollegeListing struct {
	domain.Page[domain.CollegeStats]
	SelectedYear        int    `json:"selected_year"`
	AvailableYears      []int  `json:"available_years"`
	CurrentAcademicYear int    `json:"current_academic_year"`
	SearchQuery         string `json:"search_query"`
}

type DestinationService struct {
	store ports.Transactor
	now   func() time.Time
}

func NewDestinationService(store ports.Transactor) *DestinationService {
	return &DestinationService{store: store, now: time.Now}
}

func (s *DestinationService) ListStudents(ctx context.Context, viewer *domain.User, q StudentQuery) (*StudentListing, error) {
	if viewer == nil || !viewer.CanBrowse() {
		return nil, ErrForbidden
	}
	if q.All && !viewer.IsAdmin() {
		return nil, ErrForbidden
	}

	repos := s.store.Repositories()
	current := domain.AcademicYear(s.now())
	year, err := parseYear(q.Year, current)
	if err != nil {
		return nil, err
	}

	filter := domain.StudentListFilter{
		IncludeUnpublished: q.All,
		GraduationYear:     year,
		Limit:              destinationsPageSize,
	}
	page := normalizePage(q.Page)
	filter.Offset = (page - 1) * destinationsPageSize

	var college *domain.College
	if raw := strings.TrimSpace(q.College); raw != "" {
		id, err := parseDigits(raw)
		if err != nil {
			return nil, err
		}
		college, err = repos.Colleges.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, ports.ErrNotFound) {
				return nil, ErrNotFound
			}
			return nil, fmt.Errorf("find college: %w", err)
		}
		filter.CollegeID = &college.ID
	}

	search := strings.TrimSpace(q.Search)
	if search != "" {
		filter.Search = &search
	}

	users, total, err := repos.Destinations.ListStudents(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}

	ids := make([]uuid.UUID, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	scores, err := repos.TestScores.ListByUsers(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("list test scores: %w", err)
	}
	decisions, err := repos.Decisions.ListByUsers(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("list decisions: %w", err)
	}

	entries := make([]domain.StudentEntry, 0, len(users))
	for _, u := range users {
		entry := domain.StudentEntry{
			User:       u,
			TestScores: nonNil(scores[u.ID]),
			Decisions:  nonNil(decisions[u.ID]),
		}
		if u.AttendingDecisionID != nil {
			for _, d := range entry.Decisions {
				if d.ID == *u.AttendingDecisionID {
					attending := d.College
					entry.Attending = &attending
					break
				}
			}
		}
		entries = append(entries, entry)
	}

	years, err := s.availableYears(ctx, repos, current)
	if err != nil {
		return nil, err
	}

	return &StudentListing{
		Page:                domain.NewPage(entries, total, page, destinationsPageSize),
		SelectedYear:        year,
		AvailableYears:      years,
		CurrentAcademicYear: current,
		College:             college,
		SearchQuery:         search,
	}, nil
}

func (s *DestinationService) ListColleges(ctx context.Context, viewer *domain.User, q CollegeQuery) (*CollegeListing, error) {
	if viewer == nil || !viewer.CanBrowse() {
		return nil, ErrForbidden
	}

	repos := s.store.Repositories()
	current := domain.AcademicYear(s.now())
	year, err := parseYear(q.Year, current)
	if err != nil {
		return nil, err
	}

	page := normalizePage(q.Page)
	filter := domain.CollegeListFilter{
		GraduationYear: year,
		Limit:          destinationsPageSize,
		Offset:         (page - 1) * destinationsPageSize,
	}
	search := strings.TrimSpace(q.Search)
	if search != "" {
		filter.Search = &search
	}

	stats, total, err := repos.Destinations.ListCollegeStats(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list college stats: %w", err)
	}
	years, err := s.availableYears(ctx, repos, current)
	if err != nil {
		return nil, err
	}

	return &CollegeListing{
		Page:                domain.NewPage(stats, total, page, destinationsPageSize),
		SelectedYear:        year,
		AvailableYears:      years,
		CurrentAcademicYear: current,
		SearchQuery:         search,
	}, nil
}

// availableYears lists published graduation years, newest first, with the
// current academic year always in front.
func (s *DestinationService) availableYears(ctx context.Context, repos ports.Repositories, current int) ([]int, error) {
	published, err := repos.Destinations.ListPublishedGraduationYears(ctx)
	if err != nil {
		return nil, fmt.Errorf("list graduation years: %w", err)
	}
	years := make([]int, 0, len(published)+1)
	years = append(years, current)
	for _, y := range published {
		if y != current {
			years = append(years, y)
		}
	}
	return years, nil
}

func parseYear(raw string, fallback int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, nil
	}
	year, err := parseDigits(raw)
	if err != nil {
		return 0, err
	}
	return int(year), nil
}

func parseDigits(raw string) (int64, error) {
	for _, r := range raw {
		if r < '0' || r > '9' {
			return 0, ErrNotFound
		}
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, ErrNotFound
	}
	return v, nil
}

func normalizePage(page int) int {
	if page < 1 {
		return 1
	}
	return page
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
