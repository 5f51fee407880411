package service

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/tjdests/tjdests/internal/domain"
	"github.com/tjdests/tjdests/internal/repository/memory"
)

func intPtr(v int) *int { return &v }

func fixedNow() time.Time { return time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC) }

func seedDestinations(t *testing.T) (*memory.Store, domain.User, domain.College) {
	t.Helper()
	store := memory.NewStore()
	store.SetClock(fixedNow)
	viewer := store.PutUser(domain.User{Username: "viewer", FirstName: "Vi", LastName: "Ewer", IsActive: true, IsStudent: true, AcceptedTerms: true})
	mit := store.PutCollege("MIT", "Cambridge, MA")
	cmu := store.PutCollege("CMU", "Pittsburgh, PA")

	ctx := context.Background()
	repos := store.Repositories()
	published := store.PutUser(domain.User{Username: "bob", FirstName: "Bob", LastName: "Baker", GraduationYear: intPtr(2026), PublishData: true, Biography: "robotics"})
	hidden := store.PutUser(domain.User{Username: "carol", FirstName: "Carol", LastName: "Cole", GraduationYear: intPtr(2026)})
	store.PutUser(domain.User{Username: "dan", FirstName: "Dan", LastName: "Drew", GraduationYear: intPtr(2024), PublishData: true})

	admit, err := repos.Decisions.Create(ctx, &domain.Decision{UserID: published.ID, CollegeID: mit.ID, AdmissionStatus: domain.AdmissionAdmit})
	if err != nil {
		t.Fatalf("seed decision: %v", err)
	}
	if err := repos.Users.SetAttendingDecision(ctx, published.ID, &admit.ID); err != nil {
		t.Fatalf("seed attending: %v", err)
	}
	if _, err := repos.Decisions.Create(ctx, &domain.Decision{UserID: published.ID, CollegeID: cmu.ID, AdmissionStatus: domain.AdmissionDeny}); err != nil {
		t.Fatalf("seed decision: %v", err)
	}
	if _, err := repos.Decisions.Create(ctx, &domain.Decision{UserID: hidden.ID, CollegeID: mit.ID, AdmissionStatus: domain.AdmissionAdmit}); err != nil {
		t.Fatalf("seed decision: %v", err)
	}
	if _, err := repos.TestScores.Create(ctx, &domain.TestScore{UserID: published.ID, ExamType: domain.ExamSATTotal, ExamScore: 1500}); err != nil {
		t.Fatalf("seed score: %v", err)
	}
	return store, viewer, mit
}

func TestDestinationServiceListStudents(t *testing.T) {
	store, viewer, mit := seedDestinations(t)
	svc := NewDestinationService(store)
	svc.now = fixedNow
	ctx := context.Background()

	listing, err := svc.ListStudents(ctx, &viewer, StudentQuery{})
	if err != nil {
		t.Fatalf("list students: %v", err)
	}
	if listing.SelectedYear != 2026 || listing.CurrentAcademicYear != 2026 {
		t.Fatalf("unexpected year %d/%d", listing.SelectedYear, listing.CurrentAcademicYear)
	}
	if listing.Total != 1 || len(listing.Items) != 1 || listing.Items[0].User.Username != "bob" {
		t.Fatalf("expected only bob, got %+v", listing.Items)
	}
	entry := listing.Items[0]
	if len(entry.Decisions) != 2 || len(entry.TestScores) != 1 {
		t.Fatalf("expected decisions and scores attached, got %d/%d", len(entry.Decisions), len(entry.TestScores))
	}
	if entry.Attending == nil || entry.Attending.ID != mit.ID {
		t.Fatalf("expected attending MIT, got %+v", entry.Attending)
	}
	if len(listing.AvailableYears) != 2 || listing.AvailableYears[0] != 2026 || listing.AvailableYears[1] != 2024 {
		t.Fatalf("unexpected available years %v", listing.AvailableYears)
	}

	listing, err = svc.ListStudents(ctx, &viewer, StudentQuery{Year: "2024"})
	if err != nil || listing.Total != 1 || listing.Items[0].User.Username != "dan" {
		t.Fatalf("expected dan for 2024, got %+v %v", listing, err)
	}

	listing, err = svc.ListStudents(ctx, &viewer, StudentQuery{Search: "ROBOT"})
	if err != nil || listing.Total != 1 || listing.SearchQuery != "ROBOT" {
		t.Fatalf("search should match the biography, got %+v %v", listing, err)
	}
}

func TestDestinationServiceListStudentsFilters(t *testing.T) {
	store, viewer, mit := seedDestinations(t)
	svc := NewDestinationService(store)
	svc.now = fixedNow
	ctx := context.Background()

	if _, err := svc.ListStudents(ctx, &viewer, StudentQuery{All: true}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("non admin must not list unpublished students, got %v", err)
	}

	admin := viewer
	admin.IsStaff, admin.IsSuperuser = true, true
	listing, err := svc.ListStudents(ctx, &admin, StudentQuery{All: true, College: "1000"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown college should be not found, got %v %+v", err, listing)
	}
	listing, err = svc.ListStudents(ctx, &admin, StudentQuery{All: true, College: itoa(mit.ID)})
	if err != nil {
		t.Fatalf("list by college: %v", err)
	}
	if listing.Total != 2 || listing.College == nil || listing.College.Name != "MIT" {
		t.Fatalf("expected both MIT applicants, got %d %+v", listing.Total, listing.College)
	}

	for _, bad := range []string{"abc", "-1", "20x6"} {
		if _, err := svc.ListStudents(ctx, &viewer, StudentQuery{Year: bad}); !errors.Is(err, ErrNotFound) {
			t.Fatalf("year %q: expected not found, got %v", bad, err)
		}
	}

	banned := viewer
	banned.IsBanned = true
	if _, err := svc.ListStudents(ctx, &banned, StudentQuery{}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("banned viewer should be forbidden, got %v", err)
	}
}

func TestDestinationServiceListColleges(t *testing.T) {
	store, viewer, _ := seedDestinations(t)
	svc := NewDestinationService(store)
	svc.now = fixedNow

	listing, err := svc.ListColleges(context.Background(), &viewer, CollegeQuery{})
	if err != nil {
		t.Fatalf("list colleges: %v", err)
	}
	if listing.Total != 2 {
		t.Fatalf("expected two colleges, got %d", listing.Total)
	}
	var mit domain.CollegeStats
	for _, c := range listing.Items {
		if c.Name == "MIT" {
			mit = c
		}
	}
	// carol is unpublished so only bob counts.
	if mit.CountDecisions != 1 || mit.CountAdmit != 1 || mit.CountAttending != 1 {
		t.Fatalf("unexpected MIT counts %+v", mit)
	}
	if listing.Page.Page != 1 || listing.PageSize != destinationsPageSize || listing.TotalPages != 1 {
		t.Fatalf("unexpected paging %+v", listing.Page)
	}
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}
