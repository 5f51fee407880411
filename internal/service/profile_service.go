package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/tjdests/tjdests/internal/domain"
	"github.com/tjdests/tjdests/internal/repository/ports"
)

const (
	maxBiographyLength = 1500
	maxNicknameLength  = 30
)

type Profile struct {
	User       *domain.User       `json:"user"`
	TestScores []domain.TestScore `json:"test_scores"`
	Decisions  []domain.Decision  `json:"decisions"`
	CanEdit    bool               `json:"can_edit"`
}

type PublishInput struct {
	PublishData         bool
	Biography           string
	Nickname            string
	UseNickname         bool
	GPA                 *float64
	AttendingDecisionID *int64
}

type TestScoreInput struct {
	ExamType  domain.ExamType
	ExamScore int
}

type DecisionInput struct {
	CollegeID       int64
	DecisionType    *domain.DecisionType
	AdmissionStatus domain.AdmissionStatus
}

type ProfileService struct {
	store ports.Transactor
	now   func() time.Time
}

func NewProfileService(store ports.Transactor) *ProfileService {
	return &ProfileService{store: store, now: time.Now}
}

func (s *ProfileService) Get(ctx context.Context, user *domain.User) (*Profile, error) {
	repos := s.store.Repositories()
	scores, err := repos.TestScores.ListByUser(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("list test scores: %w", err)
	}
	decisions, err := repos.Decisions.ListByUser(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("list decisions: %w", err)
	}
	return &Profile{
		User:       user,
		TestScores: nonNil(scores),
		Decisions:  nonNil(decisions),
		CanEdit:    s.canEdit(user),
	}, nil
}

func (s *ProfileService) UpdatePublish(ctx context.Context, user *domain.User, input PublishInput) (*domain.User, error) {
	if !s.canEdit(user) {
		return nil, ErrProfileLocked
	}

	verr := &ValidationError{Message: "invalid profile"}
	if utf8.RuneCountInString(input.Biography) > maxBiographyLength {
		verr.add("biography", fmt.Sprintf("Ensure this value has at most %d characters.", maxBiographyLength))
	}
	if utf8.RuneCountInString(input.Nickname) > maxNicknameLength {
		verr.add("nickname", fmt.Sprintf("Ensure this value has at most %d characters.", maxNicknameLength))
	}
	if input.GPA != nil {
		gpa := *input.GPA
		if gpa < 0 || gpa > 5 {
			verr.add("gpa", "GPA must be between 0 and 5.")
		} else if math.Abs(gpa*1000-math.Round(gpa*1000)) > 1e-6 {
			verr.add("gpa", "Ensure that there are no more than 3 decimal places.")
		}
	}

	repos := s.store.Repositories()
	if input.AttendingDecisionID != nil {
		decision, err := repos.Decisions.FindByID(ctx, *input.AttendingDecisionID)
		switch {
		case errors.Is(err, ports.ErrNotFound) || (err == nil && decision.UserID != user.ID):
			verr.add("attending_decision", "Select a valid choice.")
		case err != nil:
			return nil, fmt.Errorf("find decision: %w", err)
		case !decision.AdmissionStatus.Admitted():
			verr.add("attending_decision", "You can only attend a college you were admitted to.")
		}
	}
	if err := verr.orNil(); err != nil {
		return nil, err
	}

	updated := *user
	updated.PublishData = input.PublishData
	updated.Biography = input.Biography
	updated.Nickname = input.Nickname
	updated.UseNickname = input.UseNickname
	updated.GPA = input.GPA
	updated.AttendingDecisionID = input.AttendingDecisionID

	saved, err := repos.Users.UpdateProfile(ctx, &updated)
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return saved, nil
}

func (s *ProfileService) AddTestScore(ctx context.Context, user *domain.User, input TestScoreInput) (*domain.TestScore, error) {
	if !s.canEdit(user) {
		return nil, ErrProfileLocked
	}
	if err := validateTestScore(input); err != nil {
		return nil, err
	}
	score, err := s.store.Repositories().TestScores.Create(ctx, &domain.TestScore{
		UserID:    user.ID,
		ExamType:  input.ExamType,
		ExamScore: input.ExamScore,
	})
	if err != nil {
		return nil, fmt.Errorf("create test score: %w", err)
	}
	return score, nil
}

func (s *ProfileService) UpdateTestScore(ctx context.Context, user *domain.User, id int64, input TestScoreInput) (*domain.TestScore, error) {
	if !s.canEdit(user) {
		return nil, ErrProfileLocked
	}
	repos := s.store.Repositories()
	score, err := s.ownedTestScore(ctx, repos, user.ID, id)
	if err != nil {
		return nil, err
	}
	if err := validateTestScore(input); err != nil {
		return nil, err
	}
	score.ExamType = input.ExamType
	score.ExamScore = input.ExamScore
	updated, err := repos.TestScores.Update(ctx, score)
	if err != nil {
		return nil, fmt.Errorf("update test score: %w", err)
	}
	return updated, nil
}

func (s *ProfileService) DeleteTestScore(ctx context.Context, user *domain.User, id int64) error {
	if !s.canEdit(user) {
		return ErrProfileLocked
	}
	repos := s.store.Repositories()
	if _, err := s.ownedTestScore(ctx, repos, user.ID, id); err != nil {
		return err
	}
	if err := repos.TestScores.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete test score: %w", err)
	}
	return nil
}

func (s *ProfileService) AddDecision(ctx context.Context, user *domain.User, input DecisionInput) (*domain.Decision, error) {
	if !s.canEdit(user) {
		return nil, ErrProfileLocked
	}
	repos := s.store.Repositories()
	if err := s.validateDecision(ctx, repos, input); err != nil {
		return nil, err
	}
	decision, err := repos.Decisions.Create(ctx, &domain.Decision{
		UserID:          user.ID,
		CollegeID:       input.CollegeID,
		DecisionType:    input.DecisionType,
		AdmissionStatus: input.AdmissionStatus,
	})
	if err != nil {
		if errors.Is(err, ports.ErrDuplicate) {
			return nil, ErrDuplicateDecision
		}
		return nil, fmt.Errorf("create decision: %w", err)
	}
	return decision, nil
}

// UpdateDecision drops the attending choice when the decision no longer ends
// in an admission.
func (s *ProfileService) UpdateDecision(ctx context.Context, user *domain.User, id int64, input DecisionInput) (*domain.Decision, error) {
	if !s.canEdit(user) {
		return nil, ErrProfileLocked
	}

	var updated *domain.Decision
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos ports.Repositories) error {
		decision, err := s.ownedDecision(ctx, repos, user.ID, id)
		if err != nil {
			return err
		}
		if err := s.validateDecision(ctx, repos, input); err != nil {
			return err
		}
		decision.CollegeID = input.CollegeID
		decision.DecisionType = input.DecisionType
		decision.AdmissionStatus = input.AdmissionStatus
		updated, err = repos.Decisions.Update(ctx, decision)
		if err != nil {
			if errors.Is(err, ports.ErrDuplicate) {
				return ErrDuplicateDecision
			}
			return fmt.Errorf("update decision: %w", err)
		}
		if isAttending(user, id) && !input.AdmissionStatus.Admitted() {
			if err := repos.Users.SetAttendingDecision(ctx, user.ID, nil); err != nil {
				return fmt.Errorf("clear attending decision: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if isAttending(user, id) && !input.AdmissionStatus.Admitted() {
		user.AttendingDecisionID = nil
	}
	return updated, nil
}

func (s *ProfileService) DeleteDecision(ctx context.Context, user *domain.User, id int64) error {
	if !s.canEdit(user) {
		return ErrProfileLocked
	}
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos ports.Repositories) error {
		if _, err := s.ownedDecision(ctx, repos, user.ID, id); err != nil {
			return err
		}
		if isAttending(user, id) {
			if err := repos.Users.SetAttendingDecision(ctx, user.ID, nil); err != nil {
				return fmt.Errorf("clear attending decision: %w", err)
			}
		}
		if err := repos.Decisions.Delete(ctx, id); err != nil {
			return fmt.Errorf("delete decision: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if isAttending(user, id) {
		user.AttendingDecisionID = nil
	}
	return nil
}

func (s *ProfileService) canEdit(user *domain.User) bool {
	return user != nil && user.AcceptedTerms && !user.IsBanned && user.CanUpdateProfile(s.now())
}

func (s *ProfileService) ownedTestScore(ctx context.Context, repos ports.Repositories, userID uuid.UUID, id int64) (*domain.TestScore, error) {
	score, err := repos.TestScores.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find test score: %w", err)
	}
	if score.UserID != userID {
		return nil, ErrNotFound
	}
	return score, nil
}

func (s *ProfileService) ownedDecision(ctx context.Context, repos ports.Repositories, userID uuid.UUID, id int64) (*domain.Decision, error) {
	decision, err := repos.Decisions.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find decision: %w", err)
	}
	if decision.UserID != userID {
		return nil, ErrNotFound
	}
	return decision, nil
}

func (s *ProfileService) validateDecision(ctx context.Context, repos ports.Repositories, input DecisionInput) error {
	verr := &ValidationError{Message: "invalid decision"}
	if input.DecisionType != nil && !input.DecisionType.Valid() {
		verr.add("decision_type", "Select a valid choice.")
	}
	if !input.AdmissionStatus.Valid() {
		verr.add("admission_status", "Select a valid choice.")
	}
	if _, err := repos.Colleges.FindByID(ctx, input.CollegeID); err != nil {
		if !errors.Is(err, ports.ErrNotFound) {
			return fmt.Errorf("find college: %w", err)
		}
		verr.add("college", "Select a valid choice.")
	}
	return verr.orNil()
}

func validateTestScore(input TestScoreInput) error {
	if err := input.ExamType.ValidateScore(input.ExamScore); err != nil {
		verr := &ValidationError{Message: "invalid test score"}
		verr.add("exam_score", err.Error())
		return verr
	}
	return nil
}

func isAttending(user *domain.User, decisionID int64) bool {
	return user.AttendingDecisionID != nil && *user.AttendingDecisionID == decisionID
}
