package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tjdests/tjdests/internal/domain"
	"github.com/tjdests/tjdests/internal/repository/ports"
	"github.com/tjdests/tjdests/internal/util"
)

const importedPasswordLength = 12

// TransferService moves colleges and accounts between deployments. Colleges
// are matched by their name/location hash rather than by id.
type TransferService struct {
	store  ports.Transactor
	logger *zap.Logger
}

func NewTransferService(store ports.Transactor, logger *zap.Logger) *TransferService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TransferService{store: store, logger: logger}
}

func (s *TransferService) ExportColleges(ctx context.Context) (map[string]domain.ExportedCollege, error) {
	colleges, err := s.store.Repositories().Colleges.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list colleges: %w", err)
	}
	out := make(map[string]domain.ExportedCollege, len(colleges))
	for _, c := range colleges {
		out[c.Hash()] = domain.ExportedCollege{ID: c.ID, Name: c.Name, Location: c.Location}
	}
	return out, nil
}

func (s *TransferService) ExportUsers(ctx context.Context) (map[string]domain.ExportedUser, error) {
	repos := s.store.Repositories()
	users, err := repos.Users.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	out := make(map[string]domain.ExportedUser, len(users))
	for i := range users {
		u := &users[i]
		password, err := s.exportedPassword(ctx, repos, u)
		if err != nil {
			return nil, err
		}
		decisions, err := repos.Decisions.ListByUser(ctx, u.ID)
		if err != nil {
			return nil, fmt.Errorf("list decisions for %s: %w", u.Username, err)
		}
		scores, err := repos.TestScores.ListByUser(ctx, u.ID)
		if err != nil {
			return nil, fmt.Errorf("list test scores for %s: %w", u.Username, err)
		}

		exported := domain.ExportedUser{
			Username:       u.Username,
			Password:       password,
			FirstName:      u.FirstName,
			LastName:       u.LastName,
			Email:          u.Email,
			Nickname:       u.Nickname,
			UseNickname:    u.UseNickname,
			PreferredName:  u.PreferredName,
			GraduationYear: u.GraduationYear,
			GPA:            u.GPA,
			IsStudent:      u.IsStudent,
			IsStaff:        u.IsStaff,
			IsSuperuser:    u.IsSuperuser,
			IsBanned:       u.IsBanned,
			AcceptedTerms:  u.AcceptedTerms,
			PublishData:    u.PublishData,
			Biography:      u.Biography,
			Decisions:      make([]domain.ExportedDecision, 0, len(decisions)),
			TestScores:     make([]domain.ExportedTestScore, 0, len(scores)),
			LastModified:   timestamp(u.UpdatedAt),
		}
		for _, d := range decisions {
			hash := d.College.Hash()
			if u.AttendingDecisionID != nil && *u.AttendingDecisionID == d.ID {
				exported.AttendingCollegeHash = &hash
			}
			exported.Decisions = append(exported.Decisions, domain.ExportedDecision{
				CollegeHash:     hash,
				CollegeName:     d.College.Name,
				CollegeLocation: d.College.Location,
				DecisionType:    d.DecisionType,
				AdmissionStatus: d.AdmissionStatus,
				LastModified:    timestamp(d.LastModified),
			})
		}
		for _, ts := range scores {
			exported.TestScores = append(exported.TestScores, domain.ExportedTestScore{
				ExamType:     ts.ExamType,
				ExamScore:    ts.ExamScore,
				LastModified: timestamp(ts.LastModified),
			})
		}
		out[u.ID.String()] = exported
	}
	return out, nil
}

// exportedPassword prefers the newest legacy hash for accounts that have not
// yet been through the forced reset, since their primary hash is random.
func (s *TransferService) exportedPassword(ctx context.Context, repos ports.Repositories, u *domain.User) (string, error) {
	if u.UseLegacyHashes {
		creds, err := repos.LegacyCredentials.ListByUser(ctx, u.ID)
		if err != nil {
			return "", fmt.Errorf("list legacy credentials for %s: %w", u.Username, err)
		}
		if len(creds) > 0 {
			return creds[0].PasswordHash, nil
		}
	}
	return util.EncodePrimaryHash(u.PasswordHash, u.PasswordSalt), nil
}

func (s *TransferService) ImportColleges(ctx context.Context, colleges map[string]domain.ExportedCollege) (domain.ImportSummary, error) {
	summary := domain.ImportSummary{Total: len(colleges)}
	repos := s.store.Repositories()

	for _, key := range sortedKeys(colleges) {
		c := colleges[key]
		_, err := repos.Colleges.FindByNameLocation(ctx, c.Name, c.Location)
		switch {
		case err == nil:
			summary.Skipped++
			continue
		case !errors.Is(err, ports.ErrNotFound):
			summary.Errors++
			s.logger.Error("college lookup failed", zap.String("name", c.Name), zap.String("location", c.Location), zap.Error(err))
			continue
		}
		if _, err := repos.Colleges.Create(ctx, c.Name, c.Location); err != nil {
			if errors.Is(err, ports.ErrDuplicate) {
				summary.Skipped++
				continue
			}
			summary.Errors++
			s.logger.Error("college import failed", zap.String("name", c.Name), zap.String("location", c.Location), zap.Error(err))
			continue
		}
		summary.Created++
	}

	s.logger.Info("college import finished",
		zap.Int("total", summary.Total),
		zap.Int("imported", summary.Created),
		zap.Int("skipped", summary.Skipped),
		zap.Int("errors", summary.Errors))
	return summary, nil
}

// ImportUsers creates or updates each account in its own transaction so one
// bad record never rolls back the others. New accounts get a random primary
// password and keep their exported hash as a legacy credential.
func (s *TransferService) ImportUsers(ctx context.Context, users map[string]domain.ExportedUser) (domain.ImportSummary, error) {
	summary := domain.ImportSummary{Total: len(users)}

	known, err := s.store.Repositories().Colleges.ListAll(ctx)
	if err != nil {
		return summary, fmt.Errorf("list colleges: %w", err)
	}
	colleges := make(map[string]domain.College, len(known))
	for _, c := range known {
		colleges[c.Hash()] = c
	}

	for _, key := range sortedKeys(users) {
		record := users[key]
		if record.Username == "" {
			summary.Skipped++
			s.logger.Warn("skipping user without username", zap.String("key", key))
			continue
		}

		var (
			created bool
			added   map[string]domain.College
		)
		err := s.store.WithinTx(ctx, func(ctx context.Context, repos ports.Repositories) error {
			var err error
			created, added, err = s.importUser(ctx, repos, record, colleges)
			return err
		})
		if err != nil {
			summary.Errors++
			s.logger.Error("user import failed", zap.String("username", record.Username), zap.Error(err))
			continue
		}
		for hash, c := range added {
			colleges[hash] = c
		}
		if created {
			summary.Created++
		} else {
			summary.Updated++
		}
	}

	s.logger.Info("user import finished",
		zap.Int("total", summary.Total),
		zap.Int("created", summary.Created),
		zap.Int("updated", summary.Updated),
		zap.Int("skipped", summary.Skipped),
		zap.Int("errors", summary.Errors))
	return summary, nil
}

func (s *TransferService) importUser(ctx context.Context, repos ports.Repositories, record domain.ExportedUser, colleges map[string]domain.College) (bool, map[string]domain.College, error) {
	added := make(map[string]domain.College)

	user, err := repos.Users.FindByUsername(ctx, record.Username)
	created := false
	switch {
	case errors.Is(err, ports.ErrNotFound):
		password, err := util.GenerateRandomPassword(importedPasswordLength)
		if err != nil {
			return false, nil, fmt.Errorf("generate password: %w", err)
		}
		hash, salt, err := util.DerivePassword(password)
		if err != nil {
			return false, nil, fmt.Errorf("derive password: %w", err)
		}
		fresh := importedUser(record)
		fresh.PasswordHash = hash
		fresh.PasswordSalt = salt
		fresh.UseLegacyHashes = true
		fresh.IsActive = true
		user, err = repos.Users.Create(ctx, &fresh)
		if err != nil {
			return false, nil, fmt.Errorf("create user: %w", err)
		}
		created = true
	case err != nil:
		return false, nil, fmt.Errorf("find user: %w", err)
	default:
		updated := importedUser(record)
		updated.ID = user.ID
		updated.AttendingDecisionID = user.AttendingDecisionID
		if updated.Biography == "" {
			updated.Biography = user.Biography
		}
		user, err = repos.Users.UpdateProfile(ctx, &updated)
		if err != nil {
			return false, nil, fmt.Errorf("update user: %w", err)
		}
	}

	if record.Password != "" {
		store := created
		if !created {
			count, err := repos.LegacyCredentials.CountByUser(ctx, user.ID)
			if err != nil {
				return false, nil, fmt.Errorf("count legacy credentials: %w", err)
			}
			store = count == 0
		}
		if store {
			if _, err := repos.LegacyCredentials.Create(ctx, user.ID, record.Password); err != nil {
				return false, nil, fmt.Errorf("store legacy credential: %w", err)
			}
		}
	}

	for _, ts := range record.TestScores {
		score := &domain.TestScore{
			UserID:       user.ID,
			ExamType:     ts.ExamType,
			ExamScore:    ts.ExamScore,
			LastModified: s.importedTime(record.Username, ts.LastModified),
		}
		if _, err := repos.TestScores.Create(ctx, score); err != nil {
			return false, nil, fmt.Errorf("create test score: %w", err)
		}
	}

	attendingByHash := make(map[string]int64, len(record.Decisions))
	for _, d := range record.Decisions {
		college, ok := colleges[d.CollegeHash]
		if !ok {
			college, ok = added[d.CollegeHash]
		}
		if !ok {
			c, err := resolveCollege(ctx, repos, d.CollegeName, d.CollegeLocation)
			if err != nil {
				return false, nil, err
			}
			college = *c
			added[d.CollegeHash] = college
		}
		decision, err := repos.Decisions.Upsert(ctx, &domain.Decision{
			UserID:          user.ID,
			CollegeID:       college.ID,
			DecisionType:    d.DecisionType,
			AdmissionStatus: d.AdmissionStatus,
			LastModified:    s.importedTime(record.Username, d.LastModified),
		})
		if err != nil {
			return false, nil, fmt.Errorf("upsert decision: %w", err)
		}
		attendingByHash[d.CollegeHash] = decision.ID
	}

	if record.AttendingCollegeHash != nil {
		if id, ok := attendingByHash[*record.AttendingCollegeHash]; ok {
			if err := repos.Users.SetAttendingDecision(ctx, user.ID, &id); err != nil {
				return false, nil, fmt.Errorf("set attending decision: %w", err)
			}
		} else {
			s.logger.Warn("attending college not among decisions",
				zap.String("username", record.Username), zap.String("college_hash", *record.AttendingCollegeHash))
		}
	}

	return created, added, nil
}

func resolveCollege(ctx context.Context, repos ports.Repositories, name, location string) (*domain.College, error) {
	college, err := repos.Colleges.FindByNameLocation(ctx, name, location)
	if err == nil {
		return college, nil
	}
	if !errors.Is(err, ports.ErrNotFound) {
		return nil, fmt.Errorf("find college: %w", err)
	}
	college, err = repos.Colleges.Create(ctx, name, location)
	if err != nil {
		return nil, fmt.Errorf("create college: %w", err)
	}
	return college, nil
}

func importedUser(record domain.ExportedUser) domain.User {
	return domain.User{
		Username:       record.Username,
		Email:          record.Email,
		FirstName:      record.FirstName,
		LastName:       record.LastName,
		Nickname:       record.Nickname,
		UseNickname:    record.UseNickname,
		IsStudent:      record.IsStudent,
		IsStaff:        record.IsStaff,
		IsSuperuser:    record.IsSuperuser,
		IsBanned:       record.IsBanned,
		AcceptedTerms:  record.AcceptedTerms,
		GraduationYear: record.GraduationYear,
		GPA:            record.GPA,
		PublishData:    record.PublishData,
		Biography:      strings.TrimSpace(record.Biography),
	}
}

// importedTime reads an exported RFC 3339 timestamp. A missing or unreadable
// value yields the zero time, which the repositories store as now.
func (s *TransferService) importedTime(username string, value *string) time.Time {
	if value == nil || strings.TrimSpace(*value) == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, strings.TrimSpace(*value))
	if err != nil {
		s.logger.Warn("ignoring unreadable last_modified",
			zap.String("username", username), zap.String("value", *value), zap.Error(err))
		return time.Time{}
	}
	return t
}

func timestamp(t time.Time) *string {
	if t.IsZero() {
		return nil
	}
	v := t.UTC().Format(time.RFC3339)
	return &v
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
