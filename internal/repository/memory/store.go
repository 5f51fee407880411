// Package memory keeps every repository in process memory. Transactions
// snapshot the whole state and restore it when the callback fails.
//
// It backs the service and HTTP tests. Listings and college counts are
// recomputed in Go here; the SQL that produces them in Postgres is checked
// separately by the postgres package tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tjdests/tjdests/internal/domain"
	"github.com/tjdests/tjdests/internal/repository/ports"
)

type memState struct {
	users     map[uuid.UUID]domain.User
	legacy    map[int64]domain.LegacyCredential
	sessions  map[uuid.UUID]domain.Session
	resets    []domain.PasswordReset
	colleges  map[int64]domain.College
	decisions map[int64]domain.Decision
	scores    map[int64]domain.TestScore
	nextID    int64
}

func (s *memState) clone() *memState {
	c := &memState{
		users:     make(map[uuid.UUID]domain.User, len(s.users)),
		legacy:    make(map[int64]domain.LegacyCredential, len(s.legacy)),
		sessions:  make(map[uuid.UUID]domain.Session, len(s.sessions)),
		resets:    append([]domain.PasswordReset(nil), s.resets...),
		colleges:  make(map[int64]domain.College, len(s.colleges)),
		decisions: make(map[int64]domain.Decision, len(s.decisions)),
		scores:    make(map[int64]domain.TestScore, len(s.scores)),
		nextID:    s.nextID,
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.legacy {
		c.legacy[k] = v
	}
	for k, v := range s.sessions {
		c.sessions[k] = v
	}
	for k, v := range s.colleges {
		c.colleges[k] = v
	}
	for k, v := range s.decisions {
		c.decisions[k] = v
	}
	for k, v := range s.scores {
		c.scores[k] = v
	}
	return c
}

// Store implements ports.Transactor. Concurrent transactions are not isolated
// from one another, so it suits tests and single-user tooling only.
type Store struct {
	mu    sync.Mutex
	state *memState
	now   func() time.Time

	failOn  string
	failErr error

	txCount int
}

func NewStore() *Store {
	return &Store{
		state: &memState{
			users:     map[uuid.UUID]domain.User{},
			legacy:    map[int64]domain.LegacyCredential{},
			sessions:  map[uuid.UUID]domain.Session{},
			colleges:  map[int64]domain.College{},
			decisions: map[int64]domain.Decision{},
			scores:    map[int64]domain.TestScore{},
		},
		now: time.Now,
	}
}

func (m *Store) Repositories() ports.Repositories {
	return m.repos()
}

func (m *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, repos ports.Repositories) error) error {
	m.mu.Lock()
	snapshot := m.state.clone()
	m.txCount++
	m.mu.Unlock()

	if err := fn(ctx, m.repos()); err != nil {
		m.mu.Lock()
		m.state = snapshot
		m.mu.Unlock()
		return err
	}
	return nil
}

func (m *Store) repos() ports.Repositories {
	return ports.Repositories{
		Users:             memUsers{m},
		LegacyCredentials: memLegacy{m},
		Sessions:          memSessions{m},
		PasswordResets:    memResets{m},
		Colleges:          memColleges{m},
		Decisions:         memDecisions{m},
		TestScores:        memScores{m},
		Destinations:      memDestinations{m},
	}
}

func (m *Store) fail(op string) error {
	if m.failOn == op {
		return m.failErr
	}
	return nil
}

func (m *Store) id() int64 {
	m.state.nextID++
	return m.state.nextID
}

// SetClock replaces the time source used for timestamps and session expiry.
func (m *Store) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

// FailOn makes the named operation, e.g. "users.replace", return err.
func (m *Store) FailOn(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failOn, m.failErr = op, err
}

// TxCount reports how many transactions were opened.
func (m *Store) TxCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.txCount
}

func (m *Store) PutUser(u domain.User) domain.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	u.RefreshPreferredName()
	m.state.users[u.ID] = u
	return u
}

func (m *Store) PutLegacy(userID uuid.UUID, hash string, createdAt time.Time) domain.LegacyCredential {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := domain.LegacyCredential{ID: m.id(), UserID: userID, PasswordHash: hash, CreatedAt: createdAt}
	m.state.legacy[c.ID] = c
	return c
}

func (m *Store) PutCollege(name, location string) domain.College {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := domain.College{ID: m.id(), Name: name, Location: location}
	m.state.colleges[c.ID] = c
	return c
}

func (m *Store) User(id uuid.UUID) domain.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.users[id]
}

func (m *Store) Session(id uuid.UUID) domain.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.sessions[id]
}

func (m *Store) LegacyCredential(id int64) domain.LegacyCredential {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.legacy[id]
}

func (m *Store) ResetRecords() []domain.PasswordReset {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.PasswordReset(nil), m.state.resets...)
}

func (m *Store) ActiveSessions(userID uuid.UUID) []domain.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Session
	for _, s := range m.state.sessions {
		if s.UserID == userID && s.IsActive {
			out = append(out, s)
		}
	}
	return out
}

type memUsers struct{ m *Store }

func (r memUsers) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.fail("users.create"); err != nil {
		return nil, err
	}
	for _, u := range r.m.state.users {
		if u.Username == user.Username {
			return nil, ports.ErrDuplicate
		}
	}
	u := *user
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	u.RefreshPreferredName()
	u.CreatedAt, u.UpdatedAt = r.m.now(), r.m.now()
	r.m.state.users[u.ID] = u
	return &u, nil
}

func (r memUsers) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, u := range r.m.state.users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, ports.ErrNotFound
}

func (r memUsers) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	u, ok := r.m.state.users[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return &u, nil
}

func (r memUsers) UpdateProfile(ctx context.Context, user *domain.User) (*domain.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.fail("users.update"); err != nil {
		return nil, err
	}
	existing, ok := r.m.state.users[user.ID]
	if !ok {
		return nil, ports.ErrNotFound
	}
	u := *user
	u.Username = existing.Username
	u.PasswordHash, u.PasswordSalt = existing.PasswordHash, existing.PasswordSalt
	u.UseLegacyHashes = existing.UseLegacyHashes
	u.IsActive = existing.IsActive
	u.CreatedAt = existing.CreatedAt
	u.UpdatedAt = r.m.now()
	u.RefreshPreferredName()
	r.m.state.users[u.ID] = u
	return &u, nil
}

func (r memUsers) ReplacePrimaryCredential(ctx context.Context, id uuid.UUID, hash, salt []byte) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.fail("users.replace"); err != nil {
		return err
	}
	u, ok := r.m.state.users[id]
	if !ok {
		return ports.ErrNotFound
	}
	u.PasswordHash, u.PasswordSalt, u.UseLegacyHashes = hash, salt, false
	r.m.state.users[id] = u
	return nil
}

func (r memUsers) AcceptTerms(ctx context.Context, id uuid.UUID, hash, salt []byte) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	u, ok := r.m.state.users[id]
	if !ok {
		return ports.ErrNotFound
	}
	u.AcceptedTerms, u.PasswordHash, u.PasswordSalt = true, hash, salt
	r.m.state.users[id] = u
	return nil
}

func (r memUsers) SetAttendingDecision(ctx context.Context, id uuid.UUID, decisionID *int64) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	u, ok := r.m.state.users[id]
	if !ok {
		return ports.ErrNotFound
	}
	u.AttendingDecisionID = decisionID
	r.m.state.users[id] = u
	return nil
}

func (r memUsers) ListAll(ctx context.Context) ([]domain.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := make([]domain.User, 0, len(r.m.state.users))
	for _, u := range r.m.state.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

type memLegacy struct{ m *Store }

func (r memLegacy) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.LegacyCredential, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []domain.LegacyCredential
	for _, c := range r.m.state.legacy {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r memLegacy) Create(ctx context.Context, userID uuid.UUID, hash string) (*domain.LegacyCredential, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	c := domain.LegacyCredential{ID: r.m.id(), UserID: userID, PasswordHash: hash, CreatedAt: r.m.now()}
	r.m.state.legacy[c.ID] = c
	return &c, nil
}

func (r memLegacy) CountByUser(ctx context.Context, userID uuid.UUID) (int, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	n := 0
	for _, c := range r.m.state.legacy {
		if c.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (r memLegacy) TouchLastUsed(ctx context.Context, id int64, usedAt time.Time) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.fail("legacy.touch"); err != nil {
		return err
	}
	c, ok := r.m.state.legacy[id]
	if !ok {
		return ports.ErrNotFound
	}
	c.LastUsedAt = &usedAt
	r.m.state.legacy[id] = c
	return nil
}

type memSessions struct{ m *Store }

func (r memSessions) CreateSession(ctx context.Context, session *domain.Session) (*domain.Session, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.fail("sessions.create"); err != nil {
		return nil, err
	}
	s := *session
	s.IsActive = true
	s.CreatedAt = r.m.now()
	r.m.state.sessions[s.ID] = s
	return &s, nil
}

func (r memSessions) DeactivateSession(ctx context.Context, id uuid.UUID) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if s, ok := r.m.state.sessions[id]; ok {
		s.IsActive = false
		r.m.state.sessions[id] = s
	}
	return nil
}

func (r memSessions) DeactivateFlaggedByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.fail("sessions.deactivate_flagged"); err != nil {
		return 0, err
	}
	var n int64
	for id, s := range r.m.state.sessions {
		if s.UserID == userID && s.NeedsPasswordReset && s.IsActive {
			s.IsActive = false
			r.m.state.sessions[id] = s
			n++
		}
	}
	return n, nil
}

func (r memSessions) FindActiveSession(ctx context.Context, token string) (*domain.Session, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, s := range r.m.state.sessions {
		if s.Token == token && s.IsActive && s.ExpiresAt.After(r.m.now()) {
			return &s, nil
		}
	}
	return nil, ports.ErrNotFound
}

type memResets struct{ m *Store }

func (r memResets) Record(ctx context.Context, reset *domain.PasswordReset) (*domain.PasswordReset, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.fail("resets.record"); err != nil {
		return nil, err
	}
	rec := *reset
	rec.ID = r.m.id()
	rec.CompletedAt = r.m.now()
	r.m.state.resets = append(r.m.state.resets, rec)
	return &rec, nil
}

func (r memResets) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.PasswordReset, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []domain.PasswordReset
	for _, rec := range r.m.state.resets {
		if rec.UserID == userID {
			out = append(out, rec)
		}
	}
	return out, nil
}

type memColleges struct{ m *Store }

func (r memColleges) Create(ctx context.Context, name, location string) (*domain.College, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, c := range r.m.state.colleges {
		if c.Name == name && c.Location == location {
			return nil, ports.ErrDuplicate
		}
	}
	c := domain.College{ID: r.m.id(), Name: name, Location: location}
	r.m.state.colleges[c.ID] = c
	return &c, nil
}

func (r memColleges) FindByID(ctx context.Context, id int64) (*domain.College, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	c, ok := r.m.state.colleges[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return &c, nil
}

func (r memColleges) FindByNameLocation(ctx context.Context, name, location string) (*domain.College, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, c := range r.m.state.colleges {
		if c.Name == name && c.Location == location {
			return &c, nil
		}
	}
	return nil, ports.ErrNotFound
}

func (r memColleges) ListAll(ctx context.Context) ([]domain.College, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := make([]domain.College, 0, len(r.m.state.colleges))
	for _, c := range r.m.state.colleges {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

type memDecisions struct{ m *Store }

func (r memDecisions) withCollege(d domain.Decision) domain.Decision {
	d.College = r.m.state.colleges[d.CollegeID]
	return d
}

func (r memDecisions) Create(ctx context.Context, decision *domain.Decision) (*domain.Decision, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, d := range r.m.state.decisions {
		if d.UserID == decision.UserID && d.CollegeID == decision.CollegeID {
			return nil, ports.ErrDuplicate
		}
	}
	d := *decision
	d.ID = r.m.id()
	if d.LastModified.IsZero() {
		d.LastModified = r.m.now()
	}
	r.m.state.decisions[d.ID] = d
	out := r.withCollege(d)
	return &out, nil
}

func (r memDecisions) Update(ctx context.Context, decision *domain.Decision) (*domain.Decision, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.state.decisions[decision.ID]; !ok {
		return nil, ports.ErrNotFound
	}
	for _, d := range r.m.state.decisions {
		if d.ID != decision.ID && d.UserID == decision.UserID && d.CollegeID == decision.CollegeID {
			return nil, ports.ErrDuplicate
		}
	}
	d := *decision
	d.LastModified = r.m.now()
	r.m.state.decisions[d.ID] = d
	out := r.withCollege(d)
	return &out, nil
}

func (r memDecisions) Upsert(ctx context.Context, decision *domain.Decision) (*domain.Decision, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.fail("decisions.upsert"); err != nil {
		return nil, err
	}
	d := *decision
	for _, existing := range r.m.state.decisions {
		if existing.UserID == d.UserID && existing.CollegeID == d.CollegeID {
			d.ID = existing.ID
		}
	}
	if d.ID == 0 {
		d.ID = r.m.id()
	}
	if d.LastModified.IsZero() {
		d.LastModified = r.m.now()
	}
	r.m.state.decisions[d.ID] = d
	out := r.withCollege(d)
	return &out, nil
}

func (r memDecisions) Delete(ctx context.Context, id int64) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.state.decisions[id]; !ok {
		return ports.ErrNotFound
	}
	delete(r.m.state.decisions, id)
	return nil
}

func (r memDecisions) FindByID(ctx context.Context, id int64) (*domain.Decision, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	d, ok := r.m.state.decisions[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	out := r.withCollege(d)
	return &out, nil
}

func (r memDecisions) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Decision, error) {
	grouped, err := r.ListByUsers(ctx, []uuid.UUID{userID})
	return grouped[userID], err
}

func (r memDecisions) ListByUsers(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID][]domain.Decision, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	wanted := make(map[uuid.UUID]bool, len(userIDs))
	for _, id := range userIDs {
		wanted[id] = true
	}
	out := make(map[uuid.UUID][]domain.Decision)
	ids := make([]int64, 0, len(r.m.state.decisions))
	for id := range r.m.state.decisions {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		d := r.m.state.decisions[id]
		if wanted[d.UserID] {
			out[d.UserID] = append(out[d.UserID], r.withCollege(d))
		}
	}
	return out, nil
}

type memScores struct{ m *Store }

func (r memScores) Create(ctx context.Context, score *domain.TestScore) (*domain.TestScore, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	s := *score
	s.ID = r.m.id()
	if s.LastModified.IsZero() {
		s.LastModified = r.m.now()
	}
	r.m.state.scores[s.ID] = s
	return &s, nil
}

func (r memScores) Update(ctx context.Context, score *domain.TestScore) (*domain.TestScore, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.state.scores[score.ID]; !ok {
		return nil, ports.ErrNotFound
	}
	s := *score
	s.LastModified = r.m.now()
	r.m.state.scores[s.ID] = s
	return &s, nil
}

func (r memScores) Delete(ctx context.Context, id int64) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.state.scores[id]; !ok {
		return ports.ErrNotFound
	}
	delete(r.m.state.scores, id)
	return nil
}

func (r memScores) FindByID(ctx context.Context, id int64) (*domain.TestScore, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	s, ok := r.m.state.scores[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return &s, nil
}

func (r memScores) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.TestScore, error) {
	grouped, err := r.ListByUsers(ctx, []uuid.UUID{userID})
	return grouped[userID], err
}

func (r memScores) ListByUsers(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID][]domain.TestScore, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	wanted := make(map[uuid.UUID]bool, len(userIDs))
	for _, id := range userIDs {
		wanted[id] = true
	}
	out := make(map[uuid.UUID][]domain.TestScore)
	for _, s := range r.m.state.scores {
		if wanted[s.UserID] {
			out[s.UserID] = append(out[s.UserID], s)
		}
	}
	return out, nil
}

type memDestinations struct{ m *Store }

func (r memDestinations) ListStudents(ctx context.Context, filter domain.StudentListFilter) ([]domain.User, int, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var matched []domain.User
	for _, u := range r.m.state.users {
		if !filter.IncludeUnpublished && !u.PublishData {
			continue
		}
		if filter.GraduationYear != 0 && (u.GraduationYear == nil || *u.GraduationYear != filter.GraduationYear) {
			continue
		}
		if filter.CollegeID != nil {
			found := false
			for _, d := range r.m.state.decisions {
				if d.UserID == u.ID && d.CollegeID == *filter.CollegeID {
					found = true
				}
			}
			if !found {
				continue
			}
		}
		if filter.Search != nil {
			q := strings.ToLower(*filter.Search)
			hay := strings.ToLower(u.FirstName + "\x00" + u.LastName + "\x00" + u.Nickname + "\x00" + u.Biography)
			if !strings.Contains(hay, q) {
				continue
			}
		}
		matched = append(matched, u)
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].LastName != matched[j].LastName {
			return matched[i].LastName < matched[j].LastName
		}
		return matched[i].PreferredName < matched[j].PreferredName
	})
	total := len(matched)
	start := min(filter.Offset, total)
	end := min(start+filter.Limit, total)
	return matched[start:end], total, nil
}

func (r memDestinations) ListCollegeStats(ctx context.Context, filter domain.CollegeListFilter) ([]domain.CollegeStats, int, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	byCollege := map[int64]*domain.CollegeStats{}
	for _, d := range r.m.state.decisions {
		u := r.m.state.users[d.UserID]
		if !u.PublishData || (filter.GraduationYear != 0 && (u.GraduationYear == nil || *u.GraduationYear != filter.GraduationYear)) {
			continue
		}
		c := r.m.state.colleges[d.CollegeID]
		if filter.Search != nil {
			q := strings.ToLower(*filter.Search)
			if !strings.Contains(strings.ToLower(c.Name), q) && !strings.Contains(strings.ToLower(c.Location), q) {
				continue
			}
		}
		st, ok := byCollege[c.ID]
		if !ok {
			st = &domain.CollegeStats{College: c}
			byCollege[c.ID] = st
		}
		st.CountDecisions++
		if u.AttendingDecisionID != nil && *u.AttendingDecisionID == d.ID {
			st.CountAttending++
		}
		switch d.AdmissionStatus {
		case domain.AdmissionAdmit:
			st.CountAdmit++
		case domain.AdmissionWaitlist:
			st.CountWaitlist++
		case domain.AdmissionDeny:
			st.CountDeny++
		case domain.AdmissionDefer:
			st.CountDefer++
		}
	}
	out := make([]domain.CollegeStats, 0, len(byCollege))
	for _, st := range byCollege {
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	total := len(out)
	start := min(filter.Offset, total)
	end := min(start+filter.Limit, total)
	return out[start:end], total, nil
}

func (r memDestinations) ListPublishedGraduationYears(ctx context.Context) ([]int, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	seen := map[int]bool{}
	var years []int
	for _, u := range r.m.state.users {
		if u.PublishData && u.GraduationYear != nil && !seen[*u.GraduationYear] {
			seen[*u.GraduationYear] = true
			years = append(years, *u.GraduationYear)
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(years)))
	return years, nil
}
