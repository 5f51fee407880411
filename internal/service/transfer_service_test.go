package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/tjdests/tjdests/internal/domain"
	"github.com/tjdests/tjdests/internal/repository/memory"
	"github.com/tjdests/tjdests/internal/util"
)

func seedExportSource(t *testing.T) (*memory.Store, domain.User) {
	t.Helper()
	store := memory.NewStore()
	ctx := context.Background()
	repos := store.Repositories()

	hash, salt, err := util.DerivePassword("NewPass!2")
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	grace := store.PutUser(domain.User{
		Username:       "grace",
		Email:          "grace@example.com",
		FirstName:      "Grace",
		LastName:       "Hopper",
		PasswordHash:   hash,
		PasswordSalt:   salt,
		IsActive:       true,
		IsStudent:      true,
		AcceptedTerms:  true,
		PublishData:    true,
		GraduationYear: intPtr(2026),
	})
	yale := store.PutCollege("Yale University", "New Haven, CT")
	decision, err := repos.Decisions.Create(ctx, &domain.Decision{UserID: grace.ID, CollegeID: yale.ID, AdmissionStatus: domain.AdmissionAdmit})
	if err != nil {
		t.Fatalf("seed decision: %v", err)
	}
	if err := repos.Users.SetAttendingDecision(ctx, grace.ID, &decision.ID); err != nil {
		t.Fatalf("seed attending: %v", err)
	}
	if _, err := repos.TestScores.Create(ctx, &domain.TestScore{UserID: grace.ID, ExamType: domain.ExamAP, ExamScore: 5}); err != nil {
		t.Fatalf("seed score: %v", err)
	}

	legacyHash, legacySalt, _ := util.DerivePassword("random-primary")
	store.PutUser(domain.User{
		Username:        "heidi",
		FirstName:       "Heidi",
		PasswordHash:    legacyHash,
		PasswordSalt:    legacySalt,
		UseLegacyHashes: true,
		IsActive:        true,
		IsStudent:       true,
	})
	heidi := findUser(t, store, "heidi")
	store.PutLegacy(heidi.ID, pbkdf2Hash("OldPass!1", "abc"), time.Now())
	return store, grace
}

func findUser(t *testing.T, store *memory.Store, username string) *domain.User {
	t.Helper()
	u, err := store.Repositories().Users.FindByUsername(context.Background(), username)
	if err != nil {
		t.Fatalf("find %s: %v", username, err)
	}
	return u
}

func TestTransferServiceRoundTrip(t *testing.T) {
	ctx := context.Background()
	source, grace := seedExportSource(t)
	exporter := NewTransferService(source, nil)

	colleges, err := exporter.ExportColleges(ctx)
	if err != nil {
		t.Fatalf("export colleges: %v", err)
	}
	if _, ok := colleges[domain.CollegeHash("Yale University", "New Haven, CT")]; !ok {
		t.Fatalf("colleges should be keyed by hash, got %v", colleges)
	}
	users, err := exporter.ExportUsers(ctx)
	if err != nil {
		t.Fatalf("export users: %v", err)
	}
	exported, ok := users[grace.ID.String()]
	if !ok {
		t.Fatalf("users should be keyed by id")
	}
	if exported.AttendingCollegeHash == nil || len(exported.Decisions) != 1 || len(exported.TestScores) != 1 {
		t.Fatalf("unexpected export %+v", exported)
	}
	if util.DetectLegacyAlgorithm(exported.Password) != util.LegacyNative {
		t.Fatalf("reset accounts export their primary hash, got %q", exported.Password)
	}
	for _, u := range users {
		if u.Username == "heidi" && util.DetectLegacyAlgorithm(u.Password) != util.LegacyPBKDF2SHA256 {
			t.Fatalf("flagged accounts export their legacy hash, got %q", u.Password)
		}
	}

	target := memory.NewStore()
	importer := NewTransferService(target, nil)
	summary, err := importer.ImportColleges(ctx, colleges)
	if err != nil || summary.Created != 1 {
		t.Fatalf("import colleges: %+v %v", summary, err)
	}
	summary, err = importer.ImportColleges(ctx, colleges)
	if err != nil || summary.Skipped != 1 || summary.Created != 0 {
		t.Fatalf("re-import should skip, got %+v %v", summary, err)
	}

	summary, err = importer.ImportUsers(ctx, users)
	if err != nil || summary.Created != 2 || summary.Errors != 0 {
		t.Fatalf("import users: %+v %v", summary, err)
	}

	imported := findUser(t, target, "grace")
	if !imported.UseLegacyHashes || imported.AttendingDecisionID == nil {
		t.Fatalf("imported account should be flagged and keep attending, got %+v", imported)
	}

	auth := NewAuthService(target, nil, nil, util.NewJWTManager("secret", time.Hour), AuthConfig{}, nil)
	res, err := auth.Login(ctx, "grace", "NewPass!2")
	if err != nil || !res.NeedsPasswordReset {
		t.Fatalf("imported password should log in through the legacy path, got %+v %v", res, err)
	}
	res, err = auth.Login(ctx, "heidi", "OldPass!1")
	if err != nil || !res.NeedsPasswordReset {
		t.Fatalf("carried legacy hash should log in, got %+v %v", res, err)
	}

	summary, err = importer.ImportUsers(ctx, users)
	if err != nil || summary.Updated != 2 {
		t.Fatalf("second import should update, got %+v %v", summary, err)
	}
	if n, _ := target.Repositories().LegacyCredentials.CountByUser(ctx, imported.ID); n != 1 {
		t.Fatalf("existing legacy credentials must not be duplicated, got %d", n)
	}
	decisions, _ := target.Repositories().Decisions.ListByUser(ctx, imported.ID)
	if len(decisions) != 1 {
		t.Fatalf("decisions should be upserted, got %d", len(decisions))
	}
}

func TestTransferServiceImportRollsBackFailedUser(t *testing.T) {
	ctx := context.Background()
	source, _ := seedExportSource(t)
	users, err := NewTransferService(source, nil).ExportUsers(ctx)
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	target := memory.NewStore()
	target.FailOn("decisions.upsert", errors.New("boom"))
	summary, err := NewTransferService(target, nil).ImportUsers(ctx, users)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if summary.Errors != 1 || summary.Created != 1 {
		t.Fatalf("expected one failed and one created user, got %+v", summary)
	}
	if _, err := target.Repositories().Users.FindByUsername(ctx, "grace"); err == nil {
		t.Fatalf("failed user should be rolled back")
	}
	if colleges, _ := target.Repositories().Colleges.ListAll(ctx); len(colleges) != 0 {
		t.Fatalf("colleges created for a failed user should be rolled back, got %v", colleges)
	}
}

type fakeObjectStorage struct {
	objects map[string][]byte
}

func (f *fakeObjectStorage) Upload(ctx context.Context, bucket, objectName, contentType string, reader io.Reader, size int64) (string, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}
	f.objects[bucket+"/"+objectName] = data
	return bucket + "/" + objectName, nil
}

func (f *fakeObjectStorage) Download(ctx context.Context, bucket, objectName string) (io.ReadCloser, error) {
	data, ok := f.objects[bucket+"/"+objectName]
	if !ok {
		return nil, errors.New("object not found")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func TestTransferArchive(t *testing.T) {
	ctx := context.Background()
	payload := map[string]domain.ExportedCollege{"abc": {ID: 1, Name: "MIT", Location: "Cambridge, MA"}}

	t.Run("local file", func(t *testing.T) {
		archive := NewTransferArchive(nil, "")
		path := filepath.Join(t.TempDir(), "colleges.json")
		location, err := archive.Write(ctx, path, payload)
		if err != nil || location != path {
			t.Fatalf("write: %q %v", location, err)
		}
		var got map[string]domain.ExportedCollege
		if err := archive.Read(ctx, path, &got); err != nil {
			t.Fatalf("read: %v", err)
		}
		if got["abc"].Name != "MIT" {
			t.Fatalf("unexpected content %+v", got)
		}
	})

	t.Run("object storage", func(t *testing.T) {
		storage := &fakeObjectStorage{objects: map[string][]byte{}}
		archive := NewTransferArchive(storage, "exports")
		location, err := archive.Write(ctx, "colleges.json", payload)
		if err != nil || location != "exports/colleges.json" {
			t.Fatalf("write: %q %v", location, err)
		}
		var got map[string]domain.ExportedCollege
		if err := archive.Read(ctx, "colleges.json", &got); err != nil {
			t.Fatalf("read: %v", err)
		}
		if got["abc"].Location != "Cambridge, MA" {
			t.Fatalf("unexpected content %+v", got)
		}
		if err := archive.Read(ctx, "missing.json", &got); err == nil {
			t.Fatalf("expected error for missing object")
		}
	})
}

func TestImportUsersKeepsTimestampsAndBiography(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	clock := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	store.SetClock(func() time.Time { return clock })
	svc := NewTransferService(store, nil)

	scoreTime := "2025-11-02T08:15:00Z"
	decisionTime := "2025-12-15T18:30:00Z"
	garbled := "yesterday"
	record := domain.ExportedUser{
		Username:  "ivan",
		FirstName: "Ivan",
		IsStudent: true,
		Biography: "  Going north.  ",
		TestScores: []domain.ExportedTestScore{
			{ExamType: domain.ExamAP, ExamScore: 4, LastModified: &scoreTime},
			{ExamType: domain.ExamAP, ExamScore: 5, LastModified: &garbled},
		},
		Decisions: []domain.ExportedDecision{{
			CollegeHash:     domain.CollegeHash("Dartmouth College", "Hanover, NH"),
			CollegeName:     "Dartmouth College",
			CollegeLocation: "Hanover, NH",
			AdmissionStatus: domain.AdmissionAdmit,
			LastModified:    &decisionTime,
		}},
	}
	if summary, err := svc.ImportUsers(ctx, map[string]domain.ExportedUser{"1": record}); err != nil || summary.Created != 1 {
		t.Fatalf("import: %+v %v", summary, err)
	}

	ivan := findUser(t, store, "ivan")
	if ivan.Biography != "Going north." {
		t.Fatalf("biography should be stripped, got %q", ivan.Biography)
	}
	scores, err := store.Repositories().TestScores.ListByUser(ctx, ivan.ID)
	if err != nil || len(scores) != 2 {
		t.Fatalf("scores: %+v %v", scores, err)
	}
	want, _ := time.Parse(time.RFC3339, scoreTime)
	for _, sc := range scores {
		switch sc.ExamScore {
		case 4:
			if !sc.LastModified.Equal(want) {
				t.Fatalf("score timestamp lost: %v", sc.LastModified)
			}
		case 5:
			if !sc.LastModified.Equal(clock) {
				t.Fatalf("unreadable timestamp should fall back to now, got %v", sc.LastModified)
			}
		}
	}
	decisions, err := store.Repositories().Decisions.ListByUser(ctx, ivan.ID)
	if err != nil || len(decisions) != 1 {
		t.Fatalf("decisions: %+v %v", decisions, err)
	}
	want, _ = time.Parse(time.RFC3339, decisionTime)
	if !decisions[0].LastModified.Equal(want) {
		t.Fatalf("decision timestamp lost: %v", decisions[0].LastModified)
	}

	record.Biography = "   "
	record.TestScores = nil
	if summary, err := svc.ImportUsers(ctx, map[string]domain.ExportedUser{"1": record}); err != nil || summary.Updated != 1 {
		t.Fatalf("re-import: %+v %v", summary, err)
	}
	if got := findUser(t, store, "ivan").Biography; got != "Going north." {
		t.Fatalf("blank biography should keep the existing one, got %q", got)
	}
}
