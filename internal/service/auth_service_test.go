package service

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/pbkdf2"

	"github.com/tjdests/tjdests/internal/domain"
	"github.com/tjdests/tjdests/internal/repository/memory"
	"github.com/tjdests/tjdests/internal/util"
)

type fakeAttempts struct {
	failures map[string]int
	err      error
	resets   int
}

func newFakeAttempts() *fakeAttempts {
	return &fakeAttempts{failures: map[string]int{}}
}

func (f *fakeAttempts) Failures(ctx context.Context, username string) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	return f.failures[username], nil
}

func (f *fakeAttempts) RegisterFailure(ctx context.Context, username string, window time.Duration) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.failures[username]++
	return f.failures[username], nil
}

func (f *fakeAttempts) Reset(ctx context.Context, username string) error {
	if f.err != nil {
		return f.err
	}
	delete(f.failures, username)
	f.resets++
	return nil
}

type fakeNotifier struct {
	sent []string
	err  error
}

func (f *fakeNotifier) SendPasswordChanged(ctx context.Context, email, username string) error {
	f.sent = append(f.sent, email+"|"+username)
	return f.err
}

func pbkdf2Hash(password, salt string) string {
	key := pbkdf2.Key([]byte(password), []byte(salt), 1000, sha256.Size, sha256.New)
	return fmt.Sprintf("pbkdf2_sha256$1000$%s$%s", salt, base64.StdEncoding.EncodeToString(key))
}

type authFixture struct {
	store    *memory.Store
	attempts *fakeAttempts
	notifier *fakeNotifier
	svc      *AuthService
	alice    domain.User
	legacy   domain.LegacyCredential
}

// newAuthFixture seeds alice with an unusable random primary password and a
// legacy pbkdf2 hash of OldPass!1.
func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	store := memory.NewStore()
	hash, salt, err := util.DerivePassword("unguessable-" + uuid.NewString())
	if err != nil {
		t.Fatalf("derive password: %v", err)
	}
	alice := store.PutUser(domain.User{
		Username:        "alice",
		Email:           "alice@example.com",
		FirstName:       "Alice",
		LastName:        "Anderson",
		PasswordHash:    hash,
		PasswordSalt:    salt,
		UseLegacyHashes: true,
		IsActive:        true,
		IsStudent:       true,
		AcceptedTerms:   true,
	})
	legacy := store.PutLegacy(alice.ID, pbkdf2Hash("OldPass!1", "s4lt"), time.Now().Add(-time.Hour))

	attempts := newFakeAttempts()
	notifier := &fakeNotifier{}
	svc := NewAuthService(store, attempts, notifier, util.NewJWTManager("test-secret", time.Hour),
		AuthConfig{MaxFailures: 3, LockoutWindow: time.Minute, Maintainer: "ops@example.com"}, nil)
	return &authFixture{store: store, attempts: attempts, notifier: notifier, svc: svc, alice: alice, legacy: legacy}
}

func TestLegacyLoginThenForcedReset(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	res, err := f.svc.Login(ctx, "alice", "OldPass!1")
	if err != nil {
		t.Fatalf("legacy login failed: %v", err)
	}
	if !res.NeedsPasswordReset || !res.Session.NeedsPasswordReset {
		t.Fatalf("expected session flagged for reset")
	}

	user, session, err := f.svc.Authenticate(ctx, res.Token)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}

	reset, err := f.svc.CompleteForcedReset(ctx, user, session, "NewPass!2", "NewPass!2")
	if err != nil {
		t.Fatalf("forced reset: %v", err)
	}
	if reset.NeedsPasswordReset || reset.Session.NeedsPasswordReset {
		t.Fatalf("replacement session must not be flagged")
	}
	if reset.Token == res.Token {
		t.Fatalf("expected a fresh session token")
	}

	stored := f.store.User(f.alice.ID)
	if stored.UseLegacyHashes {
		t.Fatalf("legacy fallback should be disabled after reset")
	}
	if !util.VerifyPassword("NewPass!2", stored.PasswordSalt, stored.PasswordHash) {
		t.Fatalf("primary hash does not verify the new password")
	}
	if f.store.Session(res.Session.ID).IsActive {
		t.Fatalf("flagged session should be deactivated")
	}
	if records := f.store.ResetRecords(); len(records) != 1 || records[0].SessionID != reset.Session.ID {
		t.Fatalf("expected one reset record for the new session, got %+v", records)
	}
	if len(f.notifier.sent) != 1 || f.notifier.sent[0] != "alice@example.com|alice" {
		t.Fatalf("expected password changed notification, got %v", f.notifier.sent)
	}

	if _, err := f.svc.Login(ctx, "alice", "OldPass!1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("old password should no longer work, got %v", err)
	}
	again, err := f.svc.Login(ctx, "alice", "NewPass!2")
	if err != nil {
		t.Fatalf("login with new password: %v", err)
	}
	if again.NeedsPasswordReset {
		t.Fatalf("primary login must not be flagged")
	}
}

func TestVerifyCredentials(t *testing.T) {
	ctx := context.Background()

	t.Run("primary match", func(t *testing.T) {
		f := newAuthFixture(t)
		hash, salt, _ := util.DerivePassword("Primary!1")
		u := f.store.User(f.alice.ID)
		u.PasswordHash, u.PasswordSalt = hash, salt
		f.store.PutUser(u)

		match, user, err := f.svc.VerifyCredentials(ctx, "alice", "Primary!1")
		if err != nil || match != MatchPrimary || user == nil {
			t.Fatalf("expected primary match, got %v %v", match, err)
		}
	})

	t.Run("legacy match stamps last use", func(t *testing.T) {
		f := newAuthFixture(t)
		older := f.store.PutLegacy(f.alice.ID, pbkdf2Hash("OldPass!1", "other"), time.Now().Add(-48*time.Hour))

		match, _, err := f.svc.VerifyCredentials(ctx, "alice", "OldPass!1")
		if err != nil || match != MatchLegacy {
			t.Fatalf("expected legacy match, got %v %v", match, err)
		}
		var stamped int
		for id := int64(1); id <= older.ID; id++ {
			if f.store.LegacyCredential(id).LastUsedAt != nil {
				stamped++
			}
		}
		if stamped != 1 {
			t.Fatalf("expected exactly one stamped credential, got %d", stamped)
		}
		if f.store.LegacyCredential(older.ID).LastUsedAt != nil {
			t.Fatalf("newest matching credential should win")
		}
	})

	t.Run("no fallback once disabled", func(t *testing.T) {
		f := newAuthFixture(t)
		u := f.store.User(f.alice.ID)
		u.UseLegacyHashes = false
		f.store.PutUser(u)

		match, _, err := f.svc.VerifyCredentials(ctx, "alice", "OldPass!1")
		if err != nil || match != MatchNone {
			t.Fatalf("expected no match, got %v %v", match, err)
		}
	})

	t.Run("unknown user", func(t *testing.T) {
		f := newAuthFixture(t)
		match, user, err := f.svc.VerifyCredentials(ctx, "mallory", "OldPass!1")
		if err != nil || match != MatchNone || user != nil {
			t.Fatalf("expected no match for unknown user, got %v %v %v", match, user, err)
		}
	})

	t.Run("touch failure still matches", func(t *testing.T) {
		f := newAuthFixture(t)
		f.store.FailOn("legacy.touch", errors.New("db down"))
		match, _, err := f.svc.VerifyCredentials(ctx, "alice", "OldPass!1")
		if err != nil || match != MatchLegacy {
			t.Fatalf("expected legacy match despite touch failure, got %v %v", match, err)
		}
	})
}

func TestRepeatedLegacyLogin(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	first := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	second := first.Add(2 * time.Hour)
	cred := f.legacy

	f.svc.now = func() time.Time { return first }
	match, _, err := f.svc.VerifyCredentials(ctx, "alice", "OldPass!1")
	if err != nil || match != MatchLegacy {
		t.Fatalf("first attempt: expected legacy match, got %v %v", match, err)
	}
	if got := f.store.LegacyCredential(cred.ID).LastUsedAt; got == nil || !got.Equal(first) {
		t.Fatalf("first attempt: expected last use %v, got %v", first, got)
	}

	f.svc.now = func() time.Time { return second }
	match, _, err = f.svc.VerifyCredentials(ctx, "alice", "OldPass!1")
	if err != nil || match != MatchLegacy {
		t.Fatalf("second attempt: expected legacy match, got %v %v", match, err)
	}
	if got := f.store.LegacyCredential(cred.ID).LastUsedAt; got == nil || !got.Equal(second) {
		t.Fatalf("second attempt: expected last use %v, got %v", second, got)
	}
	if !f.store.User(f.alice.ID).UseLegacyHashes {
		t.Fatalf("verification must not touch the fallback flag")
	}
}

func TestLoginInactiveAccount(t *testing.T) {
	f := newAuthFixture(t)
	u := f.store.User(f.alice.ID)
	u.IsActive = false
	f.store.PutUser(u)

	if _, err := f.svc.Login(context.Background(), "alice", "OldPass!1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
	if f.attempts.failures["alice"] != 1 {
		t.Fatalf("inactive account login should count as a failure")
	}
}

func TestLoginLockout(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := f.svc.Login(ctx, "alice", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d: expected invalid credentials, got %v", i, err)
		}
	}
	if _, err := f.svc.Login(ctx, "alice", "OldPass!1"); !errors.Is(err, ErrAccountLocked) {
		t.Fatalf("expected lockout, got %v", err)
	}
	if msg := f.svc.LockoutMessage(); !strings.Contains(msg, "ops@example.com") {
		t.Fatalf("lockout message should name the maintainer: %q", msg)
	}

	f.attempts.failures = map[string]int{"alice": 2}
	if _, err := f.svc.Login(ctx, "alice", "OldPass!1"); err != nil {
		t.Fatalf("expected login below threshold, got %v", err)
	}
	if f.attempts.failures["alice"] != 0 || f.attempts.resets != 1 {
		t.Fatalf("successful login should reset failures")
	}
}

func TestLoginLockoutStoreUnavailable(t *testing.T) {
	f := newAuthFixture(t)
	f.attempts.err = errors.New("redis down")

	if _, err := f.svc.Login(context.Background(), "alice", "OldPass!1"); err != nil {
		t.Fatalf("lockout store outage should not block login: %v", err)
	}
}

func TestCompleteForcedResetRollsBack(t *testing.T) {
	for _, op := range []string{"users.replace", "sessions.deactivate_flagged", "sessions.create", "resets.record"} {
		t.Run(op, func(t *testing.T) {
			f := newAuthFixture(t)
			ctx := context.Background()
			res, err := f.svc.Login(ctx, "alice", "OldPass!1")
			if err != nil {
				t.Fatalf("login: %v", err)
			}
			before := f.store.User(f.alice.ID)

			f.store.FailOn(op, errors.New("boom"))
			_, err = f.svc.CompleteForcedReset(ctx, res.User, res.Session, "NewPass!2", "NewPass!2")
			if !errors.Is(err, ErrPasswordUpdateFailed) {
				t.Fatalf("expected ErrPasswordUpdateFailed, got %v", err)
			}
			if err.Error() != "unable to update password, please try again" {
				t.Fatalf("unexpected message %q", err.Error())
			}

			after := f.store.User(f.alice.ID)
			if !after.UseLegacyHashes || string(after.PasswordHash) != string(before.PasswordHash) {
				t.Fatalf("credentials changed despite rollback")
			}
			if !f.store.Session(res.Session.ID).IsActive || !f.store.Session(res.Session.ID).NeedsPasswordReset {
				t.Fatalf("flagged session should survive a failed reset")
			}
			if len(f.store.ResetRecords()) != 0 {
				t.Fatalf("no reset record expected")
			}
			if len(f.notifier.sent) != 0 {
				t.Fatalf("no notification expected")
			}
		})
	}
}

func TestCompleteForcedResetValidation(t *testing.T) {
	cases := []struct {
		name   string
		p1, p2 string
		field  string
	}{
		{"mismatch", "NewPass!2", "NewPass!3", "new_password2"},
		{"too short", "Ab!1", "Ab!1", "new_password1"},
		{"numeric", "1234567890123", "1234567890123", "new_password1"},
		{"username", "alice-rocks", "alice-rocks", "new_password1"},
		{"missing", "", "", "new_password1"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newAuthFixture(t)
			ctx := context.Background()
			res, err := f.svc.Login(ctx, "alice", "OldPass!1")
			if err != nil {
				t.Fatalf("login: %v", err)
			}
			txBefore := f.store.TxCount()

			_, err = f.svc.CompleteForcedReset(ctx, res.User, res.Session, tc.p1, tc.p2)
			var verr *ValidationError
			if !errors.As(err, &verr) || !errors.Is(err, ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if len(verr.Fields[tc.field]) == 0 {
				t.Fatalf("expected problem on %s, got %v", tc.field, verr.Fields)
			}
			if f.store.TxCount() != txBefore {
				t.Fatalf("validation failure must not open a transaction")
			}
			if !f.store.User(f.alice.ID).UseLegacyHashes {
				t.Fatalf("account modified by invalid reset")
			}
		})
	}
}

func TestCompleteForcedResetNotRequired(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	res, err := f.svc.Login(ctx, "alice", "OldPass!1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	reset, err := f.svc.CompleteForcedReset(ctx, res.User, res.Session, "NewPass!2", "NewPass!2")
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if _, err := f.svc.CompleteForcedReset(ctx, reset.User, reset.Session, "Another!3", "Another!3"); !errors.Is(err, ErrResetNotRequired) {
		t.Fatalf("expected ErrResetNotRequired, got %v", err)
	}
}

func TestCompleteForcedResetEndsOtherFlaggedSessions(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	first, err := f.svc.Login(ctx, "alice", "OldPass!1")
	if err != nil {
		t.Fatalf("first login: %v", err)
	}
	second, err := f.svc.Login(ctx, "alice", "OldPass!1")
	if err != nil {
		t.Fatalf("second login: %v", err)
	}

	user, session, err := f.svc.Authenticate(ctx, first.Token)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	reset, err := f.svc.CompleteForcedReset(ctx, user, session, "NewPass!2", "NewPass!2")
	if err != nil {
		t.Fatalf("reset: %v", err)
	}

	if f.store.Session(second.Session.ID).IsActive {
		t.Fatalf("other flagged session should be ended by the reset")
	}
	if _, _, err := f.svc.Authenticate(ctx, second.Token); !errors.Is(err, ErrSessionInvalid) {
		t.Fatalf("expected other flagged session to be rejected, got %v", err)
	}
	active := f.store.ActiveSessions(f.alice.ID)
	if len(active) != 1 || active[0].ID != reset.Session.ID {
		t.Fatalf("only the replacement session should stay active, got %+v", active)
	}

	// A stale flagged session seen after the fallback is gone cannot reset again.
	stored := f.store.User(f.alice.ID)
	if _, err := f.svc.CompleteForcedReset(ctx, &stored, second.Session, "Another!3", "Another!3"); !errors.Is(err, ErrResetNotRequired) {
		t.Fatalf("expected ErrResetNotRequired, got %v", err)
	}
	stored = f.store.User(f.alice.ID)
	if !util.VerifyPassword("NewPass!2", stored.PasswordSalt, stored.PasswordHash) {
		t.Fatalf("first reset's password was overwritten")
	}
}

func TestCompleteForcedResetNotificationFailure(t *testing.T) {
	f := newAuthFixture(t)
	f.notifier.err = errors.New("smtp down")
	ctx := context.Background()
	res, err := f.svc.Login(ctx, "alice", "OldPass!1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if _, err := f.svc.CompleteForcedReset(ctx, res.User, res.Session, "NewPass!2", "NewPass!2"); err != nil {
		t.Fatalf("mail failure must not fail the reset: %v", err)
	}
}

func TestAuthenticateAndLogout(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	if _, _, err := f.svc.Authenticate(ctx, "not-a-token"); !errors.Is(err, ErrSessionInvalid) {
		t.Fatalf("expected invalid session, got %v", err)
	}

	res, err := f.svc.Login(ctx, "alice", "OldPass!1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	user, session, err := f.svc.Authenticate(ctx, res.Token)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if user.ID != f.alice.ID || session.ID != res.Session.ID || !session.NeedsPasswordReset {
		t.Fatalf("unexpected session %+v", session)
	}

	if err := f.svc.Logout(ctx, session); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, _, err := f.svc.Authenticate(ctx, res.Token); !errors.Is(err, ErrSessionInvalid) {
		t.Fatalf("expected invalid session after logout, got %v", err)
	}
	if sessions := f.store.ActiveSessions(f.alice.ID); len(sessions) != 0 {
		t.Fatalf("expected no active sessions, got %d", len(sessions))
	}
}

func TestAcceptTerms(t *testing.T) {
	ctx := context.Background()

	t.Run("records acceptance and password", func(t *testing.T) {
		f := newAuthFixture(t)
		u := f.store.User(f.alice.ID)
		u.AcceptedTerms = false
		f.store.PutUser(u)

		err := f.svc.AcceptTerms(ctx, &u, nil, AcceptTermsInput{AcceptTOS: true, NewPassword1: "NewPass!2", NewPassword2: "NewPass!2"})
		if err != nil {
			t.Fatalf("accept terms: %v", err)
		}
		stored := f.store.User(f.alice.ID)
		if !stored.AcceptedTerms || !util.VerifyPassword("NewPass!2", stored.PasswordSalt, stored.PasswordHash) {
			t.Fatalf("terms or password not stored")
		}
		if !stored.UseLegacyHashes {
			t.Fatalf("accepting terms must not touch the legacy flag")
		}
	})

	t.Run("requires the checkbox", func(t *testing.T) {
		f := newAuthFixture(t)
		u := f.store.User(f.alice.ID)
		u.AcceptedTerms = false
		if err := f.svc.AcceptTerms(ctx, &u, nil, AcceptTermsInput{NewPassword1: "NewPass!2", NewPassword2: "NewPass!2"}); !errors.Is(err, ErrTermsRequired) {
			t.Fatalf("expected ErrTermsRequired, got %v", err)
		}
	})

	t.Run("banned account is logged out", func(t *testing.T) {
		f := newAuthFixture(t)
		res, err := f.svc.Login(ctx, "alice", "OldPass!1")
		if err != nil {
			t.Fatalf("login: %v", err)
		}
		u := f.store.User(f.alice.ID)
		u.IsBanned = true
		if err := f.svc.AcceptTerms(ctx, &u, res.Session, AcceptTermsInput{AcceptTOS: true}); !errors.Is(err, ErrAccountBanned) {
			t.Fatalf("expected ErrAccountBanned, got %v", err)
		}
		if f.store.Session(res.Session.ID).IsActive {
			t.Fatalf("session should be ended")
		}
	})

	t.Run("non student", func(t *testing.T) {
		f := newAuthFixture(t)
		u := f.store.User(f.alice.ID)
		u.IsStudent = false
		if err := f.svc.AcceptTerms(ctx, &u, nil, AcceptTermsInput{AcceptTOS: true}); !errors.Is(err, ErrNotStudent) {
			t.Fatalf("expected ErrNotStudent, got %v", err)
		}
	})

	t.Run("login locked", func(t *testing.T) {
		f := newAuthFixture(t)
		f.svc.cfg.LoginLocked = true
		u := f.store.User(f.alice.ID)
		if err := f.svc.AcceptTerms(ctx, &u, nil, AcceptTermsInput{AcceptTOS: true}); !errors.Is(err, ErrLoginRestricted) {
			t.Fatalf("expected ErrLoginRestricted, got %v", err)
		}
		u.IsSuperuser = true
		if err := f.svc.AcceptTerms(ctx, &u, nil, AcceptTermsInput{}); err != nil {
			t.Fatalf("superuser with accepted terms should pass, got %v", err)
		}
	})
}
