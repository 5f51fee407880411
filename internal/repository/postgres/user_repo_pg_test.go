package postgres

import (
	"context"
	"database/sql/driver"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"

	"github.com/tjdests/tjdests/internal/domain"
	"github.com/tjdests/tjdests/internal/repository/ports"
)

func TestUserRepoFindByUsername(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepo(db)
	id := uuid.New()

	rows := sqlmock.NewRows([]string{"id", "username", "first_name", "use_legacy_hashes", "password_hash", "password_salt"}).
		AddRow(id.String(), "alice", "Alice", true, []byte("h"), []byte("s"))
	mock.ExpectQuery(`(?s)SELECT .+ FROM user_account\s+WHERE username = \$1`).
		WithArgs("alice").
		WillReturnRows(rows)

	user, err := repo.FindByUsername(context.Background(), "alice")
	if err != nil {
		t.Fatalf("FindByUsername error: %v", err)
	}
	if user.ID != id || user.Username != "alice" || !user.UseLegacyHashes {
		t.Fatalf("unexpected user: %+v", user)
	}
}

func TestUserRepoFindByUsernameMissing(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepo(db)

	mock.ExpectQuery(`(?s)SELECT .+ FROM user_account\s+WHERE username = \$1`).
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.FindByUsername(context.Background(), "ghost")
	if !errors.Is(err, ports.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUserRepoCreateDerivesPreferredName(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepo(db)

	args := make([]driver.Value, 21)
	for i := range args {
		args[i] = sqlmock.AnyArg()
	}
	args[1] = "bob"
	args[7] = "Bobby"
	mock.ExpectQuery(`(?s)INSERT INTO user_account .+ RETURNING`).
		WithArgs(args...).
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "preferred_name"}).AddRow(uuid.New().String(), "bob", "Bobby"))

	user := &domain.User{Username: "bob", FirstName: "Robert", Nickname: "Bobby", UseNickname: true}
	created, err := repo.Create(context.Background(), user)
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if created.PreferredName != "Bobby" {
		t.Fatalf("expected preferred name Bobby, got %q", created.PreferredName)
	}
}

func TestUserRepoReplacePrimaryCredentialClearsLegacyFlag(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepo(db)
	id := uuid.New()

	mock.ExpectExec(`(?s)UPDATE user_account\s+SET password_hash = \$2,\s+password_salt = \$3,\s+use_legacy_hashes = FALSE`).
		WithArgs(id, []byte("hash"), []byte("salt")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.ReplacePrimaryCredential(context.Background(), id, []byte("hash"), []byte("salt")); err != nil {
		t.Fatalf("ReplacePrimaryCredential error: %v", err)
	}
}

func TestUserRepoReplacePrimaryCredentialUnknownUser(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepo(db)

	mock.ExpectExec(`UPDATE user_account`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.ReplacePrimaryCredential(context.Background(), uuid.New(), []byte("hash"), []byte("salt"))
	if !errors.Is(err, ports.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
