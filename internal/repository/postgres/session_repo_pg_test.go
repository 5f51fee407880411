package postgres

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
)

func TestSessionRepoDeactivateFlaggedByUser(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSessionRepo(db)
	userID := uuid.New()

	mock.ExpectExec(`(?s)UPDATE user_session SET is_active = false.*WHERE user_id = \$1 AND needs_password_reset = true AND is_active = true`).
		WithArgs(userID).
		WillReturnResult(sqlmock.NewResult(0, 2))

	n, err := repo.DeactivateFlaggedByUser(context.Background(), userID)
	if err != nil {
		t.Fatalf("DeactivateFlaggedByUser error: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 sessions ended, got %d", n)
	}
}

func TestSessionRepoDeactivateSession(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSessionRepo(db)
	id := uuid.New()

	mock.ExpectExec(`(?s)UPDATE user_session SET is_active = false.*WHERE id = \$1 AND is_active = true`).
		WithArgs(id).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.DeactivateSession(context.Background(), id); err != nil {
		t.Fatalf("DeactivateSession error: %v", err)
	}
}
