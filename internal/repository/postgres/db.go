package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"

	"github.com/tjdests/tjdests/internal/repository/ports"
)

//go:embed migrations/*.sql
var migrations embed.FS

const uniqueViolation = "23505"

func New(dsn string) (*sqlx.DB, error) {
	return sqlx.Connect("pgx", dsn)
}

// gooseUp is swapped in tests.
var gooseUp = func(ctx context.Context, db *sql.DB, dir string) error {
	return goose.UpContext(ctx, db, dir)
}

// Migrate applies the embedded schema migrations.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	if err := gooseUp(ctx, db.DB, "migrations"); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// Store hands out repositories bound to the pool or to a transaction.
type Store struct {
	db *sqlx.DB
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Repositories() ports.Repositories {
	return repositoriesFor(s.db)
}

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, repos ports.Repositories) error) (err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		if cerr := tx.Commit(); cerr != nil {
			err = fmt.Errorf("commit tx: %w", cerr)
		}
	}()

	return fn(ctx, repositoriesFor(tx))
}

func repositoriesFor(db sqlx.ExtContext) ports.Repositories {
	return ports.Repositories{
		Users:             NewUserRepo(db),
		LegacyCredentials: NewLegacyCredentialRepo(db),
		Sessions:          NewSessionRepo(db),
		PasswordResets:    NewPasswordResetRepo(db),
		Colleges:          NewCollegeRepo(db),
		Decisions:         NewDecisionRepo(db),
		TestScores:        NewTestScoreRepo(db),
		Destinations:      NewDestinationRepo(db),
	}
}

func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ports.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", ports.ErrDuplicate, pgErr.ConstraintName)
	}
	return err
}

// requireAffected turns an update or delete that touched nothing into ErrNotFound.
func requireAffected(res sql.Result, err error) error {
	if err != nil {
		return mapError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ports.ErrNotFound
	}
	return nil
}

// timestampArg lets a zero time fall through to the column's NOW() fallback.
func timestampArg(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
