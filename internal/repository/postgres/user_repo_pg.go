package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/tjdests/tjdests/internal/domain"
)

const userColumns = `id, username, email, first_name, last_name, nickname, use_nickname, preferred_name,
        password_hash, password_salt, use_legacy_hashes, is_active, is_student, is_staff, is_superuser,
        is_banned, accepted_terms, graduation_year, gpa, publish_data, biography, attending_decision_id,
        created_at, updated_at`

type UserRepository struct {
	db sqlx.ExtContext
}

func NewUserRepo(db sqlx.ExtContext) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	const query = `
        INSERT INTO user_account (id, username, email, first_name, last_name, nickname, use_nickname, preferred_name,
            password_hash, password_salt, use_legacy_hashes, is_active, is_student, is_staff, is_superuser,
            is_banned, accepted_terms, graduation_year, gpa, publish_data, biography)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
        RETURNING ` + userColumns

	id := user.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	user.RefreshPreferredName()
	row := r.db.QueryRowxContext(ctx, query,
		id, user.Username, user.Email, user.FirstName, user.LastName, user.Nickname, user.UseNickname, user.PreferredName,
		user.PasswordHash, user.PasswordSalt, user.UseLegacyHashes, user.IsActive, user.IsStudent, user.IsStaff, user.IsSuperuser,
		user.IsBanned, user.AcceptedTerms, user.GraduationYear, user.GPA, user.PublishData, user.Biography,
	)
	var created domain.User
	if err := row.StructScan(&created); err != nil {
		return nil, mapError(err)
	}
	return &created, nil
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	const query = `SELECT ` + userColumns + `
        FROM user_account
        WHERE username = $1
    `
	var user domain.User
	if err := sqlx.GetContext(ctx, r.db, &user, query, username); err != nil {
		return nil, mapError(err)
	}
	return &user, nil
}

func (r *UserRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	const query = `SELECT ` + userColumns + `
        FROM user_account
        WHERE id = $1
    `
	var user domain.User
	if err := sqlx.GetContext(ctx, r.db, &user, query, id); err != nil {
		return nil, mapError(err)
	}
	return &user, nil
}

func (r *UserRepository) UpdateProfile(ctx context.Context, user *domain.User) (*domain.User, error) {
	const query = `
        UPDATE user_account
        SET email = $2,
            first_name = $3,
            last_name = $4,
            nickname = $5,
            use_nickname = $6,
            preferred_name = $7,
            is_student = $8,
            is_staff = $9,
            is_superuser = $10,
            is_banned = $11,
            accepted_terms = $12,
            graduation_year = $13,
            gpa = $14,
            publish_data = $15,
            biography = $16,
            attending_decision_id = $17,
            updated_at = NOW()
        WHERE id = $1
        RETURNING ` + userColumns

	user.RefreshPreferredName()
	row := r.db.QueryRowxContext(ctx, query,
		user.ID, user.Email, user.FirstName, user.LastName, user.Nickname, user.UseNickname, user.PreferredName,
		user.IsStudent, user.IsStaff, user.IsSuperuser, user.IsBanned, user.AcceptedTerms,
		user.GraduationYear, user.GPA, user.PublishData, user.Biography, user.AttendingDecisionID,
	)
	var updated domain.User
	if err := row.StructScan(&updated); err != nil {
		return nil, mapError(err)
	}
	return &updated, nil
}

func (r *UserRepository) ReplacePrimaryCredential(ctx context.Context, id uuid.UUID, passwordHash, passwordSalt []byte) error {
	const query = `
        UPDATE user_account
        SET password_hash = $2,
            password_salt = $3,
            use_legacy_hashes = FALSE,
            updated_at = NOW()
        WHERE id = $1
    `
	return requireAffected(r.db.ExecContext(ctx, query, id, passwordHash, passwordSalt))
}

func (r *UserRepository) AcceptTerms(ctx context.Context, id uuid.UUID, passwordHash, passwordSalt []byte) error {
	const query = `
        UPDATE user_account
        SET accepted_terms = TRUE,
            password_hash = $2,
            password_salt = $3,
            updated_at = NOW()
        WHERE id = $1
    `
	return requireAffected(r.db.ExecContext(ctx, query, id, passwordHash, passwordSalt))
}

func (r *UserRepository) SetAttendingDecision(ctx context.Context, id uuid.UUID, decisionID *int64) error {
	const query = `
        UPDATE user_account
        SET attending_decision_id = $2,
            updated_at = NOW()
        WHERE id = $1
    `
	return requireAffected(r.db.ExecContext(ctx, query, id, decisionID))
}

func (r *UserRepository) ListAll(ctx context.Context) ([]domain.User, error) {
	const query = `SELECT ` + userColumns + `
        FROM user_account
        ORDER BY username
    `
	var users []domain.User
	if err := sqlx.SelectContext(ctx, r.db, &users, query); err != nil {
		return nil, mapError(err)
	}
	return users, nil
}
