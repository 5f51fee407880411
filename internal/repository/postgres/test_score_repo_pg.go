package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/tjdests/tjdests/internal/domain"
)

type TestScoreRepository struct {
	db sqlx.ExtContext
}

func NewTestScoreRepo(db sqlx.ExtContext) *TestScoreRepository {
	return &TestScoreRepository{db: db}
}

func (r *TestScoreRepository) Create(ctx context.Context, score *domain.TestScore) (*domain.TestScore, error) {
	const query = `
        INSERT INTO test_score (user_id, exam_type, exam_score, last_modified)
        VALUES ($1, $2, $3, COALESCE($4::timestamptz, NOW()))
        RETURNING id, user_id, exam_type, exam_score, last_modified
    `
	row := r.db.QueryRowxContext(ctx, query, score.UserID, score.ExamType, score.ExamScore, timestampArg(score.LastModified))
	var created domain.TestScore
	if err := row.StructScan(&created); err != nil {
		return nil, mapError(err)
	}
	return &created, nil
}

func (r *TestScoreRepository) Update(ctx context.Context, score *domain.TestScore) (*domain.TestScore, error) {
	const query = `
        UPDATE test_score
        SET exam_type = $2,
            exam_score = $3,
            last_modified = NOW()
        WHERE id = $1
        RETURNING id, user_id, exam_type, exam_score, last_modified
    `
	row := r.db.QueryRowxContext(ctx, query, score.ID, score.ExamType, score.ExamScore)
	var updated domain.TestScore
	if err := row.StructScan(&updated); err != nil {
		return nil, mapError(err)
	}
	return &updated, nil
}

func (r *TestScoreRepository) Delete(ctx context.Context, id int64) error {
	const query = `DELETE FROM test_score WHERE id = $1`
	return requireAffected(r.db.ExecContext(ctx, query, id))
}

func (r *TestScoreRepository) FindByID(ctx context.Context, id int64) (*domain.TestScore, error) {
	const query = `
        SELECT id, user_id, exam_type, exam_score, last_modified
        FROM test_score
        WHERE id = $1
    `
	var score domain.TestScore
	if err := sqlx.GetContext(ctx, r.db, &score, query, id); err != nil {
		return nil, mapError(err)
	}
	return &score, nil
}

func (r *TestScoreRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.TestScore, error) {
	const query = `
        SELECT id, user_id, exam_type, exam_score, last_modified
        FROM test_score
        WHERE user_id = $1
        ORDER BY exam_type, exam_score DESC
    `
	var scores []domain.TestScore
	if err := sqlx.SelectContext(ctx, r.db, &scores, query, userID); err != nil {
		return nil, mapError(err)
	}
	return scores, nil
}

func (r *TestScoreRepository) ListByUsers(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID][]domain.TestScore, error) {
	result := make(map[uuid.UUID][]domain.TestScore, len(userIDs))
	if len(userIDs) == 0 {
		return result, nil
	}
	const query = `
        SELECT id, user_id, exam_type, exam_score, last_modified
        FROM test_score
        WHERE user_id = ANY($1::uuid[])
        ORDER BY exam_type, exam_score DESC
    `
	var scores []domain.TestScore
	if err := sqlx.SelectContext(ctx, r.db, &scores, query, pq.Array(uuidStrings(userIDs))); err != nil {
		return nil, mapError(err)
	}
	for _, s := range scores {
		result[s.UserID] = append(result[s.UserID], s)
	}
	return result, nil
}
