package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/tjdests/tjdests/internal/domain"
)

const decisionSelect = `
        SELECT d.id, d.user_id, d.college_id, d.decision_type, d.admission_status, d.last_modified,
               c.id AS "college.id", c.name AS "college.name", c.location AS "college.location"
        FROM decision d
        JOIN college c ON c.id = d.college_id
    `

type DecisionRepository struct {
	db sqlx.ExtContext
}

func NewDecisionRepo(db sqlx.ExtContext) *DecisionRepository {
	return &DecisionRepository{db: db}
}

func (r *DecisionRepository) Create(ctx context.Context, decision *domain.Decision) (*domain.Decision, error) {
	const query = `
        INSERT INTO decision (user_id, college_id, decision_type, admission_status, last_modified)
        VALUES ($1, $2, $3, $4, COALESCE($5::timestamptz, NOW()))
        RETURNING id
    `
	var id int64
	if err := r.db.QueryRowxContext(ctx, query, decision.UserID, decision.CollegeID, decision.DecisionType, decision.AdmissionStatus, timestampArg(decision.LastModified)).Scan(&id); err != nil {
		return nil, mapError(err)
	}
	return r.FindByID(ctx, id)
}

func (r *DecisionRepository) Update(ctx context.Context, decision *domain.Decision) (*domain.Decision, error) {
	const query = `
        UPDATE decision
        SET college_id = $2,
            decision_type = $3,
            admission_status = $4,
            last_modified = NOW()
        WHERE id = $1
    `
	if err := requireAffected(r.db.ExecContext(ctx, query, decision.ID, decision.CollegeID, decision.DecisionType, decision.AdmissionStatus)); err != nil {
		return nil, err
	}
	return r.FindByID(ctx, decision.ID)
}

func (r *DecisionRepository) Upsert(ctx context.Context, decision *domain.Decision) (*domain.Decision, error) {
	const query = `
        INSERT INTO decision (user_id, college_id, decision_type, admission_status, last_modified)
        VALUES ($1, $2, $3, $4, COALESCE($5::timestamptz, NOW()))
        ON CONFLICT (user_id, college_id) DO UPDATE
        SET decision_type = EXCLUDED.decision_type,
            admission_status = EXCLUDED.admission_status,
            last_modified = EXCLUDED.last_modified
        RETURNING id
    `
	var id int64
	if err := r.db.QueryRowxContext(ctx, query, decision.UserID, decision.CollegeID, decision.DecisionType, decision.AdmissionStatus, timestampArg(decision.LastModified)).Scan(&id); err != nil {
		return nil, mapError(err)
	}
	return r.FindByID(ctx, id)
}

func (r *DecisionRepository) Delete(ctx context.Context, id int64) error {
	const query = `DELETE FROM decision WHERE id = $1`
	return requireAffected(r.db.ExecContext(ctx, query, id))
}

func (r *DecisionRepository) FindByID(ctx context.Context, id int64) (*domain.Decision, error) {
	const query = decisionSelect + `WHERE d.id = $1`
	var decision domain.Decision
	if err := sqlx.GetContext(ctx, r.db, &decision, query, id); err != nil {
		return nil, mapError(err)
	}
	return &decision, nil
}

func (r *DecisionRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Decision, error) {
	const query = decisionSelect + `WHERE d.user_id = $1 ORDER BY c.name`
	var decisions []domain.Decision
	if err := sqlx.SelectContext(ctx, r.db, &decisions, query, userID); err != nil {
		return nil, mapError(err)
	}
	return decisions, nil
}

func (r *DecisionRepository) ListByUsers(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID][]domain.Decision, error) {
	result := make(map[uuid.UUID][]domain.Decision, len(userIDs))
	if len(userIDs) == 0 {
		return result, nil
	}
	const query = decisionSelect + `WHERE d.user_id = ANY($1::uuid[]) ORDER BY c.name`
	var decisions []domain.Decision
	if err := sqlx.SelectContext(ctx, r.db, &decisions, query, pq.Array(uuidStrings(userIDs))); err != nil {
		return nil, mapError(err)
	}
	for _, d := range decisions {
		result[d.UserID] = append(result[d.UserID], d)
	}
	return result, nil
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
