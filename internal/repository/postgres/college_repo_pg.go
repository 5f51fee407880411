package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/tjdests/tjdests/internal/domain"
)

type CollegeRepository struct {
	db sqlx.ExtContext
}

func NewCollegeRepo(db sqlx.ExtContext) *CollegeRepository {
	return &CollegeRepository{db: db}
}

func (r *CollegeRepository) Create(ctx context.Context, name, location string) (*domain.College, error) {
	const query = `
        INSERT INTO college (name, location)
        VALUES ($1, $2)
        RETURNING id, name, location
    `
	row := r.db.QueryRowxContext(ctx, query, name, location)
	var college domain.College
	if err := row.StructScan(&college); err != nil {
		return nil, mapError(err)
	}
	return &college, nil
}

func (r *CollegeRepository) FindByID(ctx context.Context, id int64) (*domain.College, error) {
	const query = `SELECT id, name, location FROM college WHERE id = $1`
	var college domain.College
	if err := sqlx.GetContext(ctx, r.db, &college, query, id); err != nil {
		return nil, mapError(err)
	}
	return &college, nil
}

func (r *CollegeRepository) FindByNameLocation(ctx context.Context, name, location string) (*domain.College, error) {
	const query = `SELECT id, name, location FROM college WHERE name = $1 AND location = $2`
	var college domain.College
	if err := sqlx.GetContext(ctx, r.db, &college, query, name, location); err != nil {
		return nil, mapError(err)
	}
	return &college, nil
}

func (r *CollegeRepository) ListAll(ctx context.Context) ([]domain.College, error) {
	const query = `SELECT id, name, location FROM college ORDER BY name, location`
	var colleges []domain.College
	if err := sqlx.SelectContext(ctx, r.db, &colleges, query); err != nil {
		return nil, mapError(err)
	}
	return colleges, nil
}
