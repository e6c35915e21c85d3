package postgres

import (
	"context"

	"github.com/google/uuid"

	"github.com/jwalitptl/followup-api/internal/model"
	"github.com/jwalitptl/followup-api/internal/repository"
)

type clinicRepository struct {
	BaseRepository
}

func NewClinicRepository(base BaseRepository) repository.ClinicRepository {
	return &clinicRepository{base}
}

func (r *clinicRepository) Create(ctx context.Context, clinic *model.Clinic) error {
	query := `
		INSERT INTO clinics (id, name, clinic_code, created_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err := r.db.ExecContext(ctx, query,
		clinic.ID,
		clinic.Name,
		clinic.ClinicCode,
		clinic.CreatedAt,
	)
	return mapError(err, "create clinic")
}

func (r *clinicRepository) Get(ctx context.Context, id uuid.UUID) (*model.Clinic, error) {
	query := `SELECT id, name, clinic_code, created_at FROM clinics WHERE id = $1`
	var clinic model.Clinic
	if err := r.db.GetContext(ctx, &clinic, query, id); err != nil {
		return nil, mapError(err, "get clinic")
	}
	return &clinic, nil
}

func (r *clinicRepository) GetByCode(ctx context.Context, code string) (*model.Clinic, error) {
	query := `SELECT id, name, clinic_code, created_at FROM clinics WHERE clinic_code = $1`
	var clinic model.Clinic
	if err := r.db.GetContext(ctx, &clinic, query, code); err != nil {
		return nil, mapError(err, "get clinic by code")
	}
	return &clinic, nil
}

// Rename only touches name; clinic_code is never part of an update.
func (r *clinicRepository) Rename(ctx context.Context, id uuid.UUID, name string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE clinics SET name = $1 WHERE id = $2`, name, id)
	if err != nil {
		return mapError(err, "rename clinic")
	}
	return expectRows(result, "rename clinic")
}

func (r *clinicRepository) List(ctx context.Context, filter model.ClinicFilter) ([]*model.Clinic, error) {
	query := `
		SELECT id, name, clinic_code, created_at
		FROM clinics
		WHERE ($1::text = '' OR name ILIKE $2 OR clinic_code ILIKE $2)
		ORDER BY created_at DESC
	`
	clinics := []*model.Clinic{}
	if err := r.db.SelectContext(ctx, &clinics, query, filter.Search, likePattern(filter.Search)); err != nil {
		return nil, mapError(err, "list clinics")
	}
	return clinics, nil
}
