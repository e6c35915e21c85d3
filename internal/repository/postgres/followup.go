package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/followup-api/internal/model"
	"github.com/jwalitptl/followup-api/internal/repository"
)

type followUpRepository struct {
	BaseRepository
}

func NewFollowUpRepository(base BaseRepository) repository.FollowUpRepository {
	return &followUpRepository{base}
}

const followUpColumns = `f.id, f.clinic_id, f.created_by, f.patient_name, f.phone, f.language,
		f.notes, f.due_date, f.status, f.public_token, f.created_at, f.updated_at`

func (r *followUpRepository) Create(ctx context.Context, f *model.FollowUp) error {
	query := `
		INSERT INTO followups (
			id, clinic_id, created_by, patient_name, phone, language,
			notes, due_date, status, public_token, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := r.db.ExecContext(ctx, query,
		f.ID,
		f.ClinicID,
		f.CreatedBy,
		f.PatientName,
		f.Phone,
		f.Language,
		f.Notes,
		f.DueDate,
		f.Status,
		f.PublicToken,
		f.CreatedAt,
		f.UpdatedAt,
	)
	return mapError(err, "create follow-up")
}

func (r *followUpRepository) Get(ctx context.Context, id uuid.UUID) (*model.FollowUp, error) {
	var f model.FollowUp
	query := `SELECT ` + followUpColumns + ` FROM followups f WHERE f.id = $1`
	if err := r.db.GetContext(ctx, &f, query, id); err != nil {
		return nil, mapError(err, "get follow-up")
	}
	return &f, nil
}

func (r *followUpRepository) GetByToken(ctx context.Context, token string) (*model.FollowUp, error) {
	var f model.FollowUp
	query := `SELECT ` + followUpColumns + ` FROM followups f WHERE f.public_token = $1`
	if err := r.db.GetContext(ctx, &f, query, token); err != nil {
		return nil, mapError(err, "get follow-up by token")
	}
	return &f, nil
}

const returningFollowUp = `RETURNING id, clinic_id, created_by, patient_name, phone, language,
		notes, due_date, status, public_token, created_at, updated_at`

// UpdateDetails writes the editable fields only. status, clinic_id,
// created_by and public_token are not part of the statement.
func (r *followUpRepository) UpdateDetails(ctx context.Context, f *model.FollowUp) (*model.FollowUp, error) {
	query := `
		UPDATE followups
		SET patient_name = $1, phone = $2, language = $3, notes = $4,
			due_date = $5, updated_at = $6
		WHERE id = $7
	` + returningFollowUp
	var stored model.FollowUp
	err := r.db.GetContext(ctx, &stored, query,
		f.PatientName,
		f.Phone,
		f.Language,
		f.Notes,
		f.DueDate,
		f.UpdatedAt,
		f.ID,
	)
	if err != nil {
		return nil, mapError(err, "update follow-up")
	}
	return &stored, nil
}

// UpdateStatus locks the row so concurrent transitions see each other's
// previous status.
func (r *followUpRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.FollowUpStatus, updatedAt time.Time) (*model.FollowUp, model.FollowUpStatus, error) {
	var (
		stored   model.FollowUp
		previous model.FollowUpStatus
	)
	err := r.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := tx.GetContext(ctx, &previous,
			`SELECT status FROM followups WHERE id = $1 FOR UPDATE`, id); err != nil {
			return err
		}
		return tx.GetContext(ctx, &stored,
			`UPDATE followups SET status = $1, updated_at = $2 WHERE id = $3 `+returningFollowUp,
			status, updatedAt, id,
		)
	})
	if err != nil {
		return nil, "", mapError(err, "update follow-up status")
	}
	return &stored, previous, nil
}

func (r *followUpRepository) ListByClinic(ctx context.Context, clinicID uuid.UUID, filter model.FollowUpFilter) ([]*model.FollowUpWithViews, error) {
	query := `
		SELECT ` + followUpColumns + `, COUNT(v.id) AS view_count
		FROM followups f
		LEFT JOIN public_view_logs v ON v.followup_id = f.id
		WHERE f.clinic_id = $1
			AND ($2::text IS NULL OR f.status = $2::text)
			AND ($3::date IS NULL OR f.due_date >= $3::date)
			AND ($4::date IS NULL OR f.due_date <= $4::date)
		GROUP BY f.id
		ORDER BY f.due_date, f.created_at
	`
	items := []*model.FollowUpWithViews{}
	err := r.db.SelectContext(ctx, &items, query, clinicID, filter.Status, filter.DueFrom, filter.DueTo)
	if err != nil {
		return nil, mapError(err, "list follow-ups")
	}
	return items, nil
}

func (r *followUpRepository) Search(ctx context.Context, filter model.AdminFollowUpFilter) ([]*model.FollowUpWithViews, error) {
	query := `
		SELECT ` + followUpColumns + `, COUNT(v.id) AS view_count
		FROM followups f
		LEFT JOIN public_view_logs v ON v.followup_id = f.id
		WHERE ($1::text = '' OR f.patient_name ILIKE $2 OR f.phone ILIKE $2 OR f.public_token = $1::text)
			AND ($3::text IS NULL OR f.status = $3::text)
			AND ($4::uuid IS NULL OR f.clinic_id = $4::uuid)
			AND ($5::text IS NULL OR f.language = $5::text)
		GROUP BY f.id
		ORDER BY f.due_date, f.created_at
	`
	items := []*model.FollowUpWithViews{}
	err := r.db.SelectContext(ctx, &items, query,
		filter.Search,
		likePattern(filter.Search),
		filter.Status,
		filter.ClinicID,
		filter.Language,
	)
	if err != nil {
		return nil, mapError(err, "search follow-ups")
	}
	return items, nil
}
