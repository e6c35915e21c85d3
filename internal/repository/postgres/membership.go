package postgres

import (
	"context"

	"github.com/google/uuid"

	"github.com/jwalitptl/followup-api/internal/model"
	"github.com/jwalitptl/followup-api/internal/repository"
)

type membershipRepository struct {
	BaseRepository
}

func NewMembershipRepository(base BaseRepository) repository.MembershipRepository {
	return &membershipRepository{base}
}

func (r *membershipRepository) Assign(ctx context.Context, m *model.Membership) error {
	query := `INSERT INTO clinic_staff (user_id, clinic_id, created_at) VALUES ($1, $2, $3)`
	_, err := r.db.ExecContext(ctx, query, m.UserID, m.ClinicID, m.CreatedAt)
	return mapError(err, "assign staff")
}

func (r *membershipRepository) GetByUser(ctx context.Context, userID uuid.UUID) (*model.Membership, error) {
	query := `SELECT user_id, clinic_id, created_at FROM clinic_staff WHERE user_id = $1`
	var m model.Membership
	if err := r.db.GetContext(ctx, &m, query, userID); err != nil {
		return nil, mapError(err, "get membership")
	}
	return &m, nil
}

func (r *membershipRepository) ListByClinic(ctx context.Context, clinicID uuid.UUID) ([]*model.Membership, error) {
	query := `
		SELECT user_id, clinic_id, created_at
		FROM clinic_staff
		WHERE clinic_id = $1
		ORDER BY created_at
	`
	staff := []*model.Membership{}
	if err := r.db.SelectContext(ctx, &staff, query, clinicID); err != nil {
		return nil, mapError(err, "list staff")
	}
	return staff, nil
}

func (r *membershipRepository) Remove(ctx context.Context, userID uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM clinic_staff WHERE user_id = $1`, userID)
	if err != nil {
		return mapError(err, "remove staff")
	}
	return expectRows(result, "remove staff")
}
