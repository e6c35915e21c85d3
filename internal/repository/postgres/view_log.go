package postgres

import (
	"context"

	"github.com/google/uuid"

	"github.com/jwalitptl/followup-api/internal/model"
	"github.com/jwalitptl/followup-api/internal/repository"
)

type viewLogRepository struct {
	BaseRepository
}

func NewViewLogRepository(base BaseRepository) repository.ViewLogRepository {
	return &viewLogRepository{base}
}

func (r *viewLogRepository) Create(ctx context.Context, log *model.PublicViewLog) error {
	query := `
		INSERT INTO public_view_logs (id, followup_id, viewed_at, user_agent, ip_address)
		VALUES ($1, $2, $3, $4, $5::inet)
	`
	_, err := r.db.ExecContext(ctx, query,
		log.ID,
		log.FollowUpID,
		log.ViewedAt,
		log.UserAgent,
		log.IPAddress,
	)
	return mapError(err, "create view log")
}

func (r *viewLogRepository) ListByFollowUp(ctx context.Context, followupID uuid.UUID) ([]*model.PublicViewLog, error) {
	query := `
		SELECT id, followup_id, viewed_at, user_agent, host(ip_address) AS ip_address
		FROM public_view_logs
		WHERE followup_id = $1
		ORDER BY viewed_at DESC
	`
	logs := []*model.PublicViewLog{}
	if err := r.db.SelectContext(ctx, &logs, query, followupID); err != nil {
		return nil, mapError(err, "list view logs")
	}
	return logs, nil
}

func (r *viewLogRepository) List(ctx context.Context, filter model.ViewLogFilter) ([]*model.ViewLogEntry, error) {
	query := `
		SELECT v.id, v.followup_id, v.viewed_at, v.user_agent,
			host(v.ip_address) AS ip_address, f.patient_name
		FROM public_view_logs v
		JOIN followups f ON f.id = v.followup_id
		WHERE ($1::text = '' OR f.patient_name ILIKE $2 OR host(v.ip_address) ILIKE $2)
		ORDER BY v.viewed_at DESC
	`
	entries := []*model.ViewLogEntry{}
	if err := r.db.SelectContext(ctx, &entries, query, filter.Search, likePattern(filter.Search)); err != nil {
		return nil, mapError(err, "list view logs")
	}
	return entries, nil
}
