package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/followup-api/internal/model"
	"github.com/jwalitptl/followup-api/internal/repository"
)

type outboxRepository struct {
	BaseRepository
}

func NewOutboxRepository(base BaseRepository) repository.OutboxRepository {
	return &outboxRepository{base}
}

func (r *outboxRepository) Create(ctx context.Context, event *model.OutboxEvent) error {
	query := `
		INSERT INTO outbox_events (id, event_type, payload, status, created_at, updated_at)
		VALUES ($1, $2, $3::jsonb, $4, $5, $6)
	`
	_, err := r.db.ExecContext(ctx, query,
		event.ID,
		event.EventType,
		string(event.Payload),
		event.Status,
		event.CreatedAt,
		event.UpdatedAt,
	)
	return mapError(err, "create outbox event")
}

func (r *outboxRepository) GetPendingEvents(ctx context.Context, limit int) ([]*model.OutboxEvent, error) {
	query := `
		SELECT id, event_type, payload, status, error_message, retry_count,
			created_at, processed_at, updated_at
		FROM outbox_events
		WHERE status = $1
		ORDER BY created_at
		LIMIT $2
	`
	events := []*model.OutboxEvent{}
	if err := r.db.SelectContext(ctx, &events, query, model.OutboxStatusPending, limit); err != nil {
		return nil, mapError(err, "get pending events")
	}
	return events, nil
}

func (r *outboxRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.OutboxStatus, errMsg *string) error {
	query := `
		UPDATE outbox_events
		SET status = $1,
			error_message = $2,
			retry_count = CASE WHEN $1::text = 'failed' THEN retry_count + 1 ELSE retry_count END,
			processed_at = CASE WHEN $1::text = 'processed' THEN NOW() ELSE processed_at END,
			updated_at = NOW()
		WHERE id = $3
	`
	result, err := r.db.ExecContext(ctx, query, status, errMsg, id)
	if err != nil {
		return mapError(err, "update outbox event")
	}
	return expectRows(result, "update outbox event")
}

func (r *outboxRepository) DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM outbox_events WHERE status = $1 AND processed_at < $2`,
		model.OutboxStatusProcessed, before,
	)
	if err != nil {
		return 0, mapError(err, "delete processed events")
	}
	return result.RowsAffected()
}
