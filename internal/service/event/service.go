package event

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/followup-api/internal/model"
	"github.com/jwalitptl/followup-api/internal/repository"
	"github.com/jwalitptl/followup-api/pkg/logger"
)

// Emitter records domain events for asynchronous delivery.
type Emitter interface {
	Emit(ctx context.Context, eventType string, payload interface{}) error
}

type EventService struct {
	outboxRepo repository.OutboxRepository
	logger     *logger.Logger
	now        func() time.Time
}

func NewEventService(outboxRepo repository.OutboxRepository, log *logger.Logger) *EventService {
	return &EventService{
		outboxRepo: outboxRepo,
		logger:     log,
		now:        time.Now,
	}
}

// Emit writes the event to the outbox; the worker publishes it later.
func (s *EventService) Emit(ctx context.Context, eventType string, payload interface{}) error {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	now := s.now()
	event := &model.OutboxEvent{
		ID:        uuid.New(),
		EventType: eventType,
		Payload:   payloadJSON,
		Status:    string(model.OutboxStatusPending),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.outboxRepo.Create(ctx, event); err != nil {
		return fmt.Errorf("failed to create outbox event: %w", err)
	}
	return nil
}

// Record is Emit for callers that must not fail because of event delivery.
func Record(ctx context.Context, emitter Emitter, log *logger.Logger, eventType string, payload interface{}) {
	if emitter == nil {
		return
	}
	if err := emitter.Emit(ctx, eventType, payload); err != nil && log != nil {
		log.Warn("failed to record event", "event_type", eventType, "error", err.Error())
	}
}

// FollowUpPayload is the body of every follow-up event. It never carries
// the public token.
type FollowUpPayload struct {
	FollowUpID uuid.UUID            `json:"followup_id"`
	ClinicID   uuid.UUID            `json:"clinic_id"`
	Status     model.FollowUpStatus `json:"status"`
	DueDate    model.Date           `json:"due_date"`
	ActorID    *uuid.UUID           `json:"actor_id,omitempty"`
}

func NewFollowUpPayload(f *model.FollowUp, actorID *uuid.UUID) FollowUpPayload {
	return FollowUpPayload{
		FollowUpID: f.ID,
		ClinicID:   f.ClinicID,
		Status:     f.Status,
		DueDate:    f.DueDate,
		ActorID:    actorID,
	}
}
