package followup

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/followup-api/internal/model"
	"github.com/jwalitptl/followup-api/internal/repository"
	"github.com/jwalitptl/followup-api/internal/service/event"
	"github.com/jwalitptl/followup-api/internal/service/identifier"
	apperrors "github.com/jwalitptl/followup-api/pkg/errors"
	"github.com/jwalitptl/followup-api/pkg/logger"
	"github.com/jwalitptl/followup-api/pkg/metrics"
	"github.com/jwalitptl/followup-api/pkg/validator"
)

// Store is the tenant-unaware record store. Callers acting for staff go
// through Guard instead.
type Store interface {
	Create(ctx context.Context, clinicID uuid.UUID, creatorID *uuid.UUID, in model.FollowUpInput) (*model.FollowUp, error)
	Get(ctx context.Context, id uuid.UUID) (*model.FollowUp, error)
	Update(ctx context.Context, f *model.FollowUp, in model.FollowUpInput) (*model.FollowUp, error)
	MarkDone(ctx context.Context, f *model.FollowUp) (*model.FollowUp, error)
	ListByClinic(ctx context.Context, clinicID uuid.UUID, filter model.FollowUpFilter) ([]*model.FollowUpWithViews, error)
}

type Service struct {
	repo      repository.FollowUpRepository
	ids       *identifier.Generator
	validator validator.Validator
	events    event.Emitter
	metrics   *metrics.Metrics
	logger    *logger.Logger
	now       func() time.Time
}

func NewService(
	repo repository.FollowUpRepository,
	ids *identifier.Generator,
	v validator.Validator,
	events event.Emitter,
	m *metrics.Metrics,
	log *logger.Logger,
) *Service {
	return &Service{
		repo:      repo,
		ids:       ids,
		validator: v,
		events:    events,
		metrics:   m,
		logger:    log,
		now:       time.Now,
	}
}

func normalize(in model.FollowUpInput) model.FollowUpInput {
	in.PatientName = strings.TrimSpace(in.PatientName)
	in.Phone = strings.TrimSpace(in.Phone)
	if in.Notes != nil && strings.TrimSpace(*in.Notes) == "" {
		in.Notes = nil
	}
	return in
}

// Create persists a pending follow-up with a freshly assigned public token.
func (s *Service) Create(ctx context.Context, clinicID uuid.UUID, creatorID *uuid.UUID, in model.FollowUpInput) (*model.FollowUp, error) {
	in = normalize(in)
	if err := s.validator.Validate(in); err != nil {
		return nil, err
	}

	now := s.now()
	f := &model.FollowUp{
		ClinicID:    clinicID,
		CreatedBy:   creatorID,
		PatientName: in.PatientName,
		Phone:       in.Phone,
		Language:    in.Language,
		Notes:       in.Notes,
		DueDate:     in.DueDate,
		Status:      model.FollowUpStatusPending,
	}
	f.ID = uuid.New()
	f.CreatedAt = now
	f.UpdatedAt = now

	_, err := s.ids.Assign(ctx, identifier.KindPublicToken, s.ids.PublicToken, func(token string) error {
		f.PublicToken = token
		return s.repo.Create(ctx, f)
	})
	if err != nil {
		if apperrors.Is(err, apperrors.ErrIntegrityExhausted) {
			s.logger.Error(err, "public token assignment exhausted", "clinic_id", clinicID.String())
			return nil, err
		}
		return nil, translate(err)
	}

	s.metrics.FollowUpCreated()
	s.logger.Debug("follow-up created",
		"followup_id", f.ID.String(),
		"clinic_id", clinicID.String(),
		"token", logger.Token(f.PublicToken))
	event.Record(ctx, s.events, s.logger, model.EventFollowUpCreated, event.NewFollowUpPayload(f, creatorID))

	return f, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.FollowUp, error) {
	f, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, translate(err)
	}
	return f, nil
}

// Update rewrites the editable fields. Status, clinic, creator, token and id
// are left as stored.
func (s *Service) Update(ctx context.Context, f *model.FollowUp, in model.FollowUpInput) (*model.FollowUp, error) {
	in = normalize(in)
	if err := s.validator.Validate(in); err != nil {
		return nil, err
	}

	updated := *f
	updated.PatientName = in.PatientName
	updated.Phone = in.Phone
	updated.Language = in.Language
	updated.Notes = in.Notes
	updated.DueDate = in.DueDate
	updated.UpdatedAt = s.now()

	stored, err := s.repo.UpdateDetails(ctx, &updated)
	if err != nil {
		return nil, translate(err)
	}

	event.Record(ctx, s.events, s.logger, model.EventFollowUpUpdated, event.NewFollowUpPayload(stored, nil))
	return stored, nil
}

// MarkDone sets status to done. Calling it on a done record succeeds; only
// the pending to done transition emits an event.
func (s *Service) MarkDone(ctx context.Context, f *model.FollowUp) (*model.FollowUp, error) {
	stored, previous, err := s.repo.UpdateStatus(ctx, f.ID, model.FollowUpStatusDone, s.now())
	if err != nil {
		return nil, translate(err)
	}

	if previous != model.FollowUpStatusDone {
		event.Record(ctx, s.events, s.logger, model.EventFollowUpDone, event.NewFollowUpPayload(stored, nil))
	}
	return stored, nil
}

func (s *Service) ListByClinic(ctx context.Context, clinicID uuid.UUID, filter model.FollowUpFilter) ([]*model.FollowUpWithViews, error) {
	items, err := s.repo.ListByClinic(ctx, clinicID, filter)
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("failed to list follow-ups: %w", err))
	}
	return items, nil
}

func translate(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NotFound("follow-up", err)
	}
	if _, ok := apperrors.As(err); ok {
		return err
	}
	return apperrors.Internal(err)
}
