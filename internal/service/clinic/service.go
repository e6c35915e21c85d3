package clinic

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/jwalitptl/followup-api/internal/model"
	"github.com/jwalitptl/followup-api/internal/repository"
	"github.com/jwalitptl/followup-api/internal/service/event"
	"github.com/jwalitptl/followup-api/internal/service/identifier"
	apperrors "github.com/jwalitptl/followup-api/pkg/errors"
	"github.com/jwalitptl/followup-api/pkg/logger"
)

// ClinicServicer is the tenant directory.
type ClinicServicer interface {
	CreateClinic(ctx context.Context, name string) (*model.Clinic, error)
	GetClinic(ctx context.Context, id uuid.UUID) (*model.Clinic, error)
	RenameClinic(ctx context.Context, id uuid.UUID, name string) (*model.Clinic, error)
	ListClinics(ctx context.Context, filter model.ClinicFilter) ([]*model.Clinic, error)
	AssignStaff(ctx context.Context, clinicID, userID uuid.UUID) (*model.Membership, error)
	ListStaff(ctx context.Context, clinicID uuid.UUID) ([]*model.Membership, error)
	RemoveStaff(ctx context.Context, userID uuid.UUID) error
	ClinicFor(ctx context.Context, userID uuid.UUID) (*model.Clinic, error)
}

type Service struct {
	repo        repository.ClinicRepository
	memberships repository.MembershipRepository
	users       repository.UserRepository
	ids         *identifier.Generator
	events      event.Emitter
	logger      *logger.Logger
	now         func() time.Time
}

func NewService(
	repo repository.ClinicRepository,
	memberships repository.MembershipRepository,
	users repository.UserRepository,
	ids *identifier.Generator,
	events event.Emitter,
	log *logger.Logger,
) *Service {
	return &Service{
		repo:        repo,
		memberships: memberships,
		users:       users,
		ids:         ids,
		events:      events,
		logger:      log,
		now:         time.Now,
	}
}

// clinicName trims name and checks it against the column width, which
// counts characters rather than bytes.
func clinicName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", apperrors.Validation("name", "Clinic name is required.")
	}
	if utf8.RuneCountInString(name) > 255 {
		return "", apperrors.Validation("name", "Clinic name must not exceed 255 characters.")
	}
	return name, nil
}

// CreateClinic assigns a fresh clinic code on first save.
func (s *Service) CreateClinic(ctx context.Context, name string) (*model.Clinic, error) {
	name, err := clinicName(name)
	if err != nil {
		return nil, err
	}

	clinic := &model.Clinic{Name: name}
	clinic.ID = uuid.New()
	clinic.CreatedAt = s.now()

	_, err = s.ids.Assign(ctx, identifier.KindClinicCode, s.ids.ClinicCode, func(code string) error {
		clinic.ClinicCode = code
		return s.repo.Create(ctx, clinic)
	})
	if err != nil {
		return nil, wrap("failed to create clinic", err)
	}

	s.logger.Info("clinic created", "clinic_id", clinic.ID.String(), "clinic_code", clinic.ClinicCode)
	event.Record(ctx, s.events, s.logger, model.EventClinicCreated, map[string]interface{}{
		"clinic_id":   clinic.ID,
		"clinic_code": clinic.ClinicCode,
	})

	return clinic, nil
}

func (s *Service) GetClinic(ctx context.Context, id uuid.UUID) (*model.Clinic, error) {
	clinic, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, translate("clinic", err)
	}
	return clinic, nil
}

// RenameClinic never touches the clinic code.
func (s *Service) RenameClinic(ctx context.Context, id uuid.UUID, name string) (*model.Clinic, error) {
	name, err := clinicName(name)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Rename(ctx, id, name); err != nil {
		return nil, translate("clinic", err)
	}
	return s.GetClinic(ctx, id)
}

func (s *Service) ListClinics(ctx context.Context, filter model.ClinicFilter) ([]*model.Clinic, error) {
	clinics, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("failed to list clinics: %w", err))
	}
	return clinics, nil
}

// AssignStaff links a user to a clinic. A user belongs to at most one clinic.
func (s *Service) AssignStaff(ctx context.Context, clinicID, userID uuid.UUID) (*model.Membership, error) {
	if _, err := s.repo.Get(ctx, clinicID); err != nil {
		return nil, translate("clinic", err)
	}
	if _, err := s.users.Get(ctx, userID); err != nil {
		return nil, translate("user", err)
	}

	m := &model.Membership{UserID: userID, ClinicID: clinicID, CreatedAt: s.now()}
	if err := s.memberships.Assign(ctx, m); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.Conflict("user is already assigned to a clinic", err)
		}
		return nil, translate("membership", err)
	}

	s.logger.Info("staff assigned", "clinic_id", clinicID.String(), "user_id", userID.String())
	return m, nil
}

func (s *Service) ListStaff(ctx context.Context, clinicID uuid.UUID) ([]*model.Membership, error) {
	staff, err := s.memberships.ListByClinic(ctx, clinicID)
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("failed to list staff: %w", err))
	}
	return staff, nil
}

func (s *Service) RemoveStaff(ctx context.Context, userID uuid.UUID) error {
	if err := s.memberships.Remove(ctx, userID); err != nil {
		return translate("membership", err)
	}
	return nil
}

// ClinicFor resolves the single clinic a user belongs to. A user without a
// membership gets an ErrNoClinic error.
func (s *Service) ClinicFor(ctx context.Context, userID uuid.UUID) (*model.Clinic, error) {
	m, err := s.memberships.GetByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NoClinic()
		}
		return nil, apperrors.Internal(fmt.Errorf("failed to resolve clinic: %w", err))
	}
	return s.GetClinic(ctx, m.ClinicID)
}

func translate(resource string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NotFound(resource, err)
	}
	if _, ok := apperrors.As(err); ok {
		return err
	}
	return apperrors.Internal(err)
}

func wrap(msg string, err error) error {
	if _, ok := apperrors.As(err); ok {
		return err
	}
	return apperrors.Internal(fmt.Errorf("%s: %w", msg, err))
}
