package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/followup-api/internal/model"
)

var (
	// ErrNotFound is returned when no row matches the lookup key.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when an insert violates a unique constraint.
	ErrDuplicate = errors.New("duplicate key")
)

// All repository interfaces in one file
type (
	// ClinicRepository handles clinic operations. Create must fail with
	// ErrDuplicate when clinic_code is already taken.
	ClinicRepository interface {
		Create(ctx context.Context, clinic *model.Clinic) error
		Get(ctx context.Context, id uuid.UUID) (*model.Clinic, error)
		GetByCode(ctx context.Context, code string) (*model.Clinic, error)
		Rename(ctx context.Context, id uuid.UUID, name string) error
		List(ctx context.Context, filter model.ClinicFilter) ([]*model.Clinic, error)
	}

	// MembershipRepository maps a user to at most one clinic.
	MembershipRepository interface {
		Assign(ctx context.Context, membership *model.Membership) error
		GetByUser(ctx context.Context, userID uuid.UUID) (*model.Membership, error)
		ListByClinic(ctx context.Context, clinicID uuid.UUID) ([]*model.Membership, error)
		Remove(ctx context.Context, userID uuid.UUID) error
	}

	UserRepository interface {
		Create(ctx context.Context, user *model.User) error
		Get(ctx context.Context, id uuid.UUID) (*model.User, error)
		GetByUsername(ctx context.Context, username string) (*model.User, error)
		List(ctx context.Context, filter model.UserFilter) ([]*model.User, error)
		// Delete removes the user and their membership; follow-ups they
		// created are kept with created_by cleared.
		Delete(ctx context.Context, id uuid.UUID) error
	}

	// FollowUpRepository persists follow-ups. Create must fail with
	// ErrDuplicate when public_token is already taken.
	FollowUpRepository interface {
		Create(ctx context.Context, followup *model.FollowUp) error
		Get(ctx context.Context, id uuid.UUID) (*model.FollowUp, error)
		GetByToken(ctx context.Context, token string) (*model.FollowUp, error)
		// UpdateDetails writes the editable fields and returns the stored row.
		// Status is never written here.
		UpdateDetails(ctx context.Context, followup *model.FollowUp) (*model.FollowUp, error)
		// UpdateStatus sets the status and returns the stored row together
		// with the status it held before the write.
		UpdateStatus(ctx context.Context, id uuid.UUID, status model.FollowUpStatus, updatedAt time.Time) (*model.FollowUp, model.FollowUpStatus, error)
		ListByClinic(ctx context.Context, clinicID uuid.UUID, filter model.FollowUpFilter) ([]*model.FollowUpWithViews, error)
		Search(ctx context.Context, filter model.AdminFollowUpFilter) ([]*model.FollowUpWithViews, error)
	}

	// ViewLogRepository is append-only.
	ViewLogRepository interface {
		Create(ctx context.Context, log *model.PublicViewLog) error
		ListByFollowUp(ctx context.Context, followupID uuid.UUID) ([]*model.PublicViewLog, error)
		List(ctx context.Context, filter model.ViewLogFilter) ([]*model.ViewLogEntry, error)
	}

	OutboxRepository interface {
		Create(ctx context.Context, event *model.OutboxEvent) error
		GetPendingEvents(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
		UpdateStatus(ctx context.Context, id uuid.UUID, status model.OutboxStatus, errMsg *string) error
		DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
	}

	// Pinger reports store health.
	Pinger interface {
		PingContext(ctx context.Context) error
	}
)
