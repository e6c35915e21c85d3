package followup

import (
	"context"

	"github.com/google/uuid"

	"github.com/jwalitptl/followup-api/internal/model"
	apperrors "github.com/jwalitptl/followup-api/pkg/errors"
)

// ClinicResolver maps a user to their one clinic.
type ClinicResolver interface {
	ClinicFor(ctx context.Context, userID uuid.UUID) (*model.Clinic, error)
}

// Guard scopes every staff operation to the actor's clinic.
type Guard struct {
	store   Store
	clinics ClinicResolver
}

func NewGuard(store Store, clinics ClinicResolver) *Guard {
	return &Guard{store: store, clinics: clinics}
}

// Authorize allows the actor iff they belong to f's clinic. An actor without
// a clinic gets ErrNoClinic; a member of another clinic gets ErrForbidden.
func (g *Guard) Authorize(ctx context.Context, actorID uuid.UUID, f *model.FollowUp) error {
	clinic, err := g.clinics.ClinicFor(ctx, actorID)
	if err != nil {
		return err
	}
	if clinic.ID != f.ClinicID {
		return apperrors.Forbidden("cross-tenant access")
	}
	return nil
}

// Listing is a clinic-scoped listing with its summary counts.
type Listing struct {
	Clinic  *model.Clinic              `json:"clinic"`
	Items   []*model.FollowUpWithViews `json:"items"`
	Summary model.FollowUpSummary      `json:"summary"`
}

// ListFor applies each bound independently; an inverted range lists nothing.
func (g *Guard) ListFor(ctx context.Context, actorID uuid.UUID, filter model.FollowUpFilter) (*Listing, error) {
	clinic, err := g.clinics.ClinicFor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	items, err := g.store.ListByClinic(ctx, clinic.ID, filter)
	if err != nil {
		return nil, err
	}
	return &Listing{Clinic: clinic, Items: items, Summary: model.Summarize(items)}, nil
}

// CreateFor creates a follow-up in the actor's clinic, owned by the actor.
func (g *Guard) CreateFor(ctx context.Context, actorID uuid.UUID, in model.FollowUpInput) (*model.FollowUp, error) {
	clinic, err := g.clinics.ClinicFor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	return g.store.Create(ctx, clinic.ID, &actorID, in)
}

// GetFor loads a record for viewing or editing. A missing record is
// NotFound; a record of another clinic is Forbidden.
func (g *Guard) GetFor(ctx context.Context, actorID, id uuid.UUID) (*model.FollowUp, error) {
	if _, err := g.clinics.ClinicFor(ctx, actorID); err != nil {
		return nil, err
	}
	f, err := g.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := g.Authorize(ctx, actorID, f); err != nil {
		return nil, err
	}
	return f, nil
}

func (g *Guard) UpdateFor(ctx context.Context, actorID, id uuid.UUID, in model.FollowUpInput) (*model.FollowUp, error) {
	f, err := g.GetFor(ctx, actorID, id)
	if err != nil {
		return nil, err
	}
	return g.store.Update(ctx, f, in)
}

func (g *Guard) MarkDoneFor(ctx context.Context, actorID, id uuid.UUID) (*model.FollowUp, error) {
	f, err := g.GetFor(ctx, actorID, id)
	if err != nil {
		return nil, err
	}
	return g.store.MarkDone(ctx, f)
}
