package followup

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/followup-api/internal/model"
	"github.com/jwalitptl/followup-api/internal/repository/memory"
	"github.com/jwalitptl/followup-api/internal/service/clinic"
	"github.com/jwalitptl/followup-api/internal/service/event"
	"github.com/jwalitptl/followup-api/internal/service/identifier"
	apperrors "github.com/jwalitptl/followup-api/pkg/errors"
	"github.com/jwalitptl/followup-api/pkg/logger"
	"github.com/jwalitptl/followup-api/pkg/validator"
)

type fixture struct {
	store   *memory.Store
	clinics *clinic.Service
	svc     *Service
	guard   *Guard
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	log := logger.Nop()
	ids := identifier.New(nil, nil, log)
	events := event.NewEventService(store.Outbox(), log)

	clinics := clinic.NewService(store.Clinics(), store.Memberships(), store.Users(), ids, events, log)
	svc := NewService(store.FollowUps(), ids, validator.New(), events, nil, log)

	return &fixture{
		store:   store,
		clinics: clinics,
		svc:     svc,
		guard:   NewGuard(svc, clinics),
	}
}

// staff creates a clinic and a member user of it.
func (fx *fixture) staff(t *testing.T, username string) (uuid.UUID, *model.Clinic) {
	t.Helper()
	ctx := context.Background()

	c, err := fx.clinics.CreateClinic(ctx, "Clinic of "+username)
	require.NoError(t, err)

	user := &model.User{Username: username, Role: model.RoleStaff, IsActive: true}
	user.ID = uuid.New()
	require.NoError(t, fx.store.Users().Create(ctx, user))

	_, err = fx.clinics.AssignStaff(ctx, c.ID, user.ID)
	require.NoError(t, err)
	return user.ID, c
}

func input(name, phone string, due model.Date) model.FollowUpInput {
	return model.FollowUpInput{
		PatientName: name,
		Phone:       phone,
		Language:    model.LanguageEnglish,
		DueDate:     due,
	}
}

func TestCreateAssignsTokenAndDefaults(t *testing.T) {
	fx := newFixture(t)
	actor, c := fx.staff(t, "nurse")

	notes := "   "
	in := input("Alice", "98765 43210", model.NewDate(2025, time.January, 1))
	in.Notes = &notes

	f, err := fx.guard.CreateFor(context.Background(), actor, in)
	require.NoError(t, err)

	assert.Equal(t, c.ID, f.ClinicID)
	require.NotNil(t, f.CreatedBy)
	assert.Equal(t, actor, *f.CreatedBy)
	assert.Equal(t, model.FollowUpStatusPending, f.Status)
	assert.Len(t, f.PublicToken, 43)
	assert.Nil(t, f.Notes)
	assert.False(t, f.CreatedAt.IsZero())
	assert.Equal(t, f.CreatedAt, f.UpdatedAt)

	events := fx.store.Events()
	require.NotEmpty(t, events)
	assert.Equal(t, model.EventFollowUpCreated, events[len(events)-1].EventType)
}

func TestCreateValidatesPhone(t *testing.T) {
	fx := newFixture(t)
	actor, _ := fx.staff(t, "nurse")
	due := model.NewDate(2025, time.January, 1)

	_, err := fx.guard.CreateFor(context.Background(), actor, input("Alice", "abc", due))
	assert.True(t, apperrors.Is(err, apperrors.ErrBadRequest))

	_, err = fx.guard.CreateFor(context.Background(), actor, input("Alice", "", due))
	assert.True(t, apperrors.Is(err, apperrors.ErrBadRequest))

	_, err = fx.guard.CreateFor(context.Background(), actor, input("Alice", "abc123", due))
	assert.NoError(t, err)
}

func TestTokensAreDistinct(t *testing.T) {
	fx := newFixture(t)
	actor, _ := fx.staff(t, "nurse")

	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		f, err := fx.guard.CreateFor(context.Background(), actor, input("P", "1", model.NewDate(2025, time.March, 1)))
		require.NoError(t, err)
		assert.False(t, seen[f.PublicToken])
		seen[f.PublicToken] = true
	}
}

func TestUpdateKeepsImmutableFields(t *testing.T) {
	fx := newFixture(t)
	actor, _ := fx.staff(t, "nurse")
	ctx := context.Background()

	created, err := fx.guard.CreateFor(ctx, actor, input("Alice", "123", model.NewDate(2025, time.January, 1)))
	require.NoError(t, err)

	fx.svc.now = func() time.Time { return created.UpdatedAt.Add(time.Hour) }

	in := input("Alice B", "456", model.NewDate(2025, time.February, 1))
	in.Language = model.LanguageHindi
	updated, err := fx.guard.UpdateFor(ctx, actor, created.ID, in)
	require.NoError(t, err)

	assert.Equal(t, "Alice B", updated.PatientName)
	assert.Equal(t, model.LanguageHindi, updated.Language)
	assert.Equal(t, created.PublicToken, updated.PublicToken)
	assert.Equal(t, created.ClinicID, updated.ClinicID)
	assert.Equal(t, created.CreatedBy, updated.CreatedBy)
	assert.True(t, updated.UpdatedAt.After(created.UpdatedAt))

	stored, err := fx.svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "456", stored.Phone)
	assert.Equal(t, created.PublicToken, stored.PublicToken)

	_, err = fx.guard.UpdateFor(ctx, actor, created.ID, input("Alice", "no digits", model.NewDate(2025, time.January, 1)))
	assert.True(t, apperrors.Is(err, apperrors.ErrBadRequest))
}

func TestMarkDoneIsIdempotent(t *testing.T) {
	fx := newFixture(t)
	actor, _ := fx.staff(t, "nurse")
	ctx := context.Background()

	f, err := fx.guard.CreateFor(ctx, actor, input("Alice", "123", model.NewDate(2025, time.January, 1)))
	require.NoError(t, err)

	done, err := fx.guard.MarkDoneFor(ctx, actor, f.ID)
	require.NoError(t, err)
	assert.Equal(t, model.FollowUpStatusDone, done.Status)

	again, err := fx.guard.MarkDoneFor(ctx, actor, f.ID)
	require.NoError(t, err)
	assert.Equal(t, model.FollowUpStatusDone, again.Status)

	stored, err := fx.svc.Get(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, model.FollowUpStatusDone, stored.Status)
}

func TestEditAfterMarkDoneKeepsDone(t *testing.T) {
	fx := newFixture(t)
	actor, _ := fx.staff(t, "nurse")
	ctx := context.Background()

	created, err := fx.guard.CreateFor(ctx, actor, input("Alice", "123", model.NewDate(2025, time.January, 1)))
	require.NoError(t, err)

	loaded, err := fx.guard.GetFor(ctx, actor, created.ID)
	require.NoError(t, err)
	require.Equal(t, model.FollowUpStatusPending, loaded.Status)

	_, err = fx.guard.MarkDoneFor(ctx, actor, created.ID)
	require.NoError(t, err)

	updated, err := fx.svc.Update(ctx, loaded, input("Alice B", "456", model.NewDate(2025, time.February, 1)))
	require.NoError(t, err)
	assert.Equal(t, model.FollowUpStatusDone, updated.Status)
	assert.Equal(t, "Alice B", updated.PatientName)

	stored, err := fx.svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, model.FollowUpStatusDone, stored.Status)
	assert.Equal(t, "456", stored.Phone)
}

func TestMarkDoneWithStaleCopyEmitsOnce(t *testing.T) {
	fx := newFixture(t)
	actor, _ := fx.staff(t, "nurse")
	ctx := context.Background()

	created, err := fx.guard.CreateFor(ctx, actor, input("Alice", "123", model.NewDate(2025, time.January, 1)))
	require.NoError(t, err)

	first, err := fx.svc.MarkDone(ctx, created)
	require.NoError(t, err)
	assert.Equal(t, model.FollowUpStatusDone, first.Status)

	// created still reads pending
	_, err = fx.svc.MarkDone(ctx, created)
	require.NoError(t, err)

	done := 0
	for _, e := range fx.store.Events() {
		if e.EventType == model.EventFollowUpDone {
			done++
		}
	}
	assert.Equal(t, 1, done)
}

func TestCrossTenantAccessIsForbidden(t *testing.T) {
	fx := newFixture(t)
	staffA, _ := fx.staff(t, "alice")
	staffB, _ := fx.staff(t, "bob")
	ctx := context.Background()

	foreign, err := fx.guard.CreateFor(ctx, staffB, input("Bob's patient", "123", model.NewDate(2025, time.January, 1)))
	require.NoError(t, err)
	_, err = fx.guard.CreateFor(ctx, staffA, input("Alice's patient", "123", model.NewDate(2025, time.January, 2)))
	require.NoError(t, err)

	_, err = fx.guard.UpdateFor(ctx, staffA, foreign.ID, input("x", "1", model.NewDate(2025, time.January, 1)))
	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrForbidden, appErr.Code)
	assert.Equal(t, "cross-tenant access", appErr.Message)

	_, err = fx.guard.MarkDoneFor(ctx, staffA, foreign.ID)
	assert.True(t, apperrors.Is(err, apperrors.ErrForbidden))

	stored, err := fx.svc.Get(ctx, foreign.ID)
	require.NoError(t, err)
	assert.Equal(t, model.FollowUpStatusPending, stored.Status)

	_, err = fx.guard.GetFor(ctx, staffA, uuid.New())
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))

	listing, err := fx.guard.ListFor(ctx, staffA, model.FollowUpFilter{})
	require.NoError(t, err)
	require.Len(t, listing.Items, 1)
	assert.Equal(t, "Alice's patient", listing.Items[0].PatientName)
}

func TestActorWithoutClinic(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	loner := uuid.New()

	_, err := fx.guard.ListFor(ctx, loner, model.FollowUpFilter{})
	assert.True(t, apperrors.Is(err, apperrors.ErrNoClinic))

	_, err = fx.guard.CreateFor(ctx, loner, input("x", "1", model.NewDate(2025, time.January, 1)))
	assert.True(t, apperrors.Is(err, apperrors.ErrNoClinic))

	staff, _ := fx.staff(t, "nurse")
	f, err := fx.guard.CreateFor(ctx, staff, input("x", "1", model.NewDate(2025, time.January, 1)))
	require.NoError(t, err)
	assert.True(t, apperrors.Is(fx.guard.Authorize(ctx, loner, f), apperrors.ErrNoClinic))
}

func TestListForFiltersAndSummary(t *testing.T) {
	fx := newFixture(t)
	actor, _ := fx.staff(t, "nurse")
	ctx := context.Background()

	jan, err := fx.guard.CreateFor(ctx, actor, input("Jan", "1", model.NewDate(2025, time.January, 10)))
	require.NoError(t, err)
	_, err = fx.guard.CreateFor(ctx, actor, input("Mar", "1", model.NewDate(2025, time.March, 10)))
	require.NoError(t, err)
	_, err = fx.guard.CreateFor(ctx, actor, input("Feb", "1", model.NewDate(2025, time.February, 10)))
	require.NoError(t, err)
	_, err = fx.guard.MarkDoneFor(ctx, actor, jan.ID)
	require.NoError(t, err)

	listing, err := fx.guard.ListFor(ctx, actor, model.FollowUpFilter{})
	require.NoError(t, err)
	require.Len(t, listing.Items, 3)
	assert.Equal(t, []string{"Jan", "Feb", "Mar"}, names(listing.Items))
	assert.Equal(t, model.FollowUpSummary{Total: 3, Pending: 2, Done: 1}, listing.Summary)

	pending := model.FollowUpStatusPending
	from := model.NewDate(2025, time.February, 10)
	to := model.NewDate(2025, time.February, 10)
	listing, err = fx.guard.ListFor(ctx, actor, model.FollowUpFilter{Status: &pending, DueFrom: &from, DueTo: &to})
	require.NoError(t, err)
	assert.Equal(t, []string{"Feb"}, names(listing.Items))

	late := model.NewDate(2025, time.December, 1)
	listing, err = fx.guard.ListFor(ctx, actor, model.FollowUpFilter{DueFrom: &late, DueTo: &from})
	require.NoError(t, err)
	assert.Empty(t, listing.Items)
	assert.Equal(t, model.FollowUpSummary{}, listing.Summary)
}

func names(items []*model.FollowUpWithViews) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, item.PatientName)
	}
	return out
}
