package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/followup-api/internal/model"
	"github.com/jwalitptl/followup-api/internal/repository"
)

func seedClinic(t *testing.T, s *Store, code string) *model.Clinic {
	t.Helper()
	c := &model.Clinic{Name: "Clinic " + code, ClinicCode: code}
	c.ID = uuid.New()
	c.CreatedAt = time.Now()
	require.NoError(t, s.Clinics().Create(context.Background(), c))
	return c
}

func seedFollowUp(t *testing.T, s *Store, clinicID uuid.UUID, token string, due model.Date) *model.FollowUp {
	t.Helper()
	f := &model.FollowUp{
		ClinicID:    clinicID,
		PatientName: "Patient " + token,
		Phone:       "12345",
		Language:    model.LanguageEnglish,
		DueDate:     due,
		Status:      model.FollowUpStatusPending,
		PublicToken: token,
	}
	f.ID = uuid.New()
	f.CreatedAt = time.Now()
	f.UpdatedAt = f.CreatedAt
	require.NoError(t, s.FollowUps().Create(context.Background(), f))
	return f
}

func TestUniqueConstraints(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	clinic := seedClinic(t, s, "abcd1234")

	dup := &model.Clinic{Name: "Other", ClinicCode: "abcd1234"}
	dup.ID = uuid.New()
	assert.ErrorIs(t, s.Clinics().Create(ctx, dup), repository.ErrDuplicate)

	seedFollowUp(t, s, clinic.ID, "tok", model.NewDate(2025, 1, 1))
	clash := &model.FollowUp{ClinicID: clinic.ID, PublicToken: "tok"}
	clash.ID = uuid.New()
	assert.ErrorIs(t, s.FollowUps().Create(ctx, clash), repository.ErrDuplicate)

	_, err := s.FollowUps().Get(ctx, uuid.New())
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestListByClinicFiltersAndCounts(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	a := seedClinic(t, s, "aaaa0000")
	b := seedClinic(t, s, "bbbb0000")

	late := seedFollowUp(t, s, a.ID, "t1", model.NewDate(2025, 3, 10))
	early := seedFollowUp(t, s, a.ID, "t2", model.NewDate(2025, 3, 1))
	seedFollowUp(t, s, b.ID, "t3", model.NewDate(2025, 3, 5))

	require.NoError(t, s.ViewLogs().Create(ctx, &model.PublicViewLog{ID: uuid.New(), FollowUpID: late.ID, ViewedAt: time.Now()}))
	require.NoError(t, s.ViewLogs().Create(ctx, &model.PublicViewLog{ID: uuid.New(), FollowUpID: late.ID, ViewedAt: time.Now()}))
	_, _, err := s.FollowUps().UpdateStatus(ctx, early.ID, model.FollowUpStatusDone, time.Now())
	require.NoError(t, err)

	items, err := s.FollowUps().ListByClinic(ctx, a.ID, model.FollowUpFilter{})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, early.ID, items[0].ID)
	assert.Equal(t, 2, items[1].ViewCount)

	pending := model.FollowUpStatusPending
	from := model.NewDate(2025, 3, 2)
	items, err = s.FollowUps().ListByClinic(ctx, a.ID, model.FollowUpFilter{Status: &pending, DueFrom: &from})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, late.ID, items[0].ID)
}

func TestDeleteUserKeepsFollowUps(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	clinic := seedClinic(t, s, "cccc0000")

	user := &model.User{Username: "nurse", Role: model.RoleStaff}
	user.ID = uuid.New()
	require.NoError(t, s.Users().Create(ctx, user))
	require.NoError(t, s.Memberships().Assign(ctx, &model.Membership{UserID: user.ID, ClinicID: clinic.ID}))

	f := seedFollowUp(t, s, clinic.ID, "t1", model.NewDate(2025, 1, 1))
	f.CreatedBy = &user.ID
	s.followups[f.ID] = *f

	require.NoError(t, s.Users().Delete(ctx, user.ID))

	kept, err := s.FollowUps().Get(ctx, f.ID)
	require.NoError(t, err)
	assert.Nil(t, kept.CreatedBy)

	_, err = s.Memberships().GetByUser(ctx, user.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestOutboxLifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	repo := s.Outbox()

	event := &model.OutboxEvent{ID: uuid.New(), EventType: model.EventFollowUpCreated, Status: string(model.OutboxStatusPending)}
	require.NoError(t, repo.Create(ctx, event))

	pending, err := repo.GetPendingEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	require.NoError(t, repo.UpdateStatus(ctx, event.ID, model.OutboxStatusProcessed, nil))
	pending, err = repo.GetPendingEvents(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	deleted, err := repo.DeleteProcessedBefore(ctx, time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
	assert.Empty(t, s.Events())
}
