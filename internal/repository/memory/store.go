// Package memory is an in-process implementation of the repository
// interfaces. It enforces the same uniqueness rules as the postgres schema.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/followup-api/internal/model"
	"github.com/jwalitptl/followup-api/internal/repository"
)

type Store struct {
	mu          sync.RWMutex
	clinics     map[uuid.UUID]model.Clinic
	memberships map[uuid.UUID]model.Membership
	users       map[uuid.UUID]model.User
	followups   map[uuid.UUID]model.FollowUp
	viewLogs    []model.PublicViewLog
	outbox      []*model.OutboxEvent
}

func NewStore() *Store {
	return &Store{
		clinics:     map[uuid.UUID]model.Clinic{},
		memberships: map[uuid.UUID]model.Membership{},
		users:       map[uuid.UUID]model.User{},
		followups:   map[uuid.UUID]model.FollowUp{},
	}
}

func (s *Store) PingContext(ctx context.Context) error {
	return ctx.Err()
}

func (s *Store) Clinics() repository.ClinicRepository         { return &clinicRepository{s} }
func (s *Store) Memberships() repository.MembershipRepository { return &membershipRepository{s} }
func (s *Store) Users() repository.UserRepository             { return &userRepository{s} }
func (s *Store) FollowUps() repository.FollowUpRepository     { return &followUpRepository{s} }
func (s *Store) ViewLogs() repository.ViewLogRepository       { return &viewLogRepository{s} }
func (s *Store) Outbox() repository.OutboxRepository          { return &outboxRepository{s} }

func notFound(op string) error {
	return fmt.Errorf("%s: %w", op, repository.ErrNotFound)
}

func duplicate(op, constraint string) error {
	return fmt.Errorf("%s: %w (%s)", op, repository.ErrDuplicate, constraint)
}

func contains(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

// clinics

type clinicRepository struct{ s *Store }

func (r *clinicRepository) Create(ctx context.Context, clinic *model.Clinic) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, c := range r.s.clinics {
		if c.ClinicCode == clinic.ClinicCode {
			return duplicate("create clinic", "clinics_clinic_code_key")
		}
	}
	r.s.clinics[clinic.ID] = *clinic
	return nil
}

func (r *clinicRepository) Get(ctx context.Context, id uuid.UUID) (*model.Clinic, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	c, ok := r.s.clinics[id]
	if !ok {
		return nil, notFound("get clinic")
	}
	return &c, nil
}

func (r *clinicRepository) GetByCode(ctx context.Context, code string) (*model.Clinic, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, c := range r.s.clinics {
		if c.ClinicCode == code {
			c := c
			return &c, nil
		}
	}
	return nil, notFound("get clinic by code")
}

func (r *clinicRepository) Rename(ctx context.Context, id uuid.UUID, name string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, ok := r.s.clinics[id]
	if !ok {
		return notFound("rename clinic")
	}
	c.Name = name
	r.s.clinics[id] = c
	return nil
}

func (r *clinicRepository) List(ctx context.Context, filter model.ClinicFilter) ([]*model.Clinic, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := []*model.Clinic{}
	for _, c := range r.s.clinics {
		if filter.Search != "" && !contains(c.Name, filter.Search) && !contains(c.ClinicCode, filter.Search) {
			continue
		}
		c := c
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// memberships

type membershipRepository struct{ s *Store }

func (r *membershipRepository) Assign(ctx context.Context, m *model.Membership) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.memberships[m.UserID]; ok {
		return duplicate("assign staff", "clinic_staff_pkey")
	}
	if _, ok := r.s.users[m.UserID]; !ok {
		return notFound("assign staff")
	}
	if _, ok := r.s.clinics[m.ClinicID]; !ok {
		return notFound("assign staff")
	}
	r.s.memberships[m.UserID] = *m
	return nil
}

func (r *membershipRepository) GetByUser(ctx context.Context, userID uuid.UUID) (*model.Membership, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	m, ok := r.s.memberships[userID]
	if !ok {
		return nil, notFound("get membership")
	}
	return &m, nil
}

func (r *membershipRepository) ListByClinic(ctx context.Context, clinicID uuid.UUID) ([]*model.Membership, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := []*model.Membership{}
	for _, m := range r.s.memberships {
		if m.ClinicID == clinicID {
			m := m
			out = append(out, &m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *membershipRepository) Remove(ctx context.Context, userID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.memberships[userID]; !ok {
		return notFound("remove staff")
	}
	delete(r.s.memberships, userID)
	return nil
}

// users

type userRepository struct{ s *Store }

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, u := range r.s.users {
		if u.Username == user.Username {
			return duplicate("create user", "users_username_key")
		}
	}
	r.s.users[user.ID] = *user
	return nil
}

func (r *userRepository) Get(ctx context.Context, id uuid.UUID) (*model.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, notFound("get user")
	}
	return &u, nil
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, u := range r.s.users {
		if u.Username == username {
			u := u
			return &u, nil
		}
	}
	return nil, notFound("get user by username")
}

func (r *userRepository) List(ctx context.Context, filter model.UserFilter) ([]*model.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := []*model.User{}
	for _, u := range r.s.users {
		if filter.Search != "" && !contains(u.Username, filter.Search) && !contains(u.Email, filter.Search) {
			continue
		}
		u := u
		out = append(out, &u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (r *userRepository) Delete(ctx context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[id]; !ok {
		return notFound("delete user")
	}
	delete(r.s.users, id)
	delete(r.s.memberships, id)
	for fid, f := range r.s.followups {
		if f.CreatedBy != nil && *f.CreatedBy == id {
			f.CreatedBy = nil
			r.s.followups[fid] = f
		}
	}
	return nil
}

// follow-ups

type followUpRepository struct{ s *Store }

func (r *followUpRepository) Create(ctx context.Context, f *model.FollowUp) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.clinics[f.ClinicID]; !ok {
		return notFound("create follow-up")
	}
	for _, existing := range r.s.followups {
		if existing.PublicToken == f.PublicToken {
			return duplicate("create follow-up", "followups_public_token_key")
		}
	}
	r.s.followups[f.ID] = *f
	return nil
}

func (r *followUpRepository) Get(ctx context.Context, id uuid.UUID) (*model.FollowUp, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	f, ok := r.s.followups[id]
	if !ok {
		return nil, notFound("get follow-up")
	}
	return &f, nil
}

func (r *followUpRepository) GetByToken(ctx context.Context, token string) (*model.FollowUp, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, f := range r.s.followups {
		if f.PublicToken == token {
			f := f
			return &f, nil
		}
	}
	return nil, notFound("get follow-up by token")
}

func (r *followUpRepository) UpdateDetails(ctx context.Context, f *model.FollowUp) (*model.FollowUp, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.followups[f.ID]
	if !ok {
		return nil, notFound("update follow-up")
	}
	stored.PatientName = f.PatientName
	stored.Phone = f.Phone
	stored.Language = f.Language
	stored.Notes = f.Notes
	stored.DueDate = f.DueDate
	stored.UpdatedAt = f.UpdatedAt
	r.s.followups[f.ID] = stored
	return &stored, nil
}

func (r *followUpRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.FollowUpStatus, updatedAt time.Time) (*model.FollowUp, model.FollowUpStatus, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.followups[id]
	if !ok {
		return nil, "", notFound("update follow-up status")
	}
	previous := stored.Status
	stored.Status = status
	stored.UpdatedAt = updatedAt
	r.s.followups[id] = stored
	return &stored, previous, nil
}

func (r *followUpRepository) ListByClinic(ctx context.Context, clinicID uuid.UUID, filter model.FollowUpFilter) ([]*model.FollowUpWithViews, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	return r.collect(func(f model.FollowUp) bool {
		if f.ClinicID != clinicID {
			return false
		}
		if filter.Status != nil && f.Status != *filter.Status {
			return false
		}
		if filter.DueFrom != nil && f.DueDate.Before(filter.DueFrom.Time) {
			return false
		}
		if filter.DueTo != nil && f.DueDate.After(filter.DueTo.Time) {
			return false
		}
		return true
	}), nil
}

func (r *followUpRepository) Search(ctx context.Context, filter model.AdminFollowUpFilter) ([]*model.FollowUpWithViews, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	return r.collect(func(f model.FollowUp) bool {
		if filter.Search != "" && !contains(f.PatientName, filter.Search) && !contains(f.Phone, filter.Search) && f.PublicToken != filter.Search {
			return false
		}
		if filter.Status != nil && f.Status != *filter.Status {
			return false
		}
		if filter.ClinicID != nil && f.ClinicID != *filter.ClinicID {
			return false
		}
		if filter.Language != nil && f.Language != *filter.Language {
			return false
		}
		return true
	}), nil
}

// collect must be called with the read lock held.
func (r *followUpRepository) collect(match func(model.FollowUp) bool) []*model.FollowUpWithViews {
	views := map[uuid.UUID]int{}
	for _, v := range r.s.viewLogs {
		views[v.FollowUpID]++
	}

	out := []*model.FollowUpWithViews{}
	for _, f := range r.s.followups {
		if !match(f) {
			continue
		}
		out = append(out, &model.FollowUpWithViews{FollowUp: f, ViewCount: views[f.ID]})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].DueDate.Equal(out[j].DueDate.Time) {
			return out[i].DueDate.Before(out[j].DueDate.Time)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// view logs

type viewLogRepository struct{ s *Store }

func (r *viewLogRepository) Create(ctx context.Context, log *model.PublicViewLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.followups[log.FollowUpID]; !ok {
		return notFound("create view log")
	}
	r.s.viewLogs = append(r.s.viewLogs, *log)
	return nil
}

func (r *viewLogRepository) ListByFollowUp(ctx context.Context, followupID uuid.UUID) ([]*model.PublicViewLog, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := []*model.PublicViewLog{}
	for i := len(r.s.viewLogs) - 1; i >= 0; i-- {
		if r.s.viewLogs[i].FollowUpID == followupID {
			v := r.s.viewLogs[i]
			out = append(out, &v)
		}
	}
	return out, nil
}

func (r *viewLogRepository) List(ctx context.Context, filter model.ViewLogFilter) ([]*model.ViewLogEntry, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := []*model.ViewLogEntry{}
	for i := len(r.s.viewLogs) - 1; i >= 0; i-- {
		v := r.s.viewLogs[i]
		f := r.s.followups[v.FollowUpID]
		if filter.Search != "" && !contains(f.PatientName, filter.Search) && (v.IPAddress == nil || !contains(*v.IPAddress, filter.Search)) {
			continue
		}
		out = append(out, &model.ViewLogEntry{PublicViewLog: v, PatientName: f.PatientName})
	}
	return out, nil
}

// outbox

type outboxRepository struct{ s *Store }

func (r *outboxRepository) Create(ctx context.Context, event *model.OutboxEvent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	e := *event
	r.s.outbox = append(r.s.outbox, &e)
	return nil
}

func (r *outboxRepository) GetPendingEvents(ctx context.Context, limit int) ([]*model.OutboxEvent, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := []*model.OutboxEvent{}
	for _, e := range r.s.outbox {
		if len(out) == limit {
			break
		}
		if e.Status == string(model.OutboxStatusPending) {
			copied := *e
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *outboxRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.OutboxStatus, errMsg *string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, e := range r.s.outbox {
		if e.ID != id {
			continue
		}
		now := time.Now()
		e.Status = string(status)
		e.ErrorMessage = errMsg
		e.UpdatedAt = now
		switch status {
		case model.OutboxStatusFailed:
			e.RetryCount++
		case model.OutboxStatusProcessed:
			e.ProcessedAt = &now
		}
		return nil
	}
	return notFound("update outbox event")
}

func (r *outboxRepository) DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	kept := r.s.outbox[:0]
	var deleted int64
	for _, e := range r.s.outbox {
		if e.Status == string(model.OutboxStatusProcessed) && e.ProcessedAt != nil && e.ProcessedAt.Before(before) {
			deleted++
			continue
		}
		kept = append(kept, e)
	}
	r.s.outbox = kept
	return deleted, nil
}

// Events returns a snapshot of every outbox event, in insertion order.
func (s *Store) Events() []model.OutboxEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.OutboxEvent, 0, len(s.outbox))
	for _, e := range s.outbox {
		out = append(out, *e)
	}
	return out
}
