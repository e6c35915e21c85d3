// Package admin is the operator surface. It reads across all clinics and
// is never tenant-scoped.
package admin

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/jwalitptl/followup-api/internal/model"
	"github.com/jwalitptl/followup-api/internal/repository"
	apperrors "github.com/jwalitptl/followup-api/pkg/errors"
)

type Service struct {
	followups repository.FollowUpRepository
	viewLogs  repository.ViewLogRepository
}

func NewService(followups repository.FollowUpRepository, viewLogs repository.ViewLogRepository) *Service {
	return &Service{followups: followups, viewLogs: viewLogs}
}

func (s *Service) SearchFollowUps(ctx context.Context, filter model.AdminFollowUpFilter) ([]*model.FollowUpWithViews, error) {
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, apperrors.Validation("status", "status must be one of: pending, done")
	}
	if filter.Language != nil && !filter.Language.Valid() {
		return nil, apperrors.Validation("language", "language must be one of: en, hi")
	}

	items, err := s.followups.Search(ctx, filter)
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("failed to search follow-ups: %w", err))
	}
	return items, nil
}

// FollowUpDetail is a follow-up with its full disclosure history.
type FollowUpDetail struct {
	FollowUp *model.FollowUp        `json:"followup"`
	Views    []*model.PublicViewLog `json:"views"`
}

func (s *Service) GetFollowUp(ctx context.Context, id uuid.UUID) (*FollowUpDetail, error) {
	f, err := s.followups.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("follow-up", err)
		}
		return nil, apperrors.Internal(err)
	}

	views, err := s.viewLogs.ListByFollowUp(ctx, id)
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("failed to list views: %w", err))
	}
	return &FollowUpDetail{FollowUp: f, Views: views}, nil
}

func (s *Service) ListViewLogs(ctx context.Context, filter model.ViewLogFilter) ([]*model.ViewLogEntry, error) {
	entries, err := s.viewLogs.List(ctx, filter)
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("failed to list view logs: %w", err))
	}
	return entries, nil
}
