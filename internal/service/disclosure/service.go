// Package disclosure resolves public tokens. Every successful resolve is
// recorded in the view log.
package disclosure

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/followup-api/internal/model"
	"github.com/jwalitptl/followup-api/internal/repository"
	"github.com/jwalitptl/followup-api/internal/service/event"
	apperrors "github.com/jwalitptl/followup-api/pkg/errors"
	"github.com/jwalitptl/followup-api/pkg/logger"
	"github.com/jwalitptl/followup-api/pkg/metrics"
)

var notices = map[model.Language]string{
	model.LanguageEnglish: "Please visit our clinic for your follow-up.",
	model.LanguageHindi:   "कृपया अपने फॉलो-अप के लिए हमारे क्लिनिक आएं।",
}

// Notice returns the patient-facing message for lang, defaulting to English.
func Notice(lang model.Language) string {
	if msg, ok := notices[lang]; ok {
		return msg
	}
	return notices[model.LanguageEnglish]
}

// ClientInfo describes the requester of a public page.
type ClientInfo struct {
	UserAgent    string
	ForwardedFor string
	RemoteAddr   string
}

// View is what a token holder gets to see.
type View struct {
	PatientName string               `json:"patient_name"`
	ClinicName  string               `json:"clinic_name"`
	DueDate     model.Date           `json:"due_date"`
	Status      model.FollowUpStatus `json:"status"`
	Language    model.Language       `json:"language"`
	Message     string               `json:"message"`
}

type Service struct {
	followups repository.FollowUpRepository
	viewLogs  repository.ViewLogRepository
	clinics   repository.ClinicRepository
	events    event.Emitter
	metrics   *metrics.Metrics
	logger    *logger.Logger
	now       func() time.Time
}

func NewService(
	followups repository.FollowUpRepository,
	viewLogs repository.ViewLogRepository,
	clinics repository.ClinicRepository,
	events event.Emitter,
	m *metrics.Metrics,
	log *logger.Logger,
) *Service {
	return &Service{
		followups: followups,
		viewLogs:  viewLogs,
		clinics:   clinics,
		events:    events,
		metrics:   m,
		logger:    log,
		now:       time.Now,
	}
}

// Resolve looks a follow-up up by exact token match, with no tenant check,
// and appends a view log row. A miss logs nothing and returns NotFound.
func (s *Service) Resolve(ctx context.Context, token string, client ClientInfo) (*model.FollowUp, error) {
	if token == "" {
		s.metrics.LookupMissed()
		return nil, apperrors.NotFound("follow-up", nil)
	}

	f, err := s.followups.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.metrics.LookupMissed()
			return nil, apperrors.NotFound("follow-up", nil)
		}
		return nil, apperrors.Internal(fmt.Errorf("failed to resolve token: %w", err))
	}

	entry := &model.PublicViewLog{
		ID:         uuid.New(),
		FollowUpID: f.ID,
		ViewedAt:   s.now(),
		UserAgent:  &client.UserAgent,
		IPAddress:  ClientAddress(client.ForwardedFor, client.RemoteAddr),
	}
	if err := s.viewLogs.Create(ctx, entry); err != nil {
		return nil, apperrors.Internal(fmt.Errorf("failed to record view: %w", err))
	}

	s.metrics.Disclosed()
	s.logger.Debug("follow-up disclosed", "followup_id", f.ID.String(), "token", logger.Token(token))
	event.Record(ctx, s.events, s.logger, model.EventFollowUpViewed, map[string]interface{}{
		"followup_id": f.ID,
		"clinic_id":   f.ClinicID,
		"viewed_at":   entry.ViewedAt,
	})

	return f, nil
}

// Disclose resolves token and builds the public view of the record.
func (s *Service) Disclose(ctx context.Context, token string, client ClientInfo) (*View, error) {
	f, err := s.Resolve(ctx, token, client)
	if err != nil {
		return nil, err
	}

	clinic, err := s.clinics.Get(ctx, f.ClinicID)
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("failed to load clinic: %w", err))
	}

	return &View{
		PatientName: f.PatientName,
		ClinicName:  clinic.Name,
		DueDate:     f.DueDate,
		Status:      f.Status,
		Language:    f.Language,
		Message:     Notice(f.Language),
	}, nil
}

// ClientAddress picks the first X-Forwarded-For entry when it is an IP,
// then the peer address with any port removed, then nil.
func ClientAddress(forwardedFor, remoteAddr string) *string {
	if forwardedFor != "" {
		first := strings.TrimSpace(strings.Split(forwardedFor, ",")[0])
		if ip := net.ParseIP(first); ip != nil {
			addr := ip.String()
			return &addr
		}
	}

	host := strings.TrimSpace(remoteAddr)
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	if ip := net.ParseIP(host); ip != nil {
		addr := ip.String()
		return &addr
	}
	return nil
}
