// Package importer bulk-creates follow-ups from CSV for one staff user.
package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/jwalitptl/followup-api/internal/model"
	"github.com/jwalitptl/followup-api/internal/repository"
	apperrors "github.com/jwalitptl/followup-api/pkg/errors"
	"github.com/jwalitptl/followup-api/pkg/logger"
	"github.com/jwalitptl/followup-api/pkg/metrics"
)

// RequiredColumns must all be present in the header row.
var RequiredColumns = []string{"patient_name", "phone", "language", "due_date", "notes"}

// ErrMissingColumns aborts an import before any row is read.
var ErrMissingColumns = errors.New("csv missing required columns")

type Creator interface {
	Create(ctx context.Context, clinicID uuid.UUID, creatorID *uuid.UUID, in model.FollowUpInput) (*model.FollowUp, error)
}

type ClinicResolver interface {
	ClinicFor(ctx context.Context, userID uuid.UUID) (*model.Clinic, error)
}

// Skip explains why one data row was not imported. Row is 1-based and
// does not count the header.
type Skip struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

type Summary struct {
	Clinic  *model.Clinic `json:"clinic"`
	Created int           `json:"created"`
	Skipped int           `json:"skipped"`
	Skips   []Skip        `json:"skips,omitempty"`
}

type Service struct {
	users     repository.UserRepository
	clinics   ClinicResolver
	followups Creator
	metrics   *metrics.Metrics
	logger    *logger.Logger
}

func NewService(users repository.UserRepository, clinics ClinicResolver, followups Creator, m *metrics.Metrics, log *logger.Logger) *Service {
	return &Service{
		users:     users,
		clinics:   clinics,
		followups: followups,
		metrics:   m,
		logger:    log,
	}
}

// Import reads r as CSV and creates one follow-up per valid row in the
// clinic of username, owned by that user. Invalid rows are skipped and
// counted. An unknown user, a user without a clinic, unreadable CSV, a
// missing required column or a store failure fail the whole import.
func (s *Service) Import(ctx context.Context, r io.Reader, username string) (*Summary, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound(fmt.Sprintf("user %q", username), err)
		}
		return nil, apperrors.Internal(err)
	}
	clinic, err := s.clinics.ClinicFor(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(RequiredColumns, ", "))
		}
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	index, err := columnIndex(header)
	if err != nil {
		return nil, err
	}

	summary := &Summary{Clinic: clinic}
	for row := 1; ; row++ {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				s.skip(summary, row, "malformed row: "+parseErr.Err.Error())
				continue
			}
			return summary, fmt.Errorf("failed to read row %d: %w", row, err)
		}

		in, reason := parseRow(record, index)
		if reason != "" {
			s.skip(summary, row, reason)
			continue
		}

		if _, err := s.followups.Create(ctx, clinic.ID, &user.ID, in); err != nil {
			if fatal(err) {
				s.logger.Error(err, "import aborted", "row", row, "created", summary.Created)
				return summary, fmt.Errorf("row %d: %w", row, err)
			}
			s.skip(summary, row, "failed: "+err.Error())
			continue
		}
		summary.Created++
		s.metrics.ImportRow("created")
	}

	s.logger.Info("import complete",
		"username", username,
		"clinic_id", clinic.ID.String(),
		"created", summary.Created,
		"skipped", summary.Skipped)
	return summary, nil
}

// fatal reports errors that are not about the row itself: store failures
// and exhausted token assignment stop the import.
func fatal(err error) bool {
	code := apperrors.CodeOf(err)
	return code == apperrors.ErrInternal || code == apperrors.ErrIntegrityExhausted
}

func (s *Service) skip(summary *Summary, row int, reason string) {
	summary.Skipped++
	summary.Skips = append(summary.Skips, Skip{Row: row, Reason: reason})
	s.metrics.ImportRow("skipped")
	s.logger.Warn("row skipped", "row", row, "reason", reason)
}

func columnIndex(header []string) (map[string]int, error) {
	index := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		if _, dup := index[name]; !dup {
			index[name] = i
		}
	}

	var missing []string
	for _, col := range RequiredColumns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}
	return index, nil
}

func parseRow(record []string, index map[string]int) (model.FollowUpInput, string) {
	field := func(name string) string {
		i := index[name]
		if i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	name, phone, due := field("patient_name"), field("phone"), field("due_date")
	if name == "" || phone == "" || due == "" {
		return model.FollowUpInput{}, "missing mandatory fields"
	}

	date, err := model.ParseDate(due)
	if err != nil {
		return model.FollowUpInput{}, fmt.Sprintf("invalid date format %q, use YYYY-MM-DD", due)
	}

	in := model.FollowUpInput{
		PatientName: name,
		Phone:       phone,
		Language:    model.Language(field("language")),
		DueDate:     date,
	}
	if notes := field("notes"); notes != "" {
		in.Notes = &notes
	}
	return in, ""
}
