// Package app wires repositories and services from configuration. The api,
// worker and followupctl binaries all build on it.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/followup-api/internal/config"
	"github.com/jwalitptl/followup-api/internal/repository"
	"github.com/jwalitptl/followup-api/internal/repository/memory"
	"github.com/jwalitptl/followup-api/internal/repository/postgres"
	"github.com/jwalitptl/followup-api/internal/service/admin"
	authsvc "github.com/jwalitptl/followup-api/internal/service/auth"
	"github.com/jwalitptl/followup-api/internal/service/clinic"
	"github.com/jwalitptl/followup-api/internal/service/disclosure"
	"github.com/jwalitptl/followup-api/internal/service/event"
	"github.com/jwalitptl/followup-api/internal/service/followup"
	"github.com/jwalitptl/followup-api/internal/service/identifier"
	"github.com/jwalitptl/followup-api/internal/service/importer"
	"github.com/jwalitptl/followup-api/internal/service/user"
	"github.com/jwalitptl/followup-api/pkg/auth"
	"github.com/jwalitptl/followup-api/pkg/logger"
	"github.com/jwalitptl/followup-api/pkg/metrics"
	"github.com/jwalitptl/followup-api/pkg/security"
	"github.com/jwalitptl/followup-api/pkg/validator"
)

// Repositories is one storage backend.
type Repositories struct {
	Clinics     repository.ClinicRepository
	Memberships repository.MembershipRepository
	Users       repository.UserRepository
	FollowUps   repository.FollowUpRepository
	ViewLogs    repository.ViewLogRepository
	Outbox      repository.OutboxRepository
	Pinger      repository.Pinger

	// DB is nil for the memory driver.
	DB *sqlx.DB
}

// OpenRepositories connects the configured driver.
func OpenRepositories(ctx context.Context, cfg config.DatabaseConfig) (*Repositories, error) {
	switch cfg.Driver {
	case "memory":
		return NewMemoryRepositories(memory.NewStore()), nil
	case "postgres":
		db, err := postgres.NewDB(ctx, cfg)
		if err != nil {
			return nil, err
		}
		base := postgres.NewBaseRepository(db)
		return &Repositories{
			Clinics:     postgres.NewClinicRepository(base),
			Memberships: postgres.NewMembershipRepository(base),
			Users:       postgres.NewUserRepository(base),
			FollowUps:   postgres.NewFollowUpRepository(base),
			ViewLogs:    postgres.NewViewLogRepository(base),
			Outbox:      postgres.NewOutboxRepository(base),
			Pinger:      &base,
			DB:          db,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

func NewMemoryRepositories(store *memory.Store) *Repositories {
	return &Repositories{
		Clinics:     store.Clinics(),
		Memberships: store.Memberships(),
		Users:       store.Users(),
		FollowUps:   store.FollowUps(),
		ViewLogs:    store.ViewLogs(),
		Outbox:      store.Outbox(),
		Pinger:      store,
	}
}

// Migrate applies the schema; the memory driver needs none.
func (r *Repositories) Migrate(ctx context.Context) error {
	if r.DB == nil {
		return nil
	}
	return postgres.Migrate(ctx, r.DB)
}

func (r *Repositories) Close() error {
	if r.DB == nil {
		return nil
	}
	return r.DB.Close()
}

// Services holds every domain service over one set of repositories.
type Services struct {
	Events     *event.EventService
	Clinics    *clinic.Service
	Users      *user.Service
	Auth       *authsvc.Service
	FollowUps  *followup.Service
	Guard      *followup.Guard
	Disclosure *disclosure.Service
	Admin      *admin.Service
	Importer   *importer.Service
}

func NewServices(cfg *config.Config, repos *Repositories, m *metrics.Metrics, log *logger.Logger) *Services {
	ids := identifier.New(nil, m, log.With("identifier"))
	events := event.NewEventService(repos.Outbox, log.With("events"))
	v := validator.New()
	hasher := security.NewBcryptHasher(0)
	jwtSvc := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Issuer, time.Duration(cfg.JWT.ExpiryHours)*time.Hour)

	clinics := clinic.NewService(repos.Clinics, repos.Memberships, repos.Users, ids, events, log.With("clinics"))
	followups := followup.NewService(repos.FollowUps, ids, v, events, m, log.With("followups"))

	return &Services{
		Events:     events,
		Clinics:    clinics,
		Users:      user.NewService(repos.Users, clinics, hasher, v, log.With("users")),
		Auth:       authsvc.NewService(repos.Users, clinics, jwtSvc, hasher, m, log.With("auth")),
		FollowUps:  followups,
		Guard:      followup.NewGuard(followups, clinics),
		Disclosure: disclosure.NewService(repos.FollowUps, repos.ViewLogs, repos.Clinics, events, m, log.With("disclosure")),
		Admin:      admin.NewService(repos.FollowUps, repos.ViewLogs),
		Importer:   importer.NewService(repos.Users, clinics, followups, m, log.With("importer")),
	}
}
