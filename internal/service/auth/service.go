package auth

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/jwalitptl/followup-api/internal/model"
	"github.com/jwalitptl/followup-api/internal/repository"
	"github.com/jwalitptl/followup-api/pkg/auth"
	apperrors "github.com/jwalitptl/followup-api/pkg/errors"
	"github.com/jwalitptl/followup-api/pkg/logger"
	"github.com/jwalitptl/followup-api/pkg/metrics"
	"github.com/jwalitptl/followup-api/pkg/security"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// ClinicResolver maps a user to their clinic.
type ClinicResolver interface {
	ClinicFor(ctx context.Context, userID uuid.UUID) (*model.Clinic, error)
}

type Service struct {
	userRepo repository.UserRepository
	clinics  ClinicResolver
	jwtSvc   auth.JWTService
	hasher   security.PasswordHasher
	metrics  *metrics.Metrics
	logger   *logger.Logger
}

func NewService(
	userRepo repository.UserRepository,
	clinics ClinicResolver,
	jwtSvc auth.JWTService,
	hasher security.PasswordHasher,
	m *metrics.Metrics,
	log *logger.Logger,
) *Service {
	return &Service{
		userRepo: userRepo,
		clinics:  clinics,
		jwtSvc:   jwtSvc,
		hasher:   hasher,
		metrics:  m,
		logger:   log,
	}
}

// Login checks the password and issues an access token. Unknown users,
// inactive users and bad passwords all get the same error.
func (s *Service) Login(ctx context.Context, username, password string) (*model.TokenResponse, error) {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.Internal(err)
		}
		s.metrics.Login("failure")
		return nil, apperrors.Unauthorized(ErrInvalidCredentials)
	}

	if !user.IsActive || s.hasher.Compare(user.PasswordHash, password) != nil {
		s.metrics.Login("failure")
		s.logger.Warn("login failed", "username", username)
		return nil, apperrors.Unauthorized(ErrInvalidCredentials)
	}

	token, expiresAt, err := s.jwtSvc.GenerateAccessToken(user)
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	s.metrics.Login("success")
	return &model.TokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   expiresAt,
	}, nil
}

// Authenticate validates a bearer token and reloads the user behind it.
func (s *Service) Authenticate(ctx context.Context, token string) (*model.Actor, error) {
	claims, err := s.jwtSvc.ValidateToken(token)
	if err != nil {
		return nil, apperrors.Unauthorized(err)
	}

	user, err := s.userRepo.Get(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.Unauthorized(err)
		}
		return nil, apperrors.Internal(err)
	}
	if !user.IsActive {
		return nil, apperrors.Unauthorized(errors.New("user is inactive"))
	}

	return &model.Actor{UserID: user.ID, Username: user.Username, Role: user.Role}, nil
}

// Me returns the user with their clinic, or a nil clinic when unassigned.
func (s *Service) Me(ctx context.Context, userID uuid.UUID) (*model.UserProfile, error) {
	user, err := s.userRepo.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("user", err)
		}
		return nil, apperrors.Internal(err)
	}

	clinic, err := s.clinics.ClinicFor(ctx, userID)
	if err != nil && !apperrors.Is(err, apperrors.ErrNoClinic) {
		return nil, err
	}
	return &model.UserProfile{User: user, Clinic: clinic}, nil
}
