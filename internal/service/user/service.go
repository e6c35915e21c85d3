package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/followup-api/internal/model"
	"github.com/jwalitptl/followup-api/internal/repository"
	apperrors "github.com/jwalitptl/followup-api/pkg/errors"
	"github.com/jwalitptl/followup-api/pkg/logger"
	"github.com/jwalitptl/followup-api/pkg/security"
	"github.com/jwalitptl/followup-api/pkg/validator"
)

type UserServicer interface {
	CreateUser(ctx context.Context, req model.CreateUserRequest) (*model.User, error)
	GetUser(ctx context.Context, id uuid.UUID) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	ListUsers(ctx context.Context, filter model.UserFilter) ([]*model.User, error)
	DeleteUser(ctx context.Context, id uuid.UUID) error
}

// StaffAssigner links a new user to a clinic.
type StaffAssigner interface {
	AssignStaff(ctx context.Context, clinicID, userID uuid.UUID) (*model.Membership, error)
}

type Service struct {
	repo      repository.UserRepository
	clinics   StaffAssigner
	hasher    security.PasswordHasher
	validator validator.Validator
	logger    *logger.Logger
}

func NewService(repo repository.UserRepository, clinics StaffAssigner, hasher security.PasswordHasher, v validator.Validator, log *logger.Logger) *Service {
	return &Service{
		repo:      repo,
		clinics:   clinics,
		hasher:    hasher,
		validator: v,
		logger:    log,
	}
}

// CreateUser stores a new user and, when ClinicID is set, assigns them to
// that clinic. If the assignment fails the user is removed again.
func (s *Service) CreateUser(ctx context.Context, req model.CreateUserRequest) (*model.User, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	if req.Role == "" {
		req.Role = model.RoleStaff
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		if errors.Is(err, security.ErrPasswordTooShort) {
			return nil, apperrors.Validation("password", err.Error())
		}
		return nil, apperrors.Internal(err)
	}

	user := &model.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         req.Role,
		IsActive:     true,
	}
	user.ID = uuid.New()
	user.CreatedAt = time.Now()

	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.Conflict("username is already taken", err)
		}
		return nil, apperrors.Internal(fmt.Errorf("failed to create user: %w", err))
	}

	if req.ClinicID != nil {
		if _, err := s.clinics.AssignStaff(ctx, *req.ClinicID, user.ID); err != nil {
			if delErr := s.repo.Delete(ctx, user.ID); delErr != nil {
				s.logger.Error(delErr, "failed to roll back user", "user_id", user.ID.String())
			}
			return nil, err
		}
	}

	s.logger.Info("user created", "user_id", user.ID.String(), "username", user.Username, "role", user.Role)
	return user, nil
}

func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (*model.User, error) {
	user, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, translate(err)
	}
	return user, nil
}

func (s *Service) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	user, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		return nil, translate(err)
	}
	return user, nil
}

func (s *Service) ListUsers(ctx context.Context, filter model.UserFilter) ([]*model.User, error) {
	users, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("failed to list users: %w", err))
	}
	return users, nil
}

// DeleteUser removes the user and their membership. Their follow-ups stay
// with no creator.
func (s *Service) DeleteUser(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return translate(err)
	}
	s.logger.Info("user deleted", "user_id", id.String())
	return nil
}

func translate(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NotFound("user", err)
	}
	return apperrors.Internal(err)
}
