package postgres

import (
	"context"

	"github.com/google/uuid"

	"github.com/jwalitptl/followup-api/internal/model"
	"github.com/jwalitptl/followup-api/internal/repository"
)

type userRepository struct {
	BaseRepository
}

func NewUserRepository(base BaseRepository) repository.UserRepository {
	return &userRepository{base}
}

const userColumns = `id, username, email, password_hash, role, is_active, created_at`

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.ExecContext(ctx, query,
		user.ID,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.Role,
		user.IsActive,
		user.CreatedAt,
	)
	return mapError(err, "create user")
}

func (r *userRepository) Get(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var user model.User
	if err := r.db.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE id = $1`, id); err != nil {
		return nil, mapError(err, "get user")
	}
	return &user, nil
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	var user model.User
	if err := r.db.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE username = $1`, username); err != nil {
		return nil, mapError(err, "get user by username")
	}
	return &user, nil
}

func (r *userRepository) List(ctx context.Context, filter model.UserFilter) ([]*model.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE ($1::text = '' OR username ILIKE $2 OR email ILIKE $2)
		ORDER BY username
	`
	users := []*model.User{}
	if err := r.db.SelectContext(ctx, &users, query, filter.Search, likePattern(filter.Search)); err != nil {
		return nil, mapError(err, "list users")
	}
	return users, nil
}

// Delete relies on ON DELETE SET NULL for followups.created_by and
// ON DELETE CASCADE for clinic_staff.
func (r *userRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return mapError(err, "delete user")
	}
	return expectRows(result, "delete user")
}
