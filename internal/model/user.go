package model

import (
	"github.com/google/uuid"
)

// User roles
const (
	RoleStaff    = "staff"
	RoleOperator = "operator"
)

// User represents a staff or operator identity
type User struct {
	Base
	Username     string `json:"username" db:"username"`
	Email        string `json:"email" db:"email"`
	PasswordHash string `json:"-" db:"password_hash"`
	Role         string `json:"role" db:"role"`
	IsActive     bool   `json:"is_active" db:"is_active"`
}

func (u *User) IsOperator() bool {
	return u.Role == RoleOperator
}

type CreateUserRequest struct {
	Username string     `json:"username" validate:"required,min=3,max=150"`
	Email    string     `json:"email" validate:"omitempty,email"`
	Password string     `json:"password" validate:"required,min=8"`
	Role     string     `json:"role" validate:"omitempty,oneof=staff operator"`
	ClinicID *uuid.UUID `json:"clinic_id"`
}

type UserFilter struct {
	Search string `form:"search"`
}

// UserProfile is a user with their clinic, if any.
type UserProfile struct {
	User   *User   `json:"user"`
	Clinic *Clinic `json:"clinic"`
}
