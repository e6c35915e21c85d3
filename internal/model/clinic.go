package model

import (
	"time"

	"github.com/google/uuid"
)

// Clinic is the tenant. ClinicCode is assigned once on first save and is
// never written again.
type Clinic struct {
	Base
	Name       string `db:"name" json:"name"`
	ClinicCode string `db:"clinic_code" json:"clinic_code"`
}

// Membership links a staff user to exactly one clinic.
type Membership struct {
	UserID    uuid.UUID `db:"user_id" json:"user_id"`
	ClinicID  uuid.UUID `db:"clinic_id" json:"clinic_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type ClinicFilter struct {
	Search string `form:"search"`
}

type ClinicRequest struct {
	Name string `json:"name"`
}

type AssignStaffRequest struct {
	UserID uuid.UUID `json:"user_id" binding:"required"`
}
