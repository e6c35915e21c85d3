package model

import (
	"time"

	"github.com/google/uuid"
)

// PublicViewLog is an append-only record of one public disclosure.
type PublicViewLog struct {
	ID         uuid.UUID `db:"id" json:"id"`
	FollowUpID uuid.UUID `db:"followup_id" json:"followup_id"`
	ViewedAt   time.Time `db:"viewed_at" json:"viewed_at"`
	UserAgent  *string   `db:"user_agent" json:"user_agent,omitempty"`
	IPAddress  *string   `db:"ip_address" json:"ip_address,omitempty"`
}

// ViewLogEntry is a view log joined with its follow-up's patient name.
type ViewLogEntry struct {
	PublicViewLog
	PatientName string `db:"patient_name" json:"patient_name"`
}

type ViewLogFilter struct {
	Search string `form:"search"`
}
