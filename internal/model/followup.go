package model

import (
	"github.com/google/uuid"
)

type Language string

const (
	LanguageEnglish Language = "en"
	LanguageHindi   Language = "hi"
)

func (l Language) Valid() bool {
	return l == LanguageEnglish || l == LanguageHindi
}

type FollowUpStatus string

const (
	FollowUpStatusPending FollowUpStatus = "pending"
	FollowUpStatusDone    FollowUpStatus = "done"
)

func (s FollowUpStatus) Valid() bool {
	return s == FollowUpStatusPending || s == FollowUpStatusDone
}

// FollowUp is a patient follow-up owned by one clinic. ClinicID, CreatedBy
// and PublicToken are fixed at creation.
type FollowUp struct {
	Timestamps
	ClinicID    uuid.UUID      `db:"clinic_id" json:"clinic_id"`
	CreatedBy   *uuid.UUID     `db:"created_by" json:"created_by,omitempty"`
	PatientName string         `db:"patient_name" json:"patient_name"`
	Phone       string         `db:"phone" json:"phone"`
	Language    Language       `db:"language" json:"language"`
	Notes       *string        `db:"notes" json:"notes,omitempty"`
	DueDate     Date           `db:"due_date" json:"due_date"`
	Status      FollowUpStatus `db:"status" json:"status"`
	PublicToken string         `db:"public_token" json:"public_token"`
}

// FollowUpWithViews annotates a follow-up with its public view count.
type FollowUpWithViews struct {
	FollowUp
	ViewCount int `db:"view_count" json:"view_count"`
}

// FollowUpInput carries the editable fields of a follow-up.
type FollowUpInput struct {
	PatientName string   `json:"patient_name" validate:"required,max=255"`
	Phone       string   `json:"phone" validate:"required,max=20,hasdigit"`
	Language    Language `json:"language" validate:"required,language"`
	DueDate     Date     `json:"due_date" validate:"required"`
	Notes       *string  `json:"notes"`
}

// FollowUpFilter narrows a clinic listing. Nil fields are not applied;
// date bounds are inclusive.
type FollowUpFilter struct {
	Status  *FollowUpStatus
	DueFrom *Date
	DueTo   *Date
}

// FollowUpSummary holds dashboard counts over a filtered listing.
type FollowUpSummary struct {
	Total   int `json:"total_count"`
	Pending int `json:"pending_count"`
	Done    int `json:"done_count"`
}

func Summarize(items []*FollowUpWithViews) FollowUpSummary {
	summary := FollowUpSummary{Total: len(items)}
	for _, item := range items {
		switch item.Status {
		case FollowUpStatusPending:
			summary.Pending++
		case FollowUpStatusDone:
			summary.Done++
		}
	}
	return summary
}

// AdminFollowUpFilter is the cross-tenant operator search.
type AdminFollowUpFilter struct {
	Search   string
	Status   *FollowUpStatus
	ClinicID *uuid.UUID
	Language *Language
}
