package model

import (
	"time"

	"github.com/google/uuid"
)

// Base contains common fields for all models
type Base struct {
	ID        uuid.UUID `json:"id" db:"id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Timestamps adds an auto-refreshed update time on top of Base
type Timestamps struct {
	Base
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
