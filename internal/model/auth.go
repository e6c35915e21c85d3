package model

import (
	"time"

	"github.com/google/uuid"
)

// AuthRequest types
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// AuthResponse types
type TokenResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Actor is the authenticated identity behind a staff request.
type Actor struct {
	UserID   uuid.UUID
	Username string
	Role     string
}
