package dto

import (
	"time"

	"github.com/spec-kit/collections-sequencer/internal/domain"
)

// LoginRequest payload.
type LoginRequest struct {
	OperatorID string `json:"operator_id"`
	Secret     string `json:"secret"`
}

// LoginResponse payload.
type LoginResponse struct {
	Token     string              `json:"token"`
	ExpiresAt time.Time           `json:"expires_at"`
	Role      domain.OperatorRole `json:"role"`
}
