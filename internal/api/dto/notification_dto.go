package dto

import (
	"time"

	"github.com/clube-quinze/club-api/internal/domain"
)

// RegisterPushTokenRequest payload.
type RegisterPushTokenRequest struct {
	Token    string `json:"token"`
	Platform string `json:"platform"`
}

// PushTokenResponse describes a registered device.
type PushTokenResponse struct {
	ID        int64     `json:"id"`
	Token     string    `json:"token"`
	Platform  string    `json:"platform,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewPushTokenResponse maps a domain push token.
func NewPushTokenResponse(token *domain.PushToken) PushTokenResponse {
	return PushTokenResponse{
		ID:        token.ID,
		Token:     token.Token,
		Platform:  token.Platform,
		CreatedAt: token.CreatedAt,
	}
}
