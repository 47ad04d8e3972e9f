package dto

import (
	"time"

	"github.com/clube-quinze/club-api/internal/domain"
	"github.com/clube-quinze/club-api/internal/scheduling"
)

// RegisterRequest payload for new members.
type RegisterRequest struct {
	Name                     string                `json:"name"`
	Email                    string                `json:"email"`
	Password                 string                `json:"password"`
	Phone                    string                `json:"phone"`
	MembershipTier           domain.MembershipTier `json:"membershipTier"`
	PreferredAppointmentTime *scheduling.TimeOfDay `json:"preferredAppointmentTime"`
}

// LoginRequest payload for login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// PasswordResetRequest payload for initiating reset.
type PasswordResetRequest struct {
	Email string `json:"email"`
}

// PasswordResetConfirmRequest payload for confirming reset.
type PasswordResetConfirmRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

// PasswordChangeRequest payload for authenticated password changes.
type PasswordChangeRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// UserResponse is the public view of an account.
type UserResponse struct {
	ID                       int64                 `json:"id"`
	Name                     string                `json:"name"`
	Email                    string                `json:"email"`
	Phone                    string                `json:"phone,omitempty"`
	Role                     domain.Role           `json:"role"`
	MembershipTier           domain.MembershipTier `json:"membershipTier"`
	Active                   bool                  `json:"active"`
	PreferredAppointmentTime *scheduling.TimeOfDay `json:"preferredAppointmentTime,omitempty"`
}

// SessionResponse pairs the user with an access token.
type SessionResponse struct {
	User UserResponse `json:"user"`
	Auth AuthResponse `json:"auth"`
}

// NewUserResponse maps a domain user.
func NewUserResponse(user *domain.User) UserResponse {
	return UserResponse{
		ID:                       user.ID,
		Name:                     user.Name,
		Email:                    user.Email,
		Phone:                    user.Phone,
		Role:                     user.Role,
		MembershipTier:           user.MembershipTier,
		Active:                   user.Active,
		PreferredAppointmentTime: user.PreferredAppointmentTime,
	}
}
