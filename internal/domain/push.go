package domain

import "time"

// PushToken is a device registration for push delivery.
type PushToken struct {
	ID            int64
	UserID        int64
	Token         string
	Platform      string
	LastSuccessAt *time.Time
	InvalidatedAt *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// PushDeliveryStatus records the outcome of a single push attempt.
type PushDeliveryStatus string

const (
	PushDeliverySent   PushDeliveryStatus = "sent"
	PushDeliveryFailed PushDeliveryStatus = "failed"
)

// PushDelivery is the audit record of one push sent to one token.
type PushDelivery struct {
	ID            int64
	TokenID       int64
	UserID        int64
	AppointmentID *int64
	Kind          string
	Title         string
	Body          string
	Data          string
	Status        PushDeliveryStatus
	ErrorMessage  string
	CreatedAt     time.Time
	SentAt        *time.Time
}

// PasswordResetToken is a single-use credential mailed to a user.
type PasswordResetToken struct {
	ID        int64
	UserID    int64
	Token     string
	ExpiresAt time.Time
	UsedAt    *time.Time
	CreatedAt time.Time
}
