package events

import (
	"time"

	"github.com/clube-quinze/club-api/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventAppointmentScheduled     EventType = "appointment_scheduled"
	EventAppointmentRescheduled   EventType = "appointment_rescheduled"
	EventAppointmentCanceled      EventType = "appointment_canceled"
	EventAppointmentStatusChanged EventType = "appointment_status_changed"
	EventUserRegistered           EventType = "user_registered"
)

// AppointmentEventTypes lists every event emitted by the appointment lifecycle.
var AppointmentEventTypes = []EventType{
	EventAppointmentScheduled,
	EventAppointmentRescheduled,
	EventAppointmentCanceled,
	EventAppointmentStatusChanged,
}

// Actor identifies who triggered an event.
type Actor struct {
	UserID     int64 `json:"user_id"`
	Privileged bool  `json:"privileged"`
}

// Event represents a domain event emitted after a successful mutation.
type Event struct {
	ID            string    `json:"id"`
	Type          EventType `json:"type"`
	AppointmentID int64     `json:"appointment_id,omitempty"`
	UserID        int64     `json:"user_id"`
	Actor         Actor     `json:"actor"`
	Timestamp     time.Time `json:"timestamp"`
	Payload       any       `json:"payload"`
}

// AppointmentPayload snapshots the appointment after the mutation.
type AppointmentPayload struct {
	ClientID        int64                    `json:"client_id"`
	ScheduledAt     time.Time                `json:"scheduled_at"`
	Tier            domain.MembershipTier    `json:"tier"`
	Status          domain.AppointmentStatus `json:"status"`
	PreviousStatus  domain.AppointmentStatus `json:"previous_status,omitempty"`
	PreviousAt      *time.Time               `json:"previous_scheduled_at,omitempty"`
	DurationMinutes int                      `json:"duration_minutes"`
}

// UserRegisteredPayload carries what the recurring generator needs.
type UserRegisteredPayload struct {
	Tier          domain.MembershipTier `json:"tier"`
	PreferredTime *string               `json:"preferred_time,omitempty"`
}
