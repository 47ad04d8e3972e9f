package domain

import "time"

// AppointmentStatus enumerates lifecycle states for appointments.
type AppointmentStatus string

const (
	AppointmentStatusScheduled AppointmentStatus = "SCHEDULED"
	AppointmentStatusCompleted AppointmentStatus = "COMPLETED"
	AppointmentStatusCanceled  AppointmentStatus = "CANCELED"
	AppointmentStatusNoShow    AppointmentStatus = "NO_SHOW"
)

// Valid reports whether s is a known status.
func (s AppointmentStatus) Valid() bool {
	switch s {
	case AppointmentStatusScheduled, AppointmentStatusCompleted, AppointmentStatusCanceled, AppointmentStatusNoShow:
		return true
	}
	return false
}

// Appointment is a booked slot owned by a club member.
type Appointment struct {
	ID              int64
	ClientID        int64
	ScheduledAt     time.Time
	Tier            MembershipTier
	Status          AppointmentStatus
	ServiceType     string
	Notes           string
	DurationMinutes int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
