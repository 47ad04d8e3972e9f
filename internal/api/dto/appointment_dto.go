package dto

import (
	"time"

	"github.com/clube-quinze/club-api/internal/domain"
	"github.com/clube-quinze/club-api/internal/repository"
)

// CreateAppointmentRequest payload. A zero ClientID books for the caller.
type CreateAppointmentRequest struct {
	ClientID        int64                 `json:"clientId"`
	ScheduledAt     time.Time             `json:"scheduledAt"`
	Tier            domain.MembershipTier `json:"tier"`
	ServiceType     string                `json:"serviceType"`
	Notes           string                `json:"notes"`
	DurationMinutes int                   `json:"durationMinutes"`
}

// RescheduleRequest payload. Omitted notes are left unchanged.
type RescheduleRequest struct {
	ScheduledAt time.Time `json:"scheduledAt"`
	Notes       *string   `json:"notes"`
}

// StatusUpdateRequest payload.
type StatusUpdateRequest struct {
	Status domain.AppointmentStatus `json:"status"`
	Notes  *string                  `json:"notes"`
}

// AppointmentResponse is the public view of an appointment.
type AppointmentResponse struct {
	ID              int64                    `json:"id"`
	ClientID        int64                    `json:"clientId"`
	ScheduledAt     time.Time                `json:"scheduledAt"`
	Tier            domain.MembershipTier    `json:"tier"`
	Status          domain.AppointmentStatus `json:"status"`
	ServiceType     string                   `json:"serviceType,omitempty"`
	Notes           string                   `json:"notes,omitempty"`
	DurationMinutes int                      `json:"durationMinutes"`
	CreatedAt       time.Time                `json:"createdAt"`
	UpdatedAt       time.Time                `json:"updatedAt"`
}

// AvailabilityResponse lists free slot starts for a day.
type AvailabilityResponse struct {
	Date  string                `json:"date"`
	Tier  domain.MembershipTier `json:"tier"`
	Slots []time.Time           `json:"slots"`
}

// PageMeta describes a page of results.
type PageMeta struct {
	Page          int   `json:"page"`
	Size          int   `json:"size"`
	TotalElements int64 `json:"total_elements"`
	TotalPages    int   `json:"total_pages"`
}

// AppointmentPageResponse is a paginated listing.
type AppointmentPageResponse struct {
	Data []AppointmentResponse `json:"data"`
	Meta PageMeta              `json:"meta"`
}

// NewAppointmentResponse maps a domain appointment.
func NewAppointmentResponse(a *domain.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:              a.ID,
		ClientID:        a.ClientID,
		ScheduledAt:     a.ScheduledAt,
		Tier:            a.Tier,
		Status:          a.Status,
		ServiceType:     a.ServiceType,
		Notes:           a.Notes,
		DurationMinutes: a.DurationMinutes,
		CreatedAt:       a.CreatedAt,
		UpdatedAt:       a.UpdatedAt,
	}
}

// NewAppointmentPageResponse maps a repository page.
func NewAppointmentPageResponse(page repository.AppointmentPage) AppointmentPageResponse {
	items := make([]AppointmentResponse, 0, len(page.Items))
	for i := range page.Items {
		items = append(items, NewAppointmentResponse(&page.Items[i]))
	}
	return AppointmentPageResponse{
		Data: items,
		Meta: PageMeta{
			Page:          page.Page,
			Size:          page.Size,
			TotalElements: page.TotalElements,
			TotalPages:    page.TotalPages,
		},
	}
}
