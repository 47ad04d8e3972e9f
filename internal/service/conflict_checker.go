package service

import (
	"context"
	"time"

	"github.com/clube-quinze/club-api/internal/repository"
)

// ConflictChecker answers slot occupancy questions against the appointment store.
// Every appointment holds its instant regardless of status.
type ConflictChecker struct {
	appointments repository.AppointmentRepository
}

// NewConflictChecker builds a checker.
func NewConflictChecker(appointments repository.AppointmentRepository) *ConflictChecker {
	return &ConflictChecker{appointments: appointments}
}

// IsOccupied reports whether an appointment other than excludeID sits at at.
func (c *ConflictChecker) IsOccupied(ctx context.Context, at time.Time, excludeID *int64) (bool, error) {
	return c.appointments.ExistsAtInstant(ctx, at, excludeID)
}

// Occupied returns the set of occupied instants in [start, end), keyed by UnixNano.
func (c *ConflictChecker) Occupied(ctx context.Context, start, end time.Time) (map[int64]struct{}, error) {
	items, err := c.appointments.ListByScheduledAtRange(ctx, start, end)
	if err != nil {
		return nil, err
	}
	taken := make(map[int64]struct{}, len(items))
	for _, appointment := range items {
		taken[appointment.ScheduledAt.UnixNano()] = struct{}{}
	}
	return taken, nil
}
