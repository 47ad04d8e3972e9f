// Package memory provides in-process repositories used when no database is
// configured and by tests. They honor the same contracts as the Postgres ones.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/clube-quinze/club-api/internal/domain"
	"github.com/clube-quinze/club-api/internal/repository"
)

// AppointmentStore keeps appointments in a map guarded by a mutex.
type AppointmentStore struct {
	mu     sync.RWMutex
	nextID int64
	byID   map[int64]domain.Appointment
}

// NewAppointmentStore returns an empty store.
func NewAppointmentStore() *AppointmentStore {
	return &AppointmentStore{byID: make(map[int64]domain.Appointment)}
}

var _ repository.AppointmentRepository = (*AppointmentStore)(nil)

func (s *AppointmentStore) Create(_ context.Context, appointment *domain.Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.occupiedLocked(appointment.ScheduledAt, 0) {
		return repository.ErrSlotTaken
	}
	s.nextID++
	now := time.Now().UTC()
	appointment.ID = s.nextID
	appointment.CreatedAt = now
	appointment.UpdatedAt = now
	s.byID[appointment.ID] = *appointment
	return nil
}

func (s *AppointmentStore) Update(_ context.Context, appointment *domain.Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.byID[appointment.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	if s.occupiedLocked(appointment.ScheduledAt, appointment.ID) {
		return repository.ErrSlotTaken
	}
	appointment.CreatedAt = existing.CreatedAt
	appointment.UpdatedAt = time.Now().UTC()
	s.byID[appointment.ID] = *appointment
	return nil
}

func (s *AppointmentStore) GetByID(_ context.Context, id int64) (*domain.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	appointment, ok := s.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &appointment, nil
}

func (s *AppointmentStore) ListByScheduledAtRange(_ context.Context, start, end time.Time) ([]domain.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Appointment
	for _, appointment := range s.byID {
		if !appointment.ScheduledAt.Before(start) && appointment.ScheduledAt.Before(end) {
			out = append(out, appointment)
		}
	}
	sortAppointments(out)
	return out, nil
}

func (s *AppointmentStore) ExistsAtInstant(_ context.Context, at time.Time, excludeID *int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var exclude int64
	if excludeID != nil {
		exclude = *excludeID
	}
	return s.occupiedLocked(at, exclude), nil
}

func (s *AppointmentStore) Search(_ context.Context, filter repository.AppointmentFilter) (repository.AppointmentPage, error) {
	filter = filter.Normalize()
	s.mu.RLock()
	var matched []domain.Appointment
	for _, appointment := range s.byID {
		if filter.Status != nil && appointment.Status != *filter.Status {
			continue
		}
		if filter.ClientID != nil && appointment.ClientID != *filter.ClientID {
			continue
		}
		if filter.From != nil && appointment.ScheduledAt.Before(*filter.From) {
			continue
		}
		if filter.To != nil && appointment.ScheduledAt.After(*filter.To) {
			continue
		}
		matched = append(matched, appointment)
	}
	s.mu.RUnlock()

	sortAppointments(matched)
	total := int64(len(matched))
	start := filter.Page * filter.Size
	if start > len(matched) {
		start = len(matched)
	}
	end := start + filter.Size
	if end > len(matched) {
		end = len(matched)
	}
	return repository.NewAppointmentPage(matched[start:end], filter.Page, filter.Size, total), nil
}

// Len returns the number of stored appointments.
func (s *AppointmentStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

// occupiedLocked ignores status: a canceled appointment still holds its instant.
func (s *AppointmentStore) occupiedLocked(at time.Time, excludeID int64) bool {
	for id, appointment := range s.byID {
		if id != excludeID && appointment.ScheduledAt.Equal(at) {
			return true
		}
	}
	return false
}

func sortAppointments(items []domain.Appointment) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].ScheduledAt.Equal(items[j].ScheduledAt) {
			return items[i].ID < items[j].ID
		}
		return items[i].ScheduledAt.Before(items[j].ScheduledAt)
	})
}
