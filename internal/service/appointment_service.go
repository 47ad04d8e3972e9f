package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/clube-quinze/club-api/internal/domain"
	"github.com/clube-quinze/club-api/internal/events"
	"github.com/clube-quinze/club-api/internal/observability"
	"github.com/clube-quinze/club-api/internal/repository"
	"github.com/clube-quinze/club-api/internal/scheduling"
	apperrors "github.com/clube-quinze/club-api/pkg/errorutil"
)

// BaselineTier is reported by availability queries that name no tier.
const BaselineTier = domain.TierClub15

// AppointmentService is the appointment lifecycle engine.
type AppointmentService struct {
	appointments repository.AppointmentRepository
	users        repository.UserRepository
	conflicts    *ConflictChecker
	dispatcher   events.Dispatcher
	clock        scheduling.Clock
	settings     scheduling.Settings
	logger       *zap.Logger
	metrics      *observability.Metrics
}

// AppointmentDependencies bundles collaborators for the appointment service.
type AppointmentDependencies struct {
	AppointmentRepo repository.AppointmentRepository
	UserRepo        repository.UserRepository
	Dispatcher      events.Dispatcher
	Clock           scheduling.Clock
	Settings        scheduling.Settings
	Logger          *zap.Logger
	Metrics         *observability.Metrics
}

// ScheduleInput describes a booking request. An empty Tier falls back to the
// client's membership tier and a zero duration to the tier's session length.
type ScheduleInput struct {
	ClientID        int64
	ScheduledAt     time.Time
	Tier            domain.MembershipTier
	ServiceType     string
	Notes           string
	DurationMinutes int
}

// RescheduleInput moves an appointment. Nil Notes leaves notes unchanged.
type RescheduleInput struct {
	ScheduledAt time.Time
	Notes       *string
}

// StatusUpdateInput sets an appointment's status. Nil Notes leaves notes unchanged.
type StatusUpdateInput struct {
	ActorID int64
	Status  domain.AppointmentStatus
	Notes   *string
}

// AppointmentQuery filters listings. Dates are club calendar days, both inclusive.
type AppointmentQuery struct {
	Status    *domain.AppointmentStatus
	ClientID  *int64
	StartDate *time.Time
	EndDate   *time.Time
	Page      int
	Size      int
}

// AvailableSlots lists the free slot starts of a day.
type AvailableSlots struct {
	Date  time.Time
	Tier  domain.MembershipTier
	Slots []time.Time
}

// NewAppointmentService wires the service.
func NewAppointmentService(deps AppointmentDependencies) *AppointmentService {
	clock := deps.Clock
	if clock == nil {
		clock = scheduling.SystemClock{}
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AppointmentService{
		appointments: deps.AppointmentRepo,
		users:        deps.UserRepo,
		conflicts:    NewConflictChecker(deps.AppointmentRepo),
		dispatcher:   deps.Dispatcher,
		clock:        clock,
		settings:     deps.Settings,
		logger:       logger,
		metrics:      deps.Metrics,
	}
}

// Settings returns the scheduling configuration in use.
func (s *AppointmentService) Settings() scheduling.Settings {
	return s.settings
}

// GetAvailableSlots returns the free, future slot starts on date. Past dates yield no slots.
func (s *AppointmentService) GetAvailableSlots(ctx context.Context, date time.Time, tier *domain.MembershipTier) (*AvailableSlots, error) {
	effective := BaselineTier
	if tier != nil {
		if !tier.Valid() {
			return nil, apperrors.NewValidationError("unknown membership tier", map[string]any{"tier": *tier})
		}
		effective = *tier
	}

	now := s.clock.Now()
	day := s.settings.Date(date)
	result := &AvailableSlots{Date: day, Tier: effective, Slots: []time.Time{}}
	if day.Before(s.settings.Date(now)) {
		return result, nil
	}

	opening, closing := s.settings.DayBounds(day)
	taken, err := s.conflicts.Occupied(ctx, opening, closing)
	if err != nil {
		return nil, err
	}
	for slot := range s.settings.Slots(day) {
		if !slot.After(now) {
			continue
		}
		if _, busy := taken[slot.UnixNano()]; busy {
			continue
		}
		result.Slots = append(result.Slots, slot)
	}
	return result, nil
}

// Schedule books a new appointment. Non-privileged actors may only book for themselves.
func (s *AppointmentService) Schedule(ctx context.Context, actorID int64, privileged bool, input ScheduleInput) (*domain.Appointment, error) {
	if !privileged && input.ClientID != actorID {
		s.metrics.RecordAppointment("schedule", "forbidden")
		return nil, apperrors.NewForbidden("members may only book appointments for themselves")
	}

	client, err := s.users.GetByID(ctx, input.ClientID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("user", map[string]any{"id": input.ClientID})
		}
		return nil, err
	}
	if !client.Active {
		s.metrics.RecordAppointment("schedule", "rejected")
		return nil, apperrors.NewBusinessError("client account is inactive", map[string]any{"client_id": client.ID})
	}

	tier := input.Tier
	if tier == "" {
		tier = client.MembershipTier
	}
	if !tier.Valid() {
		return nil, apperrors.NewValidationError("unknown membership tier", map[string]any{"tier": tier})
	}
	if tier.Restricted() && !client.MembershipTier.AtLeast(tier) {
		s.metrics.RecordAppointment("schedule", "rejected")
		return nil, apperrors.NewBusinessError("appointment tier is restricted to its members", map[string]any{
			"tier":        tier,
			"client_tier": client.MembershipTier,
		})
	}

	if err := s.validateInstant(ctx, input.ScheduledAt, nil); err != nil {
		s.metrics.RecordAppointment("schedule", "rejected")
		return nil, err
	}

	duration := input.DurationMinutes
	if duration < 0 {
		return nil, apperrors.NewValidationError("duration must be positive", map[string]any{"duration_minutes": duration})
	}
	if duration == 0 {
		duration = tier.SessionMinutes()
	}

	appointment := &domain.Appointment{
		ClientID:        client.ID,
		ScheduledAt:     input.ScheduledAt.UTC(),
		Tier:            tier,
		Status:          domain.AppointmentStatusScheduled,
		ServiceType:     strings.TrimSpace(input.ServiceType),
		Notes:           strings.TrimSpace(input.Notes),
		DurationMinutes: duration,
	}
	if err := s.appointments.Create(ctx, appointment); err != nil {
		if errors.Is(err, repository.ErrSlotTaken) {
			s.metrics.RecordAppointment("schedule", "conflict")
			return nil, slotUnavailable(appointment.ScheduledAt)
		}
		return nil, err
	}

	s.metrics.RecordAppointment("schedule", "ok")
	s.publishEvent(ctx, events.Event{
		Type:          events.EventAppointmentScheduled,
		AppointmentID: appointment.ID,
		UserID:        appointment.ClientID,
		Actor:         events.Actor{UserID: actorID, Privileged: privileged},
		Payload:       appointmentPayload(appointment, "", nil),
	})
	return appointment, nil
}

// Reschedule moves an appointment to a new instant and resets it to SCHEDULED.
func (s *AppointmentService) Reschedule(ctx context.Context, id, actorID int64, privileged bool, input RescheduleInput) (*domain.Appointment, error) {
	appointment, err := s.loadOwned(ctx, id, actorID, privileged)
	if err != nil {
		return nil, err
	}
	if err := s.validateInstant(ctx, input.ScheduledAt, &appointment.ID); err != nil {
		s.metrics.RecordAppointment("reschedule", "rejected")
		return nil, err
	}

	previousStatus := appointment.Status
	previousAt := appointment.ScheduledAt
	appointment.ScheduledAt = input.ScheduledAt.UTC()
	if input.Notes != nil {
		appointment.Notes = strings.TrimSpace(*input.Notes)
	}
	appointment.Status = domain.AppointmentStatusScheduled

	if err := s.appointments.Update(ctx, appointment); err != nil {
		if errors.Is(err, repository.ErrSlotTaken) {
			s.metrics.RecordAppointment("reschedule", "conflict")
			return nil, slotUnavailable(appointment.ScheduledAt)
		}
		return nil, err
	}

	s.metrics.RecordAppointment("reschedule", "ok")
	s.publishEvent(ctx, events.Event{
		Type:          events.EventAppointmentRescheduled,
		AppointmentID: appointment.ID,
		UserID:        appointment.ClientID,
		Actor:         events.Actor{UserID: actorID, Privileged: privileged},
		Payload:       appointmentPayload(appointment, previousStatus, &previousAt),
	})
	return appointment, nil
}

// UpdateStatus sets any status on an appointment. Callers must already hold a privileged role.
func (s *AppointmentService) UpdateStatus(ctx context.Context, id int64, input StatusUpdateInput) (*domain.Appointment, error) {
	if !input.Status.Valid() {
		return nil, apperrors.NewValidationError("unknown appointment status", map[string]any{"status": input.Status})
	}
	appointment, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	previousStatus := appointment.Status
	appointment.Status = input.Status
	if input.Notes != nil {
		appointment.Notes = strings.TrimSpace(*input.Notes)
	}
	if err := s.appointments.Update(ctx, appointment); err != nil {
		return nil, err
	}

	s.metrics.RecordAppointment("update_status", "ok")
	s.publishEvent(ctx, events.Event{
		Type:          events.EventAppointmentStatusChanged,
		AppointmentID: appointment.ID,
		UserID:        appointment.ClientID,
		Actor:         events.Actor{UserID: input.ActorID, Privileged: true},
		Payload:       appointmentPayload(appointment, previousStatus, nil),
	})
	return appointment, nil
}

// Cancel marks an appointment CANCELED. Canceling a canceled appointment succeeds without side effects.
func (s *AppointmentService) Cancel(ctx context.Context, id, actorID int64, privileged bool) (*domain.Appointment, error) {
	appointment, err := s.loadOwned(ctx, id, actorID, privileged)
	if err != nil {
		return nil, err
	}
	if appointment.Status == domain.AppointmentStatusCanceled {
		return appointment, nil
	}

	previousStatus := appointment.Status
	appointment.Status = domain.AppointmentStatusCanceled
	if err := s.appointments.Update(ctx, appointment); err != nil {
		return nil, err
	}

	s.metrics.RecordAppointment("cancel", "ok")
	s.publishEvent(ctx, events.Event{
		Type:          events.EventAppointmentCanceled,
		AppointmentID: appointment.ID,
		UserID:        appointment.ClientID,
		Actor:         events.Actor{UserID: actorID, Privileged: privileged},
		Payload:       appointmentPayload(appointment, previousStatus, nil),
	})
	return appointment, nil
}

// GetAppointment returns one appointment. Non-privileged actors may only read their own.
func (s *AppointmentService) GetAppointment(ctx context.Context, id, actorID int64, privileged bool) (*domain.Appointment, error) {
	return s.loadOwned(ctx, id, actorID, privileged)
}

// GetAppointmentsForUser lists the appointments of one client.
func (s *AppointmentService) GetAppointmentsForUser(ctx context.Context, userID int64, query AppointmentQuery) (repository.AppointmentPage, error) {
	query.ClientID = &userID
	return s.GetAppointments(ctx, query)
}

// GetAppointments searches all appointments.
func (s *AppointmentService) GetAppointments(ctx context.Context, query AppointmentQuery) (repository.AppointmentPage, error) {
	if query.Status != nil && !query.Status.Valid() {
		return repository.AppointmentPage{}, apperrors.NewValidationError("unknown appointment status", map[string]any{"status": *query.Status})
	}
	filter := repository.AppointmentFilter{
		Status:   query.Status,
		ClientID: query.ClientID,
		Page:     query.Page,
		Size:     query.Size,
	}
	if query.StartDate != nil {
		from := s.settings.Date(*query.StartDate)
		filter.From = &from
	}
	if query.EndDate != nil {
		to := s.settings.Date(*query.EndDate).AddDate(0, 0, 1).Add(-time.Nanosecond)
		filter.To = &to
	}
	if filter.From != nil && filter.To != nil && filter.From.After(*filter.To) {
		return repository.AppointmentPage{}, apperrors.NewValidationError("start date must not be after end date", nil)
	}
	return s.appointments.Search(ctx, filter.Normalize())
}

// validateInstant checks that at is a future, in-hours slot start that no other appointment holds.
func (s *AppointmentService) validateInstant(ctx context.Context, at time.Time, excludeID *int64) error {
	if at.IsZero() {
		return apperrors.NewValidationError("scheduled time is required", nil)
	}
	if !at.After(s.clock.Now()) {
		return apperrors.NewBusinessError("appointment must be scheduled in the future", map[string]any{"scheduled_at": at})
	}
	if !s.settings.WithinHours(at) {
		return apperrors.NewBusinessError("appointment is outside business hours", map[string]any{
			"scheduled_at": at,
			"opening":      s.settings.Opening.String(),
			"last_start":   s.settings.LastStart().String(),
		})
	}
	if !s.settings.IsSlotStart(at) {
		return apperrors.NewBusinessError("appointment must start on a slot boundary", map[string]any{
			"scheduled_at": at,
			"slot_minutes": int(s.settings.SlotDuration / time.Minute),
		})
	}
	occupied, err := s.conflicts.IsOccupied(ctx, at, excludeID)
	if err != nil {
		return err
	}
	if occupied {
		return slotUnavailable(at)
	}
	return nil
}

func (s *AppointmentService) load(ctx context.Context, id int64) (*domain.Appointment, error) {
	appointment, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("appointment", map[string]any{"id": id})
		}
		return nil, err
	}
	return appointment, nil
}

func (s *AppointmentService) loadOwned(ctx context.Context, id, actorID int64, privileged bool) (*domain.Appointment, error) {
	appointment, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !privileged && appointment.ClientID != actorID {
		return nil, apperrors.NewForbidden("appointment belongs to another member")
	}
	return appointment, nil
}

// publishEvent runs after the store write has returned. Delivery errors never reach the caller.
func (s *AppointmentService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.clock.Now()
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event delivery failed",
			zap.String("event_type", string(event.Type)),
			zap.Int64("appointment_id", event.AppointmentID),
			zap.Error(err))
	}
}

func slotUnavailable(at time.Time) error {
	return apperrors.NewBusinessError("slot unavailable", map[string]any{"scheduled_at": at})
}

func appointmentPayload(a *domain.Appointment, previous domain.AppointmentStatus, previousAt *time.Time) events.AppointmentPayload {
	return events.AppointmentPayload{
		ClientID:        a.ClientID,
		ScheduledAt:     a.ScheduledAt,
		Tier:            a.Tier,
		Status:          a.Status,
		PreviousStatus:  previous,
		PreviousAt:      previousAt,
		DurationMinutes: a.DurationMinutes,
	}
}
