package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/clube-quinze/club-api/internal/domain"
	"github.com/clube-quinze/club-api/internal/events"
	"github.com/clube-quinze/club-api/internal/observability"
	"github.com/clube-quinze/club-api/internal/repository"
	"github.com/clube-quinze/club-api/internal/scheduling"
)

const recurringNotes = "automatic recurring booking"

// RecurringResult summarizes one generated series.
type RecurringResult struct {
	Created []domain.Appointment
	Skipped int
}

// RecurringService books the series a new member receives at registration.
// It only drives AppointmentService.Schedule.
type RecurringService struct {
	appointments *AppointmentService
	users        repository.UserRepository
	dispatcher   events.Dispatcher
	clock        scheduling.Clock
	settings     scheduling.Settings
	logger       *zap.Logger
	metrics      *observability.Metrics
}

// NewRecurringService builds the generator on top of the lifecycle engine.
func NewRecurringService(appointments *AppointmentService, users repository.UserRepository, dispatcher events.Dispatcher, logger *zap.Logger, metrics *observability.Metrics) *RecurringService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RecurringService{
		appointments: appointments,
		users:        users,
		dispatcher:   dispatcher,
		clock:        appointments.clock,
		settings:     appointments.settings,
		logger:       logger,
		metrics:      metrics,
	}
}

// RegisterHandlers starts a series for every registered member.
func (r *RecurringService) RegisterHandlers() {
	if r.dispatcher == nil {
		return
	}
	r.dispatcher.Subscribe(events.EventUserRegistered, r.handleUserRegistered)
}

func (r *RecurringService) handleUserRegistered(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.UserRegisteredPayload)
	if !ok {
		return nil
	}
	user, err := r.users.GetByID(ctx, event.UserID)
	if err != nil {
		return err
	}
	var preferred *scheduling.TimeOfDay
	if payload.PreferredTime != nil {
		parsed, err := scheduling.ParseTimeOfDay(*payload.PreferredTime)
		if err == nil {
			preferred = &parsed
		}
	}
	_, err = r.ScheduleForNewUser(ctx, user, payload.Tier, preferred, r.settings.RecurringMonths)
	return err
}

// FirstOccurrence is the earliest instant at the aligned time that is strictly after now.
func (r *RecurringService) FirstOccurrence(preferred *scheduling.TimeOfDay) time.Time {
	aligned := r.settings.Align(preferred)
	now := r.clock.Now()
	day := r.settings.Date(now)
	first := aligned.On(day)
	for !first.After(now) {
		day = day.AddDate(0, 0, 1)
		first = aligned.On(day)
	}
	return first
}

// ScheduleForNewUser books every occurrence from the first one up to months later.
// A failed booking is logged and skipped; only context cancellation stops the series.
func (r *RecurringService) ScheduleForNewUser(ctx context.Context, user *domain.User, tier domain.MembershipTier, preferred *scheduling.TimeOfDay, months int) (RecurringResult, error) {
	var result RecurringResult
	if user == nil || tier == "" || months <= 0 {
		return result, nil
	}

	first := r.FirstOccurrence(preferred)
	horizon := first.AddDate(0, months, 0)
	step := 7 * tier.RecurrenceWeeks()
	duration := tier.SessionMinutes()

	for cursor := first; cursor.Before(horizon); cursor = cursor.AddDate(0, 0, step) {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		appointment, err := r.appointments.Schedule(ctx, user.ID, false, ScheduleInput{
			ClientID:        user.ID,
			ScheduledAt:     cursor,
			Tier:            tier,
			Notes:           recurringNotes,
			DurationMinutes: duration,
		})
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return result, ctxErr
			}
			result.Skipped++
			r.logger.Warn("recurring booking skipped",
				zap.Int64("user_id", user.ID),
				zap.Time("slot", cursor),
				zap.Error(err))
			continue
		}
		result.Created = append(result.Created, *appointment)
	}

	r.metrics.RecordRecurring("created", len(result.Created))
	r.metrics.RecordRecurring("skipped", result.Skipped)
	r.logger.Info("recurring series generated",
		zap.Int64("user_id", user.ID),
		zap.String("tier", string(tier)),
		zap.Int("created", len(result.Created)),
		zap.Int("skipped", result.Skipped))
	return result, nil
}
