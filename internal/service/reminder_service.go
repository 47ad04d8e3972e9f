package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/clube-quinze/club-api/internal/domain"
	"github.com/clube-quinze/club-api/internal/observability"
	"github.com/clube-quinze/club-api/internal/repository"
	"github.com/clube-quinze/club-api/internal/scheduling"
)

// ReminderOffsets are the lead times before an appointment at which reminders go out.
var ReminderOffsets = []time.Duration{24 * time.Hour, 6 * time.Hour, 3 * time.Hour, time.Hour}

// ReminderWindow is the width of each scan and should match the scan interval.
const ReminderWindow = 5 * time.Minute

// ReminderService sends REMINDER notifications ahead of scheduled appointments.
type ReminderService struct {
	appointments repository.AppointmentRepository
	ledger       repository.ReminderLedger
	sender       NotificationDispatcher
	clock        scheduling.Clock
	settings     scheduling.Settings
	logger       *zap.Logger
	metrics      *observability.Metrics
	offsets      []time.Duration
	window       time.Duration
}

// ReminderDependencies bundles collaborators for the reminder scan.
type ReminderDependencies struct {
	AppointmentRepo repository.AppointmentRepository
	Ledger          repository.ReminderLedger
	Sender          NotificationDispatcher
	Clock           scheduling.Clock
	Settings        scheduling.Settings
	Logger          *zap.Logger
	Metrics         *observability.Metrics
}

// NewReminderService builds the service with the default offsets and window.
func NewReminderService(deps ReminderDependencies) *ReminderService {
	clock := deps.Clock
	if clock == nil {
		clock = scheduling.SystemClock{}
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReminderService{
		appointments: deps.AppointmentRepo,
		ledger:       deps.Ledger,
		sender:       deps.Sender,
		clock:        clock,
		settings:     deps.Settings,
		logger:       logger,
		metrics:      deps.Metrics,
		offsets:      ReminderOffsets,
		window:       ReminderWindow,
	}
}

// ScanAndSend notifies clients of SCHEDULED appointments starting in [now+h, now+h+window)
// for each offset h. Each appointment, scheduled instant and offset is claimed once in the ledger.
func (s *ReminderService) ScanAndSend(ctx context.Context) (int, error) {
	now := s.clock.Now()
	sent := 0
	for _, offset := range s.offsets {
		start := now.Add(offset)
		end := start.Add(s.window)
		due, err := s.appointments.ListByScheduledAtRange(ctx, start, end)
		if err != nil {
			return sent, fmt.Errorf("list appointments for %s reminders: %w", offset, err)
		}
		for _, appointment := range due {
			if appointment.Status != domain.AppointmentStatusScheduled {
				continue
			}
			claimed, err := s.ledger.Claim(ctx, appointment.ID, appointment.ScheduledAt, offset)
			if err != nil {
				s.logger.Warn("reminder claim failed", zap.Int64("appointment_id", appointment.ID), zap.Error(err))
				continue
			}
			if !claimed {
				continue
			}
			if err := s.remind(ctx, appointment, offset); err != nil {
				s.logger.Warn("reminder delivery failed",
					zap.Int64("appointment_id", appointment.ID),
					zap.Duration("offset", offset),
					zap.Error(err))
				continue
			}
			s.metrics.RecordReminder(offset)
			sent++
		}
		if err := ctx.Err(); err != nil {
			return sent, err
		}
	}
	return sent, nil
}

func (s *ReminderService) remind(ctx context.Context, appointment domain.Appointment, offset time.Duration) error {
	hours := int(offset / time.Hour)
	body := fmt.Sprintf("You have an appointment on %s (in %dh).",
		s.settings.Local(appointment.ScheduledAt).Format("Mon 02/01/2006 15:04"), hours)
	data := map[string]any{
		"appointmentId": appointment.ID,
		"kind":          "reminder",
		"offset":        fmt.Sprintf("-%dh", hours),
		"scheduledAt":   appointment.ScheduledAt.Format(time.RFC3339),
	}
	return s.sender.SendToUser(ctx, appointment.ClientID, NotificationReminder, "Appointment reminder", body, data)
}
