package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/clube-quinze/club-api/internal/domain"
	"github.com/clube-quinze/club-api/internal/events"
	"github.com/clube-quinze/club-api/internal/notify"
	"github.com/clube-quinze/club-api/internal/observability"
	"github.com/clube-quinze/club-api/internal/repository"
	"github.com/clube-quinze/club-api/internal/scheduling"
)

// NotificationKind tags a notification for clients and delivery records.
type NotificationKind string

const (
	NotificationScheduled   NotificationKind = "SCHEDULED"
	NotificationRescheduled NotificationKind = "RESCHEDULED"
	NotificationCancelled   NotificationKind = "CANCELLED"
	NotificationReminder    NotificationKind = "REMINDER"
)

// NotificationDispatcher delivers a notification to every channel of a user.
type NotificationDispatcher interface {
	SendToUser(ctx context.Context, userID int64, kind NotificationKind, title, body string, data map[string]any) error
}

// PushNotificationService fans a notification out to the user's devices and, when configured, email.
type PushNotificationService struct {
	tokens     repository.PushTokenRepository
	deliveries repository.PushDeliveryRepository
	users      repository.UserRepository
	push       notify.PushSender
	email      notify.EmailSender
	clock      scheduling.Clock
	logger     *zap.Logger
	metrics    *observability.Metrics
}

// PushDependencies bundles collaborators for push delivery.
type PushDependencies struct {
	TokenRepo    repository.PushTokenRepository
	DeliveryRepo repository.PushDeliveryRepository
	UserRepo     repository.UserRepository
	Push         notify.PushSender
	Email        notify.EmailSender
	Clock        scheduling.Clock
	Logger       *zap.Logger
	Metrics      *observability.Metrics
}

// NewPushNotificationService builds the service. Email is optional.
func NewPushNotificationService(deps PushDependencies) *PushNotificationService {
	push := deps.Push
	if push == nil {
		push = notify.NoopPushSender{}
	}
	clock := deps.Clock
	if clock == nil {
		clock = scheduling.SystemClock{}
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PushNotificationService{
		tokens:     deps.TokenRepo,
		deliveries: deps.DeliveryRepo,
		users:      deps.UserRepo,
		push:       push,
		email:      deps.Email,
		clock:      clock,
		logger:     logger,
		metrics:    deps.Metrics,
	}
}

// RegisterToken binds a device token to a user.
func (p *PushNotificationService) RegisterToken(ctx context.Context, userID int64, token, platform string) (*domain.PushToken, error) {
	record := &domain.PushToken{UserID: userID, Token: token, Platform: platform}
	if err := p.tokens.Upsert(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

// SendToUser pushes to every active token of userID and records one delivery per token.
// Tokens Expo reports as unregistered are invalidated.
func (p *PushNotificationService) SendToUser(ctx context.Context, userID int64, kind NotificationKind, title, body string, data map[string]any) error {
	var errs []error
	if err := p.sendPush(ctx, userID, kind, title, body, data); err != nil {
		errs = append(errs, err)
	}
	if err := p.sendEmail(ctx, userID, kind, title, body); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (p *PushNotificationService) sendPush(ctx context.Context, userID int64, kind NotificationKind, title, body string, data map[string]any) error {
	tokens, err := p.tokens.ListActiveByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("list push tokens: %w", err)
	}
	if len(tokens) == 0 {
		return nil
	}

	messages := make([]notify.PushMessage, len(tokens))
	for i, token := range tokens {
		messages[i] = notify.PushMessage{To: token.Token, Title: title, Body: body, Data: data}
	}

	results, sendErr := p.push.SendBatch(ctx, messages)
	if sendErr != nil {
		results = make([]notify.PushResult, len(tokens))
		for i := range results {
			results[i] = notify.PushResult{Status: "error", Message: sendErr.Error()}
		}
	}

	encoded := encodeData(data)
	appointmentID := appointmentIDFrom(data)
	now := p.clock.Now()
	var errs []error
	if sendErr != nil {
		errs = append(errs, fmt.Errorf("send push batch: %w", sendErr))
	}
	for i, token := range tokens {
		result := results[i]
		delivery := &domain.PushDelivery{
			TokenID:       token.ID,
			UserID:        userID,
			AppointmentID: appointmentID,
			Kind:          string(kind),
			Title:         title,
			Body:          body,
			Data:          encoded,
			Status:        domain.PushDeliveryFailed,
			ErrorMessage:  result.Message,
		}
		if result.OK {
			sentAt := now
			delivery.Status = domain.PushDeliverySent
			delivery.SentAt = &sentAt
			if err := p.tokens.MarkSuccess(ctx, token.ID, now); err != nil {
				errs = append(errs, err)
			}
		} else if result.DeviceGone() {
			if err := p.tokens.Invalidate(ctx, token.ID, now); err != nil {
				errs = append(errs, err)
			} else {
				p.logger.Info("push token invalidated", zap.Int64("token_id", token.ID), zap.Int64("user_id", userID))
			}
		}
		if err := p.deliveries.Create(ctx, delivery); err != nil {
			errs = append(errs, err)
		}
		p.metrics.RecordNotification("push", string(kind), string(delivery.Status))
	}
	return errors.Join(errs...)
}

func (p *PushNotificationService) sendEmail(ctx context.Context, userID int64, kind NotificationKind, title, body string) error {
	if p.email == nil || p.users == nil {
		return nil
	}
	user, err := p.users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("load user for email: %w", err)
	}
	if user.Email == "" {
		return nil
	}
	if err := p.email.Send(ctx, user.Email, title, body); err != nil {
		p.metrics.RecordNotification("email", string(kind), "failed")
		return fmt.Errorf("send email: %w", err)
	}
	p.metrics.RecordNotification("email", string(kind), "sent")
	return nil
}

func encodeData(data map[string]any) string {
	if len(data) == 0 {
		return ""
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return ""
	}
	return string(raw)
}

func appointmentIDFrom(data map[string]any) *int64 {
	switch v := data["appointmentId"].(type) {
	case int64:
		return &v
	case int:
		id := int64(v)
		return &id
	case float64:
		id := int64(v)
		return &id
	}
	return nil
}

// NotificationService translates appointment events into user notifications.
type NotificationService struct {
	dispatcher events.Dispatcher
	sender     NotificationDispatcher
	settings   scheduling.Settings
	logger     *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, sender NotificationDispatcher, settings scheduling.Settings, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: dispatcher,
		sender:     sender,
		settings:   settings,
		logger:     logger,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil || n.sender == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventAppointmentScheduled, n.handleScheduled)
	n.dispatcher.Subscribe(events.EventAppointmentRescheduled, n.handleRescheduled)
	n.dispatcher.Subscribe(events.EventAppointmentCanceled, n.handleCanceled)
	n.dispatcher.Subscribe(events.EventAppointmentStatusChanged, n.handleStatusChanged)
}

func (n *NotificationService) handleScheduled(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.AppointmentPayload)
	if !ok {
		return nil
	}
	body := fmt.Sprintf("Your appointment is booked for %s.", n.when(payload.ScheduledAt))
	return n.send(ctx, event, NotificationScheduled, "Appointment confirmed", body, payload)
}

func (n *NotificationService) handleRescheduled(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.AppointmentPayload)
	if !ok {
		return nil
	}
	body := fmt.Sprintf("Your appointment was moved to %s.", n.when(payload.ScheduledAt))
	return n.send(ctx, event, NotificationRescheduled, "Appointment rescheduled", body, payload)
}

func (n *NotificationService) handleCanceled(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.AppointmentPayload)
	if !ok {
		return nil
	}
	body := fmt.Sprintf("Your appointment on %s was canceled.", n.when(payload.ScheduledAt))
	return n.send(ctx, event, NotificationCancelled, "Appointment canceled", body, payload)
}

func (n *NotificationService) handleStatusChanged(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.AppointmentPayload)
	if !ok || payload.Status != domain.AppointmentStatusCanceled {
		return nil
	}
	return n.handleCanceled(ctx, event)
}

func (n *NotificationService) send(ctx context.Context, event events.Event, kind NotificationKind, title, body string, payload events.AppointmentPayload) error {
	data := map[string]any{
		"appointmentId": event.AppointmentID,
		"scheduledAt":   payload.ScheduledAt.Format(time.RFC3339),
	}
	if err := n.sender.SendToUser(ctx, payload.ClientID, kind, title, body, data); err != nil {
		n.logger.Warn("appointment notification failed",
			zap.String("kind", string(kind)),
			zap.Int64("appointment_id", event.AppointmentID),
			zap.Int64("user_id", payload.ClientID),
			zap.Error(err))
		return err
	}
	n.logger.Debug("appointment notification sent",
		zap.String("kind", string(kind)),
		zap.Int64("appointment_id", event.AppointmentID))
	return nil
}

func (n *NotificationService) when(at time.Time) string {
	return n.settings.Local(at).Format("Mon 02/01/2006 15:04")
}
