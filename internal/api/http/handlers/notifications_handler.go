package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/clube-quinze/club-api/internal/api/dto"
	"github.com/clube-quinze/club-api/internal/auth"
	"github.com/clube-quinze/club-api/internal/service"
	apperrors "github.com/clube-quinze/club-api/pkg/errorutil"
)

// NotificationsHandler manages device registration.
type NotificationsHandler struct {
	push *service.PushNotificationService
}

// NewNotificationsHandler constructs handler.
func NewNotificationsHandler(push *service.PushNotificationService) *NotificationsHandler {
	return &NotificationsHandler{push: push}
}

// RegisterToken POST /notifications/tokens.
func (h *NotificationsHandler) RegisterToken(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.RegisterPushTokenRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	token := strings.TrimSpace(req.Token)
	if token == "" {
		return apperrors.NewValidationError("token required", nil)
	}
	platform := strings.ToLower(strings.TrimSpace(req.Platform))

	record, err := h.push.RegisterToken(c.UserContext(), principal.UserID(), token, platform)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewPushTokenResponse(record)})
}
