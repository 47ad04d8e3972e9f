package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/clube-quinze/club-api/internal/api/dto"
	"github.com/clube-quinze/club-api/internal/auth"
	"github.com/clube-quinze/club-api/internal/domain"
	"github.com/clube-quinze/club-api/internal/repository"
	"github.com/clube-quinze/club-api/internal/scheduling"
	"github.com/clube-quinze/club-api/internal/service"
	apperrors "github.com/clube-quinze/club-api/pkg/errorutil"
)

// AppointmentsHandler exposes booking endpoints.
type AppointmentsHandler struct {
	service *service.AppointmentService
}

// NewAppointmentsHandler constructs handler.
func NewAppointmentsHandler(appointmentService *service.AppointmentService) *AppointmentsHandler {
	return &AppointmentsHandler{service: appointmentService}
}

// Availability GET /appointments/availability?date=YYYY-MM-DD&tier=.
func (h *AppointmentsHandler) Availability(c *fiber.Ctx) error {
	raw := c.Query("date")
	if raw == "" {
		return apperrors.NewValidationError("date required", nil)
	}
	date, err := h.service.Settings().ParseDate(raw)
	if err != nil {
		return apperrors.NewValidationError("date must be YYYY-MM-DD", map[string]any{"date": raw})
	}
	var tier *domain.MembershipTier
	if value := strings.TrimSpace(c.Query("tier")); value != "" {
		t := domain.MembershipTier(strings.ToUpper(value))
		tier = &t
	}

	slots, err := h.service.GetAvailableSlots(c.UserContext(), date, tier)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.AvailabilityResponse{
		Date:  slots.Date.Format(time.DateOnly),
		Tier:  slots.Tier,
		Slots: slots.Slots,
	}})
}

// Create POST /appointments.
func (h *AppointmentsHandler) Create(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.CreateAppointmentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	clientID := req.ClientID
	if clientID == 0 {
		clientID = principal.UserID()
	}

	appointment, err := h.service.Schedule(c.UserContext(), principal.UserID(), principal.Privileged(), service.ScheduleInput{
		ClientID:        clientID,
		ScheduledAt:     req.ScheduledAt,
		Tier:            req.Tier,
		ServiceType:     req.ServiceType,
		Notes:           req.Notes,
		DurationMinutes: req.DurationMinutes,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewAppointmentResponse(appointment)})
}

// ListMine GET /appointments/me.
func (h *AppointmentsHandler) ListMine(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	query, err := h.parseQuery(c, false)
	if err != nil {
		return err
	}
	page, err := h.service.GetAppointmentsForUser(c.UserContext(), principal.UserID(), query)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewAppointmentPageResponse(page))
}

// List GET /appointments.
func (h *AppointmentsHandler) List(c *fiber.Ctx) error {
	query, err := h.parseQuery(c, true)
	if err != nil {
		return err
	}
	page, err := h.service.GetAppointments(c.UserContext(), query)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewAppointmentPageResponse(page))
}

// Get GET /appointments/:id.
func (h *AppointmentsHandler) Get(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	appointment, err := h.service.GetAppointment(c.UserContext(), id, principal.UserID(), principal.Privileged())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewAppointmentResponse(appointment)})
}

// Reschedule PUT /appointments/:id/reschedule.
func (h *AppointmentsHandler) Reschedule(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req dto.RescheduleRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	appointment, err := h.service.Reschedule(c.UserContext(), id, principal.UserID(), principal.Privileged(), service.RescheduleInput{
		ScheduledAt: req.ScheduledAt,
		Notes:       req.Notes,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewAppointmentResponse(appointment)})
}

// UpdateStatus PATCH /appointments/:id/status.
func (h *AppointmentsHandler) UpdateStatus(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req dto.StatusUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Status == "" {
		return apperrors.NewValidationError("status required", nil)
	}
	appointment, err := h.service.UpdateStatus(c.UserContext(), id, service.StatusUpdateInput{
		ActorID: principal.UserID(),
		Status:  domain.AppointmentStatus(strings.ToUpper(string(req.Status))),
		Notes:   req.Notes,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewAppointmentResponse(appointment)})
}

// Cancel DELETE /appointments/:id.
func (h *AppointmentsHandler) Cancel(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if _, err := h.service.Cancel(c.UserContext(), id, principal.UserID(), principal.Privileged()); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

func (h *AppointmentsHandler) parseQuery(c *fiber.Ctx, allowClient bool) (service.AppointmentQuery, error) {
	var query service.AppointmentQuery
	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		status := domain.AppointmentStatus(strings.ToUpper(raw))
		query.Status = &status
	}
	if allowClient {
		if raw := c.Query("clientId"); raw != "" {
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil || id <= 0 {
				return query, apperrors.NewValidationError("clientId must be a positive integer", map[string]any{"clientId": raw})
			}
			query.ClientID = &id
		}
	}
	settings := h.service.Settings()
	var err error
	if query.StartDate, err = dateQuery(c, settings, "startDate"); err != nil {
		return query, err
	}
	if query.EndDate, err = dateQuery(c, settings, "endDate"); err != nil {
		return query, err
	}
	if query.Page, err = intQuery(c, "page", 0); err != nil {
		return query, err
	}
	if query.Page > repository.MaxPage {
		return query, apperrors.NewValidationError("page is out of range", map[string]any{"page": query.Page, "max": repository.MaxPage})
	}
	if query.Size, err = intQuery(c, "size", 20); err != nil {
		return query, err
	}
	return query, nil
}

func pathID(c *fiber.Ctx) (int64, error) {
	raw := c.Params("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewValidationError("id must be a positive integer", map[string]any{"id": raw})
	}
	return id, nil
}

func dateQuery(c *fiber.Ctx, settings scheduling.Settings, name string) (*time.Time, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	date, err := settings.ParseDate(raw)
	if err != nil {
		return nil, apperrors.NewValidationError(name+" must be YYYY-MM-DD", map[string]any{name: raw})
	}
	return &date, nil
}

func intQuery(c *fiber.Ctx, name string, def int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, apperrors.NewValidationError(name+" must be a non-negative integer", map[string]any{name: raw})
	}
	return n, nil
}
