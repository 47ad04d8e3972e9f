package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/clube-quinze/club-api/internal/api/http/handlers"
	"github.com/clube-quinze/club-api/internal/auth"
	"github.com/clube-quinze/club-api/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Appointments   *handlers.AppointmentsHandler
	Notifications  *handlers.NotificationsHandler
	AuthMiddleware *auth.AuthMiddleware
	BookingLimit   fiber.Handler
	Metrics        *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	v1 := app.Group("/api/v1")

	authGroup := v1.Group("/auth")
	authGroup.Post("/register", cfg.Users.Register)
	authGroup.Post("/login", cfg.Users.Login)
	authGroup.Post("/forgot-password", cfg.Users.RequestPasswordReset)
	authGroup.Post("/reset-password", cfg.Users.ConfirmPasswordReset)
	authGroup.Post("/change-password", cfg.AuthMiddleware.Handle, auth.RequireUser(), cfg.Users.ChangePassword)

	users := v1.Group("/users", cfg.AuthMiddleware.Handle, auth.RequireUser())
	users.Get("/me", cfg.Users.Me)

	bookingLimit := cfg.BookingLimit
	if bookingLimit == nil {
		bookingLimit = func(c *fiber.Ctx) error { return c.Next() }
	}

	appointments := v1.Group("/appointments", cfg.AuthMiddleware.Handle, auth.RequireUser())
	appointments.Get("/availability", cfg.Appointments.Availability)
	appointments.Post("", bookingLimit, cfg.Appointments.Create)
	appointments.Get("/me", cfg.Appointments.ListMine)
	appointments.Get("", auth.RequirePrivileged(), cfg.Appointments.List)
	appointments.Get("/:id", cfg.Appointments.Get)
	appointments.Put("/:id/reschedule", bookingLimit, cfg.Appointments.Reschedule)
	appointments.Patch("/:id/status", auth.RequirePrivileged(), cfg.Appointments.UpdateStatus)
	appointments.Delete("/:id", cfg.Appointments.Cancel)

	notifications := v1.Group("/notifications", cfg.AuthMiddleware.Handle, auth.RequireUser())
	notifications.Post("/tokens", cfg.Notifications.RegisterToken)
}
