package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/supportdesk/ticket-system/internal/api/http/handlers"
	"github.com/supportdesk/ticket-system/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Tickets        *handlers.TicketsHandler
	AuthMiddleware *auth.Middleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	api := app.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Get("/admins", cfg.AuthMiddleware.Handle, cfg.Auth.Admins)

	tickets := api.Group("/tickets", cfg.AuthMiddleware.Handle)
	tickets.Post("/", cfg.Tickets.Create)
	tickets.Put("/", cfg.Tickets.Update)
	tickets.Post("/comment", cfg.Tickets.AddComment)
	tickets.Get("/all", auth.RequireAdmin(), cfg.Tickets.ListAll)
	tickets.Get("/user/:userId", cfg.Tickets.ListByUser)
	tickets.Get("/:id", cfg.Tickets.GetDetails)
}
