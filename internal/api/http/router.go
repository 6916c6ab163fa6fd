package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-workflow/internal/api/http/handlers"
	"github.com/spec-kit/ticket-workflow/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Tickets        *handlers.TicketsHandler
	Catalog        *handlers.CatalogHandler
	Admin          *handlers.AdminHandler
	AuthMiddleware *auth.AuthMiddleware
	AdminRoleIDs   []int64
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", cfg.Admin.Metrics)

	api := app.Group("", cfg.AuthMiddleware.Handle)
	api.Get("/statuses", cfg.Catalog.ListStatuses)
	api.Get("/roles", cfg.Catalog.ListRoles)

	tickets := api.Group("/tickets")
	tickets.Get("/:id/transitions", cfg.Tickets.ListTransitions)
	tickets.Post("/:id/transitions", cfg.Tickets.ApplyTransition)
	tickets.Get("/:id/history", cfg.Tickets.ListHistory)

	admin := api.Group("/admin", auth.RequireRole(cfg.AdminRoleIDs...))
	admin.Get("/tickets/inconsistent", cfg.Admin.InconsistentTickets)
}
