package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/NadafAyan/BloodShare/internal/api/http/handlers"
	"github.com/NadafAyan/BloodShare/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health  *handlers.HealthHandler
	Donors  *handlers.DonorsHandler
	Admin   *handlers.AdminHandler
	Metrics *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	api := app.Group("/api")

	donors := api.Group("/donors")
	donors.Post("/register", cfg.Donors.Register)
	donors.Get("", cfg.Donors.Search)
	// queue and decision paths used by the older approval page
	donors.Get("/pending", cfg.Admin.Pending)
	donors.Post("/:id/approve", cfg.Admin.LegacyApprove)

	admin := api.Group("/admin/donors")
	admin.Get("", cfg.Admin.Search)
	admin.Get("/pending", cfg.Admin.Pending)
	admin.Get("/:id", cfg.Admin.Get)
	admin.Post("/:id/decision", cfg.Admin.Decide)
	admin.Delete("/:id", cfg.Admin.Delete)
}
