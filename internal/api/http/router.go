package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/collections-sequencer/internal/api/http/handlers"
	"github.com/spec-kit/collections-sequencer/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Sequences      *handlers.SequencesHandler
	Admin          *handlers.AdminHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/health/stats", cfg.Health.Stats)

	app.Post("/auth/operators/login", cfg.Auth.Login)

	sequences := app.Group("/sequences", cfg.AuthMiddleware.Handle, auth.RequireRole())
	sequences.Post("/", cfg.Sequences.Create)
	sequences.Get("/", cfg.Sequences.List)
	sequences.Get("/:id", cfg.Sequences.Get)
	sequences.Post("/:id/pause", cfg.Sequences.Pause)
	sequences.Post("/:id/resume", cfg.Sequences.Resume)
	sequences.Post("/:id/escalate", cfg.Sequences.Escalate)
	sequences.Post("/:id/payments", cfg.Sequences.RecordPayment)
	sequences.Post("/:id/steps/:offset/response", cfg.Sequences.RecordStepResponse)

	admin := app.Group("/admin", cfg.AuthMiddleware.Handle, auth.RequireAdmin())
	admin.Post("/ticks/run", cfg.Admin.RunTicks)
}
