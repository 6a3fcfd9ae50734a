package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/gema-teaching-api/internal/config"
	"github.com/noah-isme/gema-teaching-api/internal/handler"
	"github.com/noah-isme/gema-teaching-api/internal/middleware"
	"github.com/noah-isme/gema-teaching-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	TeachingLearningHandler *handler.TeachingLearningHandler
	BoardSessionHandler     *handler.TeachingLearningSessionHandler
	AdminActivityHandler    *handler.AdminActivityHandler
	SeedHandler             *handler.SeedHandler
	HealthProbes            map[string]handler.HealthProbe
	JWTMiddleware           fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.HealthProbes))

	app.Get("/metrics", observability.MetricsHandler())

	// Use provided JWT middleware, or a no-op if nil
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	teaching := app.Group("/api/v2/teaching-learning", jwtMiddleware, middleware.RequireRole(middleware.RoleTeacher, middleware.RoleAdmin))
	// /ws before /:id
	if deps.BoardSessionHandler != nil {
		deps.BoardSessionHandler.Register(teaching)
	}
	if deps.TeachingLearningHandler != nil {
		deps.TeachingLearningHandler.Register(teaching)
	}

	if deps.AdminActivityHandler != nil {
		admin := app.Group("/api/v2/admin", jwtMiddleware, middleware.RequireRole(middleware.RoleAdmin))
		deps.AdminActivityHandler.Register(admin.Group("/activity-logs"))
	}

	// token-guarded, outside the jwt chain
	if deps.SeedHandler != nil {
		deps.SeedHandler.Register(app.Group("/api/v2/seed"))
	}
}
