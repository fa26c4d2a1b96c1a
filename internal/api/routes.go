package api

import (
	"encoding/base64"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tysonq/taxmate/internal/config"
)

func SetupRoutes(app *fiber.App, handler *Handler, cfg *config.Config) {
	app.Use(RequestID())
	app.Use(ErrorHandler())

	// Health checks and metrics skip rate limiting.
	app.Get("/health", handler.HealthCheck)
	app.Get("/ready", handler.ReadinessCheck)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	v1 := app.Group("/api/v1")
	v1.Use(RateLimiter())
	v1.Use(PrometheusMiddleware())

	v1.Get("/gains/:fy", handler.GetGains)
	v1.Get("/deductions/:fy", handler.GetDeductions)
	v1.Get("/summary/:fy", handler.GetSummary)

	admin := v1.Group("/admin")
	admin.Use(BasicAuth(cfg.AdminUser, cfg.AdminPassword))
	admin.Delete("/cache/:pattern", handler.InvalidateCache)
	admin.Get("/stats", handler.GetSystemStats)
}

func BasicAuth(user, password string) fiber.Handler {
	expected := "Basic " + base64.StdEncoding.EncodeToString([]byte(user+":"+password))
	return func(c *fiber.Ctx) error {
		auth := c.Get("Authorization")
		if auth != expected {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Unauthorized",
			})
		}
		return c.Next()
	}
}
