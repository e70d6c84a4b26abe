package router

import (
	"time"

	"github.com/gofiber/contrib/v3/swagger"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	_ "github.com/chuanghiduoc/progress-mailer/docs"
	"github.com/chuanghiduoc/progress-mailer/internal/middleware"
)

func SetupRoutes(app *fiber.App, deps Deps) {
	cfg := deps.Config

	// Global middleware
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORS.Origins(),
		AllowMethods:     cfg.CORS.Methods(),
		AllowHeaders:     cfg.CORS.Headers(),
		AllowCredentials: cfg.CORS.AllowCredentials,
	}))
	app.Use(middleware.SecurityHeaders(cfg.App.Env))
	app.Use(middleware.RequestID())
	app.Use(middleware.Metrics())
	app.Use(middleware.Logger("/healthz", "/readyz", "/metrics"))
	app.Use(middleware.Recovery(cfg.App.Env))
	app.Use(middleware.Timeout(time.Duration(cfg.App.RequestTimeout) * time.Second))

	// Swagger
	swaggerHandler := swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "swagger",
		Title:    "Progress Mailer API",
	})
	app.Get("/swagger*", swaggerHandler)

	// Health check
	app.Get("/healthz", func(c fiber.Ctx) error {
		return c.JSON(deps.Health.Liveness())
	})
	app.Get("/readyz", func(c fiber.Ctx) error {
		status := deps.Health.Readiness(c.Context())
		if status.Status != "up" {
			return c.Status(fiber.StatusServiceUnavailable).JSON(status)
		}
		return c.JSON(status)
	})

	// Prometheus metrics endpoint
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// API v1
	RegisterV1Routes(app.Group("/api/v1"), deps)
}
