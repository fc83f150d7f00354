package hosting

import (
	"fmt"
	"log/slog"

	"playtrace/src/features/config"
	"playtrace/src/features/importing"
	"playtrace/src/features/jobs"
	"playtrace/src/features/profiles"
	"playtrace/src/features/stats"
	"playtrace/src/stream"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
)

// Server is the HTTP server for the application.
type Server struct {
	app  *fiber.App
	port uint32
}

// NewServer creates a new HTTP server and registers every feature's routes.
func NewServer(cfg *config.Manager, store stream.Store, importingService *importing.Service, profilesService *profiles.Service, statsService *stats.Service, jobService *jobs.Service, registry *prometheus.Registry) *Server {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			slog.Error("Internal Server Error", "error", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		},
		AppName:               "Playtrace",
		DisableStartupMessage: true,
		EnablePrintRoutes:     cfg.Get().Server.PrintRoutes,
	})

	app.Use(LogAllRequestsMiddleware())
	if cfg.Get().RateLimit.Enabled {
		limiter := NewRateLimiter(rate.Limit(cfg.Get().RateLimit.PerSecond), cfg.Get().RateLimit.Burst)
		app.Use(limiter.Middleware())
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.SendString("OK")
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	importing.RegisterRoutes(app, importingService)
	profiles.RegisterRoutes(app, profilesService)
	stats.RegisterRoutes(app, statsService, store)
	jobs.RegisterRoutes(app, jobService)

	return &Server{app: app, port: cfg.Get().Server.Port}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	return s.app.Listen(":" + fmt.Sprint(s.port))
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
