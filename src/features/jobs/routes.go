package jobs

import (
	"github.com/gofiber/fiber/v2"
)

// RegisterRoutes registers the routes for the jobs feature.
func RegisterRoutes(app *fiber.App, service *Service) {
	handler := NewHandler(service)

	jobs := app.Group("/jobs")
	jobs.Get("/", handler.GetJobs)
	jobs.Get("/:profile", handler.GetJob)
}
