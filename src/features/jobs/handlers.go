package jobs

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
)

// Handler is the handler for the jobs feature.
type Handler struct {
	service *Service
}

// NewHandler creates a new handler for the jobs feature.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// GetJobs returns every registered import job.
func (h *Handler) GetJobs(c *fiber.Ctx) error {
	slog.Debug("GetJobs handler called")
	return c.JSON(fiber.Map{"jobs": h.service.Jobs()})
}

// GetJob returns the job for one profile.
func (h *Handler) GetJob(c *fiber.Ctx) error {
	profile := c.Params("profile")
	job, ok := h.service.Get(profile)
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "no job for profile"})
	}
	return c.JSON(job)
}
