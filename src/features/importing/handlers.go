package importing

import (
	"errors"
	"log/slog"

	"playtrace/src/features/jobs"

	"github.com/gofiber/fiber/v2"
)

// Handler is the handler for the importing feature.
type Handler struct {
	service *Service
}

// NewHandler creates a new handler for the importing feature.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// StartImport kicks off a background import for the profile and returns the
// acknowledgment immediately.
func (h *Handler) StartImport(c *fiber.Ctx) error {
	profile := c.Params("profile")
	slog.Debug("StartImport handler called", "profile", profile)

	result, err := h.service.StartImport(c.Context(), profile)
	if err != nil {
		slog.Error("Failed to start import", "profile", profile, "error", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}
	return c.Status(fiber.StatusAccepted).JSON(result)
}

// GetProgress returns the full progress entry for the profile's import.
func (h *Handler) GetProgress(c *fiber.Ctx) error {
	profile := c.Params("profile")
	job, ok := h.service.GetProgress(profile)
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "no import for profile"})
	}
	return c.JSON(progressResponse(job))
}

// GetPercentage returns overall progress as an integer 0-100.
func (h *Handler) GetPercentage(c *fiber.Ctx) error {
	profile := c.Params("profile")
	pct, ok := h.service.GetProgressPercentage(profile)
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "no import for profile"})
	}
	return c.JSON(fiber.Map{"percentage": pct})
}

// Cancel marks the profile's running import as cancelled.
func (h *Handler) Cancel(c *fiber.Ctx) error {
	profile := c.Params("profile")
	if err := h.service.Cancel(profile); err != nil {
		status := fiber.StatusConflict
		if errors.Is(err, jobs.ErrJobNotFound) {
			status = fiber.StatusNotFound
		}
		return c.Status(status).JSON(fiber.Map{"success": false, "error": err.Error()})
	}
	return c.JSON(fiber.Map{"success": true})
}

// progressResponse shapes a job snapshot for polling clients.
func progressResponse(job jobs.Job) fiber.Map {
	return fiber.Map{
		"running":              job.Running(),
		"status":               job.Status,
		"currentFile":          job.CurrentFile,
		"currentFileIndex":     job.CurrentFileIndex,
		"totalFiles":           job.TotalFiles,
		"fileRecordsProcessed": job.FileRecordsProcessed,
		"fileRecordsTotal":     job.FileRecordsTotal,
		"filesCompleted":       job.FilesCompleted,
		"recordsProcessed":     job.RecordsProcessed,
		"estimatedRecords":     job.EstimatedRecords,
		"startedAt":            job.StartedAt,
		"updatedAt":            job.UpdatedAt,
		"error":                job.Error,
		"stats":                job.Stats,
		"liveStatistics":       job.LiveStatistics,
	}
}
