package profiles

import (
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v2"
)

// Handler is the handler for the profiles feature.
type Handler struct {
	service *Service
}

// NewHandler creates a new handler for the profiles feature.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Pagination represents pagination information for list responses.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalCount int `json:"totalCount"`
	TotalPages int `json:"totalPages"`
}

// NewPagination creates a Pagination with calculated values. A limit below 1
// is clamped so page math never divides by zero.
func NewPagination(page, limit, totalCount int) Pagination {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageLimit
	}
	return Pagination{
		Page:       page,
		Limit:      limit,
		TotalCount: totalCount,
		TotalPages: (totalCount + limit - 1) / limit,
	}
}

const defaultPageLimit = 50

// pageParams reads and sanitizes the page/limit query parameters.
func pageParams(c *fiber.Ctx) (page, limit int) {
	page = c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}
	limit = c.QueryInt("limit", defaultPageLimit)
	if limit < 1 {
		limit = defaultPageLimit
	}
	return page, limit
}

// GetProfiles lists every profile with statistics.
func (h *Handler) GetProfiles(c *fiber.Ctx) error {
	slog.Debug("GetProfiles handler called")
	profiles, err := h.service.GetProfiles(c.Context())
	if err != nil {
		slog.Error("Error loading profiles", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to load profiles"})
	}
	return c.JSON(fiber.Map{"profiles": profiles})
}

// GetProfile returns one profile by name.
func (h *Handler) GetProfile(c *fiber.Ctx) error {
	name := c.Params("name")
	profile, err := h.service.GetProfile(c.Context(), name)
	if err != nil {
		slog.Error("Error loading profile", "profile", name, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to load profile"})
	}
	if profile == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "profile not found"})
	}
	return c.JSON(profile)
}

// RefreshStatistics recomputes the profile's summary counters on demand.
func (h *Handler) RefreshStatistics(c *fiber.Ctx) error {
	name := c.Params("name")
	profile, err := h.service.RefreshStatistics(c.Context(), name)
	if err != nil {
		slog.Error("Error refreshing statistics", "profile", name, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "error": err.Error()})
	}
	if profile == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "profile not found"})
	}
	return c.JSON(profile)
}

// ClearProfile deletes a profile, its facts and rollups, then prunes
// orphaned dimension rows best-effort.
func (h *Handler) ClearProfile(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "error": "invalid profile id"})
	}
	failedSteps, err := h.service.ClearProfile(c.Context(), id)
	if err != nil {
		slog.Error("Error clearing profile", "id", id, "error", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "error": err.Error()})
	}
	return c.JSON(fiber.Map{"success": true, "failedCleanupSteps": failedSteps})
}

// GetArtists lists artists, optionally filtered by a search query.
func (h *Handler) GetArtists(c *fiber.Ctx) error {
	page, limit := pageParams(c)
	query := c.Query("q")

	offset := (page - 1) * limit
	artists, total, err := h.service.SearchArtists(c.Context(), query, limit, offset)
	if err != nil {
		slog.Error("Error loading artists", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to load artists"})
	}
	return c.JSON(fiber.Map{
		"artists":    artists,
		"pagination": NewPagination(page, limit, total),
	})
}

// GetPlays lists a profile's plays, paginated.
func (h *Handler) GetPlays(c *fiber.Ctx) error {
	name := c.Params("name")
	page, limit := pageParams(c)

	offset := (page - 1) * limit
	plays, total, err := h.service.GetPlays(c.Context(), name, limit, offset)
	if err != nil {
		slog.Error("Error loading plays", "profile", name, "error", err)
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{
		"plays":      plays,
		"pagination": NewPagination(page, limit, total),
	})
}
