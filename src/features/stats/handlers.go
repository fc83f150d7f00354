package stats

import (
	"log/slog"

	"playtrace/src/stream"

	"github.com/gofiber/fiber/v2"
)

// Handler is the handler for the stats feature.
type Handler struct {
	service *Service
	store   stream.Store
}

// NewHandler creates a new handler for the stats feature.
func NewHandler(service *Service, store stream.Store) *Handler {
	return &Handler{service: service, store: store}
}

func (h *Handler) profileID(c *fiber.Ctx) (int64, error) {
	name := c.Params("profile")
	profile, err := h.store.GetProfileByName(c.Context(), name)
	if err != nil {
		slog.Error("Failed to load profile", "profile", name, "error", err)
		return 0, c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to load profile"})
	}
	if profile == nil {
		return 0, c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "profile not found"})
	}
	return profile.ID, nil
}

// GetDaily returns per-date rollups.
func (h *Handler) GetDaily(c *fiber.Ctx) error {
	id, err := h.profileID(c)
	if err != nil || id == 0 {
		return err
	}
	rows, err := h.service.GetDailyStats(c.Context(), id)
	if err != nil {
		slog.Error("Failed to load daily stats", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to load stats"})
	}
	return c.JSON(fiber.Map{"daily": rows})
}

// GetYearly returns per-year rollups.
func (h *Handler) GetYearly(c *fiber.Ctx) error {
	id, err := h.profileID(c)
	if err != nil || id == 0 {
		return err
	}
	rows, err := h.service.GetYearlyStats(c.Context(), id)
	if err != nil {
		slog.Error("Failed to load yearly stats", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to load stats"})
	}
	return c.JSON(fiber.Map{"yearly": rows})
}

// GetCountries returns per-country rollups. Percentages are derived here at
// read time from the stored totals so they never go stale.
func (h *Handler) GetCountries(c *fiber.Ctx) error {
	id, err := h.profileID(c)
	if err != nil || id == 0 {
		return err
	}
	rows, err := h.service.GetCountryStats(c.Context(), id)
	if err != nil {
		slog.Error("Failed to load country stats", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to load stats"})
	}

	total := 0
	for _, row := range rows {
		total += row.TotalPlays
	}
	type countryEntry struct {
		*stream.CountryStats
		Percentage float64 `json:"percentage"`
	}
	entries := make([]countryEntry, 0, len(rows))
	for _, row := range rows {
		pct := 0.0
		if total > 0 {
			pct = float64(row.TotalPlays) / float64(total) * 100
		}
		entries = append(entries, countryEntry{CountryStats: row, Percentage: pct})
	}
	return c.JSON(fiber.Map{"countries": entries, "totalPlays": total})
}

// GetArtists returns per-artist rollups.
func (h *Handler) GetArtists(c *fiber.Ctx) error {
	id, err := h.profileID(c)
	if err != nil || id == 0 {
		return err
	}
	rows, err := h.service.GetArtistStats(c.Context(), id)
	if err != nil {
		slog.Error("Failed to load artist stats", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to load stats"})
	}
	return c.JSON(fiber.Map{"artists": rows})
}
