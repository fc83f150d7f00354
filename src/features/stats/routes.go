package stats

import (
	"playtrace/src/stream"

	"github.com/gofiber/fiber/v2"
)

// RegisterRoutes registers the routes for the stats feature.
func RegisterRoutes(app *fiber.App, service *Service, store stream.Store) {
	handler := NewHandler(service, store)

	stats := app.Group("/stats")
	stats.Get("/:profile/daily", handler.GetDaily)
	stats.Get("/:profile/yearly", handler.GetYearly)
	stats.Get("/:profile/countries", handler.GetCountries)
	stats.Get("/:profile/artists", handler.GetArtists)
}
