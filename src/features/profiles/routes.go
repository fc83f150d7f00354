package profiles

import (
	"github.com/gofiber/fiber/v2"
)

// RegisterRoutes registers the routes for the profiles feature.
func RegisterRoutes(app *fiber.App, service *Service) {
	handler := NewHandler(service)

	prof := app.Group("/profiles")
	prof.Get("/", handler.GetProfiles)
	prof.Get("/:name", handler.GetProfile)
	prof.Post("/:name/statistics", handler.RefreshStatistics)
	prof.Delete("/:id", handler.ClearProfile)

	library := app.Group("/library")
	library.Get("/artists", handler.GetArtists)
	library.Get("/:name/plays", handler.GetPlays)
}
