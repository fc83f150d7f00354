package importing

import (
	"github.com/gofiber/fiber/v2"
)

// RegisterRoutes registers the routes for the importing feature.
func RegisterRoutes(app *fiber.App, service *Service) {
	handler := NewHandler(service)

	imports := app.Group("/import")
	imports.Post("/:profile/start", handler.StartImport)
	imports.Get("/:profile/progress", handler.GetProgress)
	imports.Get("/:profile/percentage", handler.GetPercentage)
	imports.Post("/:profile/cancel", handler.Cancel)
}
