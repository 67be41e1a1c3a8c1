package routes

import (
	"locatrack-backend/controllers"
	"locatrack-backend/utils"

	"github.com/gofiber/fiber/v2"
)

// SetupMissingItemRoutes настраивает маршруты для проекции потерянных единиц
func SetupMissingItemRoutes(app *fiber.App, missingItemController *controllers.MissingItemController) {
	missing := app.Group("/api/missing-items", utils.AuthMiddleware)

	missing.Get("/", missingItemController.GetMissingItems)             // GET /api/missing-items - страница потерянных единиц
	missing.Get("/count", missingItemController.GetMissingItemsCount)   // GET /api/missing-items/count - количество
	missing.Post("/rebuild", missingItemController.RebuildMissingItems) // POST /api/missing-items/rebuild - перестроить проекцию
}
