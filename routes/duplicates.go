package routes

import (
	"locatrack-backend/controllers"
	"locatrack-backend/utils"

	"github.com/gofiber/fiber/v2"
)

// SetupDuplicateRoutes настраивает маршруты для дубликатов штрихкодов
func SetupDuplicateRoutes(app *fiber.App, duplicateController *controllers.DuplicateController) {
	duplicates := app.Group("/api/duplicates", utils.AuthMiddleware)

	// GET /api/duplicates - записи с повторяющимися штрихкодами (Cache-Control: no-cache пересчитывает)
	duplicates.Get("/", duplicateController.GetDuplicates)

	// DELETE /api/duplicates - сбросить кэш дубликатов
	duplicates.Delete("/", duplicateController.ClearDuplicates)
}
