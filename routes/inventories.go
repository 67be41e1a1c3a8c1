package routes

import (
	"locatrack-backend/controllers"
	"locatrack-backend/utils"

	"github.com/gofiber/fiber/v2"
)

// SetupInventoryRoutes настраивает маршруты для записей инвентаря
func SetupInventoryRoutes(app *fiber.App, inventoryController *controllers.InventoryController) {
	inventories := app.Group("/api/inventories", utils.AuthMiddleware)

	inventories.Get("/", inventoryController.GetInventories)                 // GET /api/inventories - список записей
	inventories.Get("/status-summary", inventoryController.GetStatusSummary) // GET /api/inventories/status-summary - количество по статусам
	inventories.Post("/", inventoryController.CreateInventories)             // POST /api/inventories - разместить товары в месте
	inventories.Patch("/move", inventoryController.MoveInventories)          // PATCH /api/inventories/move - переместить записи
	inventories.Patch("/:id", inventoryController.UpdateInventory)           // PATCH /api/inventories/:id - изменить запись
	inventories.Delete("/:id", inventoryController.DeleteInventory)          // DELETE /api/inventories/:id - удалить запись
}
