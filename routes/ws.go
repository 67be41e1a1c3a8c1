package routes

import (
	"locatrack-backend/services"
	"locatrack-backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// SetupWebSocketRoutes настраивает WebSocket маршрут для событий проекции
func SetupWebSocketRoutes(app *fiber.App, hub *services.Hub) {
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	// GET /ws?token=... - подписка на события клиента
	app.Get("/ws", utils.AuthMiddleware, websocket.New(hub.HandleWebSocket))
}
