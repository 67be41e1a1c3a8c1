package controllers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"locatrack-backend/config"
	"locatrack-backend/models"
	"locatrack-backend/services"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB создает тестовую базу данных в памяти
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, models.Migrate(db))
	return db
}

func ptr[T any](v T) *T {
	return &v
}

// setupTestApp собирает приложение с контроллерами; тенант задается middleware, как в AuthMiddleware
func setupTestApp(t *testing.T, tenantID uint) (*fiber.App, *gorm.DB) {
	t.Helper()

	db := setupTestDB(t)
	log := logrus.New()
	log.SetOutput(io.Discard)

	locations := services.NewLocationService(db)
	sync := services.NewProjectionSync(db, locations, config.MissingLocationFallback, nil, log)
	cache := services.NewMemoryDuplicateCache(services.DefaultDuplicateTTL, nil)
	duplicates := services.NewDuplicateIndex(db, cache, services.DefaultDuplicateTTL, nil, nil, log)
	rebuilder := services.NewProjectionRebuilder(db, sync, services.NewLocalLocker(), nil, log)

	inventoryController := NewInventoryController(
		services.NewInventoryService(db, locations, sync, duplicates, log),
		services.NewRelocationService(db, locations, sync, log),
		services.NewPlacementService(db, locations, duplicates, nil, log),
		log,
	)
	duplicateController := NewDuplicateController(duplicates, log)
	missingItemController := NewMissingItemController(services.NewMissingItemService(db), rebuilder, log)

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("user_id", uint(1))
		c.Locals("tenant_id", tenantID)
		return c.Next()
	})

	app.Get("/api/inventories", inventoryController.GetInventories)
	app.Get("/api/inventories/status-summary", inventoryController.GetStatusSummary)
	app.Post("/api/inventories", inventoryController.CreateInventories)
	app.Patch("/api/inventories/move", inventoryController.MoveInventories)
	app.Patch("/api/inventories/:id", inventoryController.UpdateInventory)
	app.Delete("/api/inventories/:id", inventoryController.DeleteInventory)
	app.Get("/api/duplicates", duplicateController.GetDuplicates)
	app.Delete("/api/duplicates", duplicateController.ClearDuplicates)
	app.Get("/api/missing-items", missingItemController.GetMissingItems)
	app.Get("/api/missing-items/count", missingItemController.GetMissingItemsCount)
	app.Post("/api/missing-items/rebuild", missingItemController.RebuildMissingItems)

	return app, db
}

// doJSON выполняет запрос и декодирует JSON ответ
func doJSON(t *testing.T, app *fiber.App, method, path, body string, headers ...string) (int, map[string]interface{}) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var payload map[string]interface{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &payload), string(raw))
	}
	return resp.StatusCode, payload
}

// seedLocation создает полную цепочку местоположений клиента
func seedLocation(t *testing.T, db *gorm.DB, tenantID uint) models.LocationTuple {
	t.Helper()

	building := models.Building{CustomerID: tenantID, Name: "Корпус"}
	require.NoError(t, db.Create(&building).Error)
	area := models.Area{CustomerID: tenantID, BuildingID: &building.ID, Name: "Склад"}
	require.NoError(t, db.Create(&area).Error)
	floor := models.Floor{CustomerID: tenantID, AreaID: &area.ID, Name: "1 этаж"}
	require.NoError(t, db.Create(&floor).Error)
	detail := models.DetailLocation{CustomerID: tenantID, FloorID: &floor.ID, Name: "Стеллаж"}
	require.NoError(t, db.Create(&detail).Error)

	return models.LocationTuple{
		BuildingID:       &building.ID,
		AreaID:           &area.ID,
		FloorID:          &floor.ID,
		DetailLocationID: &detail.ID,
	}
}
