package controllers

import (
	"locatrack-backend/models"
	"locatrack-backend/services"
	"locatrack-backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// InventoryController обрабатывает HTTP запросы для записей инвентаря
type InventoryController struct {
	inventories *services.InventoryService
	relocation  *services.RelocationService
	placement   *services.PlacementService
	log         *logrus.Logger
}

// NewInventoryController создает новый контроллер инвентаря
func NewInventoryController(inventories *services.InventoryService, relocation *services.RelocationService, placement *services.PlacementService, log *logrus.Logger) *InventoryController {
	return &InventoryController{
		inventories: inventories,
		relocation:  relocation,
		placement:   placement,
		log:         log,
	}
}

// MoveInventoriesRequest тело запроса перемещения
type MoveInventoriesRequest struct {
	InventoryIDs []uint                `json:"inventoryIds" validate:"required,min=1,dive,gt=0"`
	LocationData *models.LocationTuple `json:"locationData" validate:"required"`
}

// PlacementItemRequest товар для размещения
type PlacementItemRequest struct {
	ID         uint  `json:"id" validate:"required,gt=0"`
	CategoryID *uint `json:"category_id" validate:"omitempty,gt=0"`
}

// CreateInventoriesRequest тело запроса размещения товаров
type CreateInventoriesRequest struct {
	Items        []PlacementItemRequest `json:"items" validate:"required,min=1,dive"`
	LocationData models.LocationTuple   `json:"locationData"`
}

// UpdateInventoryRequest тело запроса частичного изменения записи
type UpdateInventoryRequest struct {
	PurchaseDate   *string               `json:"purchase_date" validate:"omitempty,max=120"`
	LastDate       *string               `json:"last_date" validate:"omitempty,max=120"`
	RefClient      *string               `json:"ref_client" validate:"omitempty,max=120"`
	Status         *int                  `json:"status" validate:"omitempty,min=0,max=4"`
	RegDate        *string               `json:"reg_date" validate:"omitempty,max=120"`
	InvDate        *string               `json:"inv_date" validate:"omitempty,max=120"`
	Comment        *string               `json:"comment" validate:"omitempty,max=120"`
	RFID           *string               `json:"rfid" validate:"omitempty,max=120"`
	Barcode        *string               `json:"barcode" validate:"omitempty,max=120"`
	RoomAssignment *string               `json:"room_assignment" validate:"omitempty,max=120"`
	PurchaseAmount *decimal.Decimal      `json:"purchase_amount"`
	IsThrow        *bool                 `json:"is_throw"`
	ItemID         *uint                 `json:"item_id" validate:"omitempty,gt=0"`
	CategoryID     *uint                 `json:"category_id" validate:"omitempty,gt=0"`
	LocationData   *models.LocationTuple `json:"locationData"`
}

func (r *UpdateInventoryRequest) patch() services.InventoryPatch {
	return services.InventoryPatch{
		PurchaseDate:   r.PurchaseDate,
		LastDate:       r.LastDate,
		RefClient:      r.RefClient,
		Status:         r.Status,
		RegDate:        r.RegDate,
		InvDate:        r.InvDate,
		Comment:        r.Comment,
		RFID:           r.RFID,
		Barcode:        r.Barcode,
		RoomAssignment: r.RoomAssignment,
		PurchaseAmount: r.PurchaseAmount,
		IsThrow:        r.IsThrow,
		ItemID:         r.ItemID,
		CategoryID:     r.CategoryID,
		Location:       r.LocationData,
	}
}

// GetInventories возвращает записи клиента с фильтрами по местоположению
func (c *InventoryController) GetInventories(ctx *fiber.Ctx) error {
	filter := services.InventoryFilter{
		Barcode:  ctx.Query("barcode_search"),
		Page:     queryInt(ctx, "page", 1),
		PageSize: queryInt(ctx, "pageSize", 20),
	}

	var err error
	if filter.BuildingID, err = queryUint(ctx, "building_id"); err != nil {
		return badRequest(ctx, "Invalid building_id")
	}
	if filter.AreaID, err = queryUint(ctx, "area_id"); err != nil {
		return badRequest(ctx, "Invalid area_id")
	}
	if filter.FloorID, err = queryUint(ctx, "floor_id"); err != nil {
		return badRequest(ctx, "Invalid floor_id")
	}
	if filter.DetailLocationID, err = queryUint(ctx, "detail_location_id"); err != nil {
		return badRequest(ctx, "Invalid detail_location_id")
	}

	page, err := c.inventories.List(ctx.UserContext(), utils.TenantID(ctx), filter)
	if err != nil {
		return respondError(ctx, c.log, "InventoryController.GetInventories", "Failed to fetch inventories", err)
	}

	return ctx.JSON(fiber.Map{
		"success":     true,
		"inventories": page.Inventories,
		"total":       page.Total,
		"page":        page.Page,
		"pageSize":    page.PageSize,
	})
}

// GetStatusSummary возвращает количество записей по статусам
func (c *InventoryController) GetStatusSummary(ctx *fiber.Ctx) error {
	summary, err := c.inventories.StatusSummary(ctx.UserContext(), utils.TenantID(ctx))
	if err != nil {
		return respondError(ctx, c.log, "InventoryController.GetStatusSummary", "Failed to fetch status summary", err)
	}

	return ctx.JSON(fiber.Map{
		"success":      true,
		"statusCounts": summary.StatusCounts,
		"total":        summary.Total,
	})
}

// CreateInventories размещает товары в заданном месте
func (c *InventoryController) CreateInventories(ctx *fiber.Ctx) error {
	var req CreateInventoriesRequest
	if err := utils.ParseBody(ctx, &req); err != nil {
		return badRequest(ctx, err.Error())
	}

	items := make([]services.PlacementItem, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, services.PlacementItem{ItemID: it.ID, CategoryID: it.CategoryID})
	}

	result, err := c.placement.Place(ctx.UserContext(), utils.TenantID(ctx), items, req.LocationData)
	if err != nil {
		return respondError(ctx, c.log, "InventoryController.CreateInventories", "Failed to create inventories", err)
	}

	return ctx.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success":      true,
		"createdCount": result.CreatedCount,
		"skippedCount": result.SkippedCount,
	})
}

// MoveInventories перемещает записи в новое местоположение
func (c *InventoryController) MoveInventories(ctx *fiber.Ctx) error {
	var req MoveInventoriesRequest
	if err := utils.ParseBody(ctx, &req); err != nil {
		return badRequest(ctx, err.Error())
	}

	result, err := c.relocation.Move(ctx.UserContext(), utils.TenantID(ctx), req.InventoryIDs, *req.LocationData)
	if err != nil {
		return respondError(ctx, c.log, "InventoryController.MoveInventories", "Failed to move inventories", err)
	}

	return ctx.JSON(fiber.Map{
		"success":      true,
		"updatedCount": result.UpdatedCount,
		"projection":   result.Projection,
	})
}

// UpdateInventory частично изменяет запись
func (c *InventoryController) UpdateInventory(ctx *fiber.Ctx) error {
	id, ok := parseID(ctx, "id")
	if !ok {
		return badRequest(ctx, "Invalid inventory ID")
	}

	var req UpdateInventoryRequest
	if err := utils.ParseBody(ctx, &req); err != nil {
		return badRequest(ctx, err.Error())
	}

	result, err := c.inventories.Update(ctx.UserContext(), utils.TenantID(ctx), id, req.patch())
	if err != nil {
		return respondError(ctx, c.log, "InventoryController.UpdateInventory", "Failed to update inventory", err)
	}

	return ctx.JSON(fiber.Map{
		"success":    true,
		"inventory":  result.Inventory,
		"projection": result.Projection.Report(),
	})
}

// DeleteInventory удаляет запись
func (c *InventoryController) DeleteInventory(ctx *fiber.Ctx) error {
	id, ok := parseID(ctx, "id")
	if !ok {
		return badRequest(ctx, "Invalid inventory ID")
	}

	result, err := c.inventories.Delete(ctx.UserContext(), utils.TenantID(ctx), id)
	if err != nil {
		return respondError(ctx, c.log, "InventoryController.DeleteInventory", "Failed to delete inventory", err)
	}

	return ctx.JSON(fiber.Map{
		"success":    true,
		"message":    "Inventory deleted successfully",
		"projection": result.Projection.Report(),
	})
}
