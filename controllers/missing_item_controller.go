package controllers

import (
	"locatrack-backend/services"
	"locatrack-backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// MissingItemController обрабатывает HTTP запросы для проекции потерянных единиц
type MissingItemController struct {
	missing   *services.MissingItemService
	rebuilder *services.ProjectionRebuilder
	log       *logrus.Logger
}

// NewMissingItemController создает новый контроллер потерянных единиц
func NewMissingItemController(missing *services.MissingItemService, rebuilder *services.ProjectionRebuilder, log *logrus.Logger) *MissingItemController {
	return &MissingItemController{
		missing:   missing,
		rebuilder: rebuilder,
		log:       log,
	}
}

// GetMissingItems возвращает страницу потерянных единиц
func (c *MissingItemController) GetMissingItems(ctx *fiber.Ctx) error {
	page, err := c.missing.List(
		ctx.UserContext(),
		utils.TenantID(ctx),
		queryInt(ctx, "page", 1),
		queryInt(ctx, "limit", 20),
		ctx.Query("search"),
	)
	if err != nil {
		return respondError(ctx, c.log, "MissingItemController.GetMissingItems", "Failed to fetch missing items", err)
	}

	return ctx.JSON(fiber.Map{
		"success":      true,
		"missingItems": page.MissingItems,
		"pagination":   page.Pagination,
	})
}

// GetMissingItemsCount возвращает количество потерянных единиц
func (c *MissingItemController) GetMissingItemsCount(ctx *fiber.Ctx) error {
	count, err := c.missing.Count(ctx.UserContext(), utils.TenantID(ctx))
	if err != nil {
		return respondError(ctx, c.log, "MissingItemController.GetMissingItemsCount", "Failed to count missing items", err)
	}

	return ctx.JSON(fiber.Map{
		"success": true,
		"count":   count,
	})
}

// RebuildMissingItems перестраивает проекцию клиента по текущим статусам записей
func (c *MissingItemController) RebuildMissingItems(ctx *fiber.Ctx) error {
	report, err := c.rebuilder.RebuildTenant(ctx.UserContext(), utils.TenantID(ctx))
	if err != nil {
		return respondError(ctx, c.log, "MissingItemController.RebuildMissingItems", "Failed to rebuild missing items", err)
	}

	return ctx.JSON(fiber.Map{
		"success": true,
		"report":  report,
	})
}
