package controllers

import (
	"strings"

	"locatrack-backend/services"
	"locatrack-backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// DuplicateController обрабатывает HTTP запросы для дубликатов штрихкодов
type DuplicateController struct {
	index *services.DuplicateIndex
	log   *logrus.Logger
}

// NewDuplicateController создает новый контроллер дубликатов
func NewDuplicateController(index *services.DuplicateIndex, log *logrus.Logger) *DuplicateController {
	return &DuplicateController{index: index, log: log}
}

// noCache сообщает, что клиент явно запросил свежие данные
func noCache(ctx *fiber.Ctx) bool {
	return strings.Contains(strings.ToLower(ctx.Get(fiber.HeaderCacheControl)), "no-cache") ||
		strings.Contains(strings.ToLower(ctx.Get(fiber.HeaderPragma)), "no-cache")
}

// GetDuplicates возвращает записи клиента с повторяющимися штрихкодами
func (c *DuplicateController) GetDuplicates(ctx *fiber.Ctx) error {
	tenantID := utils.TenantID(ctx)

	var (
		set    *services.DuplicateSet
		cached bool
		err    error
	)
	if noCache(ctx) {
		set, err = c.index.Refresh(ctx.UserContext(), tenantID)
	} else {
		set, cached, err = c.index.Get(ctx.UserContext(), tenantID)
	}
	if err != nil {
		return respondError(ctx, c.log, "DuplicateController.GetDuplicates", "Failed to fetch duplicates", err)
	}

	return ctx.JSON(fiber.Map{
		"success":    true,
		"duplicates": set.Records,
		"groups":     set.Groups,
		"cached":     cached,
		"computedAt": set.ComputedAt,
	})
}

// ClearDuplicates сбрасывает кэш дубликатов клиента
func (c *DuplicateController) ClearDuplicates(ctx *fiber.Ctx) error {
	if err := c.index.Invalidate(ctx.UserContext(), utils.TenantID(ctx)); err != nil {
		return respondError(ctx, c.log, "DuplicateController.ClearDuplicates", "Failed to clear duplicates cache", err)
	}

	return ctx.JSON(fiber.Map{
		"success": true,
		"message": "Duplicates cache cleared",
	})
}
