package controllers

import (
	"errors"
	"strconv"

	"locatrack-backend/services"
	"locatrack-backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// errorStatus сопоставляет ошибку сервиса с HTTP статусом
func errorStatus(err error) int {
	switch {
	case errors.Is(err, services.ErrInvalidLocation),
		errors.Is(err, services.ErrInvalidInput),
		errors.Is(err, services.ErrNoInventoryIDs),
		errors.Is(err, services.ErrNoItems):
		return fiber.StatusBadRequest
	case errors.Is(err, services.ErrInventoryNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, services.ErrRebuildInProgress):
		return fiber.StatusConflict
	}
	return fiber.StatusInternalServerError
}

// respondError отвечает конвертом {success:false, error}. Текст внутренних ошибок
// не раскрывается клиенту, а пишется в лог
func respondError(ctx *fiber.Ctx, log *logrus.Logger, funcName, message string, err error) error {
	status := errorStatus(err)
	if status == fiber.StatusInternalServerError {
		utils.LogError(log, "controllers", funcName, message, logrus.Fields{
			"tenant_id": utils.TenantID(ctx),
			"path":      ctx.Path(),
		}, err)
		return ctx.Status(status).JSON(fiber.Map{
			"success": false,
			"error":   message,
		})
	}
	return ctx.Status(status).JSON(fiber.Map{
		"success": false,
		"error":   err.Error(),
	})
}

func badRequest(ctx *fiber.Ctx, message string) error {
	return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"success": false,
		"error":   message,
	})
}

// parseID разбирает числовой параметр пути
func parseID(ctx *fiber.Ctx, name string) (uint, bool) {
	id, err := strconv.ParseUint(ctx.Params(name), 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// queryUint разбирает необязательный числовой параметр запроса
func queryUint(ctx *fiber.Ctx, name string) (*uint, error) {
	raw := ctx.Query(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return nil, err
	}
	id := uint(v)
	return &id, nil
}

// queryInt разбирает числовой параметр запроса со значением по умолчанию
func queryInt(ctx *fiber.Ctx, name string, fallback int) int {
	v, err := strconv.Atoi(ctx.Query(name))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}
