package services

import (
	"context"
	"fmt"

	"locatrack-backend/models"

	"gorm.io/gorm"
)

// Pagination параметры страницы в ответе
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

// MissingItemPage страница проекции потерянных единиц
type MissingItemPage struct {
	MissingItems []models.MissingItem `json:"missingItems"`
	Pagination   Pagination           `json:"pagination"`
}

// MissingItemService читает проекцию потерянных единиц
type MissingItemService struct {
	db *gorm.DB
}

// NewMissingItemService создает сервис чтения проекции
func NewMissingItemService(db *gorm.DB) *MissingItemService {
	return &MissingItemService{db: db}
}

// List возвращает страницу записей проекции с необязательным поиском по штрихкоду
func (s *MissingItemService) List(ctx context.Context, tenantID uint, page, limit int, search string) (*MissingItemPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	query := s.db.WithContext(ctx).Model(&models.MissingItem{}).Where("customer_id = ?", tenantID)
	if search != "" {
		query = query.Where("barcode LIKE ?", "%"+search+"%")
	}
	query = query.Session(&gorm.Session{})

	result := &MissingItemPage{
		MissingItems: []models.MissingItem{},
		Pagination:   Pagination{Page: page, Limit: limit},
	}
	if err := query.Count(&result.Pagination.Total).Error; err != nil {
		return nil, fmt.Errorf("counting missing items: %w", err)
	}
	result.Pagination.TotalPages = int((result.Pagination.Total + int64(limit) - 1) / int64(limit))

	err := query.Preload("DetailLocation").
		Order("id DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&result.MissingItems).Error
	if err != nil {
		return nil, fmt.Errorf("listing missing items: %w", err)
	}
	return result, nil
}

// Count возвращает количество записей проекции клиента
func (s *MissingItemService) Count(ctx context.Context, tenantID uint) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.MissingItem{}).Where("customer_id = ?", tenantID).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("counting missing items: %w", err)
	}
	return count, nil
}
