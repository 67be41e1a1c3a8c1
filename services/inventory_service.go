package services

import (
	"context"
	"errors"
	"fmt"

	"locatrack-backend/models"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// InventoryFilter параметры выборки записей
type InventoryFilter struct {
	BuildingID       *uint
	AreaID           *uint
	FloorID          *uint
	DetailLocationID *uint
	Barcode          string
	Page             int
	PageSize         int
}

// InventoryPage страница записей
type InventoryPage struct {
	Inventories []models.Inventory `json:"inventories"`
	Total       int64              `json:"total"`
	Page        int                `json:"page"`
	PageSize    int                `json:"pageSize"`
}

// InventoryPatch частичное изменение записи. nil означает "не менять",
// пустая строка очищает строковое поле
type InventoryPatch struct {
	PurchaseDate   *string
	LastDate       *string
	RefClient      *string
	Status         *int
	RegDate        *string
	InvDate        *string
	Comment        *string
	RFID           *string
	Barcode        *string
	RoomAssignment *string
	PurchaseAmount *decimal.Decimal
	IsThrow        *bool
	ItemID         *uint
	CategoryID     *uint
	// Location заменяет весь кортеж местоположения, как при перемещении
	Location *models.LocationTuple
}

// UpdateResult результат изменения записи: сама запись и итог синхронизации проекции
type UpdateResult struct {
	Inventory  *models.Inventory
	Projection SyncResult
}

// DeleteResult результат удаления записи
type DeleteResult struct {
	Projection SyncResult
}

// StatusSummary количество записей клиента по статусам
type StatusSummary struct {
	StatusCounts map[int]int64 `json:"statusCounts"`
	Total        int64         `json:"total"`
}

// InventoryService работает с записями инвентаря клиента
type InventoryService struct {
	db         *gorm.DB
	locations  *LocationService
	sync       *ProjectionSync
	duplicates *DuplicateIndex
	log        *logrus.Logger
}

// NewInventoryService создает сервис записей инвентаря
func NewInventoryService(db *gorm.DB, locations *LocationService, sync *ProjectionSync, duplicates *DuplicateIndex, log *logrus.Logger) *InventoryService {
	return &InventoryService{
		db:         db,
		locations:  locations,
		sync:       sync,
		duplicates: duplicates,
		log:        log,
	}
}

func withRelations(db *gorm.DB) *gorm.DB {
	return db.Preload("Item").
		Preload("Category").
		Preload("Building").
		Preload("Area").
		Preload("Floor").
		Preload("DetailLocation")
}

// List возвращает страницу записей клиента, новые первыми
func (s *InventoryService) List(ctx context.Context, tenantID uint, filter InventoryFilter) (*InventoryPage, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = defaultPageSize
	}
	if filter.PageSize > maxPageSize {
		filter.PageSize = maxPageSize
	}

	query := s.db.WithContext(ctx).Model(&models.Inventory{}).Where("customer_id = ?", tenantID)
	if filter.BuildingID != nil {
		query = query.Where("building_id = ?", *filter.BuildingID)
	}
	if filter.AreaID != nil {
		query = query.Where("area_id = ?", *filter.AreaID)
	}
	if filter.FloorID != nil {
		query = query.Where("floor_id = ?", *filter.FloorID)
	}
	if filter.DetailLocationID != nil {
		query = query.Where("detail_location_id = ?", *filter.DetailLocationID)
	}
	if filter.Barcode != "" {
		query = query.Where("barcode LIKE ?", "%"+filter.Barcode+"%")
	}

	query = query.Session(&gorm.Session{})

	page := &InventoryPage{Page: filter.Page, PageSize: filter.PageSize}
	if err := query.Count(&page.Total).Error; err != nil {
		return nil, fmt.Errorf("counting inventories: %w", err)
	}

	err := withRelations(query).
		Order("id DESC").
		Offset((filter.Page - 1) * filter.PageSize).
		Limit(filter.PageSize).
		Find(&page.Inventories).Error
	if err != nil {
		return nil, fmt.Errorf("listing inventories: %w", err)
	}
	return page, nil
}

// Get возвращает запись клиента со связями
func (s *InventoryService) Get(ctx context.Context, tenantID, id uint) (*models.Inventory, error) {
	var inv models.Inventory
	err := withRelations(s.db.WithContext(ctx)).
		Where("id = ? AND customer_id = ?", id, tenantID).
		First(&inv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInventoryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading inventory %d: %w", id, err)
	}
	return &inv, nil
}

// Update применяет частичное изменение, затем синхронизирует проекцию.
// Ошибка синхронизации не отменяет изменение записи
func (s *InventoryService) Update(ctx context.Context, tenantID, id uint, patch InventoryPatch) (*UpdateResult, error) {
	current, err := s.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	prev := SnapshotOf(current)

	updates, err := s.buildUpdates(ctx, tenantID, patch)
	if err != nil {
		return nil, err
	}

	if len(updates) > 0 {
		err := s.db.WithContext(ctx).Model(&models.Inventory{}).
			Where("id = ? AND customer_id = ?", id, tenantID).
			Updates(updates).Error
		if err != nil {
			return nil, fmt.Errorf("updating inventory %d: %w", id, err)
		}
	}

	updated, err := s.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	next := SnapshotOf(updated)

	result := &UpdateResult{
		Inventory:  updated,
		Projection: s.sync.Sync(ctx, tenantID, prev, next),
	}

	if (patch.Barcode != nil || patch.ItemID != nil) && s.duplicates != nil {
		// Ошибка кэша записывается в лог внутри Invalidate, запись уже сохранена
		s.duplicates.Invalidate(ctx, tenantID)
	}
	return result, nil
}

func (s *InventoryService) buildUpdates(ctx context.Context, tenantID uint, patch InventoryPatch) (map[string]interface{}, error) {
	updates := make(map[string]interface{})

	textFields := []struct {
		column string
		value  *string
	}{
		{"purchase_date", patch.PurchaseDate},
		{"last_date", patch.LastDate},
		{"ref_client", patch.RefClient},
		{"reg_date", patch.RegDate},
		{"inv_date", patch.InvDate},
		{"comment", patch.Comment},
		{"rfid", patch.RFID},
		{"barcode", patch.Barcode},
		{"room_assignment", patch.RoomAssignment},
	}
	for _, f := range textFields {
		if f.value == nil {
			continue
		}
		if *f.value == "" {
			updates[f.column] = nil
		} else {
			updates[f.column] = *f.value
		}
	}

	if patch.Status != nil {
		status := models.InventoryStatus(*patch.Status)
		if status < models.StatusInactive || status > models.StatusMissing {
			return nil, fmt.Errorf("%w: status %d out of range", ErrInvalidInput, *patch.Status)
		}
		updates["status"] = status
	}
	if patch.PurchaseAmount != nil {
		updates["purchase_amount"] = decimal.NewNullDecimal(*patch.PurchaseAmount)
	}
	if patch.IsThrow != nil {
		updates["is_throw"] = *patch.IsThrow
	}

	db := s.db.WithContext(ctx)
	if patch.ItemID != nil {
		if err := ownedBy(db, &models.Item{}, tenantID, *patch.ItemID, "item"); err != nil {
			return nil, err
		}
		updates["item_id"] = *patch.ItemID
	}
	if patch.CategoryID != nil {
		if err := ownedBy(db, &models.Category{}, tenantID, *patch.CategoryID, "category"); err != nil {
			return nil, err
		}
		updates["category_id"] = *patch.CategoryID
	}
	if patch.Location != nil {
		if err := s.locations.ValidateChain(ctx, tenantID, *patch.Location); err != nil {
			return nil, err
		}
		for column, value := range patch.Location.Columns() {
			updates[column] = value
		}
	}

	return updates, nil
}

func ownedBy(db *gorm.DB, model interface{}, tenantID, id uint, kind string) error {
	var count int64
	if err := db.Model(model).Where("id = ? AND customer_id = ?", id, tenantID).Count(&count).Error; err != nil {
		return fmt.Errorf("checking %s %d: %w", kind, id, err)
	}
	if count == 0 {
		return fmt.Errorf("%w: %s %d not found", ErrInvalidInput, kind, id)
	}
	return nil
}

// Delete удаляет запись и снимает ее штрихкод из проекции
func (s *InventoryService) Delete(ctx context.Context, tenantID, id uint) (*DeleteResult, error) {
	current, err := s.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	prev := SnapshotOf(current)

	result := s.db.WithContext(ctx).Where("id = ? AND customer_id = ?", id, tenantID).Delete(&models.Inventory{})
	if result.Error != nil {
		return nil, fmt.Errorf("deleting inventory %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrInventoryNotFound
	}

	deleted := &DeleteResult{Projection: s.sync.SyncDeleted(ctx, tenantID, prev)}

	if s.duplicates != nil {
		// Ошибка кэша записывается в лог внутри Invalidate, запись уже сохранена
		s.duplicates.Invalidate(ctx, tenantID)
	}

	s.log.WithFields(logrus.Fields{"tenant_id": tenantID, "inventory_id": id}).Info("inventory deleted")
	return deleted, nil
}

type statusCount struct {
	Status int
	Count  int64
}

// StatusSummary считает записи клиента по статусам. Все пять статусов присутствуют в ответе
func (s *InventoryService) StatusSummary(ctx context.Context, tenantID uint) (*StatusSummary, error) {
	var rows []statusCount
	err := s.db.WithContext(ctx).Model(&models.Inventory{}).
		Select("status, COUNT(*) AS count").
		Where("customer_id = ?", tenantID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("counting statuses: %w", err)
	}

	summary := &StatusSummary{StatusCounts: make(map[int]int64)}
	for status := models.StatusInactive; status <= models.StatusMissing; status++ {
		summary.StatusCounts[int(status)] = 0
	}
	for _, row := range rows {
		summary.StatusCounts[row.Status] += row.Count
		summary.Total += row.Count
	}
	return summary, nil
}
