package services

import (
	"context"
	"fmt"
	"time"

	"locatrack-backend/models"
	"locatrack-backend/utils"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// PlacementItem товар для размещения с необязательной заменой категории
type PlacementItem struct {
	ItemID     uint
	CategoryID *uint
}

// PlacementResult результат размещения. Частичный успех допустим
type PlacementResult struct {
	CreatedCount int                `json:"createdCount"`
	SkippedCount int                `json:"skippedCount"`
	Inventories  []models.Inventory `json:"-"`
}

// PlacementService создает записи инвентаря для товаров в заданном месте
type PlacementService struct {
	db         *gorm.DB
	locations  *LocationService
	duplicates *DuplicateIndex
	now        func() time.Time
	log        *logrus.Logger
}

// NewPlacementService создает сервис размещения. now задает часы (nil = time.Now)
func NewPlacementService(db *gorm.DB, locations *LocationService, duplicates *DuplicateIndex, now func() time.Time, log *logrus.Logger) *PlacementService {
	if now == nil {
		now = time.Now
	}
	return &PlacementService{
		db:         db,
		locations:  locations,
		duplicates: duplicates,
		now:        now,
		log:        log,
	}
}

// Place создает по одной записи на каждый товар клиента. Вставки независимы:
// ошибка одной записи не отменяет остальные
func (s *PlacementService) Place(ctx context.Context, tenantID uint, items []PlacementItem, target models.LocationTuple) (*PlacementResult, error) {
	if len(items) == 0 {
		return nil, ErrNoItems
	}
	if err := s.locations.ValidateChain(ctx, tenantID, target); err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)

	itemIDs := make([]uint, 0, len(items))
	for _, it := range items {
		itemIDs = append(itemIDs, it.ItemID)
	}

	var catalog []models.Item
	if err := db.Where("customer_id = ? AND id IN ?", tenantID, itemIDs).Find(&catalog).Error; err != nil {
		return nil, fmt.Errorf("loading items: %w", err)
	}
	byID := make(map[uint]models.Item, len(catalog))
	for _, item := range catalog {
		byID[item.ID] = item
	}

	today := s.now().Format("2006-01-02")
	result := &PlacementResult{Inventories: []models.Inventory{}}
	placed := make(map[uint]bool, len(items))

	for _, it := range items {
		item, ok := byID[it.ItemID]
		if !ok || placed[it.ItemID] {
			result.SkippedCount++
			continue
		}
		placed[it.ItemID] = true

		categoryID := item.CategoryID
		if it.CategoryID != nil {
			categoryID = it.CategoryID
		}

		itemID := item.ID
		regDate, invDate := today, today
		inv := models.Inventory{
			CustomerID:       tenantID,
			ItemID:           &itemID,
			CategoryID:       categoryID,
			BuildingID:       target.BuildingID,
			AreaID:           target.AreaID,
			FloorID:          target.FloorID,
			DetailLocationID: target.DetailLocationID,
			Barcode:          item.Barcode,
			Status:           models.StatusActive,
			RegDate:          &regDate,
			InvDate:          &invDate,
		}
		if err := db.Create(&inv).Error; err != nil {
			utils.LogError(s.log, "services", "PlacementService.Place", "inventory insert failed", logrus.Fields{
				"tenant_id": tenantID,
				"item_id":   it.ItemID,
			}, err)
			result.SkippedCount++
			continue
		}
		result.CreatedCount++
		result.Inventories = append(result.Inventories, inv)
	}

	if result.CreatedCount > 0 && s.duplicates != nil {
		// Ошибка кэша записывается в лог внутри Invalidate, запись уже сохранена
		s.duplicates.Invalidate(ctx, tenantID)
	}

	s.log.WithFields(logrus.Fields{
		"tenant_id": tenantID,
		"created":   result.CreatedCount,
		"skipped":   result.SkippedCount,
	}).Info("items placed")

	return result, nil
}
