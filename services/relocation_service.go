package services

import (
	"context"
	"errors"
	"fmt"

	"locatrack-backend/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// MoveProjectionReport итог синхронизации проекции для потерянных записей партии
type MoveProjectionReport struct {
	Synced  bool   `json:"synced"`
	Missing int    `json:"missing"`
	Failed  int    `json:"failed"`
	Error   string `json:"error,omitempty"`
}

// MoveResult результат перемещения партии записей
type MoveResult struct {
	UpdatedCount int64                `json:"updatedCount"`
	Projection   MoveProjectionReport `json:"projection"`
}

// RelocationService перемещает партии записей в новое местоположение
type RelocationService struct {
	db        *gorm.DB
	locations *LocationService
	sync      *ProjectionSync
	log       *logrus.Logger
}

// NewRelocationService создает сервис перемещения
func NewRelocationService(db *gorm.DB, locations *LocationService, sync *ProjectionSync, log *logrus.Logger) *RelocationService {
	return &RelocationService{
		db:        db,
		locations: locations,
		sync:      sync,
		log:       log,
	}
}

// Move одним запросом заменяет весь кортеж местоположения у записей клиента.
// Чужие и несуществующие id молча исключаются. Незаданные уровни сбрасываются
func (s *RelocationService) Move(ctx context.Context, tenantID uint, ids []uint, target models.LocationTuple) (*MoveResult, error) {
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return nil, ErrNoInventoryIDs
	}
	if err := s.locations.ValidateChain(ctx, tenantID, target); err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)

	// Потерянные записи запоминаются до перемещения, чтобы затем обновить их место в проекции
	var missing []models.Inventory
	err := db.Preload("Item").
		Where("customer_id = ? AND id IN ? AND status = ?", tenantID, ids, models.StatusMissing).
		Order("id ASC").
		Find(&missing).Error
	if err != nil {
		return nil, fmt.Errorf("loading missing inventories: %w", err)
	}

	result := db.Model(&models.Inventory{}).
		Where("customer_id = ? AND id IN ?", tenantID, ids).
		Updates(target.Columns())
	if result.Error != nil {
		return nil, fmt.Errorf("moving inventories: %w", result.Error)
	}

	move := &MoveResult{
		UpdatedCount: result.RowsAffected,
		Projection:   MoveProjectionReport{Synced: true, Missing: len(missing)},
	}

	var syncErrs []error
	for i := range missing {
		prev := SnapshotOf(&missing[i])
		next := prev
		next.DetailLocationID = target.DetailLocationID

		if res := s.sync.Sync(ctx, tenantID, prev, next); res.Err != nil {
			syncErrs = append(syncErrs, fmt.Errorf("inventory %d: %w", prev.ID, res.Err))
		}
	}
	if len(syncErrs) > 0 {
		// Каждая ошибка уже записана в лог ProjectionSync
		move.Projection.Synced = false
		move.Projection.Failed = len(syncErrs)
		move.Projection.Error = errors.Join(syncErrs...).Error()
	}

	s.log.WithFields(logrus.Fields{
		"tenant_id":     tenantID,
		"requested":     len(ids),
		"updated":       move.UpdatedCount,
		"missing_moved": len(missing),
	}).Info("inventories moved")

	return move, nil
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]bool, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id == 0 || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
