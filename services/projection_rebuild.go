package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"locatrack-backend/models"
	"locatrack-backend/utils"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const rebuildLockTTL = 5 * time.Minute

// RebuildReport итог перестроения проекции одного тенанта
type RebuildReport struct {
	TenantID   uint     `json:"tenant_id"`
	Created    int      `json:"created"`
	Updated    int      `json:"updated"`
	Deleted    int      `json:"deleted"`
	Unresolved []string `json:"unresolved"`
}

// Changed сообщает, изменилась ли проекция
func (r *RebuildReport) Changed() bool {
	return r.Created+r.Updated+r.Deleted > 0
}

// ProjectionRebuilder восстанавливает missing_items из текущих статусов записей
type ProjectionRebuilder struct {
	db       *gorm.DB
	sync     *ProjectionSync
	locker   Locker
	notifier ProjectionNotifier
	log      *logrus.Logger
}

// NewProjectionRebuilder создает сервис перестроения проекции
func NewProjectionRebuilder(db *gorm.DB, sync *ProjectionSync, locker Locker, notifier ProjectionNotifier, log *logrus.Logger) *ProjectionRebuilder {
	return &ProjectionRebuilder{
		db:       db,
		sync:     sync,
		locker:   locker,
		notifier: notifier,
		log:      log,
	}
}

// RebuildTenant сравнивает проекцию с желаемым состоянием и исправляет расхождения
// в одной транзакции
func (r *ProjectionRebuilder) RebuildTenant(ctx context.Context, tenantID uint) (*RebuildReport, error) {
	release, err := r.locker.Obtain(ctx, fmt.Sprintf("projection-rebuild:%d", tenantID), rebuildLockTTL)
	if errors.Is(err, ErrLockNotObtained) {
		return nil, ErrRebuildInProgress
	}
	if err != nil {
		return nil, err
	}
	defer release()

	report := &RebuildReport{TenantID: tenantID, Unresolved: []string{}}

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var holders []missingHolder
		err := tx.Model(&models.Inventory{}).
			Select("inventories.id AS id, "+models.EffectiveBarcodeSQL+" AS barcode, inventories.detail_location_id AS detail_location_id").
			Joins(models.JoinItemsSQL).
			Where("inventories.customer_id = ? AND inventories.status = ?", tenantID, models.StatusMissing).
			Where(models.EffectiveBarcodeSQL + " IS NOT NULL AND " + models.EffectiveBarcodeSQL + " <> ''").
			Order("inventories.id ASC").
			Scan(&holders).Error
		if err != nil {
			return fmt.Errorf("loading missing inventories: %w", err)
		}

		// Желаемое место по тому же правилу, что и при синхронизации
		grouped := make(map[string][]missingHolder)
		order := make([]string, 0)
		for _, h := range holders {
			if _, seen := grouped[h.Barcode]; !seen {
				order = append(order, h.Barcode)
			}
			grouped[h.Barcode] = append(grouped[h.Barcode], h)
		}
		desired := make(map[string]*uint, len(grouped))
		for barcode, group := range grouped {
			desired[barcode] = anchorLocation(group)
		}

		var existing []models.MissingItem
		if err := tx.Where("customer_id = ?", tenantID).Order("id ASC").Find(&existing).Error; err != nil {
			return fmt.Errorf("loading missing items: %w", err)
		}

		kept := make(map[string]bool)
		for _, entry := range existing {
			want, ok := desired[entry.Barcode]
			if !ok || kept[entry.Barcode] {
				if err := tx.Delete(&models.MissingItem{}, entry.ID).Error; err != nil {
					return fmt.Errorf("deleting stale missing item %d: %w", entry.ID, err)
				}
				report.Deleted++
				continue
			}
			kept[entry.Barcode] = true

			if want != nil && *want != entry.DetailLocationID {
				err := tx.Model(&models.MissingItem{}).Where("id = ?", entry.ID).
					Updates(map[string]interface{}{"detail_location_id": *want, "updated_at": time.Now()}).Error
				if err != nil {
					return fmt.Errorf("updating missing item %d: %w", entry.ID, err)
				}
				report.Updated++
			}
		}

		for _, barcode := range order {
			if kept[barcode] {
				continue
			}
			locationID, err := r.sync.resolveLocation(ctx, tx, tenantID, desired[barcode])
			if err != nil {
				if errors.Is(err, ErrLocationUnresolved) || errors.Is(err, ErrNoFallbackLocation) {
					report.Unresolved = append(report.Unresolved, barcode)
					continue
				}
				return err
			}
			entry := models.MissingItem{CustomerID: tenantID, Barcode: barcode, DetailLocationID: locationID}
			if err := tx.Create(&entry).Error; err != nil {
				return fmt.Errorf("creating missing item %q: %w", barcode, err)
			}
			report.Created++
		}
		return nil
	})
	if err != nil {
		utils.LogError(r.log, "services", "ProjectionRebuilder.RebuildTenant", "projection rebuild failed", logrus.Fields{"tenant_id": tenantID}, err)
		return nil, err
	}

	r.log.WithFields(logrus.Fields{
		"tenant_id":  tenantID,
		"created":    report.Created,
		"updated":    report.Updated,
		"deleted":    report.Deleted,
		"unresolved": len(report.Unresolved),
	}).Info("missing items projection rebuilt")

	if report.Changed() && r.notifier != nil {
		r.notifier.Publish(tenantID, WSMessage{Type: EventMissingRebuilt, Payload: report})
	}
	return report, nil
}

// RebuildAll перестраивает проекцию всех тенантов, у которых есть записи или проекция
func (r *ProjectionRebuilder) RebuildAll(ctx context.Context) ([]*RebuildReport, error) {
	var inventoryTenants, projectionTenants []uint
	if err := r.db.WithContext(ctx).Model(&models.Inventory{}).Distinct().Pluck("customer_id", &inventoryTenants).Error; err != nil {
		return nil, fmt.Errorf("listing inventory tenants: %w", err)
	}
	if err := r.db.WithContext(ctx).Model(&models.MissingItem{}).Distinct().Pluck("customer_id", &projectionTenants).Error; err != nil {
		return nil, fmt.Errorf("listing projection tenants: %w", err)
	}

	seen := make(map[uint]bool)
	reports := make([]*RebuildReport, 0)
	for _, tenantID := range append(inventoryTenants, projectionTenants...) {
		if seen[tenantID] {
			continue
		}
		seen[tenantID] = true

		report, err := r.RebuildTenant(ctx, tenantID)
		if err != nil {
			if ctx.Err() != nil {
				return reports, ctx.Err()
			}
			// Ошибка одного тенанта не останавливает остальные
			continue
		}
		reports = append(reports, report)
	}
	return reports, nil
}

// RunRepairLoop периодически перестраивает проекцию, пока контекст не отменен
func (r *ProjectionRebuilder) RunRepairLoop(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.RebuildAll(ctx); err != nil && ctx.Err() == nil {
				utils.LogError(r.log, "services", "ProjectionRebuilder.RunRepairLoop", "periodic rebuild failed", nil, err)
			}
		}
	}
}
