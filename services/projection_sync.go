package services

import (
	"context"
	"fmt"

	"locatrack-backend/config"
	"locatrack-backend/models"
	"locatrack-backend/utils"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SyncCase описывает, какая ветка синхронизации проекции была применена
type SyncCase string

const (
	SyncNone            SyncCase = "none"
	SyncBarcodeChanged  SyncCase = "barcode_changed"
	SyncNewlyMissing    SyncCase = "newly_missing"
	SyncNoLongerMissing SyncCase = "no_longer_missing"
	SyncStillMissing    SyncCase = "still_missing"
	SyncDeleted         SyncCase = "deleted"
)

// InventorySnapshot содержит поля записи, от которых зависит проекция потерянных единиц
type InventorySnapshot struct {
	ID               uint
	Status           models.InventoryStatus
	Barcode          string // эффективный штрихкод
	DetailLocationID *uint
}

// SnapshotOf строит снимок записи. Item должен быть предзагружен
func SnapshotOf(inv *models.Inventory) InventorySnapshot {
	return InventorySnapshot{
		ID:               inv.ID,
		Status:           inv.Status,
		Barcode:          inv.EffectiveBarcode(),
		DetailLocationID: inv.DetailLocationID,
	}
}

// SyncResult результат второй фазы операции: синхронизации проекции
type SyncResult struct {
	Case SyncCase
	Err  error
}

// ProjectionReport представление результата синхронизации для ответа API
type ProjectionReport struct {
	Synced bool   `json:"synced"`
	Case   string `json:"case"`
	Error  string `json:"error,omitempty"`
}

// Report возвращает представление результата для ответа API
func (r SyncResult) Report() ProjectionReport {
	report := ProjectionReport{Synced: r.Err == nil, Case: string(r.Case)}
	if r.Err != nil {
		report.Error = r.Err.Error()
	}
	return report
}

// ClassifySync выбирает ровно одну ветку синхронизации по снимкам до и после записи
func ClassifySync(prev, next InventorySnapshot) SyncCase {
	wasMissing := prev.Status == models.StatusMissing
	isMissing := next.Status == models.StatusMissing

	switch {
	case wasMissing && prev.Barcode != next.Barcode:
		return SyncBarcodeChanged
	case !wasMissing && isMissing:
		return SyncNewlyMissing
	case wasMissing && !isMissing:
		return SyncNoLongerMissing
	case wasMissing && isMissing:
		return SyncStillMissing
	}
	return SyncNone
}

// ProjectionSync приводит таблицу missing_items в соответствие со статусами записей
type ProjectionSync struct {
	db        *gorm.DB
	locations *LocationService
	policy    string
	notifier  ProjectionNotifier
	log       *logrus.Logger
}

// NewProjectionSync создает сервис синхронизации проекции
func NewProjectionSync(db *gorm.DB, locations *LocationService, policy string, notifier ProjectionNotifier, log *logrus.Logger) *ProjectionSync {
	if policy == "" {
		policy = config.MissingLocationFallback
	}
	return &ProjectionSync{
		db:        db,
		locations: locations,
		policy:    policy,
		notifier:  notifier,
		log:       log,
	}
}

// Sync выполняется после фиксации основной записи. Ошибка синхронизации
// логируется и возвращается в результате, основная запись не откатывается
func (s *ProjectionSync) Sync(ctx context.Context, tenantID uint, prev, next InventorySnapshot) SyncResult {
	syncCase := ClassifySync(prev, next)
	if syncCase == SyncNone {
		return SyncResult{Case: syncCase}
	}

	err := s.apply(ctx, tenantID, func(p *projectionTx) error {
		switch syncCase {
		case SyncBarcodeChanged:
			if prev.Barcode != "" {
				if err := p.settle(prev.Barcode, next.ID); err != nil {
					return err
				}
			}
			if next.Status == models.StatusMissing && next.Barcode != "" {
				return p.settle(next.Barcode, 0)
			}
		case SyncNewlyMissing, SyncStillMissing:
			if next.Barcode != "" {
				return p.settle(next.Barcode, 0)
			}
		case SyncNoLongerMissing:
			barcode := next.Barcode
			if barcode == "" {
				barcode = prev.Barcode
			}
			if barcode != "" {
				return p.settle(barcode, next.ID)
			}
		}
		return nil
	})

	if err != nil {
		utils.LogError(s.log, "services", "ProjectionSync.Sync", "projection sync failed after primary write", logrus.Fields{
			"tenant_id":    tenantID,
			"inventory_id": next.ID,
			"case":         syncCase,
			"prev_barcode": prev.Barcode,
			"next_barcode": next.Barcode,
		}, err)
	}
	return SyncResult{Case: syncCase, Err: err}
}

// SyncDeleted снимает запись проекции удаленной единицы, если ее штрихкод
// больше не удерживает ни одна потерянная единица
func (s *ProjectionSync) SyncDeleted(ctx context.Context, tenantID uint, prev InventorySnapshot) SyncResult {
	if prev.Barcode == "" {
		return SyncResult{Case: SyncNone}
	}

	err := s.apply(ctx, tenantID, func(p *projectionTx) error {
		return p.settle(prev.Barcode, prev.ID)
	})
	if err != nil {
		utils.LogError(s.log, "services", "ProjectionSync.SyncDeleted", "projection sync failed after delete", logrus.Fields{
			"tenant_id":    tenantID,
			"inventory_id": prev.ID,
			"barcode":      prev.Barcode,
		}, err)
	}
	return SyncResult{Case: SyncDeleted, Err: err}
}

// apply выполняет изменения проекции в одной транзакции и рассылает события после фиксации
func (s *ProjectionSync) apply(ctx context.Context, tenantID uint, fn func(p *projectionTx) error) error {
	var events []WSMessage
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p := &projectionTx{ctx: ctx, s: s, tx: tx, tenantID: tenantID}
		if err := fn(p); err != nil {
			return err
		}
		events = p.events
		return nil
	})
	if err != nil {
		return err
	}

	if s.notifier != nil {
		for _, event := range events {
			s.notifier.Publish(tenantID, event)
		}
	}
	return nil
}

// resolveLocation возвращает место для записи проекции: собственное место единицы
// или место по политике подстановки
func (s *ProjectionSync) resolveLocation(ctx context.Context, tx *gorm.DB, tenantID uint, detailLocationID *uint) (uint, error) {
	if detailLocationID != nil {
		return *detailLocationID, nil
	}
	if s.policy == config.MissingLocationStrict {
		return 0, ErrLocationUnresolved
	}
	return s.locations.FallbackDetailLocation(ctx, tx, tenantID)
}

// projectionTx изменения проекции одного тенанта в рамках транзакции
type projectionTx struct {
	ctx      context.Context
	s        *ProjectionSync
	tx       *gorm.DB
	tenantID uint
	events   []WSMessage
}

// place гарантирует наличие записи для штрихкода. Если место известно, запись
// переводится на него; иначе существующая запись не трогается, а новая создается по политике
func (p *projectionTx) place(barcode string, detailLocationID *uint) error {
	if detailLocationID != nil {
		return p.upsert(barcode, *detailLocationID)
	}

	var count int64
	err := p.tx.Model(&models.MissingItem{}).
		Where("customer_id = ? AND barcode = ?", p.tenantID, barcode).
		Count(&count).Error
	if err != nil {
		return fmt.Errorf("checking missing item %q: %w", barcode, err)
	}
	if count > 0 {
		return nil
	}

	locationID, err := p.s.resolveLocation(p.ctx, p.tx, p.tenantID, nil)
	if err != nil {
		return fmt.Errorf("resolving location for %q: %w", barcode, err)
	}
	return p.upsert(barcode, locationID)
}

// upsert создает запись или обновляет ее место
func (p *projectionTx) upsert(barcode string, detailLocationID uint) error {
	entry := models.MissingItem{
		CustomerID:       p.tenantID,
		Barcode:          barcode,
		DetailLocationID: detailLocationID,
	}
	err := p.tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "customer_id"}, {Name: "barcode"}},
		DoUpdates: clause.AssignmentColumns([]string{"detail_location_id", "updated_at"}),
	}).Create(&entry).Error
	if err != nil {
		return fmt.Errorf("upserting missing item %q: %w", barcode, err)
	}

	p.events = append(p.events, WSMessage{
		Type: EventMissingUpserted,
		Payload: map[string]interface{}{
			"barcode":            barcode,
			"detail_location_id": detailLocationID,
		},
	})
	return nil
}

// missingHolder потерянная единица, удерживающая запись проекции
type missingHolder struct {
	ID               uint
	Barcode          string
	DetailLocationID *uint
}

// anchorLocation место записи проекции: место потерянной единицы с наименьшим id
// среди единиц с известным местом. Holders должны быть упорядочены по id
func anchorLocation(holders []missingHolder) *uint {
	for _, h := range holders {
		if h.DetailLocationID != nil {
			return h.DetailLocationID
		}
	}
	return nil
}

// settle приводит запись штрихкода к текущим потерянным единицам: без них запись
// удаляется, иначе ставится на место по anchorLocation. excludeID не учитывается
// как держатель (0 = учитывать всех)
func (p *projectionTx) settle(barcode string, excludeID uint) error {
	query := p.tx.Model(&models.Inventory{}).
		Select("inventories.id AS id, "+models.EffectiveBarcodeSQL+" AS barcode, inventories.detail_location_id AS detail_location_id").
		Joins(models.JoinItemsSQL).
		Where("inventories.customer_id = ? AND inventories.status = ?", p.tenantID, models.StatusMissing).
		Where(models.EffectiveBarcodeSQL+" = ?", barcode)
	if excludeID != 0 {
		query = query.Where("inventories.id <> ?", excludeID)
	}

	var holders []missingHolder
	if err := query.Order("inventories.id ASC").Scan(&holders).Error; err != nil {
		return fmt.Errorf("looking up missing holders of %q: %w", barcode, err)
	}

	if len(holders) > 0 {
		return p.place(barcode, anchorLocation(holders))
	}

	result := p.tx.Where("customer_id = ? AND barcode = ?", p.tenantID, barcode).Delete(&models.MissingItem{})
	if result.Error != nil {
		return fmt.Errorf("deleting missing item %q: %w", barcode, result.Error)
	}
	if result.RowsAffected > 0 {
		p.events = append(p.events, WSMessage{
			Type:    EventMissingDeleted,
			Payload: map[string]interface{}{"barcode": barcode},
		})
	}
	return nil
}
