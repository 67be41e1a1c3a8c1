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

// DefaultDuplicateTTL время жизни кэша дубликатов по умолчанию
const DefaultDuplicateTTL = 5 * time.Minute

// DuplicateIndex отвечает на вопрос, какие записи клиента делят штрихкод
// с другой записью. Результат кэшируется на ttl
type DuplicateIndex struct {
	db       *gorm.DB
	cache    DuplicateCache
	ttl      time.Duration
	now      func() time.Time
	notifier ProjectionNotifier
	log      *logrus.Logger
}

// NewDuplicateIndex создает индекс дубликатов. now задает часы (nil = time.Now)
func NewDuplicateIndex(db *gorm.DB, cache DuplicateCache, ttl time.Duration, now func() time.Time, notifier ProjectionNotifier, log *logrus.Logger) *DuplicateIndex {
	if ttl <= 0 {
		ttl = DefaultDuplicateTTL
	}
	if now == nil {
		now = time.Now
	}
	return &DuplicateIndex{
		db:       db,
		cache:    cache,
		ttl:      ttl,
		now:      now,
		notifier: notifier,
		log:      log,
	}
}

// Get возвращает дубликаты клиента из кэша или вычисляет их заново.
// cached сообщает, был ли ответ взят из кэша
func (d *DuplicateIndex) Get(ctx context.Context, tenantID uint) (*DuplicateSet, bool, error) {
	set, ok, err := d.cache.Get(ctx, tenantID)
	if err != nil {
		// Недоступный кэш не мешает ответу
		utils.LogError(d.log, "services", "DuplicateIndex.Get", "duplicate cache read failed", logrus.Fields{"tenant_id": tenantID}, err)
	}
	if ok {
		return set, true, nil
	}

	set, err = d.compute(ctx, tenantID)
	if err != nil {
		return nil, false, err
	}

	if err := d.cache.Set(ctx, set); err != nil {
		utils.LogError(d.log, "services", "DuplicateIndex.Get", "duplicate cache write failed", logrus.Fields{"tenant_id": tenantID}, err)
	}
	return set, false, nil
}

// Refresh сбрасывает кэш клиента и вычисляет дубликаты заново
func (d *DuplicateIndex) Refresh(ctx context.Context, tenantID uint) (*DuplicateSet, error) {
	if err := d.cache.Delete(ctx, tenantID); err != nil {
		utils.LogError(d.log, "services", "DuplicateIndex.Refresh", "duplicate cache delete failed", logrus.Fields{"tenant_id": tenantID}, err)
	}
	set, _, err := d.Get(ctx, tenantID)
	return set, err
}

// Invalidate немедленно удаляет кэш клиента
func (d *DuplicateIndex) Invalidate(ctx context.Context, tenantID uint) error {
	if err := d.cache.Delete(ctx, tenantID); err != nil {
		utils.LogError(d.log, "services", "DuplicateIndex.Invalidate", "duplicate cache delete failed", logrus.Fields{"tenant_id": tenantID}, err)
		return err
	}
	if d.notifier != nil {
		d.notifier.Publish(tenantID, WSMessage{Type: EventDuplicatesInvalidated, Payload: map[string]interface{}{"tenant_id": tenantID}})
	}
	return nil
}

// RunSweeper удаляет устаревшие записи кэша с периодом ttl до отмены контекста
func (d *DuplicateIndex) RunSweeper(ctx context.Context) {
	ticker := time.NewTicker(d.ttl)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if evicted := d.cache.Sweep(d.now()); evicted > 0 {
				d.log.WithField("evicted", evicted).Debug("duplicate cache swept")
			}
		}
	}
}

type barcodeCount struct {
	Barcode string
	Count   int
}

// compute выполняет вычисление в два прохода: сначала штрихкоды с повторами,
// затем полные записи только для них
func (d *DuplicateIndex) compute(ctx context.Context, tenantID uint) (*DuplicateSet, error) {
	db := d.db.WithContext(ctx)

	var counts []barcodeCount
	err := db.Model(&models.Inventory{}).
		Select(models.EffectiveBarcodeSQL+" AS barcode, COUNT(*) AS count").
		Joins(models.JoinItemsSQL).
		Where("inventories.customer_id = ?", tenantID).
		Where(models.EffectiveBarcodeSQL + " IS NOT NULL AND " + models.EffectiveBarcodeSQL + " <> ''").
		Group(models.EffectiveBarcodeSQL).
		Having("COUNT(*) > 1").
		Scan(&counts).Error
	if err != nil {
		return nil, fmt.Errorf("grouping barcodes: %w", err)
	}

	set := &DuplicateSet{
		TenantID:   tenantID,
		Records:    []models.Inventory{},
		Groups:     []DuplicateGroup{},
		ComputedAt: d.now(),
	}
	if len(counts) == 0 {
		return set, nil
	}

	barcodes := make([]string, 0, len(counts))
	for _, c := range counts {
		barcodes = append(barcodes, c.Barcode)
	}

	err = db.Model(&models.Inventory{}).
		Select("inventories.*").
		Joins(models.JoinItemsSQL).
		Where("inventories.customer_id = ?", tenantID).
		Where(models.EffectiveBarcodeSQL+" IN ?", barcodes).
		Order(models.EffectiveBarcodeSQL + " ASC").
		Order("inventories.id ASC").
		Preload("Item").
		Preload("Category").
		Preload("Building").
		Preload("Area").
		Preload("Floor").
		Preload("DetailLocation").
		Find(&set.Records).Error
	if err != nil {
		return nil, fmt.Errorf("loading duplicate records: %w", err)
	}

	// Группы собираются по уже загруженным записям, порядок совпадает с порядком записей
	index := make(map[string]int)
	for _, inv := range set.Records {
		barcode := inv.EffectiveBarcode()
		i, ok := index[barcode]
		if !ok {
			set.Groups = append(set.Groups, DuplicateGroup{Barcode: barcode})
			i = len(set.Groups) - 1
			index[barcode] = i
		}
		set.Groups[i].Count++
		set.Groups[i].InventoryIDs = append(set.Groups[i].InventoryIDs, inv.ID)
	}

	groups := set.Groups[:0]
	for _, g := range set.Groups {
		if g.Count >= 2 {
			groups = append(groups, g)
		}
	}
	set.Groups = groups

	return set, nil
}
