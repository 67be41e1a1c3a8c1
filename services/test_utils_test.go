package services

import (
	"io"
	"sync"
	"testing"
	"time"

	"locatrack-backend/config"
	"locatrack-backend/models"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB создает тестовую базу данных в памяти
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	// Одно соединение: у каждого соединения sqlite ":memory:" своя база
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, models.Migrate(db))
	return db
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func ptr[T any](v T) *T {
	return &v
}

// testHierarchy иерархия местоположений одного клиента
type testHierarchy struct {
	Building uint
	Area     uint
	Floor    uint
	Details  []uint
}

// Full возвращает полный кортеж до места с индексом i
func (h testHierarchy) Full(i int) models.LocationTuple {
	return models.LocationTuple{
		BuildingID:       ptr(h.Building),
		AreaID:           ptr(h.Area),
		FloorID:          ptr(h.Floor),
		DetailLocationID: ptr(h.Details[i]),
	}
}

// createHierarchy создает здание, зону, этаж и заданное количество мест для клиента
func createHierarchy(t *testing.T, db *gorm.DB, tenantID uint, details int) testHierarchy {
	t.Helper()

	building := models.Building{CustomerID: tenantID, Name: "Корпус"}
	require.NoError(t, db.Create(&building).Error)
	area := models.Area{CustomerID: tenantID, BuildingID: &building.ID, Name: "Склад"}
	require.NoError(t, db.Create(&area).Error)
	floor := models.Floor{CustomerID: tenantID, AreaID: &area.ID, Name: "1 этаж"}
	require.NoError(t, db.Create(&floor).Error)

	h := testHierarchy{Building: building.ID, Area: area.ID, Floor: floor.ID}
	for i := 0; i < details; i++ {
		detail := models.DetailLocation{CustomerID: tenantID, FloorID: &floor.ID, Name: "Стеллаж"}
		require.NoError(t, db.Create(&detail).Error)
		h.Details = append(h.Details, detail.ID)
	}
	return h
}

// createItem создает товар каталога
func createItem(t *testing.T, db *gorm.DB, tenantID uint, name string, barcode *string) models.Item {
	t.Helper()

	item := models.Item{CustomerID: tenantID, Name: name, Barcode: barcode}
	require.NoError(t, db.Create(&item).Error)
	return item
}

// createInventory создает запись инвентаря напрямую, минуя синхронизацию
func createInventory(t *testing.T, db *gorm.DB, inv models.Inventory) models.Inventory {
	t.Helper()

	require.NoError(t, db.Create(&inv).Error)
	return inv
}

// missingEntries возвращает записи проекции клиента по штрихкоду
func missingEntries(t *testing.T, db *gorm.DB, tenantID uint, barcode string) []models.MissingItem {
	t.Helper()

	var entries []models.MissingItem
	require.NoError(t, db.Where("customer_id = ? AND barcode = ?", tenantID, barcode).Find(&entries).Error)
	return entries
}

// recordingNotifier запоминает опубликованные события
type recordingNotifier struct {
	mu       sync.Mutex
	messages []WSMessage
}

func (n *recordingNotifier) Publish(_ uint, message WSMessage) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, message)
}

func (n *recordingNotifier) types() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.messages))
	for _, m := range n.messages {
		out = append(out, m.Type)
	}
	return out
}

// fakeClock управляемые часы для проверки TTL
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// testEngine собранные сервисы над одной тестовой базой
type testEngine struct {
	db         *gorm.DB
	notifier   *recordingNotifier
	clock      *fakeClock
	cache      *MemoryDuplicateCache
	locations  *LocationService
	sync       *ProjectionSync
	duplicates *DuplicateIndex
	rebuilder  *ProjectionRebuilder
	inventory  *InventoryService
	relocation *RelocationService
	placement  *PlacementService
	missing    *MissingItemService
}

func newTestEngine(t *testing.T, policy string) *testEngine {
	t.Helper()

	if policy == "" {
		policy = config.MissingLocationFallback
	}

	db := setupTestDB(t)
	log := testLogger()
	e := &testEngine{
		db:       db,
		notifier: &recordingNotifier{},
		clock:    newFakeClock(),
	}
	e.cache = NewMemoryDuplicateCache(DefaultDuplicateTTL, e.clock.Now)
	e.locations = NewLocationService(db)
	e.sync = NewProjectionSync(db, e.locations, policy, e.notifier, log)
	e.duplicates = NewDuplicateIndex(db, e.cache, DefaultDuplicateTTL, e.clock.Now, e.notifier, log)
	e.rebuilder = NewProjectionRebuilder(db, e.sync, NewLocalLocker(), e.notifier, log)
	e.inventory = NewInventoryService(db, e.locations, e.sync, e.duplicates, log)
	e.relocation = NewRelocationService(db, e.locations, e.sync, log)
	e.placement = NewPlacementService(db, e.locations, e.duplicates, e.clock.Now, log)
	e.missing = NewMissingItemService(db)
	return e
}
