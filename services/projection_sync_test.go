package services

import (
	"context"
	"testing"

	"locatrack-backend/config"
	"locatrack-backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifySync(t *testing.T) {
	missing := models.StatusMissing
	active := models.StatusActive

	tests := []struct {
		name string
		prev InventorySnapshot
		next InventorySnapshot
		want SyncCase
	}{
		{
			name: "смена штрихкода у потерянной единицы",
			prev: InventorySnapshot{Status: missing, Barcode: "B1"},
			next: InventorySnapshot{Status: missing, Barcode: "B2"},
			want: SyncBarcodeChanged,
		},
		{
			name: "смена штрихкода и возврат в работу",
			prev: InventorySnapshot{Status: missing, Barcode: "B1"},
			next: InventorySnapshot{Status: active, Barcode: "B2"},
			want: SyncBarcodeChanged,
		},
		{
			name: "единица потеряна",
			prev: InventorySnapshot{Status: active, Barcode: "B1"},
			next: InventorySnapshot{Status: missing, Barcode: "B1"},
			want: SyncNewlyMissing,
		},
		{
			name: "единица потеряна с новым штрихкодом",
			prev: InventorySnapshot{Status: active, Barcode: "B1"},
			next: InventorySnapshot{Status: missing, Barcode: "B9"},
			want: SyncNewlyMissing,
		},
		{
			name: "единица найдена",
			prev: InventorySnapshot{Status: missing, Barcode: "B1"},
			next: InventorySnapshot{Status: models.StatusRetired, Barcode: "B1"},
			want: SyncNoLongerMissing,
		},
		{
			name: "потерянная единица, изменено другое поле",
			prev: InventorySnapshot{Status: missing, Barcode: "B1"},
			next: InventorySnapshot{Status: missing, Barcode: "B1", DetailLocationID: ptr(uint(3))},
			want: SyncStillMissing,
		},
		{
			name: "статус не связан с потерей",
			prev: InventorySnapshot{Status: active, Barcode: "B1"},
			next: InventorySnapshot{Status: models.StatusMaintenance, Barcode: "B2"},
			want: SyncNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifySync(tt.prev, tt.next))
		})
	}
}

func TestSyncNewlyMissingUsesFallbackAndReleasesOnReturn(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, config.MissingLocationFallback)
	h := createHierarchy(t, e.db, 1, 2)

	inv := createInventory(t, e.db, models.Inventory{CustomerID: 1, Barcode: ptr("B1"), Status: models.StatusActive})

	result, err := e.inventory.Update(ctx, 1, inv.ID, InventoryPatch{Status: ptr(int(models.StatusMissing))})
	require.NoError(t, err)
	assert.Equal(t, SyncNewlyMissing, result.Projection.Case)
	assert.NoError(t, result.Projection.Err)

	entries := missingEntries(t, e.db, 1, "B1")
	require.Len(t, entries, 1)
	assert.Equal(t, h.Details[0], entries[0].DetailLocationID)
	assert.Contains(t, e.notifier.types(), EventMissingUpserted)

	result, err = e.inventory.Update(ctx, 1, inv.ID, InventoryPatch{Status: ptr(int(models.StatusActive))})
	require.NoError(t, err)
	assert.Equal(t, SyncNoLongerMissing, result.Projection.Case)
	assert.NoError(t, result.Projection.Err)
	assert.Empty(t, missingEntries(t, e.db, 1, "B1"))
	assert.Contains(t, e.notifier.types(), EventMissingDeleted)
}

func TestSyncBarcodeChangeWhileMissing(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, "")
	h := createHierarchy(t, e.db, 1, 2)

	loc := h.Full(1)
	inv := createInventory(t, e.db, models.Inventory{
		CustomerID:       1,
		Barcode:          ptr("B1"),
		Status:           models.StatusMissing,
		BuildingID:       loc.BuildingID,
		AreaID:           loc.AreaID,
		FloorID:          loc.FloorID,
		DetailLocationID: loc.DetailLocationID,
	})
	require.NoError(t, e.db.Create(&models.MissingItem{CustomerID: 1, Barcode: "B1", DetailLocationID: h.Details[1]}).Error)

	result, err := e.inventory.Update(ctx, 1, inv.ID, InventoryPatch{Barcode: ptr("B2")})
	require.NoError(t, err)
	assert.Equal(t, SyncBarcodeChanged, result.Projection.Case)
	assert.NoError(t, result.Projection.Err)

	assert.Empty(t, missingEntries(t, e.db, 1, "B1"))
	entries := missingEntries(t, e.db, 1, "B2")
	require.Len(t, entries, 1)
	assert.Equal(t, h.Details[1], entries[0].DetailLocationID)
}

func TestSyncKeepsEntryWhileAnotherHolderIsMissing(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, "")
	h := createHierarchy(t, e.db, 1, 2)

	first := createInventory(t, e.db, models.Inventory{CustomerID: 1, Barcode: ptr("B3"), Status: models.StatusMissing, DetailLocationID: ptr(h.Details[0])})
	second := createInventory(t, e.db, models.Inventory{CustomerID: 1, Barcode: ptr("B3"), Status: models.StatusMissing, DetailLocationID: ptr(h.Details[1])})
	require.NoError(t, e.db.Create(&models.MissingItem{CustomerID: 1, Barcode: "B3", DetailLocationID: h.Details[0]}).Error)

	_, err := e.inventory.Update(ctx, 1, first.ID, InventoryPatch{Status: ptr(int(models.StatusActive))})
	require.NoError(t, err)

	entries := missingEntries(t, e.db, 1, "B3")
	require.Len(t, entries, 1, "другая единица с тем же штрихкодом все еще потеряна")
	assert.Equal(t, h.Details[1], entries[0].DetailLocationID)

	_, err = e.inventory.Update(ctx, 1, second.ID, InventoryPatch{Status: ptr(int(models.StatusActive))})
	require.NoError(t, err)
	assert.Empty(t, missingEntries(t, e.db, 1, "B3"))
}

func TestSyncUsesItemBarcodeAsEffectiveBarcode(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, "")
	h := createHierarchy(t, e.db, 1, 1)

	item := createItem(t, e.db, 1, "Ноутбук", ptr("ITEM-1"))
	inv := createInventory(t, e.db, models.Inventory{CustomerID: 1, ItemID: &item.ID, Status: models.StatusActive, DetailLocationID: ptr(h.Details[0])})

	_, err := e.inventory.Update(ctx, 1, inv.ID, InventoryPatch{Status: ptr(int(models.StatusMissing))})
	require.NoError(t, err)

	entries := missingEntries(t, e.db, 1, "ITEM-1")
	require.Len(t, entries, 1)
	assert.Equal(t, h.Details[0], entries[0].DetailLocationID)
}

func TestSyncStrictPolicyReportsUnresolvedLocation(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, config.MissingLocationStrict)
	createHierarchy(t, e.db, 1, 1)

	inv := createInventory(t, e.db, models.Inventory{CustomerID: 1, Barcode: ptr("B1"), Status: models.StatusActive})

	result, err := e.inventory.Update(ctx, 1, inv.ID, InventoryPatch{Status: ptr(int(models.StatusMissing))})
	require.NoError(t, err, "основная запись сохраняется независимо от синхронизации")
	assert.ErrorIs(t, result.Projection.Err, ErrLocationUnresolved)
	assert.False(t, result.Projection.Report().Synced)
	assert.Equal(t, models.StatusMissing, result.Inventory.Status)
	assert.Empty(t, missingEntries(t, e.db, 1, "B1"))
}

func TestSyncWithoutAnyDetailLocation(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, config.MissingLocationFallback)

	inv := createInventory(t, e.db, models.Inventory{CustomerID: 1, Barcode: ptr("B1"), Status: models.StatusActive})

	result, err := e.inventory.Update(ctx, 1, inv.ID, InventoryPatch{Status: ptr(int(models.StatusMissing))})
	require.NoError(t, err)
	assert.ErrorIs(t, result.Projection.Err, ErrNoFallbackLocation)

	var stored models.Inventory
	require.NoError(t, e.db.First(&stored, inv.ID).Error)
	assert.Equal(t, models.StatusMissing, stored.Status)
}

func TestSyncStillMissingFollowsLocation(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, "")
	h := createHierarchy(t, e.db, 1, 2)

	start := h.Full(0)
	inv := createInventory(t, e.db, models.Inventory{
		CustomerID:       1,
		Barcode:          ptr("B1"),
		Status:           models.StatusMissing,
		BuildingID:       start.BuildingID,
		AreaID:           start.AreaID,
		FloorID:          start.FloorID,
		DetailLocationID: start.DetailLocationID,
	})
	require.NoError(t, e.db.Create(&models.MissingItem{CustomerID: 1, Barcode: "B1", DetailLocationID: h.Details[0]}).Error)

	target := h.Full(1)
	result, err := e.inventory.Update(ctx, 1, inv.ID, InventoryPatch{Location: &target})
	require.NoError(t, err)
	assert.Equal(t, SyncStillMissing, result.Projection.Case)

	entries := missingEntries(t, e.db, 1, "B1")
	require.Len(t, entries, 1)
	assert.Equal(t, h.Details[1], entries[0].DetailLocationID)
}

func TestSyncStillMissingWithoutLocationKeepsEntry(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, "")
	h := createHierarchy(t, e.db, 1, 2)

	inv := createInventory(t, e.db, models.Inventory{CustomerID: 1, Barcode: ptr("B1"), Status: models.StatusMissing})
	require.NoError(t, e.db.Create(&models.MissingItem{CustomerID: 1, Barcode: "B1", DetailLocationID: h.Details[1]}).Error)

	result, err := e.inventory.Update(ctx, 1, inv.ID, InventoryPatch{Comment: ptr("проверено")})
	require.NoError(t, err)
	assert.Equal(t, SyncStillMissing, result.Projection.Case)

	entries := missingEntries(t, e.db, 1, "B1")
	require.Len(t, entries, 1)
	assert.Equal(t, h.Details[1], entries[0].DetailLocationID)
}

func TestSyncDeletedRemovesEntry(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, "")
	h := createHierarchy(t, e.db, 1, 1)

	inv := createInventory(t, e.db, models.Inventory{CustomerID: 1, Barcode: ptr("B1"), Status: models.StatusMissing, DetailLocationID: ptr(h.Details[0])})
	require.NoError(t, e.db.Create(&models.MissingItem{CustomerID: 1, Barcode: "B1", DetailLocationID: h.Details[0]}).Error)

	result, err := e.inventory.Delete(ctx, 1, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, SyncDeleted, result.Projection.Case)
	assert.NoError(t, result.Projection.Err)
	assert.Empty(t, missingEntries(t, e.db, 1, "B1"))
}

func TestSyncIsScopedToTenant(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, "")
	h1 := createHierarchy(t, e.db, 1, 1)
	h2 := createHierarchy(t, e.db, 2, 1)

	inv := createInventory(t, e.db, models.Inventory{CustomerID: 1, Barcode: ptr("B1"), Status: models.StatusMissing, DetailLocationID: ptr(h1.Details[0])})
	require.NoError(t, e.db.Create(&models.MissingItem{CustomerID: 1, Barcode: "B1", DetailLocationID: h1.Details[0]}).Error)
	require.NoError(t, e.db.Create(&models.MissingItem{CustomerID: 2, Barcode: "B1", DetailLocationID: h2.Details[0]}).Error)

	_, err := e.inventory.Update(ctx, 1, inv.ID, InventoryPatch{Status: ptr(int(models.StatusActive))})
	require.NoError(t, err)

	assert.Empty(t, missingEntries(t, e.db, 1, "B1"))
	assert.Len(t, missingEntries(t, e.db, 2, "B1"), 1)

	_, err = e.inventory.Update(ctx, 2, inv.ID, InventoryPatch{Status: ptr(int(models.StatusMissing))})
	assert.ErrorIs(t, err, ErrInventoryNotFound)
}

func TestSyncProjectionUniquenessUnderRepeatedUpdates(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, "")
	h := createHierarchy(t, e.db, 1, 2)

	a := createInventory(t, e.db, models.Inventory{CustomerID: 1, Barcode: ptr("B5"), Status: models.StatusActive, DetailLocationID: ptr(h.Details[0])})
	b := createInventory(t, e.db, models.Inventory{CustomerID: 1, Barcode: ptr("B5"), Status: models.StatusActive, DetailLocationID: ptr(h.Details[1])})

	steps := []struct {
		id     uint
		status models.InventoryStatus
	}{
		{a.ID, models.StatusMissing},
		{b.ID, models.StatusMissing},
		{a.ID, models.StatusMissing},
		{a.ID, models.StatusRetired},
		{b.ID, models.StatusInactive},
		{b.ID, models.StatusMissing},
	}
	for _, step := range steps {
		_, err := e.inventory.Update(ctx, 1, step.id, InventoryPatch{Status: ptr(int(step.status))})
		require.NoError(t, err)

		var missingCount int64
		require.NoError(t, e.db.Model(&models.Inventory{}).Where("customer_id = ? AND barcode = ? AND status = ?", 1, "B5", models.StatusMissing).Count(&missingCount).Error)

		entries := missingEntries(t, e.db, 1, "B5")
		assert.LessOrEqual(t, len(entries), 1)
		assert.Equal(t, missingCount > 0, len(entries) == 1)
	}
}
