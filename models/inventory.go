package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// InventoryStatus представляет статус единицы инвентаря
type InventoryStatus int

const (
	StatusInactive    InventoryStatus = 0
	StatusActive      InventoryStatus = 1
	StatusMaintenance InventoryStatus = 2
	StatusRetired     InventoryStatus = 3
	StatusMissing     InventoryStatus = 4
)

// EffectiveBarcodeSQL вычисляет эффективный штрихкод записи: собственный или штрихкод товара.
// Требует LEFT JOIN items ON items.id = inventories.item_id
const EffectiveBarcodeSQL = "COALESCE(NULLIF(inventories.barcode, ''), items.barcode)"

// JoinItemsSQL присоединяет товары для вычисления эффективного штрихкода
const JoinItemsSQL = "LEFT JOIN items ON items.id = inventories.item_id"

// String возвращает название статуса
func (s InventoryStatus) String() string {
	switch s {
	case StatusInactive:
		return "inactive"
	case StatusActive:
		return "active"
	case StatusMaintenance:
		return "maintenance"
	case StatusRetired:
		return "retired"
	case StatusMissing:
		return "missing"
	}
	return "unknown"
}

// Inventory представляет физическую единицу инвентаря клиента
type Inventory struct {
	ID               uint                `json:"id" gorm:"primaryKey"`
	CustomerID       uint                `json:"customer_id" gorm:"not null;index"`
	CategoryID       *uint               `json:"category_id" gorm:"index"`
	ItemID           *uint               `json:"item_id" gorm:"index"`
	BuildingID       *uint               `json:"building_id"`
	AreaID           *uint               `json:"area_id"`
	FloorID          *uint               `json:"floor_id"`
	DetailLocationID *uint               `json:"detail_location_id" gorm:"index"`
	PurchaseDate     *string             `json:"purchase_date" gorm:"size:120"`
	LastDate         *string             `json:"last_date" gorm:"size:120"`
	RefClient        *string             `json:"ref_client" gorm:"size:120"`
	Status           InventoryStatus     `json:"status" gorm:"not null;index"`
	RegDate          *string             `json:"reg_date" gorm:"size:120"`
	InvDate          *string             `json:"inv_date" gorm:"size:120"`
	Comment          *string             `json:"comment" gorm:"size:120"`
	RFID             *string             `json:"rfid" gorm:"column:rfid;size:120"`
	Barcode          *string             `json:"barcode" gorm:"size:120;index"`
	OperatorID       *uint               `json:"operator_id"`
	RoomAssignment   *string             `json:"room_assignment" gorm:"size:120"`
	PurchaseAmount   decimal.NullDecimal `json:"purchase_amount" gorm:"type:numeric(14,2)"`
	IsThrow          bool                `json:"is_throw" gorm:"default:false"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`

	// Связи
	Item           *Item           `json:"items,omitempty" gorm:"foreignKey:ItemID"`
	Category       *Category       `json:"categories,omitempty" gorm:"foreignKey:CategoryID"`
	Building       *Building       `json:"buildings,omitempty" gorm:"foreignKey:BuildingID"`
	Area           *Area           `json:"areas,omitempty" gorm:"foreignKey:AreaID"`
	Floor          *Floor          `json:"floors,omitempty" gorm:"foreignKey:FloorID"`
	DetailLocation *DetailLocation `json:"detail_locations,omitempty" gorm:"foreignKey:DetailLocationID"`
}

// BeforeCreate хук для установки времени создания
func (i *Inventory) BeforeCreate(tx *gorm.DB) error {
	i.CreatedAt = time.Now()
	i.UpdatedAt = time.Now()
	return nil
}

// BeforeUpdate хук для обновления времени изменения
func (i *Inventory) BeforeUpdate(tx *gorm.DB) error {
	i.UpdatedAt = time.Now()
	return nil
}

// EffectiveBarcode возвращает собственный штрихкод или штрихкод товара.
// Item должен быть предзагружен
func (i *Inventory) EffectiveBarcode() string {
	if i.Barcode != nil && *i.Barcode != "" {
		return *i.Barcode
	}
	if i.Item != nil && i.Item.Barcode != nil {
		return *i.Item.Barcode
	}
	return ""
}

// Location возвращает текущий кортеж местоположения записи
func (i *Inventory) Location() LocationTuple {
	return LocationTuple{
		BuildingID:       i.BuildingID,
		AreaID:           i.AreaID,
		FloorID:          i.FloorID,
		DetailLocationID: i.DetailLocationID,
	}
}

// IsMissing проверяет, находится ли запись в статусе "потерян"
func (i *Inventory) IsMissing() bool {
	return i.Status == StatusMissing
}
