package models

import (
	"time"

	"gorm.io/gorm"
)

// MissingItem представляет запись проекции потерянных единиц.
// Не более одной записи на пару (клиент, штрихкод)
type MissingItem struct {
	ID               uint      `json:"id" gorm:"primaryKey"`
	CustomerID       uint      `json:"customer_id" gorm:"not null;uniqueIndex:idx_missing_customer_barcode"`
	Barcode          string    `json:"barcode" gorm:"not null;size:255;uniqueIndex:idx_missing_customer_barcode"`
	DetailLocationID uint      `json:"detail_location_id" gorm:"not null;index"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`

	// Связи
	DetailLocation *DetailLocation `json:"detail_location,omitempty" gorm:"foreignKey:DetailLocationID"`
}

// BeforeCreate хук для установки времени создания
func (m *MissingItem) BeforeCreate(tx *gorm.DB) error {
	m.CreatedAt = time.Now()
	m.UpdatedAt = time.Now()
	return nil
}

// BeforeUpdate хук для обновления времени изменения
func (m *MissingItem) BeforeUpdate(tx *gorm.DB) error {
	m.UpdatedAt = time.Now()
	return nil
}
