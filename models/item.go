package models

// Item представляет товар из каталога клиента
type Item struct {
	ID         uint    `json:"id" gorm:"primaryKey"`
	CustomerID uint    `json:"customer_id" gorm:"not null;index"`
	CategoryID *uint   `json:"category_id" gorm:"index"`
	Name       string  `json:"name" gorm:"not null;size:120"`
	Barcode    *string `json:"barcode" gorm:"size:120"`
}

// Category представляет категорию товаров
type Category struct {
	ID         uint   `json:"id" gorm:"primaryKey"`
	CustomerID uint   `json:"customer_id" gorm:"not null;index"`
	Name       string `json:"name" gorm:"not null;size:120"`
}
