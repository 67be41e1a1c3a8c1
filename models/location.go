package models

// Building представляет здание (корень иерархии местоположений)
type Building struct {
	ID         uint   `json:"id" gorm:"primaryKey"`
	CustomerID uint   `json:"customer_id" gorm:"not null;index"`
	Name       string `json:"name" gorm:"not null;size:120"`
}

// Area представляет зону внутри здания
type Area struct {
	ID         uint   `json:"id" gorm:"primaryKey"`
	CustomerID uint   `json:"customer_id" gorm:"not null;index"`
	BuildingID *uint  `json:"building_id" gorm:"index"`
	Name       string `json:"name" gorm:"not null;size:120"`
}

// Floor представляет этаж внутри зоны
type Floor struct {
	ID         uint   `json:"id" gorm:"primaryKey"`
	CustomerID uint   `json:"customer_id" gorm:"not null;index"`
	AreaID     *uint  `json:"area_id" gorm:"index"`
	Name       string `json:"name" gorm:"not null;size:120"`
}

// DetailLocation представляет конкретное место на этаже (лист иерархии)
type DetailLocation struct {
	ID         uint    `json:"id" gorm:"primaryKey"`
	CustomerID uint    `json:"customer_id" gorm:"not null;index"`
	FloorID    *uint   `json:"floor_id" gorm:"index"`
	Name       string  `json:"name" gorm:"not null;size:120"`
	ImgData    *string `json:"img_data" gorm:"size:120"`
}

// LocationTuple представляет четыре уровня местоположения записи.
// Любой уровень может быть не задан
type LocationTuple struct {
	BuildingID       *uint `json:"buildingId"`
	AreaID           *uint `json:"areaId"`
	FloorID          *uint `json:"floorId"`
	DetailLocationID *uint `json:"detailLocationId"`
}

// IsEmpty проверяет, что ни один уровень не задан
func (l LocationTuple) IsEmpty() bool {
	return l.BuildingID == nil && l.AreaID == nil && l.FloorID == nil && l.DetailLocationID == nil
}

// Columns возвращает значения для полного обновления местоположения.
// Незаданные уровни явно сбрасываются в NULL
func (l LocationTuple) Columns() map[string]interface{} {
	return map[string]interface{}{
		"building_id":        l.BuildingID,
		"area_id":            l.AreaID,
		"floor_id":           l.FloorID,
		"detail_location_id": l.DetailLocationID,
	}
}
