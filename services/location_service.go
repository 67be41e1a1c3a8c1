package services

import (
	"context"
	"errors"
	"fmt"

	"locatrack-backend/models"

	"gorm.io/gorm"
)

// LocationService предоставляет чтение иерархии местоположений (только проверка)
type LocationService struct {
	db *gorm.DB
}

// NewLocationService создает новый сервис местоположений
func NewLocationService(db *gorm.DB) *LocationService {
	return &LocationService{db: db}
}

// ValidateChain проверяет, что заданные уровни образуют цепочку от корня без пропусков,
// каждый уровень принадлежит клиенту и вложен в предыдущий
func (s *LocationService) ValidateChain(ctx context.Context, tenantID uint, loc models.LocationTuple) error {
	if loc.IsEmpty() {
		return nil
	}

	// Уровни должны идти без пропусков: здание → зона → этаж → место
	levels := []*uint{loc.BuildingID, loc.AreaID, loc.FloorID, loc.DetailLocationID}
	names := []string{"buildingId", "areaId", "floorId", "detailLocationId"}
	for i := 1; i < len(levels); i++ {
		if levels[i] != nil && levels[i-1] == nil {
			return fmt.Errorf("%w: %s is set but %s is not", ErrInvalidLocation, names[i], names[i-1])
		}
	}

	db := s.db.WithContext(ctx)

	var building models.Building
	if err := s.lookup(db, &building, tenantID, *loc.BuildingID, "building"); err != nil {
		return err
	}

	if loc.AreaID == nil {
		return nil
	}
	var area models.Area
	if err := s.lookup(db, &area, tenantID, *loc.AreaID, "area"); err != nil {
		return err
	}
	if area.BuildingID == nil || *area.BuildingID != building.ID {
		return fmt.Errorf("%w: area %d is not in building %d", ErrInvalidLocation, area.ID, building.ID)
	}

	if loc.FloorID == nil {
		return nil
	}
	var floor models.Floor
	if err := s.lookup(db, &floor, tenantID, *loc.FloorID, "floor"); err != nil {
		return err
	}
	if floor.AreaID == nil || *floor.AreaID != area.ID {
		return fmt.Errorf("%w: floor %d is not in area %d", ErrInvalidLocation, floor.ID, area.ID)
	}

	if loc.DetailLocationID == nil {
		return nil
	}
	var detail models.DetailLocation
	if err := s.lookup(db, &detail, tenantID, *loc.DetailLocationID, "detail location"); err != nil {
		return err
	}
	if detail.FloorID == nil || *detail.FloorID != floor.ID {
		return fmt.Errorf("%w: detail location %d is not on floor %d", ErrInvalidLocation, detail.ID, floor.ID)
	}

	return nil
}

// FallbackDetailLocation возвращает detail_location клиента с наименьшим id
func (s *LocationService) FallbackDetailLocation(ctx context.Context, tx *gorm.DB, tenantID uint) (uint, error) {
	var detail models.DetailLocation
	err := tx.WithContext(ctx).Where("customer_id = ?", tenantID).Order("id ASC").First(&detail).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, ErrNoFallbackLocation
	}
	if err != nil {
		return 0, fmt.Errorf("loading fallback detail location: %w", err)
	}
	return detail.ID, nil
}

func (s *LocationService) lookup(db *gorm.DB, dest interface{}, tenantID, id uint, kind string) error {
	err := db.Where("id = ? AND customer_id = ?", id, tenantID).First(dest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s %d not found", ErrInvalidLocation, kind, id)
	}
	if err != nil {
		return fmt.Errorf("loading %s %d: %w", kind, id, err)
	}
	return nil
}
