package models

import (
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// InitDB инициализирует подключение к базе данных
func InitDB(databaseURL, sqlitePath string) (*gorm.DB, error) {
	config := &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)}

	if databaseURL != "" {
		// Используем PostgreSQL для продакшена
		return gorm.Open(postgres.Open(databaseURL), config)
	}

	// Используем SQLite для разработки
	if sqlitePath == "" {
		sqlitePath = "locatrack.db"
	}
	return gorm.Open(sqlite.Open(sqlitePath), config)
}

// Migrate выполняет автомиграцию всех таблиц
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Building{},
		&Area{},
		&Floor{},
		&DetailLocation{},
		&Category{},
		&Item{},
		&Inventory{},
		&MissingItem{},
	)
}
