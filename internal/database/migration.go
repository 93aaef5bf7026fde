package database

import (
	"fmt"

	"github.com/hst-Sunday/SoloLink/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AutoMigrate runs database schema migrations for all models and seeds
// default settings.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Setting{},
		&models.ChargingEvent{},
		&models.LoginAttempt{},
		&models.Session{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	if err := SeedSettings(db); err != nil {
		return err
	}
	return nil
}

// SeedSettings inserts the default settings that are not present yet.
// Existing values are left untouched.
func SeedSettings(db *gorm.DB) error {
	rows := make([]models.Setting, 0, len(models.DefaultSettings))
	for k, v := range models.DefaultSettings {
		rows = append(rows, models.Setting{Key: k, Value: v})
	}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error; err != nil {
		return fmt.Errorf("seed settings: %w", err)
	}
	return nil
}
