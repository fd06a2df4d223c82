package database

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/shorif2005/projectflow/internal/models"
)

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Profile{},
		&models.EmailOTP{},
		&models.Session{},
		&models.Project{},
		&models.Task{},
		&models.TaskInvite{},
		&models.ProjectMessage{},
		&models.ActivityLog{},
		&models.CacheEntry{},
	)
}

// Migrate is the convenience helper used during application start-up.
func Migrate(db *gorm.DB) error {
	if db == nil {
		return errors.New("nil database handle")
	}

	if err := AutoMigrate(db); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	return nil
}
