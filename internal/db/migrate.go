package db

import (
	"fmt"

	"github.com/sirdesai22/cf-tracker/internal/logger"
	"github.com/sirdesai22/cf-tracker/internal/models"
	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.Student{},
		&models.ContestResult{},
		&models.Submission{},
		&models.SyncFailure{},
		&models.Outbox{},
		&models.DLQ{},
	)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	log := logger.Named("db")
	log.Info().Msg("Database migrated successfully")
	return nil
}
