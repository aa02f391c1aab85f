package db

import (
	"strings"

	"github.com/sirdesai22/cf-tracker/internal/logger"
	"github.com/sirdesai22/cf-tracker/internal/models"
	"gorm.io/gorm"
)

// Seed creates one roster entry per handle when the roster is empty.
func Seed(db *gorm.DB, handles []string) error {
	log := logger.Named("db")

	var count int64
	if err := db.Model(&models.Student{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		log.Info().Int64("students", count).Msg("Roster already exists, skipping seed")
		return nil
	}

	return db.Transaction(func(tx *gorm.DB) error {
		created := 0
		for _, h := range handles {
			h = strings.TrimSpace(h)
			if h == "" {
				continue
			}
			s := models.Student{Name: h, CodeforcesHandle: h, EmailRemindersEnabled: true}
			if err := tx.Create(&s).Error; err != nil {
				return err
			}
			created++
		}
		log.Info().Int("students", created).Msg("Seeded roster")
		return nil
	})
}
