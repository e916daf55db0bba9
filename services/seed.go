package services

import (
	"log"

	"game-progression-service/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SeedDefinitions inserts the default achievement and mission catalogs,
// skipping anything already present so reboots never duplicate rows.
func SeedDefinitions(db *gorm.DB) error {
	for _, def := range models.DefaultAchievements {
		var count int64
		if err := db.Model(&models.Achievement{}).Where("key = ?", def.Key).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			continue
		}
		def.ID = uuid.NewString()
		def.IsActive = true
		if err := db.Create(&def).Error; err != nil {
			return err
		}
		log.Printf("🏅 Seeded achievement: %s", def.Key)
	}

	for _, def := range models.DefaultMissions {
		var count int64
		if err := db.Model(&models.Mission{}).Where("title = ?", def.Title).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			continue
		}
		def.ID = uuid.NewString()
		def.IsActive = true
		if err := db.Create(&def).Error; err != nil {
			return err
		}
		log.Printf("🎯 Seeded mission: %s", def.Title)
	}
	return nil
}
