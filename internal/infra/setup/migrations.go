package setup

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/slumio/Bro-code/internal/domain"
)

// MigrateDB brings the schema up to date for all persisted models.
func MigrateDB(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("cannot migrate database with nil DB connection")
	}
	err := db.AutoMigrate(
		&domain.Room{},
		&domain.FileNode{},
		&domain.ChatMessage{},
		&domain.User{},
	)
	if err != nil {
		return fmt.Errorf("setup: auto-migrate tables: %w", err)
	}
	return nil
}
