package setup

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/Mocamp-Official/Mocamp-BackEnd/internal/domain"
)

// MigrateDB brings the users, rooms, participations and goals tables up to date.
func MigrateDB(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("cannot migrate database with nil DB connection")
	}

	err := db.AutoMigrate(
		&domain.User{},
		&domain.Room{},
		&domain.Participation{},
		&domain.Goal{},
	)
	if err != nil {
		logrus.Errorf("Failed to auto-migrate tables: %v", err)
		return fmt.Errorf("failed to auto-migrate tables: %w", err)
	}

	logrus.Info("Database migration completed successfully")
	return nil
}
