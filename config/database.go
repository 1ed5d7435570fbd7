package config

import (
	"fmt"

	"github.com/andrewpaige1/flashcardhero-api/models"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Connect opens the configured database and migrates the schema.
func Connect(env Environment) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch env.DBDriver {
	case DriverPostgres:
		dialector = postgres.Open(env.DBURL)
	case DriverSQLite:
		dialector = sqlite.Open(env.SQLitePath)
	default:
		return nil, fmt.Errorf("unknown database driver %q", env.DBDriver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate creates or updates the tables the server uses.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.User{}, &models.Collection{}, &models.Card{}); err != nil {
		return fmt.Errorf("failed to auto migrate database: %w", err)
	}
	return nil
}
