package database

import (
	"fmt"

	gormadapter "github.com/casbin/gorm-adapter/v3"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/you/marketauth/internal/infrastructure/repositories"
)

// Open creates a new database connection. TranslateError is required so
// unique-index violations surface as gorm.ErrDuplicatedKey instead of
// driver-specific errors.
func Open(dsn string) (*gorm.DB, error) {
	config := &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	}

	return gorm.Open(postgres.Open(dsn), config)
}

// AutoMigrate performs database migration for all tables owned by this
// service, including the Casbin policy table.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&repositories.DBUser{},
		&repositories.DBSession{},
		&repositories.DBVerificationToken{},
		&repositories.DBSecurityLog{},
	); err != nil {
		return fmt.Errorf("failed to migrate auth tables: %w", err)
	}

	// The adapter creates the casbin_rule table on first use.
	if _, err := gormadapter.NewAdapterByDB(db); err != nil {
		return fmt.Errorf("failed to initialize Casbin GORM adapter: %w", err)
	}

	return nil
}
