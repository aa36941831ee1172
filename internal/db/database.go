package db

import (
	"fmt"
	"time"

	"github.com/JGooseK41/NFTServiceApp-sub006/internal/config"
	"github.com/JGooseK41/NFTServiceApp-sub006/internal/db/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Initialize opens the Postgres connection and runs migrations. The returned
// handle is passed into each component's constructor; there is no package
// global.
func Initialize(cfg *config.Configuration) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
		cfg.Database.Host,
		cfg.Database.Username,
		cfg.Database.Password,
		cfg.Database.Name,
		cfg.Database.Port,
		cfg.Database.SSLMode,
	)

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
		// Needed so a document-id collision surfaces as gorm.ErrDuplicatedKey.
		TranslateError: true,
	}

	database, err := gorm.Open(postgres.Open(dsn), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := database.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.Database.ConnMaxLifetime) * time.Second)

	if err := runMigrations(database); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return database, nil
}

func runMigrations(database *gorm.DB) error {
	return database.AutoMigrate(
		&models.EncryptedDocument{},
		&models.AccessToken{},
		&models.AccessAttempt{},
		&models.AccessLog{},
		&models.Notice{},
		&models.ProcessServer{},
	)
}
