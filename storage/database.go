package storage

import (
	"context"
	"fmt"

	"cookbook/config"
	"cookbook/models"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// OpenDatabase öffnet die Datenbank für den konfigurierten Treiber und migriert das Schema.
func OpenDatabase(cfg *config.Config, log *zap.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DBDriver {
	case config.DriverPostgres:
		dialector = postgres.Open(cfg.DSN())
	case config.DriverSQLite:
		dialector = sqlite.Open(cfg.DSN())
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.DBDriver)
	}

	logMode := logger.Silent
	if cfg.DBDebug {
		logMode = logger.Info
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logMode),
		// Unique-Verletzungen kommen als gorm.ErrDuplicatedKey zurück
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", cfg.DBDriver, err)
	}

	if cfg.DBDriver == config.DriverSQLite {
		// SQLite serialisiert Schreibzugriffe ohnehin
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	log.Info("Running database auto-migration...", zap.String("driver", cfg.DBDriver))
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate legt die Tabellen recipes und ingredients an, falls sie fehlen.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.Recipe{}, &models.Ingredient{}); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return nil
}

// Ping prüft, ob die Datenbank erreichbar ist.
func Ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// CloseDatabase gibt den Verbindungspool frei.
func CloseDatabase(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
