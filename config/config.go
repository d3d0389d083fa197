package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config enthält alle Konfigurationsparameter aus Umgebungsvariablen.
type Config struct {
	DBDriver   string `envconfig:"DB_DRIVER" default:"sqlite"`
	DBHost     string `envconfig:"DB_HOST"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER"`
	DBPassword string `envconfig:"DB_PASSWORD"`
	DBName     string `envconfig:"DB_NAME"`
	SQLitePath string `envconfig:"SQLITE_PATH" default:"recipes.db"`
	DBDebug    bool   `envconfig:"DB_DEBUG" default:"false"`

	HTTPPort  string `envconfig:"HTTP_PORT" default:"8000"`
	StaticDir string `envconfig:"STATIC_DIR" default:"static"`

	LogDevelopment bool `envconfig:"LOG_DEVELOPMENT" default:"false"`

	// Katalog-Snapshots nach S3, leer = deaktiviert
	SnapshotCron string `envconfig:"SNAPSHOT_CRON" default:"0 3 * * *"`
	SnapshotKeep int    `envconfig:"SNAPSHOT_KEEP" default:"4"`

	S3URL    string `envconfig:"S3_URL"`
	S3Region string `envconfig:"S3_REGION" default:"us-east-1"`
	S3Key    string `envconfig:"S3_KEY"`
	S3Secret string `envconfig:"S3_SECRET"`
	S3Bucket string `envconfig:"S3_BUCKET"`
}

// DSN gibt den Data Source Name für den konfigurierten Treiber zurück.
func (c *Config) DSN() string {
	if c.DBDriver == DriverPostgres {
		return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable",
			c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort)
	}
	// Foreign Keys sind in SQLite pro Verbindung abgeschaltet
	sep := "?"
	if strings.Contains(c.SQLitePath, "?") {
		sep = "&"
	}
	return c.SQLitePath + sep + "_foreign_keys=on"
}

// SnapshotsEnabled meldet, ob S3 für Katalog-Snapshots vollständig konfiguriert ist.
func (c *Config) SnapshotsEnabled() bool {
	return c.S3URL != "" && c.S3Bucket != "" && c.S3Key != "" && c.S3Secret != ""
}

// Validate prüft Kombinationen, die envconfig allein nicht ausdrücken kann.
func (c *Config) Validate() error {
	switch c.DBDriver {
	case DriverSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			return errors.New("SQLITE_PATH must not be empty")
		}
	case DriverPostgres:
		var missing []string
		if c.DBHost == "" {
			missing = append(missing, "DB_HOST")
		}
		if c.DBUser == "" {
			missing = append(missing, "DB_USER")
		}
		if c.DBName == "" {
			missing = append(missing, "DB_NAME")
		}
		if len(missing) > 0 {
			return fmt.Errorf("postgres driver requires %s", strings.Join(missing, ", "))
		}
	default:
		return fmt.Errorf("unknown DB_DRIVER %q", c.DBDriver)
	}
	if c.SnapshotKeep < 1 {
		return fmt.Errorf("SNAPSHOT_KEEP must be positive, got %d", c.SnapshotKeep)
	}
	return nil
}

// Load lädt die Konfiguration aus den Umgebungsvariablen.
func Load() (*Config, error) {
	_ = godotenv.Load()
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}
