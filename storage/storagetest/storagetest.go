// Package storagetest stellt eine frische In-Memory-Datenbank für Tests bereit.
package storagetest

import (
	"testing"

	"cookbook/config"
	"cookbook/storage"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// NewDB öffnet eine eigene SQLite-In-Memory-Datenbank mit migriertem Schema.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	cfg := &config.Config{
		DBDriver:   config.DriverSQLite,
		SQLitePath: "file:" + uuid.NewString() + "?mode=memory&cache=shared",
	}
	db, err := storage.OpenDatabase(cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() {
		_ = storage.CloseDatabase(db)
	})
	return db
}
