// Command backup schreibt einmalig einen Katalog-Snapshot nach S3 und rotiert alte Snapshots.
// Gedacht für externe Scheduler (Kubernetes CronJob), wenn der Server selbst keine Snapshots plant.
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"cookbook/config"
	"cookbook/services"
	"cookbook/storage"

	"go.uber.org/zap"
)

func main() {
	logging, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logging.Sync()

	logging.Info("Starte Snapshot-Prozess...")

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal("Fehler beim Laden der Konfiguration", zap.Error(err))
	}
	if !cfg.SnapshotsEnabled() {
		logging.Fatal("S3 ist nicht konfiguriert (S3_URL, S3_BUCKET, S3_KEY, S3_SECRET)")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, 10*time.Minute)
	defer cancel()

	// 1. Datenbank öffnen
	db, err := storage.OpenDatabase(cfg, logging)
	if err != nil {
		logging.Fatal("Fehler beim Öffnen der Datenbank", zap.Error(err))
	}
	defer storage.CloseDatabase(db)

	// 2. S3-Client erstellen
	store, err := storage.NewS3Store(ctx, cfg)
	if err != nil {
		logging.Fatal("Fehler beim Erstellen des S3-Clients", zap.Error(err))
	}

	// 3. Snapshot hochladen und alte rotieren
	repo := services.NewRecipeRepository(db, logging)
	key, err := services.NewSnapshotService(repo, store, cfg.SnapshotKeep, logging).Run(ctx)
	if err != nil {
		logging.Fatal("Snapshot fehlgeschlagen", zap.Error(err))
	}

	logging.Info("Snapshot erfolgreich hochgeladen", zap.String("bucket", cfg.S3Bucket), zap.String("key", key))
}
