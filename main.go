package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"cookbook/config"
	"cookbook/handlers"
	"cookbook/services"
	"cookbook/storage"

	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.LogDevelopment {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	logging, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logging.Sync()

	if !cfg.LogDevelopment {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup Database
	db, err := storage.OpenDatabase(cfg, logging)
	if err != nil {
		logging.Fatal("Failed to open database", zap.Error(err))
	}
	defer func() {
		if err := storage.CloseDatabase(db); err != nil {
			logging.Warn("Failed to close database", zap.Error(err))
		}
	}()
	logging.Info("Successfully connected to recipe database.", zap.String("driver", cfg.DBDriver))

	repo := services.NewRecipeRepository(db, logging)

	// Setup Router
	router, err := handlers.NewRouter(repo, logging, handlers.Options{
		StaticDir: cfg.StaticDir,
		Ping: func(ctx context.Context) error {
			return storage.Ping(ctx, db)
		},
	})
	if err != nil {
		logging.Fatal("Router setup failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Setup Cron
	cronScheduler := setupSnapshotCron(ctx, cfg, repo, logging)
	if cronScheduler != nil {
		cronScheduler.Start()
	}

	logging.Info("Starting server", zap.String("port", cfg.HTTPPort))
	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("Failed to run server", zap.Error(err))
		}
	case <-ctx.Done():
		logging.Info("Shutdown signal received")
	}

	if cronScheduler != nil {
		<-cronScheduler.Stop().Done()
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error("Graceful shutdown failed", zap.Error(err))
	}
	logging.Info("Server stopped")
}

// setupSnapshotCron plant Katalog-Snapshots, wenn S3 konfiguriert ist.
func setupSnapshotCron(ctx context.Context, cfg *config.Config, repo *services.RecipeRepository, logging *zap.Logger) *cron.Cron {
	if cfg.SnapshotCron == "" || !cfg.SnapshotsEnabled() {
		logging.Info("Catalog snapshots disabled")
		return nil
	}

	store, err := storage.NewS3Store(ctx, cfg)
	if err != nil {
		logging.Error("S3 client creation failed, snapshots disabled", zap.Error(err))
		return nil
	}
	snapshots := services.NewSnapshotService(repo, store, cfg.SnapshotKeep, logging)

	cronScheduler := cron.New()
	_, err = cronScheduler.AddFunc(cfg.SnapshotCron, func() {
		logging.Info("Running scheduled catalog snapshot...")
		key, err := snapshots.Run(ctx)
		if err != nil {
			logging.Error("Snapshot job failed", zap.Error(err))
			return
		}
		logging.Info("Snapshot job completed", zap.String("key", key))
	})
	if err != nil {
		logging.Error("Invalid SNAPSHOT_CRON, snapshots disabled", zap.String("schedule", cfg.SnapshotCron), zap.Error(err))
		return nil
	}
	logging.Info("Catalog snapshots scheduled", zap.String("schedule", cfg.SnapshotCron), zap.String("bucket", cfg.S3Bucket))
	return cronScheduler
}
