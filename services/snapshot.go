package services

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"cookbook/metrics"
	"cookbook/storage"

	"go.uber.org/zap"
)

const snapshotPrefix = "snapshots/"

// CatalogExporter liefert den kompletten Katalog für einen Snapshot.
type CatalogExporter interface {
	Export(ctx context.Context) ([]RecipeDetail, error)
}

// CatalogSnapshot ist der Inhalt einer Snapshot-Datei.
type CatalogSnapshot struct {
	GeneratedAt time.Time      `json:"generated_at"`
	Recipes     []RecipeDetail `json:"recipes"`
}

// SnapshotService schreibt den Katalog als gzip-JSON in den Object Store und rotiert alte Snapshots.
type SnapshotService struct {
	Catalog CatalogExporter
	Store   storage.ObjectStore
	Keep    int
	Logger  *zap.Logger

	now func() time.Time
}

// NewSnapshotService erstellt eine neue Instanz des SnapshotService.
func NewSnapshotService(catalog CatalogExporter, store storage.ObjectStore, keep int, logger *zap.Logger) *SnapshotService {
	return &SnapshotService{
		Catalog: catalog,
		Store:   store,
		Keep:    keep,
		Logger:  logger,
		now:     time.Now,
	}
}

// Run erstellt einen Snapshot und gibt dessen Key zurück.
func (s *SnapshotService) Run(ctx context.Context) (string, error) {
	key, err := s.run(ctx)
	if err != nil {
		metrics.Snapshots.WithLabelValues("failure").Inc()
		return "", err
	}
	metrics.Snapshots.WithLabelValues("success").Inc()
	return key, nil
}

func (s *SnapshotService) run(ctx context.Context) (string, error) {
	recipes, err := s.Catalog.Export(ctx)
	if err != nil {
		return "", err
	}

	generatedAt := s.now().UTC()
	data, err := encodeSnapshot(CatalogSnapshot{GeneratedAt: generatedAt, Recipes: recipes})
	if err != nil {
		return "", err
	}

	key := snapshotPrefix + "catalog-" + generatedAt.Format("2006-01-02T15-04-05Z") + ".json.gz"
	if err := s.Store.PutObject(ctx, key, data, "application/gzip"); err != nil {
		return "", err
	}
	s.Logger.Info("Catalog snapshot uploaded",
		zap.String("key", key),
		zap.Int("recipes", len(recipes)),
		zap.Int("bytes", len(data)))

	if err := s.rotate(ctx); err != nil {
		return key, err
	}
	return key, nil
}

// rotate löscht alles jenseits der Keep neuesten Snapshots.
func (s *SnapshotService) rotate(ctx context.Context) error {
	objects, err := s.Store.ListObjects(ctx, snapshotPrefix)
	if err != nil {
		return err
	}
	if len(objects) <= s.Keep {
		return nil
	}

	sort.Slice(objects, func(i, j int) bool {
		if objects[i].LastModified.Equal(objects[j].LastModified) {
			return objects[i].Key > objects[j].Key
		}
		return objects[i].LastModified.After(objects[j].LastModified)
	})

	for _, obj := range objects[s.Keep:] {
		s.Logger.Info("Deleting old snapshot", zap.String("key", obj.Key))
		if err := s.Store.DeleteObject(ctx, obj.Key); err != nil {
			// weiter rotieren, der nächste Lauf räumt den Rest auf
			s.Logger.Warn("Failed to delete old snapshot", zap.String("key", obj.Key), zap.Error(err))
		}
	}
	return nil
}

func encodeSnapshot(snap CatalogSnapshot) ([]byte, error) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if err := json.NewEncoder(gz).Encode(snap); err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	if err := gz.Close(); err != nil {
		return nil, fmt.Errorf("compress snapshot: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeSnapshot liest eine Snapshot-Datei wieder ein.
func DecodeSnapshot(data []byte) (*CatalogSnapshot, error) {
	gz, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	defer gz.Close()

	var snap CatalogSnapshot
	if err := json.NewDecoder(gz).Decode(&snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &snap, nil
}
