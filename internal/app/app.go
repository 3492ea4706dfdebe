// Package app wires the library, its storage and metrics from the
// configuration. Both the CLI and the API server start through it.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jaki95/djtrack/config"
	"github.com/jaki95/djtrack/internal/assert"
	"github.com/jaki95/djtrack/internal/library"
	"github.com/jaki95/djtrack/internal/metrics"
	"github.com/jaki95/djtrack/internal/storage"
	"github.com/jaki95/djtrack/internal/track"
	"github.com/prometheus/client_golang/prometheus"
)

// App holds the services shared by all commands.
type App struct {
	Config   *config.Config
	Store    storage.Storage
	Library  *library.Library
	Exporter *library.Exporter
	Metrics  *metrics.TrackMetrics
	Registry *prometheus.Registry
}

// OpenStorage creates the storage for sidecar documents and cover images.
func OpenStorage(ctx context.Context, cfg config.StorageConfig) (storage.Storage, error) {
	switch cfg.Type {
	case "local":
		local, err := storage.NewLocalFileStorage(cfg.OutputDir)
		if err != nil {
			return nil, err
		}
		return local, nil
	case "gcs":
		gcs, err := storage.NewGCSStorage(ctx, cfg.Bucket, cfg.ObjectPrefix, cfg.CredentialsFile)
		if err != nil {
			return nil, err
		}
		return gcs, nil
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Type)
	}
}

// Open creates all services. Close releases them.
func Open(ctx context.Context, cfg *config.Config) (*App, error) {
	assert.SetStrict(cfg.Debug.StrictAssertions)

	registry := prometheus.NewRegistry()
	m, err := metrics.NewTrackMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	store, err := OpenStorage(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	lib, err := library.Open(cfg.Library.DatabasePath, library.Options{
		CacheTTL:        cfg.Cache.TTL,
		CleanupInterval: cfg.Cache.CleanupInterval,
		TrackOptions:    []track.Option{track.WithExtraMetadata(cfg.Library.ExtraMetadata)},
		Metrics:         m,
	})
	if err != nil {
		store.Close()
		return nil, err
	}

	slog.Debug("Opened library", "database", cfg.Library.DatabasePath,
		"storage", cfg.Storage.Type, "source", cfg.Metadata.Source)

	return &App{
		Config:   cfg,
		Store:    store,
		Library:  lib,
		Exporter: library.NewExporter(lib, store, cfg.Metadata.Source),
		Metrics:  m,
		Registry: registry,
	}, nil
}

// Close saves all loaded tracks and closes the library and the storage.
func (a *App) Close() error {
	return errors.Join(a.Library.Close(), a.Store.Close())
}
