package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/jaki95/djtrack/config"
	"github.com/jaki95/djtrack/internal/assert"
	"github.com/jaki95/djtrack/internal/metadata"
	testifyassert "github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Library.DatabasePath = filepath.Join(dir, "library.db")
	cfg.Storage.OutputDir = filepath.Join(dir, "sidecars")
	cfg.Metadata.Source = metadata.SourceSidecar
	cfg.Cache.CleanupInterval = -1
	cfg.Debug.StrictAssertions = true
	defer assert.SetStrict(false)

	ctx := context.Background()
	a, err := Open(ctx, cfg)
	require.NoError(t, err)
	testifyassert.Equal(t, metadata.SourceSidecar, a.Exporter.Kind())

	_, err = a.Library.AddTrack(ctx, filepath.Join(dir, "track.flac"))
	require.NoError(t, err)
	families, err := a.Registry.Gather()
	require.NoError(t, err)
	testifyassert.NotEmpty(t, families)
	require.NoError(t, a.Close())
}

func TestOpenUnknownStorage(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.Type = "ftp"
	_, err := Open(context.Background(), cfg)
	testifyassert.ErrorContains(t, err, "unknown storage type")
}
