package library

import (
	"context"
	"testing"

	"github.com/jaki95/djtrack/internal/metadata"
	"github.com/jaki95/djtrack/internal/storage"
	"github.com/jaki95/djtrack/internal/track"
	testifyassert "github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExporterExportAndImportTrack(t *testing.T) {
	ctx := context.Background()
	lib := openTestLibrary(t, ":memory:")
	store, err := storage.NewLocalFileStorage(t.TempDir())
	require.NoError(t, err)
	defer store.Close()
	exporter := NewExporter(lib, store, metadata.SourceSidecar)

	tr, err := lib.AddTrack(ctx, "/music/set/track.flac")
	require.NoError(t, err)
	tr.SetArtist("Artist")
	tr.SetTitle("Title")
	require.NoError(t, lib.SaveTrack(ctx, tr))

	result, err := exporter.ExportTrack(ctx, tr.ID(), false, track.ExportOptions{})
	require.NoError(t, err)
	testifyassert.Equal(t, track.ExportSkipped, result, "tags that were never imported are kept")
	testifyassert.False(t, store.FileExists(ctx, metadata.SidecarName(tr.Location())))

	result, err = exporter.ExportTrack(ctx, tr.ID(), true, track.ExportOptions{})
	require.NoError(t, err)
	testifyassert.Equal(t, track.ExportSucceeded, result)
	testifyassert.True(t, store.FileExists(ctx, metadata.SidecarName(tr.Location())))
	testifyassert.True(t, tr.IsSourceSynchronized())
	testifyassert.False(t, tr.IsDirty(), "the synchronization time is saved")

	other, err := lib.AddTrack(ctx, "/music/set/other.wav")
	require.NoError(t, err)
	importResult, err := exporter.ImportTrack(ctx, other.ID())
	require.NoError(t, err)
	testifyassert.Equal(t, metadata.ImportUnavailable, importResult)

	otherID := other.ID()
	require.NoError(t, lib.PurgeTrack(ctx, otherID))
	_, err = exporter.ExportTrack(ctx, otherID, true, track.ExportOptions{})
	testifyassert.ErrorIs(t, err, ErrTrackNotFound)
}

func TestExporterUnknownSource(t *testing.T) {
	ctx := context.Background()
	lib := openTestLibrary(t, ":memory:")
	tr, err := lib.AddTrack(ctx, "/music/track.mp3")
	require.NoError(t, err)

	result, err := NewExporter(lib, nil, "vorbis").ExportTrack(ctx, tr.ID(), true, track.ExportOptions{})
	testifyassert.Equal(t, track.ExportFailed, result)
	testifyassert.ErrorIs(t, err, metadata.ErrUnknownSource)
}
