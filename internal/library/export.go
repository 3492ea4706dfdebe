package library

import (
	"context"
	"fmt"

	"github.com/jaki95/djtrack/internal/domain"
	"github.com/jaki95/djtrack/internal/metadata"
	"github.com/jaki95/djtrack/internal/storage"
	"github.com/jaki95/djtrack/internal/track"
)

// Exporter exports stored tracks into the metadata source of one kind.
type Exporter struct {
	lib   *Library
	store storage.Storage
	kind  string
}

// NewExporter returns an exporter writing into sources of the given kind.
// Sidecar sources are kept on store.
func NewExporter(lib *Library, store storage.Storage, kind string) *Exporter {
	return &Exporter{lib: lib, store: store, kind: kind}
}

// Source returns the metadata source of a track.
func (e *Exporter) Source(tr *track.Track) (metadata.Source, error) {
	return metadata.NewSource(e.kind, e.store, tr.Location())
}

// Kind names the metadata source.
func (e *Exporter) Kind() string {
	return e.kind
}

// ExportTrack loads a track and writes its metadata. With force, file tags
// that have never been imported are overwritten.
func (e *Exporter) ExportTrack(ctx context.Context, id domain.TrackID, force bool, opts track.ExportOptions) (track.ExportResult, error) {
	tr, err := e.lib.LoadTrack(ctx, id)
	if err != nil {
		return track.ExportFailed, err
	}
	source, err := e.Source(tr)
	if err != nil {
		return track.ExportFailed, fmt.Errorf("failed to export track %s: %w", id, err)
	}
	if force {
		tr.MarkForMetadataExport()
	}
	return e.lib.ExportMetadata(ctx, tr, source, opts)
}

// ImportTrack loads a track and replaces its metadata with the file tags.
func (e *Exporter) ImportTrack(ctx context.Context, id domain.TrackID) (metadata.ImportResult, error) {
	tr, err := e.lib.LoadTrack(ctx, id)
	if err != nil {
		return metadata.ImportFailed, err
	}
	source, err := e.Source(tr)
	if err != nil {
		return metadata.ImportFailed, fmt.Errorf("failed to import track %s: %w", id, err)
	}
	result := e.lib.ImportMetadata(ctx, tr, source, e.kind)
	if err := e.lib.SaveTrack(ctx, tr); err != nil {
		return result, err
	}
	return result, nil
}
