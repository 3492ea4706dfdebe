package metadata

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/jaki95/djtrack/internal/domain"
	"github.com/jaki95/djtrack/internal/storage"
	"gopkg.in/yaml.v3"
)

const (
	sidecarExt = ".yaml"
	coverExt   = ".cover"
)

// sidecarDocument is the YAML layout of a sidecar.
type sidecarDocument struct {
	SynchronizedAt time.Time            `yaml:"synchronized_at"`
	Metadata       domain.TrackMetadata `yaml:"metadata"`
}

// SidecarSource keeps the metadata of a track in a YAML document next to
// the audio file on a storage. An optional cover image is stored under
// the same name with the ".cover" extension.
type SidecarSource struct {
	store storage.Storage
	name  string
	log   *slog.Logger
}

// SidecarName returns the storage name for the sidecar of an audio file.
func SidecarName(location string) string {
	name := strings.TrimPrefix(filepath.ToSlash(filepath.Clean(location)), "/")
	return strings.TrimSuffix(name, filepath.Ext(name)) + sidecarExt
}

func NewSidecarSource(store storage.Storage, location string) *SidecarSource {
	name := SidecarName(location)
	return &SidecarSource{
		store: store,
		name:  name,
		log:   slog.Default().With("component", "sidecar", "name", name),
	}
}

func (s *SidecarSource) coverName() string {
	return strings.TrimSuffix(s.name, sidecarExt) + coverExt
}

func (s *SidecarSource) ImportTrackMetadataAndCoverImage(ctx context.Context) (ImportResult, domain.TrackMetadata, []byte) {
	doc, err := s.read(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		return ImportUnavailable, domain.TrackMetadata{}, nil
	}
	if err != nil {
		s.log.Warn("Failed to read sidecar", "error", err)
		return ImportFailed, domain.TrackMetadata{}, nil
	}

	cover, err := storage.ReadFile(ctx, s.store, s.coverName())
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		s.log.Warn("Failed to read cover image", "error", err)
	}
	return ImportSucceeded, doc.Metadata, cover
}

func (s *SidecarSource) ExportTrackMetadata(ctx context.Context, md domain.TrackMetadata) (ExportResult, time.Time) {
	doc := sidecarDocument{
		SynchronizedAt: time.Now().UTC(),
		Metadata:       md,
	}
	if md.TrackInfo.EmbeddedTags.Status == domain.ParserStatusFailed {
		// Keep the stored tags that could not be parsed.
		if stored, err := s.read(ctx); err == nil {
			doc.Metadata.TrackInfo.EmbeddedTags = stored.Metadata.TrackInfo.EmbeddedTags
		}
	} else {
		doc.Metadata.TrackInfo.EmbeddedTags.Status = domain.ParserStatusNone
	}

	data, err := yaml.Marshal(&doc)
	if err != nil {
		s.log.Error("Failed to encode sidecar", "error", err)
		return ExportFailed, time.Time{}
	}
	if err := storage.WriteFile(ctx, s.store, s.name, data); err != nil {
		s.log.Error("Failed to write sidecar", "error", err)
		return ExportFailed, time.Time{}
	}
	s.log.Debug("Exported track metadata")
	return ExportSucceeded, doc.SynchronizedAt
}

// StoreCoverImage replaces the cover image of the sidecar.
func (s *SidecarSource) StoreCoverImage(ctx context.Context, image []byte) error {
	if len(image) == 0 {
		return s.store.Remove(ctx, s.coverName())
	}
	return storage.WriteFile(ctx, s.store, s.coverName(), image)
}

func (s *SidecarSource) read(ctx context.Context) (*sidecarDocument, error) {
	data, err := storage.ReadFile(ctx, s.store, s.name)
	if err != nil {
		return nil, err
	}
	var doc sidecarDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode sidecar %s: %w", s.name, err)
	}
	if embedded := &doc.Metadata.TrackInfo.EmbeddedTags; !embedded.IsEmpty() && embedded.Status == domain.ParserStatusNone {
		embedded.Status = domain.ParserStatusParsed
	}
	return &doc, nil
}
