// Package metadata reads and writes track metadata from and to its sources:
// the ID3v2 tags of audio files and YAML sidecar documents.
package metadata

import (
	"context"
	"time"

	"github.com/jaki95/djtrack/internal/domain"
)

// ImportResult is the outcome of reading metadata.
type ImportResult int

const (
	ImportSucceeded ImportResult = iota
	ImportFailed
	// ImportUnavailable means that the source holds no metadata yet.
	ImportUnavailable
)

func (r ImportResult) String() string {
	switch r {
	case ImportSucceeded:
		return "succeeded"
	case ImportUnavailable:
		return "unavailable"
	default:
		return "failed"
	}
}

// ExportResult is the outcome of writing metadata.
type ExportResult int

const (
	ExportSucceeded ExportResult = iota
	ExportUnsupported
	ExportFailed
)

func (r ExportResult) String() string {
	switch r {
	case ExportSucceeded:
		return "succeeded"
	case ExportUnsupported:
		return "unsupported"
	default:
		return "failed"
	}
}

// Source is the file tag storage of a single track. Failures are reported
// through the result values and logged by the implementation.
type Source interface {
	// ImportTrackMetadataAndCoverImage reads the metadata and the embedded
	// cover image, if any.
	ImportTrackMetadataAndCoverImage(ctx context.Context) (ImportResult, domain.TrackMetadata, []byte)

	// ExportTrackMetadata writes the metadata and returns the time at which
	// the source was synchronized.
	ExportTrackMetadata(ctx context.Context, metadata domain.TrackMetadata) (ExportResult, time.Time)
}
