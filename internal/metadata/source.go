package metadata

import (
	"fmt"

	"github.com/jaki95/djtrack/internal/storage"
)

// Source kinds accepted by NewSource.
const (
	SourceID3     = "id3"
	SourceSidecar = "sidecar"
)

// NewSource returns the source of the given kind for the audio file at
// location. Sidecar documents are kept on store.
func NewSource(kind string, store storage.Storage, location string) (Source, error) {
	switch kind {
	case SourceID3:
		return NewID3Source(location), nil
	case SourceSidecar:
		if store == nil {
			return nil, fmt.Errorf("%w: sidecar source requires a storage", ErrUnknownSource)
		}
		return NewSidecarSource(store, location), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSource, kind)
	}
}
