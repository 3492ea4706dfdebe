package cue

import (
	"log/slog"
	"sync"

	"github.com/jaki95/djtrack/internal/audio"
)

// Importer is a one-shot container of cue infos. Importing is deferred until
// the actual signal info of the audio stream is known.
type Importer interface {
	IsEmpty() bool
	Size() int
	HasCueOfType(t Type) bool

	// ImportCueInfosAndApplyTimingOffset drains the importer. Subsequent
	// calls return nil.
	ImportCueInfosAndApplyTimingOffset(location string, signalInfo audio.SignalInfo) []Info
}

// InfoImporter imports a fixed list of cue infos and shifts them by a
// timing offset on import.
type InfoImporter struct {
	mu                 sync.Mutex
	infos              []Info
	timingOffsetMillis float64
}

// NewInfoImporter returns an importer for a copy of infos.
func NewInfoImporter(infos []Info, timingOffsetMillis float64) *InfoImporter {
	return &InfoImporter{
		infos:              append([]Info(nil), infos...),
		timingOffsetMillis: timingOffsetMillis,
	}
}

func (i *InfoImporter) IsEmpty() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.infos) == 0
}

func (i *InfoImporter) Size() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.infos)
}

func (i *InfoImporter) HasCueOfType(t Type) bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	for _, info := range i.infos {
		if info.Type == t {
			return true
		}
	}
	return false
}

func (i *InfoImporter) ImportCueInfosAndApplyTimingOffset(location string, signalInfo audio.SignalInfo) []Info {
	i.mu.Lock()
	infos := i.infos
	i.infos = nil
	i.mu.Unlock()

	if len(infos) == 0 {
		return nil
	}
	slog.Debug("Importing cue infos",
		"location", location,
		"count", len(infos),
		"sampleRate", signalInfo.SampleRate,
		"offsetMillis", i.timingOffsetMillis)
	result := make([]Info, len(infos))
	for n, info := range infos {
		result[n] = info.WithOffset(i.timingOffsetMillis)
	}
	return result
}
