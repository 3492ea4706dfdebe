package beats

import (
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/jaki95/djtrack/internal/audio"
)

// Serialization versions of beat grids.
const (
	VersionBeatGrid = "BeatGrid-2.0"
	VersionBeatMap  = "BeatMap-2.0"
)

// Snapshot is the serializable form of a beat grid.
type Snapshot struct {
	Version    string           `json:"version" yaml:"version"`
	SampleRate audio.SampleRate `json:"sample_rate" yaml:"sample_rate"`
	Bpm        Bpm              `json:"bpm,omitempty" yaml:"bpm,omitempty"`
	FirstBeat  audio.FramePos   `json:"first_beat,omitempty" yaml:"first_beat,omitempty"`
	Positions  []audio.FramePos `json:"positions,omitempty" yaml:"positions,omitempty"`
}

// Snapshot captures the grid for persistence.
func (b *Beats) Snapshot() Snapshot {
	if b.IsConstTempo() {
		return Snapshot{
			Version:    VersionBeatGrid,
			SampleRate: b.sampleRate,
			Bpm:        b.bpm,
			FirstBeat:  b.firstBeat,
		}
	}
	return Snapshot{
		Version:    VersionBeatMap,
		SampleRate: b.sampleRate,
		Positions:  b.Positions(),
	}
}

// FromSnapshot restores a grid captured by Snapshot.
func FromSnapshot(s Snapshot) (*Beats, error) {
	var b *Beats
	switch s.Version {
	case VersionBeatGrid:
		if !s.SampleRate.IsValid() || !s.FirstBeat.IsValid() || !s.Bpm.IsValid() {
			return nil, fmt.Errorf("%w: incomplete %s", ErrInvalidGrid, s.Version)
		}
		b = FromConstTempo(s.SampleRate, s.FirstBeat, s.Bpm)
	case VersionBeatMap:
		if !s.SampleRate.IsValid() || len(s.Positions) < 2 {
			return nil, fmt.Errorf("%w: incomplete %s", ErrInvalidGrid, s.Version)
		}
		b = FromBeatPositions(s.SampleRate, s.Positions)
	default:
		return nil, fmt.Errorf("%w: unknown version %q", ErrInvalidGrid, s.Version)
	}
	if b == nil {
		return nil, ErrInvalidGrid
	}
	return b, nil
}

// Marshal encodes the grid as JSON. A nil grid encodes to nil.
func Marshal(b *Beats) ([]byte, error) {
	if b == nil {
		return nil, nil
	}
	return json.Marshal(b.Snapshot())
}

// Unmarshal decodes a grid encoded by Marshal. Empty input yields a nil grid.
func Unmarshal(data []byte) (*Beats, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidGrid, err)
	}
	return FromSnapshot(s)
}
