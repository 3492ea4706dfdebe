package beats

import (
	"log/slog"
	"sync"

	"github.com/jaki95/djtrack/internal/assert"
	"github.com/jaki95/djtrack/internal/audio"
)

// Importer is a one-shot container of beat information whose positions are
// expressed in time. The actual sample rate of the audio stream is needed to
// convert them into frames, which is why importing might be deferred until
// the stream has been opened.
type Importer interface {
	// IsEmpty reports whether there is nothing (left) to import.
	IsEmpty() bool

	// ImportBeatsAndApplyTimingOffset drains the importer and returns the
	// grid. Subsequent calls return nil.
	ImportBeatsAndApplyTimingOffset(location string, streamInfo audio.StreamInfo) *Beats
}

// TimedImporter imports beats given in milliseconds, either as a constant
// tempo anchored at a first beat or as a list of beat times. The timing
// offset is added to all times before conversion.
type TimedImporter struct {
	mu                 sync.Mutex
	bpm                Bpm
	firstBeatMillis    float64
	beatMillis         []float64
	timingOffsetMillis float64
	drained            bool
}

// NewConstTempoImporter returns an importer for a constant tempo grid.
func NewConstTempoImporter(bpm Bpm, firstBeatMillis, timingOffsetMillis float64) *TimedImporter {
	return &TimedImporter{
		bpm:                bpm,
		firstBeatMillis:    firstBeatMillis,
		timingOffsetMillis: timingOffsetMillis,
	}
}

// NewBeatMapImporter returns an importer for a variable tempo grid.
func NewBeatMapImporter(beatMillis []float64, timingOffsetMillis float64) *TimedImporter {
	return &TimedImporter{
		beatMillis:         append([]float64(nil), beatMillis...),
		timingOffsetMillis: timingOffsetMillis,
	}
}

// NewSnapshotImporter returns an importer that restores a grid captured at
// another sample rate. Positions are converted through time.
func NewSnapshotImporter(s Snapshot, timingOffsetMillis float64) *TimedImporter {
	if !s.SampleRate.IsValid() {
		return &TimedImporter{drained: true}
	}
	signal := audio.NewSignalInfo(audio.ChannelCountStereo, s.SampleRate)
	switch s.Version {
	case VersionBeatGrid:
		return NewConstTempoImporter(s.Bpm, signal.FramesToMillis(s.FirstBeat.Value()), timingOffsetMillis)
	case VersionBeatMap:
		millis := make([]float64, 0, len(s.Positions))
		for _, pos := range s.Positions {
			if pos.IsValid() {
				millis = append(millis, signal.FramesToMillis(pos.Value()))
			}
		}
		return NewBeatMapImporter(millis, timingOffsetMillis)
	default:
		return &TimedImporter{drained: true}
	}
}

func (i *TimedImporter) IsEmpty() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.isEmptyLocked()
}

func (i *TimedImporter) isEmptyLocked() bool {
	if i.drained {
		return true
	}
	return !i.bpm.IsValid() && len(i.beatMillis) < 2
}

func (i *TimedImporter) ImportBeatsAndApplyTimingOffset(location string, streamInfo audio.StreamInfo) *Beats {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.isEmptyLocked() {
		return nil
	}
	i.drained = true

	signal := streamInfo.SignalInfo
	if !assert.Verify(signal.SampleRate.IsValid(), "cannot import beats without sample rate", "location", location) {
		return nil
	}

	slog.Debug("Importing beats", "location", location, "offsetMillis", i.timingOffsetMillis)
	if len(i.beatMillis) >= 2 {
		positions := make([]audio.FramePos, len(i.beatMillis))
		for n, millis := range i.beatMillis {
			positions[n] = audio.NewFramePos(signal.MillisToFrames(millis + i.timingOffsetMillis))
		}
		return FromBeatPositions(signal.SampleRate, positions)
	}
	firstBeat := audio.NewFramePos(signal.MillisToFrames(i.firstBeatMillis + i.timingOffsetMillis))
	return FromConstTempo(signal.SampleRate, firstBeat, i.bpm)
}
