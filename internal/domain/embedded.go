package domain

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/jaki95/djtrack/internal/audio"
	"github.com/jaki95/djtrack/internal/beats"
	"github.com/jaki95/djtrack/internal/color"
	"github.com/jaki95/djtrack/internal/cue"
)

// ParserStatus is the outcome of parsing embedded DJ tags.
type ParserStatus int

const (
	ParserStatusNone ParserStatus = iota
	ParserStatusParsed
	ParserStatusFailed
)

// EmbeddedTags are DJ specific properties stored alongside the regular file
// tags: track color, BPM lock, cue points and beat grid. Positions are stored
// without the decoder timing offset, which is applied again on import.
type EmbeddedTags struct {
	Status             ParserStatus    `json:"status,omitempty" yaml:"status,omitempty"`
	Color              color.Optional  `json:"color" yaml:"color,omitempty"`
	BpmLocked          bool            `json:"bpm_locked,omitempty" yaml:"bpm_locked,omitempty"`
	CueInfos           []cue.Info      `json:"cue_infos,omitempty" yaml:"cue_infos,omitempty"`
	Beats              *beats.Snapshot `json:"beats,omitempty" yaml:"beats,omitempty"`
	TimingOffsetMillis float64         `json:"timing_offset_millis,omitempty" yaml:"timing_offset_millis,omitempty"`
}

// mp3DecoderDelayFrames is the decoder delay that most MP3 decoders skip.
const mp3DecoderDelayFrames = 529

// GuessTimingOffsetMillis returns the offset between positions stored by
// other DJ software and the positions of the decoded stream.
func GuessTimingOffsetMillis(location string, signalInfo audio.SignalInfo) float64 {
	if !strings.EqualFold(filepath.Ext(location), ".mp3") || !signalInfo.SampleRate.IsValid() {
		return 0
	}
	return -signalInfo.FramesToMillis(mp3DecoderDelayFrames)
}

// IsEmpty reports whether no DJ properties are stored.
func (e EmbeddedTags) IsEmpty() bool {
	return !e.Color.IsSet() && !e.BpmLocked && len(e.CueInfos) == 0 && e.Beats == nil
}

// ImportBeats returns an importer for the stored beat grid or nil.
func (e EmbeddedTags) ImportBeats() beats.Importer {
	if e.Beats == nil || e.Status == ParserStatusFailed {
		return nil
	}
	return beats.NewSnapshotImporter(*e.Beats, e.TimingOffsetMillis)
}

// ImportCueInfos returns an importer for the stored cues or nil.
func (e EmbeddedTags) ImportCueInfos() cue.Importer {
	if len(e.CueInfos) == 0 || e.Status == ParserStatusFailed {
		return nil
	}
	return cue.NewInfoImporter(e.CueInfos, e.TimingOffsetMillis)
}

// SetCueInfos stores the cues with the timing offset removed.
func (e *EmbeddedTags) SetCueInfos(infos []cue.Info, timingOffsetMillis float64) {
	e.TimingOffsetMillis = timingOffsetMillis
	if len(infos) == 0 {
		e.CueInfos = nil
		return
	}
	e.CueInfos = make([]cue.Info, len(infos))
	for i, info := range infos {
		e.CueInfos[i] = info.WithOffset(-timingOffsetMillis)
	}
}

// SetBeats stores the grid with the timing offset removed. Beat markers
// beyond the end of the stream are dropped.
func (e *EmbeddedTags) SetBeats(grid *beats.Beats, signalInfo audio.SignalInfo, duration time.Duration, timingOffsetMillis float64) {
	e.TimingOffsetMillis = timingOffsetMillis
	if grid == nil {
		e.Beats = nil
		return
	}
	shifted := grid.Translate(-signalInfo.MillisToFrames(timingOffsetMillis))
	snapshot := shifted.Snapshot()
	if !shifted.IsConstTempo() && duration > 0 {
		end := audio.NewFramePos(signalInfo.SecsToFrames(duration.Seconds()))
		kept := snapshot.Positions[:0]
		for _, pos := range snapshot.Positions {
			if !end.Less(pos) {
				kept = append(kept, pos)
			}
		}
		snapshot.Positions = kept
	}
	e.Beats = &snapshot
}

// Clone returns a deep copy.
func (e EmbeddedTags) Clone() EmbeddedTags {
	if e.CueInfos != nil {
		infos := make([]cue.Info, len(e.CueInfos))
		for i, info := range e.CueInfos {
			infos[i] = info.WithOffset(0)
		}
		e.CueInfos = infos
	}
	if e.Beats != nil {
		snapshot := *e.Beats
		if e.Beats.Positions != nil {
			snapshot.Positions = append([]audio.FramePos{}, e.Beats.Positions...)
		}
		e.Beats = &snapshot
	}
	return e
}
