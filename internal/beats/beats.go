package beats

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/jaki95/djtrack/internal/assert"
	"github.com/jaki95/djtrack/internal/audio"
)

var ErrInvalidGrid = errors.New("invalid beat grid")

// Beats is an immutable beat grid. It is either based on a constant tempo
// anchored at a first beat, or on an explicit list of beat positions
// (variable tempo). Grids are never modified in place: operations that change
// the tempo or the positions return a new grid.
type Beats struct {
	sampleRate audio.SampleRate
	bpm        Bpm

	// constant tempo grids
	firstBeat audio.FramePos

	// variable tempo grids, sorted ascending, at least two entries
	positions []audio.FramePos
}

// FromConstTempo creates a grid with a fixed tempo. Returns nil if any
// argument is invalid.
func FromConstTempo(sampleRate audio.SampleRate, firstBeat audio.FramePos, bpm Bpm) *Beats {
	if !assert.Verify(sampleRate.IsValid(), "cannot create beat grid without sample rate") {
		return nil
	}
	if !assert.Verify(firstBeat.IsValid(), "cannot create beat grid without first beat") {
		return nil
	}
	if !assert.Verify(bpm.IsValid(), "cannot create beat grid with undefined bpm") {
		return nil
	}
	return &Beats{
		sampleRate: sampleRate,
		bpm:        bpm,
		firstBeat:  firstBeat,
	}
}

// FromBeatPositions creates a variable tempo grid from explicit beat
// positions. At least two valid positions are required.
func FromBeatPositions(sampleRate audio.SampleRate, positions []audio.FramePos) *Beats {
	if !assert.Verify(sampleRate.IsValid(), "cannot create beat map without sample rate") {
		return nil
	}
	sorted := make([]audio.FramePos, 0, len(positions))
	for _, pos := range positions {
		if pos.IsValid() {
			sorted = append(sorted, pos)
		}
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Less(sorted[j]) })
	if !assert.Verify(len(sorted) >= 2, "beat map requires at least two beats", "count", len(sorted)) {
		return nil
	}
	span := sorted[len(sorted)-1].Sub(sorted[0])
	if !assert.Verify(span > 0, "beat map positions must not coincide") {
		return nil
	}
	bpm := Bpm(60 * float64(sampleRate) * float64(len(sorted)-1) / span)
	return &Beats{
		sampleRate: sampleRate,
		bpm:        bpm,
		firstBeat:  sorted[0],
		positions:  sorted,
	}
}

// Bpm returns the tempo of a constant grid or the average tempo of a beat map.
func (b *Beats) Bpm() Bpm {
	if b == nil {
		return BpmUndefined
	}
	return b.bpm
}

// SampleRate returns the sample rate the positions refer to.
func (b *Beats) SampleRate() audio.SampleRate {
	return b.sampleRate
}

// FirstBeat returns the position of the first beat.
func (b *Beats) FirstBeat() audio.FramePos {
	return b.firstBeat
}

// IsConstTempo reports whether the grid has a fixed tempo.
func (b *Beats) IsConstTempo() bool {
	return len(b.positions) == 0
}

// Positions returns a copy of the explicit beat positions of a beat map. It
// returns nil for constant tempo grids.
func (b *Beats) Positions() []audio.FramePos {
	if b.IsConstTempo() {
		return nil
	}
	return append([]audio.FramePos(nil), b.positions...)
}

// SetBpm returns a grid with the given tempo. Beat maps are rescaled around
// their first beat, so the relative structure of the markers is preserved.
// Returns nil if bpm is undefined.
func (b *Beats) SetBpm(bpm Bpm) *Beats {
	if !assert.Verify(bpm.IsValid(), "cannot set undefined bpm on beat grid") {
		return nil
	}
	if bpm == b.bpm {
		return b
	}
	if b.IsConstTempo() {
		return FromConstTempo(b.sampleRate, b.firstBeat, bpm)
	}
	factor := float64(b.bpm) / float64(bpm)
	positions := make([]audio.FramePos, len(b.positions))
	for i, pos := range b.positions {
		positions[i] = b.firstBeat.Add(pos.Sub(b.firstBeat) * factor)
	}
	return &Beats{
		sampleRate: b.sampleRate,
		bpm:        bpm,
		firstBeat:  b.firstBeat,
		positions:  positions,
	}
}

// Translate returns a grid with all beats shifted by the given number of frames.
func (b *Beats) Translate(frames float64) *Beats {
	if frames == 0 {
		return b
	}
	translated := &Beats{
		sampleRate: b.sampleRate,
		bpm:        b.bpm,
		firstBeat:  b.firstBeat.Add(frames),
	}
	if !b.IsConstTempo() {
		translated.positions = make([]audio.FramePos, len(b.positions))
		for i, pos := range b.positions {
			translated.positions[i] = pos.Add(frames)
		}
	}
	return translated
}

// FindNextBeat returns the first beat at or after pos.
func (b *Beats) FindNextBeat(pos audio.FramePos) audio.FramePos {
	if !pos.IsValid() {
		return audio.InvalidFramePos
	}
	if b.IsConstTempo() {
		length := b.bpm.BeatLengthFrames(float64(b.sampleRate))
		n := math.Ceil(pos.Sub(b.firstBeat) / length)
		return b.firstBeat.Add(n * length)
	}
	i := sort.Search(len(b.positions), func(i int) bool {
		return !b.positions[i].Less(pos)
	})
	if i == len(b.positions) {
		return audio.InvalidFramePos
	}
	return b.positions[i]
}

// FindPrevBeat returns the last beat at or before pos.
func (b *Beats) FindPrevBeat(pos audio.FramePos) audio.FramePos {
	if !pos.IsValid() {
		return audio.InvalidFramePos
	}
	if b.IsConstTempo() {
		length := b.bpm.BeatLengthFrames(float64(b.sampleRate))
		n := math.Floor(pos.Sub(b.firstBeat) / length)
		return b.firstBeat.Add(n * length)
	}
	i := sort.Search(len(b.positions), func(i int) bool {
		return pos.Less(b.positions[i])
	})
	if i == 0 {
		return audio.InvalidFramePos
	}
	return b.positions[i-1]
}

// BeatsInRange returns all beats in [start, end).
func (b *Beats) BeatsInRange(start, end audio.FramePos) []audio.FramePos {
	if !start.IsValid() || !end.IsValid() || !start.Less(end) {
		return nil
	}
	var result []audio.FramePos
	if b.IsConstTempo() {
		length := b.bpm.BeatLengthFrames(float64(b.sampleRate))
		for pos := b.FindNextBeat(start); pos.Less(end); pos = pos.Add(length) {
			result = append(result, pos)
		}
		return result
	}
	for _, pos := range b.positions {
		if !pos.Less(start) && pos.Less(end) {
			result = append(result, pos)
		}
	}
	return result
}

func (b *Beats) String() string {
	if b == nil {
		return "Beats{}"
	}
	if b.IsConstTempo() {
		return fmt.Sprintf("Beats{bpm: %s, firstBeat: %s, sampleRate: %d}", b.bpm, b.firstBeat, b.sampleRate)
	}
	return fmt.Sprintf("Beats{bpm: %s, beats: %d, sampleRate: %d}", b.bpm, len(b.positions), b.sampleRate)
}
