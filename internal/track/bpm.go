package track

import (
	"github.com/jaki95/djtrack/internal/assert"
	"github.com/jaki95/djtrack/internal/audio"
	"github.com/jaki95/djtrack/internal/beats"
	"github.com/jaki95/djtrack/internal/events"
)

// bpm returns the BPM of the metadata, which is always kept equal to the BPM
// of the beat grid.
func (t *Track) bpm(g *guard) beats.Bpm {
	g.assertHeld()
	bpm := t.record.Metadata.TrackInfo.Bpm
	assert.Debug(bpm == t.beats.Bpm(), "bpm of metadata and beat grid differ",
		"metadata", bpm, "beats", t.beats.Bpm())
	return bpm
}

// trySetBpm installs a grid for the given BPM. An invalid BPM clears the
// grid; without a grid a constant tempo grid is anchored at the main cue.
func (t *Track) trySetBpm(g *guard, bpm beats.Bpm) bool {
	g.assertHeld()
	if !bpm.IsValid() {
		return t.trySetBeats(g, nil, false)
	}
	if t.beats == nil {
		sampleRate := t.record.Metadata.StreamInfo.SignalInfo.SampleRate
		if !sampleRate.IsValid() {
			t.log.Warn("Cannot create beat grid without sample rate",
				"location", t.fileAccess.Location, "bpm", bpm)
			return false
		}
		cuePosition := t.record.MainCuePosition
		if !cuePosition.IsValid() {
			cuePosition = audio.StartFramePos
		}
		return t.trySetBeats(g, beats.FromConstTempo(sampleRate, cuePosition, bpm), false)
	}
	if t.beats.Bpm() != bpm {
		t.log.Debug("Updating BPM", "location", t.fileAccess.Location, "bpm", bpm)
		return t.trySetBeats(g, t.beats.SetBpm(bpm), false)
	}
	return false
}

// setBeats replaces the grid and derives the BPM of the metadata from it.
func (t *Track) setBeats(g *guard, grid *beats.Beats) bool {
	g.assertHeld()
	if t.beats == grid {
		return false
	}
	t.beats = grid
	t.record.Metadata.TrackInfo.Bpm = grid.Bpm()
	return true
}

// trySetBeats replaces the grid unless the current grid is BPM-locked.
func (t *Track) trySetBeats(g *guard, grid *beats.Beats, lockBpmAfterSet bool) bool {
	g.assertHeld()
	if t.beats != nil && t.record.BpmLocked {
		t.log.Debug("Track beats are already set and BPM-locked, discarding new beats",
			"location", t.fileAccess.Location)
		return false
	}
	modified := t.setBeats(g, grid)
	if compareAndSet(&t.record.BpmLocked, lockBpmAfterSet) {
		modified = true
	}
	return modified
}

func (t *Track) trySetBeatsMarkDirtyAndUnlock(g *guard, grid *beats.Beats, lockBpmAfterSet bool) bool {
	if !t.trySetBeats(g, grid, lockBpmAfterSet) {
		return false
	}
	t.afterBeatsAndBpmUpdated(g)
	return true
}

func (t *Track) beatsAndBpmEvents(g *guard) []events.Event {
	return []events.Event{
		t.event(g, events.KindBpmChanged, t.record.Metadata.TrackInfo.Bpm.Value()),
		t.event(g, events.KindBeatsUpdated, nil),
	}
}

func (t *Track) afterBeatsAndBpmUpdated(g *guard, followUps ...events.Event) {
	published := append(t.beatsAndBpmEvents(g), followUps...)
	t.markDirtyAndUnlock(g, published...)
}

// Bpm returns the tempo or beats.BpmUndefined if there is no beat grid.
func (t *Track) Bpm() beats.Bpm {
	g := t.lock()
	defer g.unlock()
	return t.bpm(g)
}

// TrySetBpm adjusts the beat grid to the given tempo. It returns false if
// nothing changed, e.g. because the grid is BPM-locked.
func (t *Track) TrySetBpm(bpm beats.Bpm) bool {
	g := t.lock()
	defer g.unlock()
	if !t.trySetBpm(g, bpm) {
		return false
	}
	t.afterBeatsAndBpmUpdated(g)
	return true
}

// Beats returns the current beat grid or nil. Grids are immutable.
func (t *Track) Beats() *beats.Beats {
	g := t.lock()
	defer g.unlock()
	return t.beats
}

// TrySetBeats replaces the beat grid and unlocks the BPM. It fails if the
// current grid is BPM-locked.
func (t *Track) TrySetBeats(grid *beats.Beats) bool {
	g := t.lock()
	defer g.unlock()
	return t.trySetBeatsMarkDirtyAndUnlock(g, grid, false)
}

// TrySetAndLockBeats replaces the beat grid and locks the BPM. It fails if
// the current grid is BPM-locked.
func (t *Track) TrySetAndLockBeats(grid *beats.Beats) bool {
	g := t.lock()
	defer g.unlock()
	return t.trySetBeatsMarkDirtyAndUnlock(g, grid, true)
}

// IsBpmLocked reports whether the beat grid is protected from automatic
// replacement.
func (t *Track) IsBpmLocked() bool {
	g := t.lock()
	defer g.unlock()
	return t.record.BpmLocked
}

// SetBpmLocked locks or unlocks the beat grid.
func (t *Track) SetBpmLocked(locked bool) {
	g := t.lock()
	defer g.unlock()
	if compareAndSet(&t.record.BpmLocked, locked) {
		t.markDirtyAndUnlock(g)
	}
}
