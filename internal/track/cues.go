package track

import (
	"slices"

	"github.com/jaki95/djtrack/internal/assert"
	"github.com/jaki95/djtrack/internal/audio"
	"github.com/jaki95/djtrack/internal/cue"
	"github.com/jaki95/djtrack/internal/domain"
	"github.com/jaki95/djtrack/internal/events"
)

// updateCue applies a modification of an owned cue. It returns false if the
// cue is no longer owned by t, in which case the caller retries with the new
// owner.
func (t *Track) updateCue(c *Cue, mutate func() bool) bool {
	g := t.lock()
	defer g.unlock()
	if c.owner.Load() != t {
		return false
	}
	hasOtherMainCue := slices.ContainsFunc(t.cues, func(other *Cue) bool {
		return other != c && other.Type() == cue.TypeMainCue
	})
	m := c.mutateLocked(mutate, !hasOtherMainCue)
	if !assert.Verify(!m.rejected, "track already has a main cue",
		"location", t.fileAccess.Location) || !m.changed {
		return true
	}
	switch {
	case m.typ == cue.TypeMainCue:
		t.record.MainCuePosition = m.start
	case m.prevType == cue.TypeMainCue:
		t.record.MainCuePosition = audio.StartFramePos
	}
	t.markDirtyAndUnlock(g, t.event(g, events.KindCuesUpdated, nil))
	return true
}

func (t *Track) attachCue(g *guard, c *Cue) {
	g.assertHeld()
	c.owner.Store(t)
	t.cues = append(t.cues, c)
}

func (t *Track) detachCue(g *guard, c *Cue) {
	g.assertHeld()
	c.owner.CompareAndSwap(t, nil)
}

func (t *Track) findCueByType(g *guard, typ cue.Type) *Cue {
	g.assertHeld()
	for _, c := range t.cues {
		if c.Type() == typ {
			return c
		}
	}
	return nil
}

// setCuePoints replaces all cues. Only the first main cue is kept and its
// position is mirrored into the record.
func (t *Track) setCuePoints(g *guard, cues []*Cue) bool {
	g.assertHeld()
	if len(t.cues) == 0 && len(cues) == 0 {
		return false
	}
	// Pending cue infos and live cues must not coexist.
	assert.Debug(len(cues) == 0 || t.cueImporterPending == nil || t.cueImporterPending.IsEmpty(),
		"replacing cues while an import of cues is pending",
		"location", t.fileAccess.Location)
	for _, c := range t.cues {
		t.detachCue(g, c)
	}
	t.cues = make([]*Cue, 0, len(cues))
	hasMainCue := false
	for _, c := range cues {
		if c == nil {
			continue
		}
		if owner := c.owner.Load(); !assert.Verify(owner == nil || owner == t,
			"cue is owned by another track", "cue", c) {
			continue
		}
		typ, pos := c.typeAndPosition()
		if typ == cue.TypeMainCue {
			if hasMainCue {
				t.log.Warn("Discarding duplicate main cue",
					"location", t.fileAccess.Location, "cue", c)
				continue
			}
			hasMainCue = true
			t.record.MainCuePosition = pos
		}
		t.attachCue(g, c)
	}
	return true
}

func (t *Track) setCuePointsMarkDirtyAndUnlock(g *guard, cues []*Cue) {
	if !t.setCuePoints(g, cues) {
		g.unlock()
		return
	}
	t.markDirtyAndUnlock(g, t.event(g, events.KindCuesUpdated, nil))
}

// CreateAndAddCue adds a new cue. Either the start or the end position must
// be valid. A track has at most one main cue. Returns nil if the arguments
// are rejected.
func (t *Track) CreateAndAddCue(typ cue.Type, hotCueIndex int, start, end audio.FramePos) *Cue {
	if !assert.Verify(cue.IsValidHotCueIndex(hotCueIndex), "invalid hot cue index",
		"index", hotCueIndex) {
		return nil
	}
	if !assert.Verify(start.IsValid() || end.IsValid(), "cue without valid position") {
		return nil
	}
	c := NewCue(typ, hotCueIndex, start, end)

	g := t.lock()
	defer g.unlock()
	if typ == cue.TypeMainCue {
		if !assert.Verify(t.findCueByType(g, cue.TypeMainCue) == nil,
			"track already has a main cue", "location", t.fileAccess.Location) {
			return nil
		}
		t.record.MainCuePosition = start
	}
	t.attachCue(g, c)
	t.markDirtyAndUnlock(g, t.event(g, events.KindCuesUpdated, nil))
	return c
}

// FindCueByType returns the first cue of the given type or nil. It cannot be
// used for hot cues, of which there may be many.
func (t *Track) FindCueByType(typ cue.Type) *Cue {
	if !assert.Verify(typ != cue.TypeHotCue, "cannot find hot cues by type") {
		return nil
	}
	g := t.lock()
	defer g.unlock()
	return t.findCueByType(g, typ)
}

// FindCueByID returns the stored cue with the given id or nil.
func (t *Track) FindCueByID(id domain.CueID) *Cue {
	g := t.lock()
	defer g.unlock()
	for _, c := range t.cues {
		if c.ID() == id {
			return c
		}
	}
	return nil
}

// RemoveCue removes a single cue. Removing the main cue resets the main cue
// position to the start of the track.
func (t *Track) RemoveCue(c *Cue) {
	if c == nil {
		return
	}
	g := t.lock()
	defer g.unlock()
	i := slices.Index(t.cues, c)
	if i < 0 {
		return
	}
	t.detachCue(g, c)
	t.cues = slices.Delete(t.cues, i, i+1)
	if c.Type() == cue.TypeMainCue {
		t.record.MainCuePosition = audio.StartFramePos
	}
	t.markDirtyAndUnlock(g, t.event(g, events.KindCuesUpdated, nil))
}

// RemoveCuesOfType removes all cues of the given type and resets the main cue
// position to the start of the track. A remaining main cue keeps its
// position.
func (t *Track) RemoveCuesOfType(typ cue.Type) {
	g := t.lock()
	defer g.unlock()
	modified := false
	kept := t.cues[:0]
	for _, c := range t.cues {
		if c.Type() == typ {
			t.detachCue(g, c)
			modified = true
			continue
		}
		kept = append(kept, c)
	}
	clear(t.cues[len(kept):])
	t.cues = kept

	mainCuePosition := audio.StartFramePos
	if mainCue := t.findCueByType(g, cue.TypeMainCue); mainCue != nil {
		mainCuePosition = mainCue.Position()
	}
	if compareAndSet(&t.record.MainCuePosition, mainCuePosition) {
		modified = true
	}
	if modified {
		t.markDirtyAndUnlock(g, t.event(g, events.KindCuesUpdated, nil))
	}
}

// SetCuePoints replaces all cues. The track takes ownership of the given
// cues.
func (t *Track) SetCuePoints(cues []*Cue) {
	g := t.lock()
	defer g.unlock()
	t.setCuePointsMarkDirtyAndUnlock(g, cues)
}

// CuePoints returns a copy of the cue list.
func (t *Track) CuePoints() []*Cue {
	g := t.lock()
	defer g.unlock()
	return slices.Clone(t.cues)
}

// ShiftCuePositionsMillis moves all cues. It requires the stream info from
// the audio source for converting milliseconds into frames.
func (t *Track) ShiftCuePositionsMillis(milliseconds float64) {
	g := t.lock()
	defer g.unlock()
	streamInfo := t.record.StreamInfoFromSource
	if !assert.Verify(streamInfo != nil, "cannot shift cues without stream info from source",
		"location", t.fileAccess.Location) {
		return
	}
	frames := streamInfo.SignalInfo.MillisToFrames(milliseconds)
	modified := false
	for _, c := range t.cues {
		if c.shiftPositionFrames(frames) {
			modified = true
		}
	}
	if mainCue := t.findCueByType(g, cue.TypeMainCue); mainCue != nil {
		t.record.MainCuePosition = mainCue.Position()
	}
	if modified {
		t.markDirtyAndUnlock(g, t.event(g, events.KindCuesUpdated, nil))
	}
}

// SetMainCuePosition moves the main cue, creating it if needed. An invalid
// position removes the main cue.
func (t *Track) SetMainCuePosition(pos audio.FramePos) {
	g := t.lock()
	defer g.unlock()
	if !compareAndSet(&t.record.MainCuePosition, pos) {
		return
	}
	mainCue := t.findCueByType(g, cue.TypeMainCue)
	switch {
	case pos.IsValid() && mainCue != nil:
		mainCue.setStartPositionSilently(pos)
	case pos.IsValid():
		t.attachCue(g, NewCue(cue.TypeMainCue, cue.NoHotCue, pos, audio.InvalidFramePos))
	case mainCue != nil:
		t.detachCue(g, mainCue)
		t.cues = slices.DeleteFunc(t.cues, func(c *Cue) bool { return c == mainCue })
	}
	t.markDirtyAndUnlock(g, t.event(g, events.KindCuesUpdated, nil))
}

// MainCuePosition returns the position of the main cue, which may be invalid.
func (t *Track) MainCuePosition() audio.FramePos {
	g := t.lock()
	defer g.unlock()
	return t.record.MainCuePosition
}
