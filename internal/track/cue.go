package track

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/jaki95/djtrack/internal/assert"
	"github.com/jaki95/djtrack/internal/audio"
	"github.com/jaki95/djtrack/internal/color"
	"github.com/jaki95/djtrack/internal/cue"
	"github.com/jaki95/djtrack/internal/domain"
)

// Cue is a named position or region of a track. A cue belongs to at most one
// track at a time. Modifications of an owned cue mark the owning track dirty
// and are announced by its events.KindCuesUpdated notification.
//
// When both locks are needed the track mutex is always acquired before the
// cue mutex.
type Cue struct {
	owner atomic.Pointer[Track]

	mu          sync.Mutex
	id          domain.CueID
	typ         cue.Type
	hotCueIndex int
	start       audio.FramePos
	end         audio.FramePos
	label       string
	color       color.Optional
	dirty       bool
}

// NewCue creates a new unowned cue. New cues are dirty until they have been
// stored.
func NewCue(typ cue.Type, hotCueIndex int, start, end audio.FramePos) *Cue {
	assert.Debug(cue.IsValidHotCueIndex(hotCueIndex), "invalid hot cue index", "index", hotCueIndex)
	return &Cue{
		typ:         typ,
		hotCueIndex: hotCueIndex,
		start:       start,
		end:         end,
		dirty:       true,
	}
}

// NewCueFromInfo converts a time based cue description into frames.
func NewCueFromInfo(info cue.Info, sampleRate audio.SampleRate, dirty bool) *Cue {
	signal := audio.SignalInfo{SampleRate: sampleRate}
	toFrames := func(millis *float64) audio.FramePos {
		if millis == nil {
			return audio.InvalidFramePos
		}
		return audio.NewFramePos(signal.MillisToFrames(*millis))
	}
	hotCueIndex := info.HotCueIndex
	if !cue.IsValidHotCueIndex(hotCueIndex) {
		hotCueIndex = cue.NoHotCue
	}
	return &Cue{
		typ:         info.Type,
		hotCueIndex: hotCueIndex,
		start:       toFrames(info.StartMillis),
		end:         toFrames(info.EndMillis),
		label:       info.Label,
		color:       info.Color,
		dirty:       dirty,
	}
}

// LoadCue restores a stored cue. Loaded cues are clean.
func LoadCue(id domain.CueID, typ cue.Type, hotCueIndex int, start, end audio.FramePos,
	label string, rgb color.Optional) *Cue {
	return &Cue{
		id:          id,
		typ:         typ,
		hotCueIndex: hotCueIndex,
		start:       start,
		end:         end,
		label:       label,
		color:       rgb,
	}
}

// update applies mutate and notifies the owner about a change. The owner is
// re-checked under its lock because the cue might be moved between tracks
// concurrently.
func (c *Cue) update(mutate func() bool) {
	for {
		owner := c.owner.Load()
		if owner == nil {
			c.mu.Lock()
			if mutate() {
				c.dirty = true
			}
			c.mu.Unlock()
			return
		}
		if owner.updateCue(c, mutate) {
			return
		}
	}
}

// cueMutation describes the outcome of a modification of an owned cue.
type cueMutation struct {
	changed  bool
	rejected bool
	prevType cue.Type
	typ      cue.Type
	start    audio.FramePos
}

// mutateLocked is called by the owner with the track mutex held. A change
// into a main cue is reverted unless allowMainCue is set.
func (c *Cue) mutateLocked(mutate func() bool, allowMainCue bool) cueMutation {
	c.mu.Lock()
	defer c.mu.Unlock()
	m := cueMutation{prevType: c.typ}
	m.changed = mutate()
	if m.changed && !allowMainCue && c.typ == cue.TypeMainCue && m.prevType != cue.TypeMainCue {
		c.typ = m.prevType
		m.changed = false
		m.rejected = true
	}
	if m.changed {
		c.dirty = true
	}
	m.typ, m.start = c.typ, c.start
	return m
}

func (c *Cue) ID() domain.CueID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.id
}

// SetID records the id after the cue has been stored. It does not make the
// cue dirty.
func (c *Cue) SetID(id domain.CueID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.id = id
}

func (c *Cue) Type() cue.Type {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.typ
}

func (c *Cue) SetType(typ cue.Type) {
	c.update(func() bool {
		return compareAndSet(&c.typ, typ)
	})
}

func (c *Cue) HotCueIndex() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hotCueIndex
}

func (c *Cue) SetHotCueIndex(index int) {
	if !assert.Verify(cue.IsValidHotCueIndex(index), "invalid hot cue index", "index", index) {
		return
	}
	c.update(func() bool {
		return compareAndSet(&c.hotCueIndex, index)
	})
}

// Position returns the start position.
func (c *Cue) Position() audio.FramePos {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.start
}

func (c *Cue) EndPosition() audio.FramePos {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.end
}

// Length returns the distance between start and end in frames, or 0 unless
// both positions are valid.
func (c *Cue) Length() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.start.IsValid() || !c.end.IsValid() {
		return 0
	}
	return c.end.Sub(c.start)
}

func (c *Cue) SetStartPosition(pos audio.FramePos) {
	c.update(func() bool {
		return compareAndSet(&c.start, pos)
	})
}

func (c *Cue) SetEndPosition(pos audio.FramePos) {
	c.update(func() bool {
		return compareAndSet(&c.end, pos)
	})
}

// SetStartAndEndPosition updates both positions with a single notification.
func (c *Cue) SetStartAndEndPosition(start, end audio.FramePos) {
	c.update(func() bool {
		startChanged := compareAndSet(&c.start, start)
		endChanged := compareAndSet(&c.end, end)
		return startChanged || endChanged
	})
}

func (c *Cue) Label() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.label
}

func (c *Cue) SetLabel(label string) {
	c.update(func() bool {
		return compareAndSet(&c.label, label)
	})
}

func (c *Cue) Color() color.Optional {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.color
}

func (c *Cue) SetColor(rgb color.Optional) {
	c.update(func() bool {
		return compareAndSet(&c.color, rgb)
	})
}

// IsDirty reports whether the cue has been modified since it was stored.
func (c *Cue) IsDirty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dirty
}

// SetDirty is used by storage after saving.
func (c *Cue) SetDirty(dirty bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dirty = dirty
}

// Info converts the positions into milliseconds for exporting.
func (c *Cue) Info(sampleRate audio.SampleRate) cue.Info {
	c.mu.Lock()
	defer c.mu.Unlock()
	signal := audio.SignalInfo{SampleRate: sampleRate}
	toMillis := func(pos audio.FramePos) *float64 {
		if !pos.IsValid() || !sampleRate.IsValid() {
			return nil
		}
		return cue.Millis(signal.FramesToMillis(pos.Value()))
	}
	return cue.Info{
		Type:        c.typ,
		StartMillis: toMillis(c.start),
		EndMillis:   toMillis(c.end),
		HotCueIndex: c.hotCueIndex,
		Label:       c.label,
		Color:       c.color,
	}
}

// shiftPositionFrames moves both positions. Only called by the owner with
// the track mutex held.
func (c *Cue) shiftPositionFrames(frames float64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	startChanged := compareAndSet(&c.start, c.start.Add(frames))
	endChanged := compareAndSet(&c.end, c.end.Add(frames))
	if startChanged || endChanged {
		c.dirty = true
		return true
	}
	return false
}

// setStartPositionSilently updates the start position without notifying
// the owner. Only called by the owner with the track mutex held.
func (c *Cue) setStartPositionSilently(pos audio.FramePos) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if compareAndSet(&c.start, pos) {
		c.dirty = true
		return true
	}
	return false
}

func (c *Cue) typeAndPosition() (cue.Type, audio.FramePos) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.typ, c.start
}

func (c *Cue) String() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return fmt.Sprintf("Cue{id: %d, type: %s, index: %d, start: %s, end: %s}",
		c.id, c.typ, c.hotCueIndex, c.start, c.end)
}
