package track

import (
	"github.com/jaki95/djtrack/internal/assert"
	"github.com/jaki95/djtrack/internal/events"
)

// guard proves that the track mutex is held. Helpers that require the lock
// take a guard instead of locking themselves; unlock is idempotent so that
// callers can defer it and still release the lock early before publishing.
type guard struct {
	t    *Track
	held bool
}

func (t *Track) lock() *guard {
	t.mu.Lock()
	return &guard{t: t, held: true}
}

func (g *guard) unlock() {
	if g.held {
		g.held = false
		g.t.mu.Unlock()
	}
}

func (g *guard) assertHeld() {
	assert.Debug(g != nil && g.held, "track mutex is not held")
}

func compareAndSet[T comparable](field *T, value T) bool {
	if *field == value {
		return false
	}
	*field = value
	return true
}

// event creates a notification for the current id. Requires the lock.
func (t *Track) event(g *guard, kind events.Kind, value any) events.Event {
	g.assertHeld()
	return events.NewEvent(kind, t.record.ID, value)
}

// markDirtyAndUnlock marks the track dirty, releases the lock and publishes
// the persistence notifications followed by the given field notifications.
func (t *Track) markDirtyAndUnlock(g *guard, followUps ...events.Event) {
	t.setDirtyAndUnlock(g, true, followUps...)
}

// setDirtyAndUnlock announces transitions relative to the state that has
// been announced for the current id. A track that became dirty before it got
// an id announces dirty with its next modification.
func (t *Track) setDirtyAndUnlock(g *guard, dirty bool, followUps ...events.Event) {
	g.assertHeld()
	t.dirty = dirty
	if dirty {
		t.revision++
	}
	id := t.record.ID
	dirtyChanged := false
	if id.IsValid() && t.announcedDirty != dirty {
		t.announcedDirty = dirty
		dirtyChanged = true
	}

	// Unlock before publishing anything!
	g.unlock()

	published := make([]events.Event, 0, len(followUps)+2)
	if id.IsValid() {
		if dirtyChanged {
			if dirty {
				published = append(published, events.NewEvent(events.KindDirty, id, nil))
			} else {
				published = append(published, events.NewEvent(events.KindClean, id, nil))
			}
		}
		if dirty {
			// Emitted whenever the track is marked dirty, even if it
			// already was.
			published = append(published, events.NewEvent(events.KindChanged, id, nil))
		}
	}
	published = append(published, followUps...)
	t.bus.Publish(published...)
}

// MarkDirty flags the track as modified.
func (t *Track) MarkDirty() {
	g := t.lock()
	defer g.unlock()
	t.setDirtyAndUnlock(g, true)
}

// MarkClean flags the track as persisted.
func (t *Track) MarkClean() {
	g := t.lock()
	defer g.unlock()
	t.setDirtyAndUnlock(g, false)
}

// MarkCleanIfUnchanged flags the track and its cues as persisted unless the
// track has been modified after the snapshot with the given revision was
// taken. It reports whether the track has been marked clean.
func (t *Track) MarkCleanIfUnchanged(revision uint64) bool {
	g := t.lock()
	defer g.unlock()
	if t.revision != revision {
		return false
	}
	for _, c := range t.cues {
		c.SetDirty(false)
	}
	t.setDirtyAndUnlock(g, false)
	return true
}

// IsDirty reports whether the track has been modified since it was last
// marked clean.
func (t *Track) IsDirty() bool {
	g := t.lock()
	defer g.unlock()
	return t.dirty
}

// MarkForMetadataExport requests an export of the file tags even if they
// have never been imported. The flag is transient and not persisted.
func (t *Track) MarkForMetadataExport() {
	g := t.lock()
	defer g.unlock()
	t.markedForMetadataExport = true
}

// IsMarkedForMetadataExport reports whether an export has been requested.
func (t *Track) IsMarkedForMetadataExport() bool {
	g := t.lock()
	defer g.unlock()
	return t.markedForMetadataExport
}
