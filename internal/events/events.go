// Package events implements the change notifications of tracks.
package events

import (
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/jaki95/djtrack/internal/domain"
)

// Kind identifies what changed.
type Kind string

const (
	// Persistence notifications, only emitted for tracks with a valid id.
	KindDirty   Kind = "dirty"
	KindClean   Kind = "clean"
	KindChanged Kind = "changed"

	KindTitleChanged           Kind = "title_changed"
	KindArtistChanged          Kind = "artist_changed"
	KindAlbumChanged           Kind = "album_changed"
	KindAlbumArtistChanged     Kind = "album_artist_changed"
	KindGenreChanged           Kind = "genre_changed"
	KindComposerChanged        Kind = "composer_changed"
	KindGroupingChanged        Kind = "grouping_changed"
	KindYearChanged            Kind = "year_changed"
	KindTrackNumberChanged     Kind = "track_number_changed"
	KindTrackTotalChanged      Kind = "track_total_changed"
	KindCommentChanged         Kind = "comment_changed"
	KindMoodChanged            Kind = "mood_changed"
	KindInfoChanged            Kind = "info_changed"
	KindBpmChanged             Kind = "bpm_changed"
	KindBeatsUpdated           Kind = "beats_updated"
	KindKeyChanged             Kind = "key_changed"
	KindReplayGainUpdated      Kind = "replay_gain_updated"
	KindReplayGainAdjusted     Kind = "replay_gain_adjusted"
	KindColorUpdated           Kind = "color_updated"
	KindCoverArtUpdated        Kind = "cover_art_updated"
	KindDurationChanged        Kind = "duration_changed"
	KindTimesPlayedChanged     Kind = "times_played_changed"
	KindCuesUpdated            Kind = "cues_updated"
	KindWaveformUpdated        Kind = "waveform_updated"
	KindWaveformSummaryUpdated Kind = "waveform_summary_updated"
	KindAnalyzed               Kind = "analyzed"
)

// Event is a single notification. Value carries the new value of the field
// where one exists, captured before the track was unlocked.
type Event struct {
	Kind      Kind           `json:"kind"`
	TrackID   domain.TrackID `json:"trackId,omitempty"`
	Value     any            `json:"value,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// NewEvent returns an event stamped with the current time.
func NewEvent(kind Kind, trackID domain.TrackID, value any) Event {
	return Event{
		Kind:      kind,
		TrackID:   trackID,
		Value:     value,
		Timestamp: time.Now(),
	}
}

// ListenerID identifies a registered listener.
type ListenerID uint64

// Bus delivers events to its listeners synchronously and in registration
// order. Listeners are invoked without holding the bus lock, so they may add
// or remove listeners and call back into the publisher.
type Bus struct {
	mu        sync.RWMutex
	nextID    ListenerID
	listeners []listener
}

type listener struct {
	id ListenerID
	fn func(Event)
}

// NewBus creates a new Bus instance
func NewBus() *Bus {
	return &Bus{
		listeners: make([]listener, 0),
	}
}

// AddListener adds a new event listener
func (b *Bus) AddListener(fn func(Event)) ListenerID {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	b.listeners = append(b.listeners, listener{id: b.nextID, fn: fn})
	return b.nextID
}

// RemoveListener removes an event listener
func (b *Bus) RemoveListener(id ListenerID) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i := range b.listeners {
		if b.listeners[i].id == id {
			b.listeners = append(b.listeners[:i:i], b.listeners[i+1:]...)
			break
		}
	}
}

// Len returns the number of registered listeners.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.listeners)
}

// Publish sends the events in order to all registered listeners.
func (b *Bus) Publish(events ...Event) {
	if len(events) == 0 {
		return
	}
	b.mu.RLock()
	listeners := make([]listener, len(b.listeners))
	copy(listeners, b.listeners)
	b.mu.RUnlock()

	for _, event := range events {
		for _, l := range listeners {
			l.fn(event)
		}
	}
}

// MarshalJSON implements json.Marshaler for Event
func (e Event) MarshalJSON() ([]byte, error) {
	type Alias Event
	return json.Marshal(&struct {
		Timestamp string `json:"timestamp"`
		*Alias
	}{
		Timestamp: e.Timestamp.Format(time.RFC3339Nano),
		Alias:     (*Alias)(&e),
	})
}

// UnmarshalJSON implements json.Unmarshaler for Event
func (e *Event) UnmarshalJSON(data []byte) error {
	type Alias Event
	aux := &struct {
		Timestamp string `json:"timestamp"`
		*Alias
	}{
		Alias: (*Alias)(e),
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	t, err := time.Parse(time.RFC3339Nano, aux.Timestamp)
	if err != nil {
		return err
	}
	e.Timestamp = t
	return nil
}
