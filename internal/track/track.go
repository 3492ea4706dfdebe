// Package track implements the track aggregate: the metadata record of a
// track together with its beat grid, cue points, pending imports and dirty
// state.
//
// All state of a Track is guarded by a single mutex. Exported methods acquire
// it exactly once; unexported helpers receive the lock guard and never lock
// again. Notifications are published to the listeners after the mutex has
// been released, with payloads captured while it was held.
package track

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/jaki95/djtrack/internal/assert"
	"github.com/jaki95/djtrack/internal/beats"
	"github.com/jaki95/djtrack/internal/cue"
	"github.com/jaki95/djtrack/internal/domain"
	"github.com/jaki95/djtrack/internal/events"
)

// ArtistTitleSeparator joins artist and title in Info.
const ArtistTitleSeparator = " - "

// InstanceCounter observes the number of live tracks. A prometheus.Gauge
// satisfies it.
type InstanceCounter interface {
	Inc()
	Dec()
}

type options struct {
	extraMetadata bool
	instances     InstanceCounter
	logger        *slog.Logger
}

// Option configures a Track.
type Option func(*options)

// WithExtraMetadata enables the optional extra metadata fields like mood.
func WithExtraMetadata(enabled bool) Option {
	return func(o *options) {
		o.extraMetadata = enabled
	}
}

// WithInstanceCounter registers the counter of live tracks.
func WithInstanceCounter(counter InstanceCounter) Option {
	return func(o *options) {
		o.instances = counter
	}
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// Waveform is an opaque, immutable analysis result rendered by the UI.
type Waveform struct {
	Version string
	Data    []byte
}

// Track is a mutable, thread-safe music track.
type Track struct {
	mu   sync.Mutex
	opts options
	log  *slog.Logger
	bus  *events.Bus

	fileAccess domain.FileAccess
	record     domain.TrackRecord
	beats      *beats.Beats
	cues       []*Cue

	dirty                   bool
	announcedDirty          bool
	revision                uint64
	markedForMetadataExport bool

	beatsImporterPending beats.Importer
	cueImporterPending   cue.Importer

	released bool

	waveform        atomic.Pointer[Waveform]
	waveformSummary atomic.Pointer[Waveform]
}

func newTrack(fileAccess domain.FileAccess, id domain.TrackID, opts ...Option) *Track {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	t := &Track{
		opts:       o,
		log:        o.logger.With("component", "track"),
		bus:        events.NewBus(),
		fileAccess: fileAccess,
		record:     domain.NewTrackRecord(id),
	}
	if o.instances != nil {
		o.instances.Inc()
	}
	return t
}

// NewTemporary creates a track that is not stored in the library.
func NewTemporary(fileAccess domain.FileAccess, opts ...Option) *Track {
	return newTrack(fileAccess, domain.InvalidTrackID, opts...)
}

// NewDummy creates a lightweight reference to a stored track.
func NewDummy(filePath string, id domain.TrackID, opts ...Option) *Track {
	return newTrack(domain.NewFileAccess(filePath), id, opts...)
}

// Release ends the life of the track. Pending imports are discarded with a
// warning. Calling Release more than once has no effect.
func (t *Track) Release() {
	g := t.lock()
	defer g.unlock()
	if t.released {
		return
	}
	t.released = true
	if t.beatsImporterPending != nil && !t.beatsImporterPending.IsEmpty() {
		t.log.Warn("Import of beats is still pending and discarded",
			"location", t.fileAccess.Location)
	}
	if t.cueImporterPending != nil && !t.cueImporterPending.IsEmpty() {
		t.log.Warn("Import of cues is still pending and discarded",
			"location", t.fileAccess.Location,
			"count", t.cueImporterPending.Size())
	}
	t.beatsImporterPending = nil
	t.cueImporterPending = nil
	g.unlock()

	if t.opts.instances != nil {
		t.opts.instances.Dec()
	}
}

// AddListener subscribes to the notifications of the track.
func (t *Track) AddListener(fn func(events.Event)) events.ListenerID {
	return t.bus.AddListener(fn)
}

// RemoveListener cancels a subscription.
func (t *Track) RemoveListener(id events.ListenerID) {
	t.bus.RemoveListener(id)
}

// ID returns the library id or domain.InvalidTrackID.
func (t *Track) ID() domain.TrackID {
	g := t.lock()
	defer g.unlock()
	return t.record.ID
}

// InitID assigns the library id. An id can be assigned only once; it does not
// make the track dirty.
func (t *Track) InitID(id domain.TrackID) {
	g := t.lock()
	defer g.unlock()
	assert.Debug(id.IsValid(), "initializing invalid track id")
	if t.record.ID == id {
		return
	}
	if !assert.Verify(!t.record.ID.IsValid(), "cannot change track id",
		"from", t.record.ID, "to", id) {
		return
	}
	t.record.ID = id
	t.announcedDirty = false
}

// ResetID detaches the track from the library.
func (t *Track) ResetID() {
	g := t.lock()
	defer g.unlock()
	t.record.ID = domain.InvalidTrackID
	t.announcedDirty = false
}

// FileAccess returns the location handle of the audio file.
func (t *Track) FileAccess() domain.FileAccess {
	g := t.lock()
	defer g.unlock()
	return t.fileAccess
}

// Location returns the path of the audio file.
func (t *Track) Location() string {
	g := t.lock()
	defer g.unlock()
	return t.fileAccess.Location
}

// Relocate updates the location after the file has been moved. The new
// location always comes from the library, so the track is not marked dirty.
func (t *Track) Relocate(fileAccess domain.FileAccess) {
	g := t.lock()
	defer g.unlock()
	t.fileAccess = fileAccess
}
