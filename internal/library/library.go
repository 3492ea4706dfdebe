// Package library stores tracks in a sqlite database and keeps the tracks
// that are in use loaded.
package library

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/jaki95/djtrack/internal/beats"
	"github.com/jaki95/djtrack/internal/domain"
	"github.com/jaki95/djtrack/internal/events"
	"github.com/jaki95/djtrack/internal/metrics"
	"github.com/jaki95/djtrack/internal/track"
	"github.com/patrickmn/go-cache"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Options configure a Library.
type Options struct {
	// CacheTTL is how long a loaded track stays in memory after it has last
	// been requested. Evicted tracks are saved and released, so callers
	// request a track again instead of keeping it.
	CacheTTL time.Duration

	// CleanupInterval is the period of evicting expired tracks. A negative
	// interval disables the eviction.
	CleanupInterval time.Duration

	// TrackOptions are applied to every track created by the library.
	TrackOptions []track.Option

	Metrics *metrics.TrackMetrics
}

type loadedTrack struct {
	track    *track.Track
	listener events.ListenerID
}

// Library is the storage collaborator of tracks. It assigns ids, saves
// dirty tracks and releases them when they are evicted from the cache.
type Library struct {
	db      *gorm.DB
	tracks  *cache.Cache
	opts    Options
	log     *slog.Logger
	metrics *metrics.TrackMetrics

	// mu serializes loading so that each id is loaded at most once
	mu sync.Mutex

	dirtyMu sync.Mutex
	dirty   map[domain.TrackID]struct{}

	closed bool
}

// Summary is the listing entry of a stored track.
type Summary struct {
	ID       domain.TrackID `json:"id"`
	Location string         `json:"location"`
	Artist   string         `json:"artist,omitempty"`
	Title    string         `json:"title,omitempty"`
	Bpm      float64        `json:"bpm,omitempty"`
}

func newGormLogger() logger.Interface {
	return logger.New(
		slog.NewLogLogger(slog.Default().Handler(), slog.LevelWarn),
		logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		},
	)
}

// Open opens or creates the sqlite database at path. Use ":memory:" for a
// volatile library.
func Open(path string, opts Options) (*Library, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: newGormLogger()})
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	if path == ":memory:" {
		// Every connection would get its own in-memory database.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to access SQLite database: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}
	return New(db, opts)
}

// New creates a library on an open database and migrates the schema.
func New(db *gorm.DB, opts Options) (*Library, error) {
	if err := db.AutoMigrate(&TrackRow{}, &CueRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate library schema: %w", err)
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 10 * time.Minute
	}
	if opts.CleanupInterval == 0 {
		opts.CleanupInterval = time.Minute
	}
	if opts.Metrics != nil {
		opts.TrackOptions = append(opts.TrackOptions, track.WithInstanceCounter(opts.Metrics.LiveTracks))
	}

	l := &Library{
		db:      db,
		tracks:  cache.New(opts.CacheTTL, opts.CleanupInterval),
		opts:    opts,
		log:     slog.Default().With("component", "library"),
		metrics: opts.Metrics,
		dirty:   make(map[domain.TrackID]struct{}),
	}
	l.tracks.OnEvicted(l.onEvicted)
	return l, nil
}

func cacheKey(id domain.TrackID) string {
	return strconv.FormatInt(int64(id), 10)
}

// AddTrack stores a new track for the audio file at location and returns it
// loaded.
func (l *Library) AddTrack(ctx context.Context, location string) (*track.Track, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil, ErrClosed
	}

	fileAccess := domain.NewFileAccess(location)
	var count int64
	if err := l.db.WithContext(ctx).Model(&TrackRow{}).Where("location = ?", fileAccess.Location).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to look up track: %w", err)
	}
	if count > 0 {
		return nil, fmt.Errorf("%w: %s", ErrTrackExists, fileAccess.Location)
	}

	tr := track.NewTemporary(fileAccess, l.opts.TrackOptions...)
	tr.SetDateAdded(time.Now().UTC())
	record, _ := tr.Record()
	data, err := json.Marshal(record)
	if err != nil {
		tr.Release()
		return nil, fmt.Errorf("failed to encode track record: %w", err)
	}
	row := TrackRow{Location: fileAccess.Location, Record: data}
	if err := l.db.WithContext(ctx).Create(&row).Error; err != nil {
		tr.Release()
		return nil, fmt.Errorf("failed to insert track: %w", err)
	}

	id := domain.TrackID(row.ID)
	tr.InitID(id)
	l.attach(tr)
	l.log.Info("Added track", "id", id, "location", fileAccess.Location)
	return tr, nil
}

// attach caches a track with a valid id and follows its dirty state.
func (l *Library) attach(tr *track.Track) {
	id := tr.ID()
	listener := tr.AddListener(func(e events.Event) {
		l.onTrackEvent(id, e)
	})
	if tr.IsDirty() {
		l.setDirty(id, true)
	}
	l.tracks.Set(cacheKey(id), &loadedTrack{track: tr, listener: listener}, cache.DefaultExpiration)
}

func (l *Library) onTrackEvent(id domain.TrackID, e events.Event) {
	switch e.Kind {
	case events.KindDirty:
		l.setDirty(id, true)
	case events.KindClean:
		l.setDirty(id, false)
	case events.KindChanged:
		l.log.Debug("Track changed", "id", id)
	}
}

func (l *Library) setDirty(id domain.TrackID, dirty bool) {
	l.dirtyMu.Lock()
	defer l.dirtyMu.Unlock()
	if dirty {
		l.dirty[id] = struct{}{}
	} else {
		delete(l.dirty, id)
	}
}

// DirtyTracks returns the ids of loaded tracks with unsaved modifications.
func (l *Library) DirtyTracks() []domain.TrackID {
	l.dirtyMu.Lock()
	defer l.dirtyMu.Unlock()
	ids := make([]domain.TrackID, 0, len(l.dirty))
	for id := range l.dirty {
		ids = append(ids, id)
	}
	return ids
}

// LoadTrack returns the loaded track or loads it from the database. Every
// request extends the time the track stays loaded.
func (l *Library) LoadTrack(ctx context.Context, id domain.TrackID) (*track.Track, error) {
	if !id.IsValid() {
		return nil, fmt.Errorf("%w: %s", ErrTrackNotFound, id)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil, ErrClosed
	}

	if cached, ok := l.tracks.Get(cacheKey(id)); ok {
		l.tracks.Set(cacheKey(id), cached, cache.DefaultExpiration)
		return cached.(*loadedTrack).track, nil
	}

	// An expired instance must be saved and released before the track is
	// loaded again.
	l.tracks.DeleteExpired()

	var row TrackRow
	err := l.db.WithContext(ctx).Preload("Cues").First(&row, int64(id)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrTrackNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load track %s: %w", id, err)
	}
	tr, err := l.restore(row)
	if err != nil {
		return nil, err
	}
	l.attach(tr)
	return tr, nil
}

// LoadTrackByLocation loads the track of an audio file.
func (l *Library) LoadTrackByLocation(ctx context.Context, location string) (*track.Track, error) {
	fileAccess := domain.NewFileAccess(location)
	var row TrackRow
	err := l.db.WithContext(ctx).Select("id").Where("location = ?", fileAccess.Location).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrTrackNotFound, fileAccess.Location)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up track: %w", err)
	}
	return l.LoadTrack(ctx, domain.TrackID(row.ID))
}

func (l *Library) restore(row TrackRow) (*track.Track, error) {
	id := domain.TrackID(row.ID)
	var record domain.TrackRecord
	if err := json.Unmarshal(row.Record, &record); err != nil {
		return nil, fmt.Errorf("failed to decode record of track %s: %w", id, err)
	}
	record.ID = id
	grid, err := row.grid()
	if err != nil {
		l.log.Warn("Discarding invalid beat grid", "id", id, "error", err)
		grid = nil
	}

	tr := track.NewTemporary(domain.NewFileAccess(row.Location), l.opts.TrackOptions...)
	tr.InitID(id)
	tr.ReplaceRecord(record, grid)
	cues := make([]*track.Cue, 0, len(row.Cues))
	for _, cueRow := range row.Cues {
		cues = append(cues, cueRow.load())
	}
	tr.SetCuePoints(cues)
	tr.MarkClean()
	return tr, nil
}

// SaveTrack writes the record, beat grid and cues of a dirty track and
// marks it clean. A track modified while it is being saved stays dirty.
func (l *Library) SaveTrack(ctx context.Context, tr *track.Track) error {
	snapshot := tr.SnapshotForSave()
	record := snapshot.Record
	if !record.ID.IsValid() {
		return ErrNotStored
	}
	if !snapshot.Dirty {
		return nil
	}
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode track record: %w", err)
	}
	gridData, err := beats.Marshal(snapshot.Beats)
	if err != nil {
		return fmt.Errorf("failed to encode beat grid: %w", err)
	}
	cues := snapshot.Cues

	err = l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&TrackRow{ID: int64(record.ID)}).Updates(map[string]any{
			"location": snapshot.Location,
			"artist":   record.Metadata.TrackInfo.Artist,
			"title":    record.Metadata.TrackInfo.Title,
			"bpm":      record.Metadata.TrackInfo.Bpm.Value(),
			"record":   data,
			"beats":    gridData,
		})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("%w: %s", ErrTrackNotFound, record.ID)
		}

		kept := make([]int64, 0, len(cues))
		for _, c := range cues {
			row := newCueRow(record.ID, c)
			if row.ID == 0 {
				if err := tx.Create(&row).Error; err != nil {
					return err
				}
				c.SetID(domain.CueID(row.ID))
			} else if err := tx.Save(&row).Error; err != nil {
				return err
			}
			kept = append(kept, row.ID)
		}
		removed := tx.Where("track_id = ?", int64(record.ID))
		if len(kept) > 0 {
			removed = removed.Where("id NOT IN ?", kept)
		}
		return removed.Delete(&CueRow{}).Error
	})
	if err != nil {
		return fmt.Errorf("failed to save track %s: %w", record.ID, err)
	}

	if !tr.MarkCleanIfUnchanged(snapshot.Revision) {
		l.log.Debug("Track modified while saving", "id", record.ID)
	}
	if l.metrics != nil {
		l.metrics.SavedTracks.Inc()
	}
	l.log.Debug("Saved track", "id", record.ID, "cues", len(cues))
	return nil
}

// PurgeTrack removes a track from the database. A loaded instance is
// detached from the library and released.
func (l *Library) PurgeTrack(ctx context.Context, id domain.TrackID) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	result := l.db.WithContext(ctx).Select("Cues").Delete(&TrackRow{ID: int64(id)})
	if result.Error != nil {
		return fmt.Errorf("failed to purge track %s: %w", id, result.Error)
	}
	if cached, ok := l.tracks.Get(cacheKey(id)); ok {
		cached.(*loadedTrack).track.ResetID()
		l.tracks.Delete(cacheKey(id))
	}
	l.setDirty(id, false)
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrTrackNotFound, id)
	}
	l.log.Info("Purged track", "id", id)
	return nil
}

// Tracks lists the stored tracks ordered by id.
func (l *Library) Tracks(ctx context.Context) ([]Summary, error) {
	var rows []TrackRow
	err := l.db.WithContext(ctx).Select("id", "location", "artist", "title", "bpm").Order("id").Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list tracks: %w", err)
	}
	summaries := make([]Summary, len(rows))
	for i, row := range rows {
		summaries[i] = Summary{
			ID:       domain.TrackID(row.ID),
			Location: row.Location,
			Artist:   row.Artist,
			Title:    row.Title,
			Bpm:      row.Bpm,
		}
	}
	return summaries, nil
}

// Flush saves all loaded dirty tracks.
func (l *Library) Flush(ctx context.Context) error {
	var errs []error
	for _, id := range l.DirtyTracks() {
		cached, ok := l.tracks.Get(cacheKey(id))
		if !ok {
			l.setDirty(id, false)
			continue
		}
		if err := l.SaveTrack(ctx, cached.(*loadedTrack).track); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// onEvicted saves and releases a track that is no longer cached.
func (l *Library) onEvicted(_ string, value interface{}) {
	loaded := value.(*loadedTrack)
	tr := loaded.track
	tr.RemoveListener(loaded.listener)
	if tr.ID().IsValid() && tr.IsDirty() {
		if err := l.SaveTrack(context.Background(), tr); err != nil {
			l.log.Error("Failed to save evicted track", "id", tr.ID(), "error", err)
		}
	}
	l.setDirty(tr.ID(), false)
	tr.Release()
	if l.metrics != nil {
		l.metrics.CacheEvictions.Inc()
	}
}

// Close saves and releases all loaded tracks and closes the database.
func (l *Library) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	l.mu.Unlock()

	for key := range l.tracks.Items() {
		l.tracks.Delete(key)
	}
	sqlDB, err := l.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
