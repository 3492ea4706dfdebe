package domain

import (
	"log/slog"
	"reflect"
	"time"

	"github.com/jaki95/djtrack/internal/assert"
	"github.com/jaki95/djtrack/internal/audio"
	"github.com/jaki95/djtrack/internal/color"
)

// TrackRecord is the metadata record of a track as stored in the library.
// It is a plain value without synchronization; the owning track guards it.
type TrackRecord struct {
	ID                   TrackID        `json:"id,omitempty" yaml:"id,omitempty"`
	Metadata             TrackMetadata  `json:"metadata" yaml:"metadata"`
	SourceSynchronizedAt time.Time      `json:"source_synchronized_at,omitempty" yaml:"source_synchronized_at,omitempty"`
	DateAdded            time.Time      `json:"date_added,omitempty" yaml:"date_added,omitempty"`
	FileType             string         `json:"file_type,omitempty" yaml:"file_type,omitempty"`
	URL                  string         `json:"url,omitempty" yaml:"url,omitempty"`
	Rating               int            `json:"rating,omitempty" yaml:"rating,omitempty"`
	PlayCounter          PlayCounter    `json:"play_counter" yaml:"play_counter"`
	Color                color.Optional `json:"color" yaml:"color,omitempty"`
	CoverInfo            CoverInfo      `json:"cover_info" yaml:"cover_info"`
	MainCuePosition      audio.FramePos `json:"main_cue_position" yaml:"main_cue_position"`
	BpmLocked            bool           `json:"bpm_locked,omitempty" yaml:"bpm_locked,omitempty"`
	Keys                 Keys           `json:"keys" yaml:"keys"`

	// StreamInfoFromSource is set once the audio stream has been opened and
	// measured. It takes precedence over the stream info from file tags.
	StreamInfoFromSource *audio.StreamInfo `json:"stream_info_from_source,omitempty" yaml:"stream_info_from_source,omitempty"`
}

// NewTrackRecord returns an empty record with the given id.
func NewTrackRecord(id TrackID) TrackRecord {
	return TrackRecord{ID: id}
}

// Clone returns a deep copy.
func (r TrackRecord) Clone() TrackRecord {
	r.Metadata = r.Metadata.Clone()
	if r.StreamInfoFromSource != nil {
		streamInfo := *r.StreamInfoFromSource
		r.StreamInfoFromSource = &streamInfo
	}
	return r
}

// Equal compares all fields including the stream info from source.
func (r TrackRecord) Equal(other TrackRecord) bool {
	return reflect.DeepEqual(r, other)
}

// IsSourceSynchronized reports whether the metadata has been imported from or
// exported to the file tags at least once.
func (r TrackRecord) IsSourceSynchronized() bool {
	return !r.SourceSynchronizedAt.IsZero()
}

// HasStreamInfoFromSource reports whether the actual stream properties are known.
func (r TrackRecord) HasStreamInfoFromSource() bool {
	return r.StreamInfoFromSource != nil
}

// UpdateSourceSynchronizedAt records the time of the last import or export.
func (r *TrackRecord) UpdateSourceSynchronizedAt(syncedAt time.Time) {
	if !assert.Verify(!syncedAt.IsZero(), "invalid source synchronization time") {
		return
	}
	r.SourceSynchronizedAt = syncedAt.UTC()
}

// ReplaceMetadataFromSource replaces the metadata with tags that have been
// read from the file. The stream info from the opened audio source is
// preserved because it is more accurate than the tags.
func (r *TrackRecord) ReplaceMetadataFromSource(imported TrackMetadata, syncedAt time.Time) bool {
	if r.StreamInfoFromSource != nil {
		imported.StreamInfo = *r.StreamInfoFromSource
	}
	modified := false
	if !reflect.DeepEqual(r.Metadata, imported) {
		r.Metadata = imported.Clone()
		modified = true
	}
	if !syncedAt.IsZero() {
		syncedAt = syncedAt.UTC()
		if !r.SourceSynchronizedAt.Equal(syncedAt) {
			r.SourceSynchronizedAt = syncedAt
			modified = true
		}
	}
	return modified
}

// MergeExtraMetadataFromSource fills extra tags that are not stored in the
// library and currently empty. BPM, key and beats are never touched.
func (r *TrackRecord) MergeExtraMetadataFromSource(imported TrackMetadata) bool {
	modified := r.Metadata.TrackInfo.mergeExtra(&imported.TrackInfo)
	if r.Metadata.AlbumInfo.mergeExtra(&imported.AlbumInfo) {
		modified = true
	}
	if r.Metadata.TrackInfo.EmbeddedTags.IsEmpty() && !imported.TrackInfo.EmbeddedTags.IsEmpty() {
		r.Metadata.TrackInfo.EmbeddedTags = imported.TrackInfo.EmbeddedTags.Clone()
		modified = true
	}
	return modified
}

// GlobalKey returns the key of the whole track.
func (r TrackRecord) GlobalKey() ChromaticKey {
	return r.Keys.Global
}

// GlobalKeyText returns the key in traditional notation.
func (r TrackRecord) GlobalKeyText() string {
	return r.Keys.Text()
}

// SetKeys replaces the keys and the key text of the metadata.
func (r *TrackRecord) SetKeys(keys Keys) {
	r.Keys = keys
	r.Metadata.TrackInfo.Key = keys.Text()
}

// ResetKeys clears all keys.
func (r *TrackRecord) ResetKeys() {
	r.SetKeys(Keys{})
}

// UpdateGlobalKey sets the key if valid and different.
func (r *TrackRecord) UpdateGlobalKey(key ChromaticKey, source KeySource) bool {
	if !key.IsValid() {
		return false
	}
	if r.Keys.Global == key {
		return false
	}
	r.SetKeys(NewKeys(key, source))
	return true
}

// UpdateGlobalKeyText parses and sets the key. Text that cannot be parsed is
// rejected.
func (r *TrackRecord) UpdateGlobalKeyText(text string, source KeySource) UpdateResult {
	key, err := ParseKey(text)
	if err != nil {
		return UpdateRejected
	}
	if r.Keys.Global == key {
		return UpdateUnchanged
	}
	r.SetKeys(NewKeys(key, source))
	return UpdateUpdated
}

// UpdateStreamInfoFromSource stores the measured stream properties. Missing
// values are completed from the stream info in the metadata.
func (r *TrackRecord) UpdateStreamInfoFromSource(streamInfo audio.StreamInfo) bool {
	tagged := r.Metadata.StreamInfo
	if !streamInfo.SignalInfo.ChannelCount.IsValid() {
		streamInfo.SignalInfo.ChannelCount = tagged.SignalInfo.ChannelCount
	}
	if !streamInfo.SignalInfo.SampleRate.IsValid() {
		streamInfo.SignalInfo.SampleRate = tagged.SignalInfo.SampleRate
	}
	if streamInfo.SignalInfo.SampleLayout == audio.SampleLayoutUnknown {
		streamInfo.SignalInfo.SampleLayout = tagged.SignalInfo.SampleLayout
	}
	if !streamInfo.Bitrate.IsValid() {
		streamInfo.Bitrate = tagged.Bitrate
	}
	if streamInfo.Duration <= 0 {
		streamInfo.Duration = tagged.Duration
	}
	if r.StreamInfoFromSource != nil {
		if *r.StreamInfoFromSource == streamInfo {
			return false
		}
		// Stream properties are not expected to change between sessions.
		slog.Warn("Stream info from source changed",
			"trackId", r.ID,
			"old", r.StreamInfoFromSource.String(),
			"new", streamInfo.String())
	}
	r.StreamInfoFromSource = &streamInfo
	r.Metadata.StreamInfo = streamInfo
	return true
}
