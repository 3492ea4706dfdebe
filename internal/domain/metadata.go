package domain

import (
	"math"
	"reflect"

	"github.com/jaki95/djtrack/internal/audio"
	"github.com/jaki95/djtrack/internal/beats"
)

// TrackMetadata is the complete set of properties stored in file tags.
type TrackMetadata struct {
	AlbumInfo  AlbumInfo        `json:"album" yaml:"album"`
	TrackInfo  TrackInfo        `json:"track" yaml:"track"`
	StreamInfo audio.StreamInfo `json:"stream" yaml:"stream"`
}

// Clone returns a deep copy.
func (m TrackMetadata) Clone() TrackMetadata {
	m.TrackInfo.EmbeddedTags = m.TrackInfo.EmbeddedTags.Clone()
	return m
}

// NormalizeBeforeExport adjusts the precision of floating point values and
// the representation of text so that comparing with re-imported tags is
// stable.
func (m *TrackMetadata) NormalizeBeforeExport() {
	m.AlbumInfo.normalize()
	m.TrackInfo.normalize()
}

// AnyFileTagsModified reports whether exporting m would change the file tags
// that were imported as other. Stream properties are not written to tags and
// are ignored. The BPM is compared with the given precision.
func (m TrackMetadata) AnyFileTagsModified(other TrackMetadata, cmp beats.Comparison) bool {
	if m.AlbumInfo != other.AlbumInfo {
		return true
	}
	if !m.TrackInfo.Bpm.Equal(other.TrackInfo.Bpm, cmp) {
		return true
	}
	lhs, rhs := m.TrackInfo, other.TrackInfo
	lhs.Bpm, rhs.Bpm = beats.BpmUndefined, beats.BpmUndefined
	return !reflect.DeepEqual(lhs, rhs)
}

// DurationSecondsRounded returns the stream duration in whole seconds.
func (m TrackMetadata) DurationSecondsRounded() int {
	return int(math.Round(m.StreamInfo.Duration.Seconds()))
}

// DurationText formats the stream duration.
func (m TrackMetadata) DurationText(precision audio.Precision) string {
	return audio.FormatDuration(m.StreamInfo.Duration, precision)
}

// BitrateText formats the bitrate, or returns an empty string if unknown.
func (m TrackMetadata) BitrateText() string {
	return m.StreamInfo.Bitrate.String()
}
