package domain

import (
	"strings"

	"github.com/jaki95/djtrack/internal/beats"
	"golang.org/x/text/unicode/norm"
)

// TrackInfo holds the descriptive tags of a single recording.
type TrackInfo struct {
	Artist      string     `json:"artist,omitempty" yaml:"artist,omitempty"`
	Title       string     `json:"title,omitempty" yaml:"title,omitempty"`
	Genre       string     `json:"genre,omitempty" yaml:"genre,omitempty"`
	Composer    string     `json:"composer,omitempty" yaml:"composer,omitempty"`
	Grouping    string     `json:"grouping,omitempty" yaml:"grouping,omitempty"`
	Year        string     `json:"year,omitempty" yaml:"year,omitempty"`
	TrackNumber string     `json:"track_number,omitempty" yaml:"track_number,omitempty"`
	TrackTotal  string     `json:"track_total,omitempty" yaml:"track_total,omitempty"`
	Comment     string     `json:"comment,omitempty" yaml:"comment,omitempty"`
	Bpm         beats.Bpm  `json:"bpm,omitempty" yaml:"bpm,omitempty"`
	Key         string     `json:"key,omitempty" yaml:"key,omitempty"`
	ReplayGain  ReplayGain `json:"replay_gain" yaml:"replay_gain,omitempty"`

	// Extra tags that are not stored by the library.
	Conductor              string `json:"conductor,omitempty" yaml:"conductor,omitempty"`
	Encoder                string `json:"encoder,omitempty" yaml:"encoder,omitempty"`
	ISRC                   string `json:"isrc,omitempty" yaml:"isrc,omitempty"`
	Language               string `json:"language,omitempty" yaml:"language,omitempty"`
	Lyricist               string `json:"lyricist,omitempty" yaml:"lyricist,omitempty"`
	Mood                   string `json:"mood,omitempty" yaml:"mood,omitempty"`
	Movement               string `json:"movement,omitempty" yaml:"movement,omitempty"`
	MusicBrainzArtistID    string `json:"musicbrainz_artist_id,omitempty" yaml:"musicbrainz_artist_id,omitempty"`
	MusicBrainzRecordingID string `json:"musicbrainz_recording_id,omitempty" yaml:"musicbrainz_recording_id,omitempty"`
	Remixer                string `json:"remixer,omitempty" yaml:"remixer,omitempty"`
	Subtitle               string `json:"subtitle,omitempty" yaml:"subtitle,omitempty"`
	Work                   string `json:"work,omitempty" yaml:"work,omitempty"`

	EmbeddedTags EmbeddedTags `json:"embedded_tags" yaml:"embedded_tags,omitempty"`
}

// extraFields lists the extra tags for merging.
func (t *TrackInfo) extraFields() []*string {
	return []*string{
		&t.Conductor,
		&t.Encoder,
		&t.ISRC,
		&t.Language,
		&t.Lyricist,
		&t.Mood,
		&t.Movement,
		&t.MusicBrainzArtistID,
		&t.MusicBrainzRecordingID,
		&t.Remixer,
		&t.Subtitle,
		&t.Work,
	}
}

func (t *TrackInfo) textFields() []*string {
	return append([]*string{
		&t.Artist,
		&t.Title,
		&t.Genre,
		&t.Composer,
		&t.Grouping,
		&t.Year,
		&t.TrackNumber,
		&t.TrackTotal,
		&t.Comment,
		&t.Key,
	}, t.extraFields()...)
}

// mergeExtra fills empty extra tags from imported. Returns whether anything
// changed.
func (t *TrackInfo) mergeExtra(imported *TrackInfo) bool {
	return mergeEmpty(t.extraFields(), imported.extraFields())
}

func (t *TrackInfo) normalize() {
	normalizeText(t.textFields())
	t.Bpm = t.Bpm.Normalize()
	t.ReplayGain = t.ReplayGain.Normalize()
}

// AlbumInfo holds the tags of the release a track belongs to.
type AlbumInfo struct {
	Title                string `json:"title,omitempty" yaml:"title,omitempty"`
	Artist               string `json:"artist,omitempty" yaml:"artist,omitempty"`
	RecordLabel          string `json:"record_label,omitempty" yaml:"record_label,omitempty"`
	Copyright            string `json:"copyright,omitempty" yaml:"copyright,omitempty"`
	MusicBrainzReleaseID string `json:"musicbrainz_release_id,omitempty" yaml:"musicbrainz_release_id,omitempty"`
}

func (a *AlbumInfo) extraFields() []*string {
	return []*string{&a.RecordLabel, &a.Copyright, &a.MusicBrainzReleaseID}
}

func (a *AlbumInfo) mergeExtra(imported *AlbumInfo) bool {
	return mergeEmpty(a.extraFields(), imported.extraFields())
}

func (a *AlbumInfo) normalize() {
	normalizeText(append([]*string{&a.Title, &a.Artist}, a.extraFields()...))
}

func mergeEmpty(dst, src []*string) bool {
	modified := false
	for i := range dst {
		if *dst[i] == "" && *src[i] != "" {
			*dst[i] = *src[i]
			modified = true
		}
	}
	return modified
}

func normalizeText(fields []*string) {
	for _, f := range fields {
		*f = norm.NFC.String(strings.TrimSpace(*f))
	}
}
