package track

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jaki95/djtrack/internal/assert"
	"github.com/jaki95/djtrack/internal/audio"
	"github.com/jaki95/djtrack/internal/color"
	"github.com/jaki95/djtrack/internal/domain"
	"github.com/jaki95/djtrack/internal/events"
)

// setText applies a compare-and-set on a text field and publishes kind with
// the new value. Fields that are part of Info also publish
// events.KindInfoChanged.
func (t *Track) setText(field func() *string, value string, kind events.Kind, partOfInfo bool) bool {
	g := t.lock()
	defer g.unlock()
	if !compareAndSet(field(), value) {
		return false
	}
	published := []events.Event{t.event(g, kind, value)}
	if partOfInfo {
		published = append(published, t.event(g, events.KindInfoChanged, t.info(g)))
	}
	t.markDirtyAndUnlock(g, published...)
	return true
}

func (t *Track) readText(field func() *string) string {
	g := t.lock()
	defer g.unlock()
	return *field()
}

func (t *Track) trackInfo() *domain.TrackInfo {
	return &t.record.Metadata.TrackInfo
}

func (t *Track) albumInfo() *domain.AlbumInfo {
	return &t.record.Metadata.AlbumInfo
}

func (t *Track) info(g *guard) string {
	g.assertHeld()
	info := t.trackInfo()
	artist := strings.TrimSpace(info.Artist)
	title := strings.TrimSpace(info.Title)
	switch {
	case artist != "":
		return info.Artist + ArtistTitleSeparator + info.Title
	case title != "":
		return info.Title
	default:
		return t.fileAccess.FileName()
	}
}

// Info returns "artist - title", falling back to the title or file name.
func (t *Track) Info() string {
	g := t.lock()
	defer g.unlock()
	return t.info(g)
}

// TitleInfo returns the title, or the file name if neither artist nor title
// are known.
func (t *Track) TitleInfo() string {
	g := t.lock()
	defer g.unlock()
	info := t.trackInfo()
	if strings.TrimSpace(info.Artist) == "" && strings.TrimSpace(info.Title) == "" {
		return t.fileAccess.FileName()
	}
	return info.Title
}

func (t *Track) Title() string {
	return t.readText(func() *string { return &t.trackInfo().Title })
}

func (t *Track) SetTitle(title string) {
	t.setText(func() *string { return &t.trackInfo().Title },
		strings.TrimSpace(title), events.KindTitleChanged, true)
}

func (t *Track) Artist() string {
	return t.readText(func() *string { return &t.trackInfo().Artist })
}

func (t *Track) SetArtist(artist string) {
	t.setText(func() *string { return &t.trackInfo().Artist },
		strings.TrimSpace(artist), events.KindArtistChanged, true)
}

func (t *Track) Album() string {
	return t.readText(func() *string { return &t.albumInfo().Title })
}

func (t *Track) SetAlbum(album string) {
	t.setText(func() *string { return &t.albumInfo().Title },
		strings.TrimSpace(album), events.KindAlbumChanged, false)
}

func (t *Track) AlbumArtist() string {
	return t.readText(func() *string { return &t.albumInfo().Artist })
}

func (t *Track) SetAlbumArtist(artist string) {
	t.setText(func() *string { return &t.albumInfo().Artist },
		strings.TrimSpace(artist), events.KindAlbumArtistChanged, false)
}

func (t *Track) Year() string {
	return t.readText(func() *string { return &t.trackInfo().Year })
}

func (t *Track) SetYear(year string) {
	t.setText(func() *string { return &t.trackInfo().Year },
		strings.TrimSpace(year), events.KindYearChanged, false)
}

func (t *Track) Composer() string {
	return t.readText(func() *string { return &t.trackInfo().Composer })
}

func (t *Track) SetComposer(composer string) {
	t.setText(func() *string { return &t.trackInfo().Composer },
		strings.TrimSpace(composer), events.KindComposerChanged, false)
}

func (t *Track) Grouping() string {
	return t.readText(func() *string { return &t.trackInfo().Grouping })
}

func (t *Track) SetGrouping(grouping string) {
	t.setText(func() *string { return &t.trackInfo().Grouping },
		strings.TrimSpace(grouping), events.KindGroupingChanged, false)
}

func (t *Track) TrackNumber() string {
	return t.readText(func() *string { return &t.trackInfo().TrackNumber })
}

func (t *Track) SetTrackNumber(number string) {
	t.setText(func() *string { return &t.trackInfo().TrackNumber },
		strings.TrimSpace(number), events.KindTrackNumberChanged, false)
}

func (t *Track) TrackTotal() string {
	return t.readText(func() *string { return &t.trackInfo().TrackTotal })
}

func (t *Track) SetTrackTotal(total string) {
	t.setText(func() *string { return &t.trackInfo().TrackTotal },
		strings.TrimSpace(total), events.KindTrackTotalChanged, false)
}

func (t *Track) Comment() string {
	return t.readText(func() *string { return &t.trackInfo().Comment })
}

// SetComment stores the comment as is, including surrounding whitespace.
func (t *Track) SetComment(comment string) {
	t.setText(func() *string { return &t.trackInfo().Comment },
		comment, events.KindCommentChanged, false)
}

func (t *Track) Genre() string {
	return t.readText(func() *string { return &t.trackInfo().Genre })
}

// UpdateGenre sets the genre and notifies the listeners.
func (t *Track) UpdateGenre(genre string) bool {
	return t.setText(func() *string { return &t.trackInfo().Genre },
		genre, events.KindGenreChanged, false)
}

// SetGenreFromLibrary sets the genre that has been loaded from the library
// without a notification.
func (t *Track) SetGenreFromLibrary(genre string) {
	g := t.lock()
	defer g.unlock()
	if compareAndSet(&t.trackInfo().Genre, genre) {
		t.markDirtyAndUnlock(g)
	}
}

// Mood returns the mood if extra metadata is enabled.
func (t *Track) Mood() string {
	if !t.opts.extraMetadata {
		return ""
	}
	return t.readText(func() *string { return &t.trackInfo().Mood })
}

// UpdateMood sets the mood. It is rejected unless extra metadata is enabled.
func (t *Track) UpdateMood(mood string) bool {
	if !t.opts.extraMetadata {
		return false
	}
	return t.setText(func() *string { return &t.trackInfo().Mood },
		mood, events.KindMoodChanged, false)
}

func (t *Track) Color() color.Optional {
	g := t.lock()
	defer g.unlock()
	return t.record.Color
}

func (t *Track) SetColor(rgb color.Optional) {
	g := t.lock()
	defer g.unlock()
	if compareAndSet(&t.record.Color, rgb) {
		t.markDirtyAndUnlock(g, t.event(g, events.KindColorUpdated, rgb))
	}
}

func (t *Track) Rating() int {
	g := t.lock()
	defer g.unlock()
	return t.record.Rating
}

func (t *Track) SetRating(rating int) {
	g := t.lock()
	defer g.unlock()
	if compareAndSet(&t.record.Rating, rating) {
		t.markDirtyAndUnlock(g)
	}
}

// FileType returns the type of the audio file, e.g. "mp3".
func (t *Track) FileType() string {
	g := t.lock()
	defer g.unlock()
	return t.record.FileType
}

func (t *Track) SetFileType(fileType string) {
	g := t.lock()
	defer g.unlock()
	if compareAndSet(&t.record.FileType, fileType) {
		t.markDirtyAndUnlock(g)
	}
}

func (t *Track) URL() string {
	g := t.lock()
	defer g.unlock()
	return t.record.URL
}

func (t *Track) SetURL(url string) {
	g := t.lock()
	defer g.unlock()
	if compareAndSet(&t.record.URL, url) {
		t.markDirtyAndUnlock(g)
	}
}

func (t *Track) ReplayGain() domain.ReplayGain {
	g := t.lock()
	defer g.unlock()
	return t.trackInfo().ReplayGain
}

func (t *Track) SetReplayGain(replayGain domain.ReplayGain) {
	g := t.lock()
	defer g.unlock()
	if compareAndSet(&t.trackInfo().ReplayGain, replayGain) {
		t.markDirtyAndUnlock(g, t.event(g, events.KindReplayGainUpdated, replayGain))
	}
}

// AdjustReplayGainFromPregain multiplies the ratio by the given pregain.
func (t *Track) AdjustReplayGainFromPregain(gain float64) {
	g := t.lock()
	defer g.unlock()
	replayGain := t.trackInfo().ReplayGain
	replayGain.Ratio *= gain
	if compareAndSet(&t.trackInfo().ReplayGain, replayGain) {
		t.markDirtyAndUnlock(g, t.event(g, events.KindReplayGainAdjusted, replayGain))
	}
}

func (t *Track) afterKeysUpdated(g *guard) {
	t.markDirtyAndUnlock(g, t.event(g, events.KindKeyChanged, t.record.GlobalKeyText()))
}

func (t *Track) Keys() domain.Keys {
	g := t.lock()
	defer g.unlock()
	return t.record.Keys
}

func (t *Track) SetKeys(keys domain.Keys) {
	g := t.lock()
	defer g.unlock()
	if t.record.Keys == keys && t.trackInfo().Key == keys.Text() {
		return
	}
	t.record.SetKeys(keys)
	t.afterKeysUpdated(g)
}

func (t *Track) ResetKeys() {
	t.SetKeys(domain.Keys{})
}

// Key returns the global key of the track.
func (t *Track) Key() domain.ChromaticKey {
	g := t.lock()
	defer g.unlock()
	return t.record.GlobalKey()
}

// KeyText returns the global key in traditional notation.
func (t *Track) KeyText() string {
	g := t.lock()
	defer g.unlock()
	return t.record.GlobalKeyText()
}

// SetKey updates the global key. Invalid keys are ignored.
func (t *Track) SetKey(key domain.ChromaticKey, source domain.KeySource) {
	g := t.lock()
	defer g.unlock()
	if t.record.UpdateGlobalKey(key, source) {
		t.afterKeysUpdated(g)
	}
}

// SetKeyText parses and updates the global key. Text that cannot be parsed
// is ignored.
func (t *Track) SetKeyText(text string, source domain.KeySource) {
	g := t.lock()
	defer g.unlock()
	if t.record.UpdateGlobalKeyText(text, source) == domain.UpdateUpdated {
		t.afterKeysUpdated(g)
	}
}

func (t *Track) PlayCounter() domain.PlayCounter {
	g := t.lock()
	defer g.unlock()
	return t.record.PlayCounter
}

func (t *Track) SetPlayCounter(counter domain.PlayCounter) {
	g := t.lock()
	defer g.unlock()
	if compareAndSet(&t.record.PlayCounter, counter) {
		t.markDirtyAndUnlock(g, t.event(g, events.KindTimesPlayedChanged, counter.TimesPlayed))
	}
}

// UpdatePlayCounter counts or revokes a play in the current session.
func (t *Track) UpdatePlayCounter(played bool) {
	g := t.lock()
	defer g.unlock()
	counter := t.record.PlayCounter
	counter.UpdateLastPlayedNowAndTimesPlayed(played)
	if compareAndSet(&t.record.PlayCounter, counter) {
		t.markDirtyAndUnlock(g, t.event(g, events.KindTimesPlayedChanged, counter.TimesPlayed))
	}
}

func (t *Track) CoverInfo() domain.CoverInfo {
	g := t.lock()
	defer g.unlock()
	return t.record.CoverInfo
}

// CoverLocation returns the absolute path of a cover image file or an empty
// string if the cover is not stored in a separate file.
func (t *Track) CoverLocation() string {
	g := t.lock()
	defer g.unlock()
	return t.coverLocation(g)
}

func (t *Track) coverLocation(g *guard) string {
	g.assertHeld()
	coverInfo := t.record.CoverInfo
	if coverInfo.Type != domain.CoverTypeFile || coverInfo.Location == "" {
		return ""
	}
	if filepath.IsAbs(coverInfo.Location) {
		return coverInfo.Location
	}
	return filepath.Join(t.fileAccess.Directory(), coverInfo.Location)
}

func (t *Track) SetCoverInfo(coverInfo domain.CoverInfo) {
	assert.Debug(coverInfo.IsConsistent(), "inconsistent cover info", "coverInfo", coverInfo)
	g := t.lock()
	defer g.unlock()
	if compareAndSet(&t.record.CoverInfo, coverInfo) {
		t.markDirtyAndUnlock(g, t.event(g, events.KindCoverArtUpdated, nil))
	}
}

// RefreshCoverImageDigest updates the digest of the cover image. Without
// image data the image is loaded from the cover file, if any. The file is
// read outside of the lock.
func (t *Track) RefreshCoverImageDigest(image []byte) bool {
	if len(image) == 0 {
		location := t.CoverLocation()
		if location == "" {
			return false
		}
		data, err := os.ReadFile(location)
		if err != nil {
			t.log.Warn("Failed to load cover image", "location", location, "error", err)
			return false
		}
		image = data
	}

	g := t.lock()
	defer g.unlock()
	coverInfo := t.record.CoverInfo
	if !coverInfo.RefreshImageDigest(image) {
		return false
	}
	if !compareAndSet(&t.record.CoverInfo, coverInfo) {
		return false
	}
	t.log.Info("Refreshed cover image digest", "location", t.fileAccess.Location)
	t.markDirtyAndUnlock(g, t.event(g, events.KindCoverArtUpdated, nil))
	return true
}

func (t *Track) Duration() time.Duration {
	g := t.lock()
	defer g.unlock()
	return t.record.Metadata.StreamInfo.Duration
}

// SetDuration stores the duration read from file tags. It is refused if it
// contradicts the duration measured from the audio source.
func (t *Track) SetDuration(duration time.Duration) {
	g := t.lock()
	defer g.unlock()
	if source := t.record.StreamInfoFromSource; source != nil && source.Duration > 0 {
		if !assert.Verify(source.Duration == duration, "cannot override stream duration",
			"from", source.Duration, "to", duration) {
			return
		}
	}
	if compareAndSet(&t.record.Metadata.StreamInfo.Duration, duration) {
		t.markDirtyAndUnlock(g, t.durationEvent(g))
	}
}

// DurationSecondsInt returns the duration rounded to whole seconds.
func (t *Track) DurationSecondsInt() int {
	g := t.lock()
	defer g.unlock()
	return t.record.Metadata.DurationSecondsRounded()
}

func (t *Track) DurationText(precision audio.Precision) string {
	g := t.lock()
	defer g.unlock()
	return t.record.Metadata.DurationText(precision)
}

func (t *Track) SampleRate() audio.SampleRate {
	g := t.lock()
	defer g.unlock()
	return t.record.Metadata.StreamInfo.SignalInfo.SampleRate
}

func (t *Track) Channels() audio.ChannelCount {
	g := t.lock()
	defer g.unlock()
	return t.record.Metadata.StreamInfo.SignalInfo.ChannelCount
}

func (t *Track) Bitrate() audio.Bitrate {
	g := t.lock()
	defer g.unlock()
	return t.record.Metadata.StreamInfo.Bitrate
}

func (t *Track) BitrateText() string {
	g := t.lock()
	defer g.unlock()
	return t.record.Metadata.BitrateText()
}

// SetBitrate stores the bitrate read from file tags. It is refused if it
// contradicts the bitrate measured from the audio source.
func (t *Track) SetBitrate(bitrate audio.Bitrate) {
	g := t.lock()
	defer g.unlock()
	if source := t.record.StreamInfoFromSource; source != nil && source.Bitrate.IsValid() {
		if !assert.Verify(source.Bitrate == bitrate, "cannot override stream bitrate",
			"from", source.Bitrate, "to", bitrate) {
			return
		}
	}
	if compareAndSet(&t.record.Metadata.StreamInfo.Bitrate, bitrate) {
		t.markDirtyAndUnlock(g)
	}
}

func (t *Track) IsSourceSynchronized() bool {
	g := t.lock()
	defer g.unlock()
	return t.record.IsSourceSynchronized()
}

func (t *Track) SourceSynchronizedAt() time.Time {
	g := t.lock()
	defer g.unlock()
	return t.record.SourceSynchronizedAt
}

// SetSourceSynchronizedAt records when the file tags were last synchronized.
// The zero time resets the synchronization state.
func (t *Track) SetSourceSynchronizedAt(syncedAt time.Time) {
	if !syncedAt.IsZero() {
		syncedAt = syncedAt.UTC()
	}
	g := t.lock()
	defer g.unlock()
	if t.record.SourceSynchronizedAt.Equal(syncedAt) {
		return
	}
	t.record.SourceSynchronizedAt = syncedAt
	t.markDirtyAndUnlock(g)
}

func (t *Track) DateAdded() time.Time {
	g := t.lock()
	defer g.unlock()
	return t.record.DateAdded
}

// SetDateAdded is set by the library and does not make the track dirty.
func (t *Track) SetDateAdded(dateAdded time.Time) {
	g := t.lock()
	defer g.unlock()
	t.record.DateAdded = dateAdded
}

// Waveform returns the analyzed waveform or nil.
func (t *Track) Waveform() *Waveform {
	return t.waveform.Load()
}

func (t *Track) SetWaveform(waveform *Waveform) {
	t.waveform.Store(waveform)
	t.bus.Publish(events.NewEvent(events.KindWaveformUpdated, t.ID(), nil))
}

// WaveformSummary returns the overview waveform or nil.
func (t *Track) WaveformSummary() *Waveform {
	return t.waveformSummary.Load()
}

func (t *Track) SetWaveformSummary(waveform *Waveform) {
	t.waveformSummary.Store(waveform)
	t.bus.Publish(events.NewEvent(events.KindWaveformSummaryUpdated, t.ID(), nil))
}

// AnalysisFinished announces that all analyzers are done.
func (t *Track) AnalysisFinished() {
	t.bus.Publish(events.NewEvent(events.KindAnalyzed, t.ID(), nil))
}
