package track

import (
	"sync"
	"testing"
	"time"

	"github.com/jaki95/djtrack/internal/assert"
	"github.com/jaki95/djtrack/internal/audio"
	"github.com/jaki95/djtrack/internal/beats"
	"github.com/jaki95/djtrack/internal/cue"
	"github.com/jaki95/djtrack/internal/domain"
	"github.com/jaki95/djtrack/internal/events"
	testifyassert "github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	assert.SetStrict(true)
	goleak.VerifyTestMain(m)
}

var testStreamInfo = audio.StreamInfo{
	SignalInfo: audio.NewSignalInfo(audio.ChannelCountStereo, audio.SampleRate44100),
	Bitrate:    1411,
	Duration:   4 * time.Minute,
}

// recorder collects all notifications of a track.
type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func newRecorder(t *testing.T, tr *Track) *recorder {
	t.Helper()
	r := &recorder{}
	id := tr.AddListener(func(event events.Event) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.events = append(r.events, event)
	})
	t.Cleanup(func() { tr.RemoveListener(id) })
	return r
}

func (r *recorder) kinds() []events.Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	kinds := make([]events.Kind, 0, len(r.events))
	for _, event := range r.events {
		kinds = append(kinds, event.Kind)
	}
	return kinds
}

func (r *recorder) count(kind events.Kind) int {
	n := 0
	for _, k := range r.kinds() {
		if k == kind {
			n++
		}
	}
	return n
}

func (r *recorder) last(kind events.Kind) (events.Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].Kind == kind {
			return r.events[i], true
		}
	}
	return events.Event{}, false
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

func newTestTrack(t *testing.T, id domain.TrackID) *Track {
	t.Helper()
	tr := NewDummy("/music/Artist - Title.flac", id)
	t.Cleanup(tr.Release)
	return tr
}

// newAnalyzedTrack returns a track whose audio source has been opened.
func newAnalyzedTrack(t *testing.T, id domain.TrackID) *Track {
	t.Helper()
	tr := newTestTrack(t, id)
	tr.UpdateStreamInfoFromSource(testStreamInfo)
	tr.MarkClean()
	return tr
}

func requireInvariants(t *testing.T, tr *Track) {
	t.Helper()
	record, _ := tr.Record()
	if grid := tr.Beats(); grid != nil {
		require.Equal(t, grid.Bpm(), record.Metadata.TrackInfo.Bpm, "metadata bpm follows the grid")
	} else {
		require.False(t, record.Metadata.TrackInfo.Bpm.IsValid(), "no bpm without grid")
	}
	mainCues := 0
	for _, c := range tr.CuePoints() {
		if c.Type() == cue.TypeMainCue {
			mainCues++
			require.Equal(t, record.MainCuePosition, c.Position(), "main cue mirrors the record")
		}
	}
	require.LessOrEqual(t, mainCues, 1)
}

type fakeCounter struct {
	mu    sync.Mutex
	value int
}

func (c *fakeCounter) Inc() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value++
}

func (c *fakeCounter) Dec() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value--
}

func (c *fakeCounter) get() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value
}

func TestLifecycle(t *testing.T) {
	counter := &fakeCounter{}
	tr := NewTemporary(domain.NewFileAccess("/music/song.mp3"), WithInstanceCounter(counter))
	testifyassert.Equal(t, 1, counter.get())
	testifyassert.Equal(t, domain.InvalidTrackID, tr.ID())

	tr.InitID(42)
	testifyassert.Equal(t, domain.TrackID(42), tr.ID())
	testifyassert.False(t, tr.IsDirty(), "assigning the id does not make the track dirty")

	// Same id again is accepted.
	tr.InitID(42)
	testifyassert.Panics(t, func() { tr.InitID(43) })

	tr.ResetID()
	testifyassert.Equal(t, domain.InvalidTrackID, tr.ID())

	tr.Release()
	tr.Release()
	testifyassert.Equal(t, 0, counter.get(), "release decrements exactly once")
}

func TestReleaseDiscardsPendingImports(t *testing.T) {
	tr := NewDummy("/music/song.flac", 1)
	tr.SetAudioProperties(testStreamInfo)
	require.Equal(t, ImportPending, tr.TryImportBeats(beats.NewConstTempoImporter(128, 0, 0), false))

	tr.Release()
	testifyassert.Equal(t, ImportComplete, tr.BeatsImportStatus())
}

func TestDirtyCleanRoundTrip(t *testing.T) {
	tr := newTestTrack(t, 7)
	rec := newRecorder(t, tr)

	tr.MarkDirty()
	testifyassert.True(t, tr.IsDirty())
	tr.MarkClean()
	testifyassert.False(t, tr.IsDirty())

	testifyassert.Equal(t, []events.Kind{events.KindDirty, events.KindChanged, events.KindClean}, rec.kinds())
	dirty, ok := rec.last(events.KindDirty)
	require.True(t, ok)
	testifyassert.Equal(t, domain.TrackID(7), dirty.TrackID)
}

func TestMarkCleanIfUnchanged(t *testing.T) {
	tr := newAnalyzedTrack(t, 7)
	hotCue := tr.CreateAndAddCue(cue.TypeHotCue, 0, audio.NewFramePos(100), audio.InvalidFramePos)
	require.NotNil(t, hotCue)

	snapshot := tr.SnapshotForSave()
	testifyassert.True(t, snapshot.Dirty)
	testifyassert.Equal(t, []*Cue{hotCue}, snapshot.Cues)
	testifyassert.Equal(t, tr.Location(), snapshot.Location)

	hotCue.SetLabel("Drop")
	testifyassert.False(t, tr.MarkCleanIfUnchanged(snapshot.Revision))
	testifyassert.True(t, tr.IsDirty())
	testifyassert.True(t, hotCue.IsDirty())

	snapshot = tr.SnapshotForSave()
	testifyassert.Equal(t, "Drop", hotCue.Label())
	testifyassert.True(t, tr.MarkCleanIfUnchanged(snapshot.Revision))
	testifyassert.False(t, tr.IsDirty())
	testifyassert.False(t, hotCue.IsDirty())
}

func TestChangedIsPublishedForEveryModification(t *testing.T) {
	tr := newTestTrack(t, 7)
	rec := newRecorder(t, tr)

	tr.SetRating(3)
	tr.SetRating(4)
	tr.SetRating(4)

	testifyassert.Equal(t, 1, rec.count(events.KindDirty))
	testifyassert.Equal(t, 2, rec.count(events.KindChanged))
}

func TestTemporaryTrackPublishesDirtyAfterInitID(t *testing.T) {
	tr := NewTemporary(domain.NewFileAccess("/music/song.flac"))
	defer tr.Release()
	rec := newRecorder(t, tr)

	tr.SetTitle("Test")
	testifyassert.True(t, tr.IsDirty())
	testifyassert.Zero(t, rec.count(events.KindDirty))
	testifyassert.Zero(t, rec.count(events.KindChanged))
	testifyassert.Equal(t, 1, rec.count(events.KindTitleChanged))

	tr.InitID(11)
	tr.SetArtist("Artist")

	dirty, ok := rec.last(events.KindDirty)
	require.True(t, ok)
	testifyassert.Equal(t, domain.TrackID(11), dirty.TrackID)
	testifyassert.Equal(t, 1, rec.count(events.KindChanged))
}

func TestTextFields(t *testing.T) {
	tr := newTestTrack(t, 1)
	rec := newRecorder(t, tr)

	tr.SetTitle("  Title  ")
	testifyassert.Equal(t, "Title", tr.Title())
	tr.SetTitle("Title")
	testifyassert.Equal(t, 1, rec.count(events.KindTitleChanged), "unchanged value is not published")

	tr.SetArtist("Artist")
	info, ok := rec.last(events.KindInfoChanged)
	require.True(t, ok)
	testifyassert.Equal(t, "Artist - Title", info.Value)
	testifyassert.Equal(t, "Artist - Title", tr.Info())

	tr.SetAlbum(" Album ")
	tr.SetAlbumArtist("Various")
	tr.SetYear("2024 ")
	tr.SetComposer("Composer")
	tr.SetGrouping("Grouping")
	tr.SetTrackNumber("3")
	tr.SetTrackTotal("12")
	tr.SetComment("  keep whitespace ")

	testifyassert.Equal(t, "Album", tr.Album())
	testifyassert.Equal(t, "Various", tr.AlbumArtist())
	testifyassert.Equal(t, "2024", tr.Year())
	testifyassert.Equal(t, "Composer", tr.Composer())
	testifyassert.Equal(t, "Grouping", tr.Grouping())
	testifyassert.Equal(t, "3", tr.TrackNumber())
	testifyassert.Equal(t, "12", tr.TrackTotal())
	testifyassert.Equal(t, "  keep whitespace ", tr.Comment())

	for _, kind := range []events.Kind{
		events.KindAlbumChanged,
		events.KindAlbumArtistChanged,
		events.KindYearChanged,
		events.KindComposerChanged,
		events.KindGroupingChanged,
		events.KindTrackNumberChanged,
		events.KindTrackTotalChanged,
		events.KindCommentChanged,
	} {
		testifyassert.Equal(t, 1, rec.count(kind), kind)
	}
}

func TestInfoFallsBackToFileName(t *testing.T) {
	tr := newTestTrack(t, 1)
	testifyassert.Equal(t, "Artist - Title.flac", tr.Info())
	testifyassert.Equal(t, "Artist - Title.flac", tr.TitleInfo())

	tr.SetTitle("Only Title")
	testifyassert.Equal(t, "Only Title", tr.Info())
	testifyassert.Equal(t, "Only Title", tr.TitleInfo())
}

func TestGenre(t *testing.T) {
	tr := newTestTrack(t, 1)
	rec := newRecorder(t, tr)

	tr.SetGenreFromLibrary("House")
	testifyassert.Equal(t, "House", tr.Genre())
	testifyassert.Zero(t, rec.count(events.KindGenreChanged))
	testifyassert.True(t, tr.IsDirty())

	testifyassert.True(t, tr.UpdateGenre("Techno"))
	testifyassert.False(t, tr.UpdateGenre("Techno"))
	testifyassert.Equal(t, 1, rec.count(events.KindGenreChanged))
}

func TestMoodRequiresExtraMetadata(t *testing.T) {
	plain := newTestTrack(t, 1)
	testifyassert.False(t, plain.UpdateMood("happy"))
	testifyassert.Empty(t, plain.Mood())

	extra := NewDummy("/music/song.flac", 2, WithExtraMetadata(true))
	defer extra.Release()
	testifyassert.True(t, extra.UpdateMood("happy"))
	testifyassert.Equal(t, "happy", extra.Mood())
}

func TestKeys(t *testing.T) {
	tr := newTestTrack(t, 1)
	rec := newRecorder(t, tr)

	tr.SetKeyText("8A", domain.KeySourceUser)
	testifyassert.Equal(t, domain.KeyAMinor, tr.Key())
	testifyassert.Equal(t, "Am", tr.KeyText())

	tr.SetKeyText("not a key", domain.KeySourceUser)
	testifyassert.Equal(t, domain.KeyAMinor, tr.Key(), "invalid text is ignored")

	tr.SetKey(domain.KeyCMajor, domain.KeySourceAnalyzer)
	testifyassert.Equal(t, domain.KeySourceAnalyzer, tr.Keys().Source)

	tr.ResetKeys()
	testifyassert.False(t, tr.Key().IsValid())
	testifyassert.Equal(t, 3, rec.count(events.KindKeyChanged))

	metadata, _ := tr.Metadata()
	testifyassert.Empty(t, metadata.TrackInfo.Key)
}

func TestReplayGain(t *testing.T) {
	tr := newTestTrack(t, 1)
	rec := newRecorder(t, tr)

	tr.SetReplayGain(domain.ReplayGain{Ratio: 0.5, Peak: 1})
	tr.AdjustReplayGainFromPregain(2)
	testifyassert.InDelta(t, 1.0, tr.ReplayGain().Ratio, 1e-9)

	testifyassert.Equal(t, 1, rec.count(events.KindReplayGainUpdated))
	testifyassert.Equal(t, 1, rec.count(events.KindReplayGainAdjusted))
}

func TestPlayCounter(t *testing.T) {
	tr := newTestTrack(t, 1)
	rec := newRecorder(t, tr)

	tr.UpdatePlayCounter(true)
	testifyassert.Equal(t, 1, tr.PlayCounter().TimesPlayed)
	tr.UpdatePlayCounter(false)
	testifyassert.Equal(t, 0, tr.PlayCounter().TimesPlayed)
	testifyassert.Equal(t, 2, rec.count(events.KindTimesPlayedChanged))
}

func TestDurationAndBitrateFromSourceTakePrecedence(t *testing.T) {
	tr := newTestTrack(t, 1)
	tr.SetDuration(3 * time.Minute)
	tr.SetBitrate(320)
	testifyassert.Equal(t, 3*time.Minute, tr.Duration())
	testifyassert.Equal(t, 180, tr.DurationSecondsInt())
	testifyassert.Equal(t, "320 kbps", tr.BitrateText())

	tr.UpdateStreamInfoFromSource(testStreamInfo)
	testifyassert.Equal(t, testStreamInfo.Duration, tr.Duration())
	testifyassert.Equal(t, audio.SampleRate44100, tr.SampleRate())
	testifyassert.Equal(t, audio.ChannelCountStereo, tr.Channels())

	tr.SetDuration(testStreamInfo.Duration)
	testifyassert.Panics(t, func() { tr.SetDuration(time.Minute) })
	testifyassert.Panics(t, func() { tr.SetBitrate(128) })
}

func TestSetAudioPropertiesPublishesDuration(t *testing.T) {
	tr := newTestTrack(t, 1)
	rec := newRecorder(t, tr)

	tr.SetAudioProperties(testStreamInfo)
	tr.SetAudioProperties(testStreamInfo)

	duration, ok := rec.last(events.KindDurationChanged)
	require.True(t, ok)
	testifyassert.Equal(t, testStreamInfo.Duration.Seconds(), duration.Value)
	testifyassert.Equal(t, 1, rec.count(events.KindDurationChanged))
}

func TestSourceSynchronizedAt(t *testing.T) {
	tr := newTestTrack(t, 1)
	testifyassert.False(t, tr.IsSourceSynchronized())

	syncedAt := time.Date(2024, 5, 1, 12, 0, 0, 0, time.FixedZone("CEST", 2*3600))
	tr.SetSourceSynchronizedAt(syncedAt)
	testifyassert.True(t, tr.IsSourceSynchronized())
	testifyassert.Equal(t, time.UTC, tr.SourceSynchronizedAt().Location())
	testifyassert.True(t, syncedAt.Equal(tr.SourceSynchronizedAt()))

	tr.SetSourceSynchronizedAt(time.Time{})
	testifyassert.False(t, tr.IsSourceSynchronized())
}

func TestCoverInfo(t *testing.T) {
	tr := newTestTrack(t, 1)
	rec := newRecorder(t, tr)

	tr.SetCoverInfo(domain.CoverInfo{Source: domain.CoverSourceGuessed, Type: domain.CoverTypeMetadata})
	testifyassert.True(t, tr.RefreshCoverImageDigest([]byte("image")))
	testifyassert.False(t, tr.RefreshCoverImageDigest([]byte("image")), "same digest")
	testifyassert.Equal(t, domain.ImageDigest([]byte("image")), tr.CoverInfo().ImageDigest)
	testifyassert.Equal(t, 2, rec.count(events.KindCoverArtUpdated))

	testifyassert.Panics(t, func() {
		tr.SetCoverInfo(domain.CoverInfo{Type: domain.CoverTypeMetadata, Location: "cover.jpg"})
	})
}

func TestWaveformAndAnalysis(t *testing.T) {
	tr := newTestTrack(t, 1)
	rec := newRecorder(t, tr)

	testifyassert.Nil(t, tr.Waveform())
	waveform := &Waveform{Version: "1", Data: []byte{1, 2, 3}}
	tr.SetWaveform(waveform)
	tr.SetWaveformSummary(waveform)
	tr.AnalysisFinished()

	testifyassert.Same(t, waveform, tr.Waveform())
	testifyassert.Same(t, waveform, tr.WaveformSummary())
	testifyassert.Equal(t, []events.Kind{
		events.KindWaveformUpdated,
		events.KindWaveformSummaryUpdated,
		events.KindAnalyzed,
	}, rec.kinds())
	testifyassert.False(t, tr.IsDirty(), "waveforms are not part of the record")
}

func TestRelocateDoesNotMarkDirty(t *testing.T) {
	tr := newTestTrack(t, 1)
	tr.Relocate(domain.NewFileAccess("/other/song.flac"))
	testifyassert.Equal(t, "/other/song.flac", tr.Location())
	testifyassert.False(t, tr.IsDirty())
}

func TestListenersMayCallBackIntoTrack(t *testing.T) {
	tr := newTestTrack(t, 1)
	tr.SetAudioProperties(testStreamInfo)

	var observed []beats.Bpm
	tr.AddListener(func(event events.Event) {
		if event.Kind == events.KindBpmChanged {
			observed = append(observed, tr.Bpm())
		}
	})
	require.True(t, tr.TrySetBpm(128))
	testifyassert.Equal(t, []beats.Bpm{128}, observed)
}

func TestConcurrentAccess(t *testing.T) {
	tr := newAnalyzedTrack(t, 1)
	mainCue := tr.CreateAndAddCue(cue.TypeMainCue, cue.NoHotCue, audio.NewFramePos(100), audio.InvalidFramePos)
	require.NotNil(t, mainCue)

	var published sync.WaitGroup
	tr.AddListener(func(events.Event) {
		// Reading from listeners must never deadlock.
		_ = tr.Bpm()
	})

	for i := 0; i < 8; i++ {
		published.Add(1)
		go func(i int) {
			defer published.Done()
			for j := 0; j < 50; j++ {
				switch (i + j) % 5 {
				case 0:
					tr.TrySetBpm(beats.Bpm(100 + j))
				case 1:
					mainCue.SetStartPosition(audio.NewFramePos(float64(j * 10)))
				case 2:
					tr.SetMainCuePosition(audio.NewFramePos(float64(j * 20)))
				case 3:
					tr.SetTitle("Title")
					_, _ = tr.Record()
				default:
					tr.CreateAndAddCue(cue.TypeHotCue, j%8, audio.NewFramePos(float64(j)), audio.InvalidFramePos)
				}
			}
		}(i)
	}
	published.Wait()
	requireInvariants(t, tr)
}
