package domain

import (
	"math"
	"testing"
	"time"

	"github.com/jaki95/djtrack/internal/assert"
	"github.com/jaki95/djtrack/internal/audio"
	"github.com/jaki95/djtrack/internal/beats"
	"github.com/jaki95/djtrack/internal/color"
	"github.com/jaki95/djtrack/internal/cue"
	testifyassert "github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	assert.SetStrict(true)
	m.Run()
}

func sampleMetadata() TrackMetadata {
	return TrackMetadata{
		AlbumInfo: AlbumInfo{Title: "Album", Artist: "Various"},
		TrackInfo: TrackInfo{
			Artist: "Artist",
			Title:  "Title",
			Genre:  "Techno",
			Bpm:    128,
			Key:    "Am",
		},
		StreamInfo: audio.StreamInfo{
			SignalInfo: audio.NewSignalInfo(audio.ChannelCountStereo, audio.SampleRate44100),
			Bitrate:    320,
			Duration:   5 * time.Minute,
		},
	}
}

func TestTrackID(t *testing.T) {
	testifyassert.False(t, InvalidTrackID.IsValid())
	testifyassert.True(t, TrackID(1).IsValid())
	testifyassert.Equal(t, "<invalid>", InvalidTrackID.String())

	id, err := ParseTrackID("42")
	require.NoError(t, err)
	testifyassert.Equal(t, TrackID(42), id)

	_, err = ParseTrackID("-1")
	testifyassert.ErrorIs(t, err, ErrInvalidTrackID)
	_, err = ParseTrackID("abc")
	testifyassert.ErrorIs(t, err, ErrInvalidTrackID)
}

func TestReplayGain(t *testing.T) {
	testifyassert.False(t, ReplayGain{}.HasRatio())
	testifyassert.False(t, ReplayGain{}.HasPeak())

	gain := ReplayGain{Ratio: RatioFromDB(-6.504), Peak: 0.98765432}
	normalized := gain.Normalize()
	testifyassert.InDelta(t, -6.50, RatioToDB(normalized.Ratio), 1e-9)
	testifyassert.Equal(t, 0.987654, normalized.Peak)
	testifyassert.Equal(t, normalized, normalized.Normalize())

	testifyassert.Equal(t, "-6.50 dB", FormatRatio(normalized.Ratio))
	testifyassert.Empty(t, FormatRatio(0))

	ratio, err := ParseRatio("-6.50 dB")
	require.NoError(t, err)
	testifyassert.InDelta(t, normalized.Ratio, ratio, 1e-12)
	_, err = ParseRatio("loud")
	testifyassert.ErrorIs(t, err, ErrInvalidGain)

	testifyassert.Equal(t, ReplayGain{}, ReplayGain{Ratio: math.Inf(1), Peak: -1}.Normalize())
}

func TestPlayCounter(t *testing.T) {
	var counter PlayCounter
	counter.UpdateLastPlayedNowAndTimesPlayed(true)
	testifyassert.Equal(t, 1, counter.TimesPlayed)
	testifyassert.True(t, counter.Played)
	testifyassert.False(t, counter.LastPlayedAt.IsZero())

	counter.UpdateLastPlayedNowAndTimesPlayed(true)
	testifyassert.Equal(t, 1, counter.TimesPlayed, "counted once per session")

	counter.UpdateLastPlayedNowAndTimesPlayed(false)
	testifyassert.Equal(t, 0, counter.TimesPlayed)
	testifyassert.False(t, counter.Played)

	counter.UpdateLastPlayedNowAndTimesPlayed(false)
	testifyassert.Equal(t, 0, counter.TimesPlayed)
}

func TestCoverInfo(t *testing.T) {
	testifyassert.True(t, CoverInfo{}.IsConsistent())
	testifyassert.False(t, CoverInfo{Type: CoverTypeMetadata, Location: "cover.jpg", Source: CoverSourceGuessed}.IsConsistent())
	testifyassert.False(t, CoverInfo{Type: CoverTypeFile}.IsConsistent())

	var info CoverInfo
	testifyassert.False(t, info.RefreshImageDigest(nil))
	testifyassert.True(t, info.RefreshImageDigest([]byte("image")))
	testifyassert.Len(t, info.ImageDigest, 32)
	testifyassert.Equal(t, ImageDigest([]byte("image")), info.ImageDigest)
}

func TestFileAccess(t *testing.T) {
	fa := NewFileAccess("/music/artist/track.mp3")
	testifyassert.Equal(t, "track.mp3", fa.FileName())
	testifyassert.Equal(t, "/music/artist", fa.Directory())
	testifyassert.False(t, fa.Exists())
	testifyassert.True(t, FileAccess{}.IsEmpty())
	testifyassert.Empty(t, FileAccess{}.FileName())
}

func TestReplaceMetadataFromSource(t *testing.T) {
	record := NewTrackRecord(1)
	syncedAt := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	testifyassert.True(t, record.ReplaceMetadataFromSource(sampleMetadata(), syncedAt))
	testifyassert.True(t, record.IsSourceSynchronized())
	testifyassert.Equal(t, syncedAt, record.SourceSynchronizedAt)
	testifyassert.False(t, record.ReplaceMetadataFromSource(sampleMetadata(), syncedAt))

	measured := audio.StreamInfo{
		SignalInfo: audio.NewSignalInfo(audio.ChannelCountStereo, audio.SampleRate48000),
		Bitrate:    256,
		Duration:   299 * time.Second,
	}
	require.True(t, record.UpdateStreamInfoFromSource(measured))
	testifyassert.True(t, record.ReplaceMetadataFromSource(sampleMetadata(), syncedAt.Add(time.Hour)))
	testifyassert.Equal(t, measured, record.Metadata.StreamInfo, "measured stream info is preserved")
}

func TestMergeExtraMetadataFromSource(t *testing.T) {
	record := NewTrackRecord(1)
	record.Metadata = sampleMetadata()
	record.Metadata.TrackInfo.Encoder = "LAME"

	imported := sampleMetadata()
	imported.TrackInfo.Bpm = 90
	imported.TrackInfo.Encoder = "other"
	imported.TrackInfo.ISRC = "USRC17607839"
	imported.AlbumInfo.RecordLabel = "Label"

	testifyassert.True(t, record.MergeExtraMetadataFromSource(imported))
	testifyassert.Equal(t, "LAME", record.Metadata.TrackInfo.Encoder)
	testifyassert.Equal(t, "USRC17607839", record.Metadata.TrackInfo.ISRC)
	testifyassert.Equal(t, "Label", record.Metadata.AlbumInfo.RecordLabel)
	testifyassert.Equal(t, beats.Bpm(128), record.Metadata.TrackInfo.Bpm)
	testifyassert.False(t, record.MergeExtraMetadataFromSource(imported))
}

func TestUpdateKeys(t *testing.T) {
	record := NewTrackRecord(1)
	testifyassert.True(t, record.UpdateGlobalKey(KeyAMinor, KeySourceAnalyzer))
	testifyassert.Equal(t, "Am", record.Metadata.TrackInfo.Key)
	testifyassert.False(t, record.UpdateGlobalKey(KeyAMinor, KeySourceUser))
	testifyassert.False(t, record.UpdateGlobalKey(KeyInvalid, KeySourceUser))

	testifyassert.Equal(t, UpdateUnchanged, record.UpdateGlobalKeyText("8A", KeySourceFileMetadata))
	testifyassert.Equal(t, UpdateUpdated, record.UpdateGlobalKeyText("F#m", KeySourceFileMetadata))
	testifyassert.Equal(t, KeySourceFileMetadata, record.Keys.Source)
	testifyassert.Equal(t, UpdateRejected, record.UpdateGlobalKeyText("none", KeySourceFileMetadata))
	testifyassert.Equal(t, "F#m", record.GlobalKeyText())

	record.ResetKeys()
	testifyassert.Equal(t, KeyInvalid, record.GlobalKey())
	testifyassert.Empty(t, record.Metadata.TrackInfo.Key)
}

func TestUpdateStreamInfoFromSource(t *testing.T) {
	record := NewTrackRecord(1)
	record.Metadata = sampleMetadata()
	testifyassert.False(t, record.HasStreamInfoFromSource())

	// Missing values are completed from the tags
	testifyassert.True(t, record.UpdateStreamInfoFromSource(audio.StreamInfo{
		SignalInfo: audio.NewSignalInfo(audio.ChannelCountStereo, audio.SampleRate44100),
	}))
	require.True(t, record.HasStreamInfoFromSource())
	testifyassert.Equal(t, audio.Bitrate(320), record.StreamInfoFromSource.Bitrate)
	testifyassert.Equal(t, 5*time.Minute, record.StreamInfoFromSource.Duration)

	testifyassert.False(t, record.UpdateStreamInfoFromSource(*record.StreamInfoFromSource))
}

func TestRecordCloneIsIndependent(t *testing.T) {
	record := NewTrackRecord(1)
	record.Metadata.TrackInfo.EmbeddedTags.CueInfos = []cue.Info{{Type: cue.TypeHotCue, StartMillis: cue.Millis(1)}}
	record.StreamInfoFromSource = &audio.StreamInfo{Duration: time.Second}

	clone := record.Clone()
	testifyassert.True(t, record.Equal(clone))

	*clone.Metadata.TrackInfo.EmbeddedTags.CueInfos[0].StartMillis = 2
	clone.StreamInfoFromSource.Duration = 2 * time.Second
	testifyassert.Equal(t, 1.0, *record.Metadata.TrackInfo.EmbeddedTags.CueInfos[0].StartMillis)
	testifyassert.Equal(t, time.Second, record.StreamInfoFromSource.Duration)
	testifyassert.False(t, record.Equal(clone))
}

func TestAnyFileTagsModified(t *testing.T) {
	current := sampleMetadata()
	current.TrackInfo.Bpm = 128.2
	fromFile := sampleMetadata()

	testifyassert.False(t, current.AnyFileTagsModified(fromFile, beats.ComparisonInteger))
	testifyassert.True(t, current.AnyFileTagsModified(fromFile, beats.ComparisonExact))

	fromFile.StreamInfo.Duration = time.Minute
	testifyassert.False(t, current.AnyFileTagsModified(fromFile, beats.ComparisonInteger), "stream info is not a file tag")

	fromFile.AlbumInfo.Title = "Other"
	testifyassert.True(t, current.AnyFileTagsModified(fromFile, beats.ComparisonInteger))
}

func TestNormalizeBeforeExport(t *testing.T) {
	m := sampleMetadata()
	m.TrackInfo.Title = "  Café "
	m.TrackInfo.Bpm = 127.99987
	m.AlbumInfo.Artist = "Artist "
	m.NormalizeBeforeExport()

	testifyassert.Equal(t, "Café", m.TrackInfo.Title)
	testifyassert.Equal(t, beats.Bpm(128), m.TrackInfo.Bpm)
	testifyassert.Equal(t, "Artist", m.AlbumInfo.Artist)
}

func TestMetadataText(t *testing.T) {
	m := sampleMetadata()
	testifyassert.Equal(t, 300, m.DurationSecondsRounded())
	testifyassert.Equal(t, "5:00", m.DurationText(audio.PrecisionSeconds))
	testifyassert.Equal(t, "320 kbps", m.BitrateText())
}

func TestEmbeddedTagsRoundTrip(t *testing.T) {
	signal := audio.NewSignalInfo(audio.ChannelCountStereo, audio.SampleRate44100)
	offset := GuessTimingOffsetMillis("/music/track.mp3", signal)
	testifyassert.Less(t, offset, 0.0)
	testifyassert.Zero(t, GuessTimingOffsetMillis("/music/track.flac", signal))

	grid := beats.FromConstTempo(signal.SampleRate, audio.NewFramePos(44100), 120)
	require.NotNil(t, grid)

	var tags EmbeddedTags
	testifyassert.True(t, tags.IsEmpty())
	tags.Color = color.Some(0x00FF00)
	tags.SetBeats(grid, signal, time.Minute, offset)
	tags.SetCueInfos([]cue.Info{{Type: cue.TypeMainCue, StartMillis: cue.Millis(1000), HotCueIndex: cue.NoHotCue}}, offset)
	testifyassert.False(t, tags.IsEmpty())

	streamInfo := audio.StreamInfo{SignalInfo: signal, Duration: time.Minute}
	importedGrid := tags.ImportBeats().ImportBeatsAndApplyTimingOffset("/music/track.mp3", streamInfo)
	require.NotNil(t, importedGrid)
	testifyassert.InDelta(t, 44100.0, importedGrid.FirstBeat().Value(), 1e-6)
	testifyassert.Equal(t, beats.Bpm(120), importedGrid.Bpm())

	infos := tags.ImportCueInfos().ImportCueInfosAndApplyTimingOffset("/music/track.mp3", signal)
	require.Len(t, infos, 1)
	testifyassert.InDelta(t, 1000.0, *infos[0].StartMillis, 1e-9)

	tags.Status = ParserStatusFailed
	testifyassert.Nil(t, tags.ImportBeats())
	testifyassert.Nil(t, tags.ImportCueInfos())
}

func TestEmbeddedTagsDropBeatsAfterEnd(t *testing.T) {
	signal := audio.NewSignalInfo(audio.ChannelCountStereo, audio.SampleRate44100)
	grid := beats.FromBeatPositions(signal.SampleRate, []audio.FramePos{
		audio.NewFramePos(0), audio.NewFramePos(22050), audio.NewFramePos(44100), audio.NewFramePos(88200),
	})
	require.NotNil(t, grid)

	var tags EmbeddedTags
	tags.SetBeats(grid, signal, time.Second, 0)
	require.NotNil(t, tags.Beats)
	testifyassert.Len(t, tags.Beats.Positions, 3)
}
