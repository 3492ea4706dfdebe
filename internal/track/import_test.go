package track

import (
	"testing"

	"github.com/jaki95/djtrack/internal/audio"
	"github.com/jaki95/djtrack/internal/beats"
	"github.com/jaki95/djtrack/internal/cue"
	"github.com/jaki95/djtrack/internal/events"
	testifyassert "github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeferredBeatsImport(t *testing.T) {
	tr := newTestTrack(t, 1)
	tr.SetAudioProperties(testStreamInfo)
	require.True(t, tr.TrySetBpm(100))
	tr.MarkClean()
	rec := newRecorder(t, tr)

	status := tr.TryImportBeats(beats.NewConstTempoImporter(125, 0, 0), false)
	testifyassert.Equal(t, ImportPending, status)
	testifyassert.Equal(t, ImportPending, tr.BeatsImportStatus())
	testifyassert.Nil(t, tr.Beats(), "existing beats are dropped while the import is pending")
	testifyassert.False(t, tr.Bpm().IsValid())
	requireInvariants(t, tr)

	rec.reset()
	tr.UpdateStreamInfoFromSource(testStreamInfo)

	testifyassert.Equal(t, ImportComplete, tr.BeatsImportStatus())
	testifyassert.Equal(t, beats.Bpm(125), tr.Bpm())
	testifyassert.Equal(t, 1, rec.count(events.KindBeatsUpdated))
	requireInvariants(t, tr)
}

func TestImmediateBeatsImport(t *testing.T) {
	tr := newAnalyzedTrack(t, 1)
	rec := newRecorder(t, tr)

	status := tr.TryImportBeats(beats.NewConstTempoImporter(126, 1000, 0), true)
	testifyassert.Equal(t, ImportComplete, status)
	testifyassert.Equal(t, beats.Bpm(126), tr.Bpm())
	testifyassert.True(t, tr.IsBpmLocked())
	testifyassert.Equal(t, audio.NewFramePos(44100), tr.Beats().FirstBeat())
	testifyassert.Equal(t, 1, rec.count(events.KindBeatsUpdated))
	requireInvariants(t, tr)
}

func TestEmptyBeatsImportKeepsGrid(t *testing.T) {
	tr := newAnalyzedTrack(t, 1)
	require.True(t, tr.TrySetBpm(128))
	grid := tr.Beats()

	status := tr.TryImportBeats(beats.NewConstTempoImporter(beats.BpmUndefined, 0, 0), false)
	testifyassert.Equal(t, ImportComplete, status)
	testifyassert.Same(t, grid, tr.Beats())
}

func TestBeatsImportAlreadyPending(t *testing.T) {
	tr := newTestTrack(t, 1)
	tr.SetAudioProperties(testStreamInfo)
	require.Equal(t, ImportPending, tr.TryImportBeats(beats.NewConstTempoImporter(125, 0, 0), false))

	testifyassert.Panics(t, func() {
		tr.TryImportBeats(beats.NewConstTempoImporter(130, 0, 0), false)
	})
	testifyassert.Panics(t, func() { tr.TryImportBeats(nil, false) })

	tr.UpdateStreamInfoFromSource(testStreamInfo)
	testifyassert.Equal(t, beats.Bpm(125), tr.Bpm())
}

func TestPendingBeatsImportDiscardedAfterLock(t *testing.T) {
	tr := newTestTrack(t, 1)
	tr.SetAudioProperties(testStreamInfo)
	require.Equal(t, ImportPending, tr.TryImportBeats(beats.NewConstTempoImporter(125, 0, 0), false))
	locked := beats.FromConstTempo(audio.SampleRate44100, audio.StartFramePos, 90)
	require.True(t, tr.TrySetAndLockBeats(locked))

	tr.UpdateStreamInfoFromSource(testStreamInfo)
	testifyassert.Same(t, locked, tr.Beats())
	testifyassert.Equal(t, ImportComplete, tr.BeatsImportStatus())
}

func TestUpdateStreamInfoFromSourceWithoutImports(t *testing.T) {
	tr := newTestTrack(t, 1)
	tr.MarkClean()
	rec := newRecorder(t, tr)

	tr.UpdateStreamInfoFromSource(testStreamInfo)
	testifyassert.True(t, tr.IsDirty())
	duration, ok := rec.last(events.KindDurationChanged)
	require.True(t, ok)
	testifyassert.Equal(t, testStreamInfo.Duration.Seconds(), duration.Value)

	rec.reset()
	tr.UpdateStreamInfoFromSource(testStreamInfo)
	testifyassert.Empty(t, rec.kinds())
}

func testCueImporter() *cue.InfoImporter {
	return cue.NewInfoImporter([]cue.Info{
		{Type: cue.TypeMainCue, StartMillis: cue.Millis(500), HotCueIndex: cue.NoHotCue},
		{Type: cue.TypeHotCue, StartMillis: cue.Millis(1000), HotCueIndex: 0, Label: "Intro"},
		{Type: cue.TypeHotCue, StartMillis: cue.Millis(2000), HotCueIndex: 1},
	}, 0)
}

func TestImmediateCueImportPreservesOtherTypes(t *testing.T) {
	tr := newAnalyzedTrack(t, 1)
	loop := tr.CreateAndAddCue(cue.TypeLoop, cue.NoHotCue, audio.NewFramePos(0), audio.NewFramePos(100))
	oldHotCue := tr.CreateAndAddCue(cue.TypeHotCue, 5, audio.NewFramePos(10), audio.InvalidFramePos)
	require.NotNil(t, loop)
	require.NotNil(t, oldHotCue)
	rec := newRecorder(t, tr)

	testifyassert.Equal(t, ImportComplete, tr.ImportCueInfos(testCueImporter()))

	cues := tr.CuePoints()
	require.Len(t, cues, 4)
	testifyassert.Same(t, loop, cues[0])
	testifyassert.NotContains(t, cues, oldHotCue)
	testifyassert.Equal(t, audio.NewFramePos(22050), tr.MainCuePosition())
	testifyassert.Equal(t, "Intro", cues[2].Label())
	testifyassert.Equal(t, 1, rec.count(events.KindCuesUpdated))
	requireInvariants(t, tr)
}

func TestDeferredCueImport(t *testing.T) {
	tr := newTestTrack(t, 1)
	tr.SetAudioProperties(testStreamInfo)
	tr.CreateAndAddCue(cue.TypeHotCue, 0, audio.NewFramePos(10), audio.InvalidFramePos)

	testifyassert.Equal(t, ImportPending, tr.ImportCueInfos(testCueImporter()))
	testifyassert.Equal(t, ImportPending, tr.CueImportStatus())
	testifyassert.Empty(t, tr.CuePoints(), "no cues while the import is pending")

	rec := newRecorder(t, tr)
	tr.UpdateStreamInfoFromSource(audio.StreamInfo{
		SignalInfo: audio.NewSignalInfo(audio.ChannelCountStereo, audio.SampleRate44100),
		Duration:   testStreamInfo.Duration,
	})

	testifyassert.Equal(t, ImportComplete, tr.CueImportStatus())
	testifyassert.Len(t, tr.CuePoints(), 3)
	testifyassert.Equal(t, audio.NewFramePos(22050), tr.MainCuePosition())
	testifyassert.Equal(t, 1, rec.count(events.KindCuesUpdated))
	for _, c := range tr.CuePoints() {
		testifyassert.True(t, c.IsDirty(), "imported cues need to be stored")
	}
	requireInvariants(t, tr)
}

func TestEmptyCueImportKeepsCues(t *testing.T) {
	tr := newAnalyzedTrack(t, 1)
	tr.CreateAndAddCue(cue.TypeHotCue, 0, audio.NewFramePos(10), audio.InvalidFramePos)

	testifyassert.Equal(t, ImportComplete, tr.ImportCueInfos(cue.NewInfoImporter(nil, 0)))
	testifyassert.Len(t, tr.CuePoints(), 1)
}

func TestCueImportAppliesTimingOffset(t *testing.T) {
	tr := newAnalyzedTrack(t, 1)
	importer := cue.NewInfoImporter([]cue.Info{
		{Type: cue.TypeHotCue, StartMillis: cue.Millis(1000), HotCueIndex: 0},
	}, 500)

	require.Equal(t, ImportComplete, tr.ImportCueInfos(importer))
	cues := tr.CuePoints()
	require.Len(t, cues, 1)
	testifyassert.Equal(t, audio.NewFramePos(66150), cues[0].Position())
}

func TestReleaseWithPendingCueImport(t *testing.T) {
	tr := NewDummy("/music/song.flac", 1)
	tr.SetAudioProperties(testStreamInfo)
	require.Equal(t, ImportPending, tr.ImportCueInfos(testCueImporter()))
	tr.Release()
	testifyassert.Equal(t, ImportComplete, tr.CueImportStatus())
}
