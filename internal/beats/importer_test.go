package beats

import (
	"testing"
	"time"

	"github.com/jaki95/djtrack/internal/audio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testStreamInfo = audio.StreamInfo{
	SignalInfo: audio.NewSignalInfo(audio.ChannelCountStereo, audio.SampleRate44100),
	Duration:   3 * time.Minute,
}

func TestConstTempoImporter(t *testing.T) {
	importer := NewConstTempoImporter(120, 100, 10)
	assert.False(t, importer.IsEmpty())

	grid := importer.ImportBeatsAndApplyTimingOffset("track.mp3", testStreamInfo)
	require.NotNil(t, grid)
	assert.Equal(t, Bpm(120), grid.Bpm())
	assert.InDelta(t, 4851.0, grid.FirstBeat().Value(), 1e-9) // 110 ms

	assert.True(t, importer.IsEmpty(), "importer is drained after use")
	assert.Nil(t, importer.ImportBeatsAndApplyTimingOffset("track.mp3", testStreamInfo))
}

func TestBeatMapImporter(t *testing.T) {
	importer := NewBeatMapImporter([]float64{0, 500, 1000}, 0)
	assert.False(t, importer.IsEmpty())

	grid := importer.ImportBeatsAndApplyTimingOffset("track.mp3", testStreamInfo)
	require.NotNil(t, grid)
	assert.False(t, grid.IsConstTempo())
	assert.InDelta(t, 120.0, float64(grid.Bpm()), 1e-9)
	assert.True(t, importer.IsEmpty())
}

func TestEmptyImporters(t *testing.T) {
	assert.True(t, NewConstTempoImporter(BpmUndefined, 0, 0).IsEmpty())
	assert.True(t, NewBeatMapImporter([]float64{0}, 0).IsEmpty())
	assert.Nil(t, NewBeatMapImporter(nil, 0).ImportBeatsAndApplyTimingOffset("x", testStreamInfo))
}

func TestImporterWithoutSampleRate(t *testing.T) {
	importer := NewConstTempoImporter(120, 0, 0)
	assert.Nil(t, importer.ImportBeatsAndApplyTimingOffset("x", audio.StreamInfo{}))
	assert.True(t, importer.IsEmpty())
}

func TestSnapshotImporterConvertsSampleRate(t *testing.T) {
	grid := FromConstTempo(audio.SampleRate48000, audio.NewFramePos(4800), 125)
	require.NotNil(t, grid)

	importer := NewSnapshotImporter(grid.Snapshot(), 0)
	imported := importer.ImportBeatsAndApplyTimingOffset("x", testStreamInfo)
	require.NotNil(t, imported)
	assert.Equal(t, Bpm(125), imported.Bpm())
	assert.Equal(t, audio.SampleRate44100, imported.SampleRate())
	assert.InDelta(t, 4410.0, imported.FirstBeat().Value(), 1e-9) // 100 ms

	assert.True(t, NewSnapshotImporter(Snapshot{}, 0).IsEmpty())
}
