package audio

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestWAV(t *testing.T, path string, sampleRate, channels, frames int) {
	t.Helper()

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	enc := wav.NewEncoder(f, sampleRate, 16, channels, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           make([]int, frames*channels),
		SourceBitDepth: 16,
	}
	require.NoError(t, enc.Write(buf))
	require.NoError(t, enc.Close())
}

func TestProbeWAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone.wav")
	writeTestWAV(t, path, 44100, 2, 44100)

	info, err := Probe(path)
	require.NoError(t, err)
	assert.Equal(t, NewSignalInfo(ChannelCountStereo, SampleRate44100), info.SignalInfo)
	assert.InDelta(t, time.Second.Seconds(), info.Duration.Seconds(), 0.01)
	assert.Equal(t, Bitrate(1411), info.Bitrate)
}

func TestProbeErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := Probe(filepath.Join(dir, "missing.wav"))
	assert.Error(t, err)

	mp3 := filepath.Join(dir, "track.mp3")
	require.NoError(t, os.WriteFile(mp3, []byte("not audio"), 0644))
	_, err = Probe(mp3)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	bogus := filepath.Join(dir, "bogus.wav")
	require.NoError(t, os.WriteFile(bogus, []byte("definitely not RIFF"), 0644))
	_, err = Probe(bogus)
	assert.ErrorIs(t, err, ErrInvalidFile)
}
