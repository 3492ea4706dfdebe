package audio

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-audio/wav"
	"github.com/tphakala/flac"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported audio format")
	ErrInvalidFile       = errors.New("invalid audio file")
)

// Probe reads the stream properties of an audio file from its headers. Only
// WAV and FLAC files are supported.
func Probe(path string) (StreamInfo, error) {
	file, err := os.Open(path)
	if err != nil {
		return StreamInfo{}, fmt.Errorf("failed to open audio file: %w", err)
	}
	defer file.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		return probeWAV(file)
	case ".flac":
		return probeFLAC(file)
	default:
		return StreamInfo{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

func probeWAV(file *os.File) (StreamInfo, error) {
	decoder := wav.NewDecoder(file)
	decoder.ReadInfo()
	if !decoder.IsValidFile() {
		return StreamInfo{}, fmt.Errorf("%w: not a valid WAV file", ErrInvalidFile)
	}

	duration, err := decoder.Duration()
	if err != nil {
		return StreamInfo{}, fmt.Errorf("failed to read WAV duration: %w", err)
	}

	return StreamInfo{
		SignalInfo: NewSignalInfo(ChannelCount(decoder.NumChans), SampleRate(decoder.SampleRate)),
		Bitrate:    Bitrate(decoder.AvgBytesPerSec * 8 / 1000),
		Duration:   duration,
	}, nil
}

func probeFLAC(file *os.File) (StreamInfo, error) {
	decoder, err := flac.NewDecoder(file)
	if err != nil {
		return StreamInfo{}, fmt.Errorf("%w: %v", ErrInvalidFile, err)
	}
	if decoder.SampleRate <= 0 || decoder.NChannels <= 0 {
		return StreamInfo{}, fmt.Errorf("%w: missing FLAC stream info", ErrInvalidFile)
	}

	duration := time.Duration(float64(decoder.TotalSamples) / float64(decoder.SampleRate) * float64(time.Second))

	info := StreamInfo{
		SignalInfo: NewSignalInfo(ChannelCount(decoder.NChannels), SampleRate(decoder.SampleRate)),
		Duration:   duration,
	}
	if stat, err := file.Stat(); err == nil && duration > 0 {
		info.Bitrate = Bitrate(float64(stat.Size()) * 8 / duration.Seconds() / 1000)
	}
	return info, nil
}
