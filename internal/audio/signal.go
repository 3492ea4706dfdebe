// Package audio provides the value types that describe an uncompressed PCM
// signal and the audio stream of a track: channel count, sample rate, frame
// positions, bitrate and duration. It also includes helpers for probing the
// stream properties of audio files without decoding them.
package audio

import (
	"fmt"

	"github.com/jaki95/djtrack/internal/assert"
)

// ChannelCount is the number of interleaved channels per frame.
type ChannelCount uint16

const (
	ChannelCountMono   ChannelCount = 1
	ChannelCountStereo ChannelCount = 2
)

// IsValid reports whether the channel count is set.
func (c ChannelCount) IsValid() bool {
	return c > 0
}

// SampleRate is measured in frames per second.
type SampleRate uint32

const (
	SampleRate44100 SampleRate = 44100
	SampleRate48000 SampleRate = 48000
)

// IsValid reports whether the sample rate is set.
func (r SampleRate) IsValid() bool {
	return r > 0
}

// SampleLayout describes how samples of multiple channels are arranged.
type SampleLayout uint8

const (
	SampleLayoutUnknown SampleLayout = iota
	SampleLayoutPlanar
	SampleLayoutInterleaved
)

func (l SampleLayout) String() string {
	switch l {
	case SampleLayoutPlanar:
		return "planar"
	case SampleLayoutInterleaved:
		return "interleaved"
	default:
		return "unknown"
	}
}

// SignalInfo holds the properties that characterize an uncompressed PCM
// audio signal. The zero value is invalid.
type SignalInfo struct {
	ChannelCount ChannelCount `json:"channel_count" yaml:"channel_count"`
	SampleRate   SampleRate   `json:"sample_rate" yaml:"sample_rate"`
	SampleLayout SampleLayout `json:"sample_layout,omitempty" yaml:"sample_layout,omitempty"`
}

// NewSignalInfo returns an interleaved signal description.
func NewSignalInfo(channelCount ChannelCount, sampleRate SampleRate) SignalInfo {
	return SignalInfo{
		ChannelCount: channelCount,
		SampleRate:   sampleRate,
		SampleLayout: SampleLayoutInterleaved,
	}
}

// IsValid reports whether channel count, sample rate and layout are all known.
func (s SignalInfo) IsValid() bool {
	return s.ChannelCount.IsValid() &&
		s.SampleLayout != SampleLayoutUnknown &&
		s.SampleRate.IsValid()
}

// SamplesToFrames converts a sample count or offset into frames. Only works
// for sample offsets on frame boundaries.
func (s SignalInfo) SamplesToFrames(samples int64) int64 {
	assert.Debug(s.ChannelCount.IsValid(), "channel count unknown")
	if !s.ChannelCount.IsValid() {
		return 0
	}
	assert.Debug(samples%int64(s.ChannelCount) == 0, "sample offset not on frame boundary", "samples", samples)
	return samples / int64(s.ChannelCount)
}

// FramesToSamples converts a frame count or offset into samples.
func (s SignalInfo) FramesToSamples(frames int64) int64 {
	assert.Debug(s.ChannelCount.IsValid(), "channel count unknown")
	return frames * int64(s.ChannelCount)
}

// FramesToSecs converts frames into seconds.
func (s SignalInfo) FramesToSecs(frames float64) float64 {
	assert.Debug(s.SampleRate.IsValid(), "sample rate unknown")
	if !s.SampleRate.IsValid() {
		return 0
	}
	return frames / float64(s.SampleRate)
}

// SecsToFrames converts seconds into frames.
func (s SignalInfo) SecsToFrames(seconds float64) float64 {
	assert.Debug(s.SampleRate.IsValid(), "sample rate unknown")
	return seconds * float64(s.SampleRate)
}

// FramesToMillis converts frames into milliseconds.
func (s SignalInfo) FramesToMillis(frames float64) float64 {
	return s.FramesToSecs(frames) * 1000
}

// MillisToFrames converts milliseconds into frames.
func (s SignalInfo) MillisToFrames(milliseconds float64) float64 {
	return s.SecsToFrames(milliseconds / 1000)
}

// SamplesToSecs converts samples on frame boundaries into seconds.
func (s SignalInfo) SamplesToSecs(samples int64) float64 {
	return s.FramesToSecs(float64(s.SamplesToFrames(samples)))
}

// SecsToSamples converts seconds into samples. The result may not be on a
// frame boundary.
func (s SignalInfo) SecsToSamples(seconds float64) float64 {
	return s.SecsToFrames(seconds) * float64(s.ChannelCount)
}

// MillisToSamples converts milliseconds into samples. The result may not be on
// a frame boundary.
func (s SignalInfo) MillisToSamples(milliseconds float64) float64 {
	return s.MillisToFrames(milliseconds) * float64(s.ChannelCount)
}

func (s SignalInfo) String() string {
	return fmt.Sprintf("SignalInfo{channels: %d, sampleRate: %d, layout: %s}",
		s.ChannelCount, s.SampleRate, s.SampleLayout)
}
