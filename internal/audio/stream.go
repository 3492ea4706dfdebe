package audio

import (
	"fmt"
	"time"
)

// Bitrate of an encoded stream in kbit/s.
type Bitrate int

// IsValid reports whether the bitrate is set.
func (b Bitrate) IsValid() bool {
	return b > 0
}

func (b Bitrate) String() string {
	if !b.IsValid() {
		return ""
	}
	return fmt.Sprintf("%d kbps", int(b))
}

// StreamInfo describes an audio stream as stored in file tags or as measured
// after opening the audio source.
type StreamInfo struct {
	SignalInfo SignalInfo    `json:"signal_info" yaml:"signal_info"`
	Bitrate    Bitrate       `json:"bitrate,omitempty" yaml:"bitrate,omitempty"`
	Duration   time.Duration `json:"duration,omitempty" yaml:"duration,omitempty"`
}

// IsValid reports whether the signal info is valid and the duration is known.
func (s StreamInfo) IsValid() bool {
	return s.SignalInfo.IsValid() && s.Duration > 0
}

// DurationFrames returns the stream duration in frames.
func (s StreamInfo) DurationFrames() float64 {
	if !s.SignalInfo.SampleRate.IsValid() {
		return 0
	}
	return s.SignalInfo.SecsToFrames(s.Duration.Seconds())
}

func (s StreamInfo) String() string {
	return fmt.Sprintf("StreamInfo{%s, bitrate: %d, duration: %s}",
		s.SignalInfo, s.Bitrate, s.Duration)
}
