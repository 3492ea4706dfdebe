package audio

import (
	"fmt"
	"math"
	"strconv"
)

// FramePos is a position within an audio stream measured in frames. The zero
// value is the invalid position. Fractional positions are allowed.
type FramePos struct {
	value float64
	valid bool
}

var (
	// InvalidFramePos marks an unset position.
	InvalidFramePos = FramePos{}
	// StartFramePos is the first frame of the stream.
	StartFramePos = FramePos{value: 0, valid: true}
)

// NewFramePos returns a valid position unless frames is NaN or infinite.
func NewFramePos(frames float64) FramePos {
	if math.IsNaN(frames) || math.IsInf(frames, 0) {
		return InvalidFramePos
	}
	return FramePos{value: frames, valid: true}
}

// IsValid reports whether the position is set.
func (p FramePos) IsValid() bool {
	return p.valid
}

// Value returns the position in frames or NaN if invalid.
func (p FramePos) Value() float64 {
	if !p.valid {
		return math.NaN()
	}
	return p.value
}

// Add shifts a valid position by the given number of frames. Invalid
// positions stay invalid.
func (p FramePos) Add(frames float64) FramePos {
	if !p.valid {
		return p
	}
	return NewFramePos(p.value + frames)
}

// Sub returns the distance between two valid positions in frames.
func (p FramePos) Sub(other FramePos) float64 {
	return p.Value() - other.Value()
}

// Less compares two positions. Invalid positions sort last.
func (p FramePos) Less(other FramePos) bool {
	if !p.valid {
		return false
	}
	if !other.valid {
		return true
	}
	return p.value < other.value
}

func (p FramePos) String() string {
	if !p.valid {
		return "<invalid>"
	}
	return fmt.Sprintf("%g", p.value)
}

// IsZero reports whether the position is unset, for omitempty encoders.
func (p FramePos) IsZero() bool {
	return !p.valid
}

// MarshalText encodes invalid positions as an empty string.
func (p FramePos) MarshalText() ([]byte, error) {
	if !p.valid {
		return []byte{}, nil
	}
	return []byte(strconv.FormatFloat(p.value, 'g', -1, 64)), nil
}

// UnmarshalText decodes positions encoded by MarshalText.
func (p *FramePos) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*p = InvalidFramePos
		return nil
	}
	v, err := strconv.ParseFloat(string(text), 64)
	if err != nil {
		return fmt.Errorf("invalid frame position %q: %w", text, err)
	}
	*p = NewFramePos(v)
	return nil
}
