// Package beats models beat grids: the mapping from track time to musical
// beat positions, summarized by a BPM value.
package beats

import (
	"math"
	"strconv"
)

// Bpm is a tempo in beats per minute. Values that are not positive and finite
// are undefined.
type Bpm float64

const (
	// BpmUndefined is the value of an unknown tempo.
	BpmUndefined Bpm = 0

	// BpmMax is the largest tempo accepted from external sources.
	BpmMax Bpm = 500

	// normalizedDecimals is the precision kept by Normalize.
	normalizedDecimals = 3
)

// Comparison selects the precision of Bpm.Equal.
type Comparison int

const (
	ComparisonExact Comparison = iota
	// ComparisonInteger compares the values rounded to whole beats.
	ComparisonInteger
)

// IsValid reports whether the tempo is defined.
func (b Bpm) IsValid() bool {
	v := float64(b)
	return v > 0 && !math.IsInf(v, 0)
}

// Value returns the tempo or 0 if undefined.
func (b Bpm) Value() float64 {
	if !b.IsValid() {
		return 0
	}
	return float64(b)
}

// Normalize rounds the value to a fixed number of decimals. Undefined values
// are normalized to BpmUndefined.
func (b Bpm) Normalize() Bpm {
	if !b.IsValid() {
		return BpmUndefined
	}
	scale := math.Pow10(normalizedDecimals)
	return Bpm(math.Round(float64(b)*scale) / scale)
}

// Equal compares two tempos. Undefined values are equal to each other.
func (b Bpm) Equal(other Bpm, cmp Comparison) bool {
	if !b.IsValid() || !other.IsValid() {
		return b.IsValid() == other.IsValid()
	}
	switch cmp {
	case ComparisonInteger:
		return math.Round(float64(b)) == math.Round(float64(other))
	default:
		return b == other
	}
}

// BeatLengthFrames returns the distance between two beats in frames.
func (b Bpm) BeatLengthFrames(sampleRate float64) float64 {
	if !b.IsValid() {
		return 0
	}
	return 60 * sampleRate / float64(b)
}

func (b Bpm) String() string {
	if !b.IsValid() {
		return "<undefined>"
	}
	return strconv.FormatFloat(float64(b), 'f', -1, 64)
}

// ParseBpm parses a tag value such as "128" or "127.98". Invalid or out of
// range values yield BpmUndefined.
func ParseBpm(text string) Bpm {
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return BpmUndefined
	}
	bpm := Bpm(v)
	if !bpm.IsValid() || bpm > BpmMax {
		return BpmUndefined
	}
	return bpm
}
