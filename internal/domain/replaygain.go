package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ReplayGain holds the loudness normalization of a track. A ratio or peak
// that is not positive is undefined.
type ReplayGain struct {
	Ratio float64 `json:"ratio,omitempty" yaml:"ratio,omitempty"`
	Peak  float64 `json:"peak,omitempty" yaml:"peak,omitempty"`
}

const (
	ratioDecimalsDB = 2
	peakDecimals    = 6
)

// HasRatio reports whether the gain ratio is defined.
func (g ReplayGain) HasRatio() bool {
	return g.Ratio > 0 && !math.IsInf(g.Ratio, 0)
}

// HasPeak reports whether the peak amplitude is defined.
func (g ReplayGain) HasPeak() bool {
	return g.Peak > 0 && !math.IsInf(g.Peak, 0)
}

// Normalize rounds the ratio in dB and the peak to the precision that is
// stored in file tags.
func (g ReplayGain) Normalize() ReplayGain {
	if g.HasRatio() {
		g.Ratio = RatioFromDB(roundTo(RatioToDB(g.Ratio), ratioDecimalsDB))
	} else {
		g.Ratio = 0
	}
	if g.HasPeak() {
		g.Peak = roundTo(g.Peak, peakDecimals)
	} else {
		g.Peak = 0
	}
	return g
}

// RatioToDB converts a gain ratio into decibels.
func RatioToDB(ratio float64) float64 {
	return 20 * math.Log10(ratio)
}

// RatioFromDB converts decibels into a gain ratio.
func RatioFromDB(db float64) float64 {
	return math.Pow(10, db/20)
}

// FormatRatio formats a ratio the way it is written into tags, e.g. "-6.50 dB".
func FormatRatio(ratio float64) string {
	if ratio <= 0 {
		return ""
	}
	return fmt.Sprintf("%.*f dB", ratioDecimalsDB, RatioToDB(ratio))
}

// ParseRatio parses a tag value like "-6.50 dB" or "+1.2".
func ParseRatio(text string) (float64, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimSuffix(strings.TrimSuffix(text, "dB"), "DB")
	db, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidGain, text)
	}
	return RatioFromDB(db), nil
}

func roundTo(v float64, decimals int) float64 {
	scale := math.Pow10(decimals)
	return math.Round(v*scale) / scale
}
