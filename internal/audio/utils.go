package audio

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Precision of formatted durations.
type Precision int

const (
	PrecisionSeconds Precision = iota
	PrecisionDeciseconds
	PrecisionCentiseconds
	PrecisionMilliseconds
)

// ParseDuration converts a timestamp like "1:23:45", "45:23" or "45:23.5" into
// a duration.
func ParseDuration(timestamp string) (time.Duration, error) {
	secs, err := timeToSeconds(timestamp)
	if err != nil {
		return 0, err
	}
	return time.Duration(secs * float64(time.Second)), nil
}

// timeToSeconds converts a timestamp like "1:23:45" or "45:23" to seconds.
func timeToSeconds(timestamp string) (float64, error) {
	parts := strings.Split(strings.TrimSpace(timestamp), ":")
	var hours, minutes, seconds float64
	var err error

	switch len(parts) {
	case 3: // H:MM:SS
		if hours, err = strconv.ParseFloat(parts[0], 64); err != nil {
			return 0, fmt.Errorf("invalid hours: %w", err)
		}
		if minutes, err = strconv.ParseFloat(parts[1], 64); err != nil {
			return 0, fmt.Errorf("invalid minutes: %w", err)
		}
		if seconds, err = strconv.ParseFloat(parts[2], 64); err != nil {
			return 0, fmt.Errorf("invalid seconds: %w", err)
		}
	case 2: // MM:SS
		if minutes, err = strconv.ParseFloat(parts[0], 64); err != nil {
			return 0, fmt.Errorf("invalid minutes: %w", err)
		}
		if seconds, err = strconv.ParseFloat(parts[1], 64); err != nil {
			return 0, fmt.Errorf("invalid seconds: %w", err)
		}
	default:
		return 0, fmt.Errorf("invalid timestamp format: %s", timestamp)
	}

	return hours*3600 + minutes*60 + seconds, nil
}

// FormatDuration renders d as "M:SS" or "H:MM:SS" followed by the fractional
// digits requested by precision. Negative durations are rendered as "?".
func FormatDuration(d time.Duration, precision Precision) string {
	if d < 0 {
		return "?"
	}
	digits := int(precision)
	scale := math.Pow10(digits)
	total := math.Round(d.Seconds()*scale) / scale

	whole := int64(total)
	hours := whole / 3600
	minutes := (whole / 60) % 60
	seconds := whole % 60

	var b strings.Builder
	if hours > 0 {
		fmt.Fprintf(&b, "%d:%02d:%02d", hours, minutes, seconds)
	} else {
		fmt.Fprintf(&b, "%d:%02d", minutes, seconds)
	}
	if digits > 0 {
		frac := int64(math.Round((total - float64(whole)) * scale))
		fmt.Fprintf(&b, ".%0*d", digits, frac)
	}
	return b.String()
}
