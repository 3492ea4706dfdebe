package audio

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimeToSeconds(t *testing.T) {
	tests := []struct {
		name     string
		timeStr  string
		expected float64
		wantErr  bool
	}{
		{
			name:     "zero time",
			timeStr:  "00:00:00",
			expected: 0,
			wantErr:  false,
		},
		{
			name:     "minutes and seconds",
			timeStr:  "05:30",
			expected: 330, // 5*60 + 30
			wantErr:  false,
		},
		{
			name:     "hours, minutes, seconds",
			timeStr:  "01:30:45",
			expected: 5445, // 1*3600 + 30*60 + 45
			wantErr:  false,
		},
		{
			name:     "fractional seconds",
			timeStr:  "1:30.5",
			expected: 90.5,
			wantErr:  false,
		},
		{
			name:     "non-numeric",
			timeStr:  "aa:bb:cc",
			expected: 0,
			wantErr:  true,
		},
		{
			name:    "single field",
			timeStr: "42",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := timeToSeconds(tt.timeStr)

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.expected, result)
			}
		})
	}
}

func TestParseDuration(t *testing.T) {
	d, err := ParseDuration("3:25")
	assert.NoError(t, err)
	assert.Equal(t, 205*time.Second, d)

	_, err = ParseDuration("")
	assert.Error(t, err)
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		name      string
		duration  time.Duration
		precision Precision
		expected  string
	}{
		{"zero", 0, PrecisionSeconds, "0:00"},
		{"minutes", 205 * time.Second, PrecisionSeconds, "3:25"},
		{"hours", time.Hour + 2*time.Minute + 3*time.Second, PrecisionSeconds, "1:02:03"},
		{"centiseconds", 205*time.Second + 330*time.Millisecond, PrecisionCentiseconds, "3:25.33"},
		{"milliseconds", 61*time.Second + 7*time.Millisecond, PrecisionMilliseconds, "1:01.007"},
		{"rounding up", 59*time.Second + 999*time.Millisecond, PrecisionSeconds, "1:00"},
		{"negative", -time.Second, PrecisionSeconds, "?"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatDuration(tt.duration, tt.precision))
		})
	}
}
