// Package cue describes cue points in a time based form that is independent
// of the sample rate of the audio stream. The live cue entities owned by a
// track are provided by package track.
package cue

import (
	"fmt"
	"strings"

	"github.com/jaki95/djtrack/internal/color"
)

// Type of a cue point.
type Type int

const (
	TypeInvalid Type = iota
	TypeHotCue
	TypeMainCue
	TypeBeat
	TypeLoop
	TypeJump
	TypeIntro
	TypeOutro
	TypeAudibleSound
)

var typeNames = map[Type]string{
	TypeInvalid:      "invalid",
	TypeHotCue:       "hotcue",
	TypeMainCue:      "maincue",
	TypeBeat:         "beat",
	TypeLoop:         "loop",
	TypeJump:         "jump",
	TypeIntro:        "intro",
	TypeOutro:        "outro",
	TypeAudibleSound: "audiblesound",
}

func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

// ParseType is the inverse of Type.String. Unknown names yield TypeInvalid.
func ParseType(name string) Type {
	name = strings.ToLower(strings.TrimSpace(name))
	for t, n := range typeNames {
		if n == name {
			return t
		}
	}
	return TypeInvalid
}

func (t Type) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *Type) UnmarshalText(text []byte) error {
	*t = ParseType(string(text))
	return nil
}

const (
	// NoHotCue is the hot cue index of cues that are not hot cues.
	NoHotCue = -1
	// FirstHotCueIndex is the smallest valid hot cue index.
	FirstHotCueIndex = 0
)

// IsValidHotCueIndex reports whether index is either NoHotCue or a valid
// hot cue slot.
func IsValidHotCueIndex(index int) bool {
	return index == NoHotCue || index >= FirstHotCueIndex
}

// Info is a description of a cue with positions measured in milliseconds.
// Absent positions are nil.
type Info struct {
	Type        Type           `json:"type" yaml:"type"`
	StartMillis *float64       `json:"start_millis,omitempty" yaml:"start_millis,omitempty"`
	EndMillis   *float64       `json:"end_millis,omitempty" yaml:"end_millis,omitempty"`
	HotCueIndex int            `json:"hot_cue_index" yaml:"hot_cue_index"`
	Label       string         `json:"label,omitempty" yaml:"label,omitempty"`
	Color       color.Optional `json:"color" yaml:"color,omitempty"`
}

// Millis returns a pointer to v for use in Info.
func Millis(v float64) *float64 {
	return &v
}

// WithOffset returns a copy with both positions shifted by offsetMillis.
func (i Info) WithOffset(offsetMillis float64) Info {
	if i.StartMillis != nil {
		i.StartMillis = Millis(*i.StartMillis + offsetMillis)
	}
	if i.EndMillis != nil {
		i.EndMillis = Millis(*i.EndMillis + offsetMillis)
	}
	return i
}

func (i Info) String() string {
	pos := func(p *float64) string {
		if p == nil {
			return "-"
		}
		return fmt.Sprintf("%.3fms", *p)
	}
	return fmt.Sprintf("CueInfo{%s, index: %d, start: %s, end: %s, label: %q}",
		i.Type, i.HotCueIndex, pos(i.StartMillis), pos(i.EndMillis), i.Label)
}
