// Package color provides the 24-bit RGB color values attached to tracks and
// cues.
package color

import (
	"fmt"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
)

// RGB is a 24-bit color packed as 0xRRGGBB.
type RGB uint32

const maxRGB RGB = 0xFFFFFF

// ParseRGB parses "#rrggbb" or "rrggbb".
func ParseRGB(text string) (RGB, error) {
	text = strings.TrimPrefix(strings.TrimSpace(text), "#")
	if len(text) != 6 {
		return 0, fmt.Errorf("invalid color %q", text)
	}
	v, err := strconv.ParseUint(text, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid color %q: %w", text, err)
	}
	return RGB(v), nil
}

func (c RGB) String() string {
	return fmt.Sprintf("#%06x", uint32(c&maxRGB))
}

// Optional is an RGB value that may be absent. The zero value is absent and
// values are comparable with ==.
type Optional struct {
	rgb   RGB
	valid bool
}

// None is the absent color.
var None = Optional{}

// Some wraps a color.
func Some(rgb RGB) Optional {
	return Optional{rgb: rgb & maxRGB, valid: true}
}

// Get returns the color and whether it is present.
func (o Optional) Get() (RGB, bool) {
	return o.rgb, o.valid
}

// IsSet reports whether a color is present.
func (o Optional) IsSet() bool {
	return o.valid
}

func (o Optional) String() string {
	if !o.valid {
		return "<none>"
	}
	return o.rgb.String()
}

// IsZero reports whether the color is absent.
func (o Optional) IsZero() bool {
	return !o.valid
}

// MarshalJSON encodes an absent color as null.
func (o Optional) MarshalJSON() ([]byte, error) {
	if !o.valid {
		return []byte("null"), nil
	}
	return json.Marshal(o.rgb.String())
}

func (o *Optional) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*o = None
		return nil
	}
	var text string
	if err := json.Unmarshal(data, &text); err != nil {
		return err
	}
	return o.UnmarshalText([]byte(text))
}

// MarshalText encodes an absent color as an empty string.
func (o Optional) MarshalText() ([]byte, error) {
	if !o.valid {
		return []byte{}, nil
	}
	return []byte(o.rgb.String()), nil
}

func (o *Optional) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*o = None
		return nil
	}
	rgb, err := ParseRGB(string(text))
	if err != nil {
		return err
	}
	*o = Some(rgb)
	return nil
}
