package domain

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ChromaticKey is the musical key of a track. Values 1-12 are the major keys
// from C to B, values 13-24 the minor keys from C minor to B minor.
type ChromaticKey int

const (
	KeyInvalid ChromaticKey = 0
	KeyCMajor  ChromaticKey = 1
	KeyCMinor  ChromaticKey = 13
	KeyAMinor  ChromaticKey = 22
)

var (
	majorNames = [12]string{"C", "Db", "D", "Eb", "E", "F", "F#", "G", "Ab", "A", "Bb", "B"}
	minorNames = [12]string{"Cm", "C#m", "Dm", "Ebm", "Em", "Fm", "F#m", "Gm", "G#m", "Am", "Bbm", "Bm"}
)

// NewKey returns the key with the given pitch class (0 = C) and mode.
func NewKey(pitchClass int, minor bool) ChromaticKey {
	pc := ((pitchClass % 12) + 12) % 12
	if minor {
		return KeyCMinor + ChromaticKey(pc)
	}
	return KeyCMajor + ChromaticKey(pc)
}

// IsValid reports whether k denotes a key.
func (k ChromaticKey) IsValid() bool {
	return k >= KeyCMajor && k <= KeyCMinor+11
}

// IsMinor reports whether k is a minor key.
func (k ChromaticKey) IsMinor() bool {
	return k >= KeyCMinor && k.IsValid()
}

// PitchClass returns the tonic as semitones above C.
func (k ChromaticKey) PitchClass() int {
	if k.IsMinor() {
		return int(k - KeyCMinor)
	}
	return int(k - KeyCMajor)
}

func (k ChromaticKey) String() string {
	if !k.IsValid() {
		return ""
	}
	if k.IsMinor() {
		return minorNames[k.PitchClass()]
	}
	return majorNames[k.PitchClass()]
}

// relativeMajorPitchClass maps minor keys to their relative major.
func (k ChromaticKey) relativeMajorPitchClass() int {
	if k.IsMinor() {
		return (k.PitchClass() + 3) % 12
	}
	return k.PitchClass()
}

// circlePosition returns the 0-based position of the key on the circle of
// fifths, counted from C major / A minor.
func (k ChromaticKey) circlePosition() int {
	return (k.relativeMajorPitchClass() * 7) % 12
}

// Camelot returns the Camelot wheel notation, e.g. "8A" for A minor.
func (k ChromaticKey) Camelot() string {
	if !k.IsValid() {
		return ""
	}
	n := (k.circlePosition()+7)%12 + 1
	if k.IsMinor() {
		return fmt.Sprintf("%dA", n)
	}
	return fmt.Sprintf("%dB", n)
}

// OpenKey returns the Open Key notation, e.g. "1m" for A minor.
func (k ChromaticKey) OpenKey() string {
	if !k.IsValid() {
		return ""
	}
	n := k.circlePosition() + 1
	if k.IsMinor() {
		return fmt.Sprintf("%dm", n)
	}
	return fmt.Sprintf("%dd", n)
}

var (
	camelotPattern     = regexp.MustCompile(`^(\d{1,2})([ABab])$`)
	openKeyPattern     = regexp.MustCompile(`^(\d{1,2})([dmDM])$`)
	traditionalPattern = regexp.MustCompile(`^([A-Ga-g])(#|♯|b|♭)?\s*(?i:(m|min|minor|maj|major))?$`)

	pitchClasses = map[byte]int{'c': 0, 'd': 2, 'e': 4, 'f': 5, 'g': 7, 'a': 9, 'b': 11}
)

// keyFromCircle returns the key at a 0-based circle of fifths position.
func keyFromCircle(pos int, minor bool) ChromaticKey {
	majorPC := (pos * 7) % 12
	if minor {
		return NewKey(majorPC+9, true)
	}
	return NewKey(majorPC, false)
}

// ParseKey guesses a key from tag text in traditional ("F#m", "Bb"),
// Camelot ("11B") or Open Key ("6d") notation.
func ParseKey(text string) (ChromaticKey, error) {
	text = strings.TrimSpace(text)
	if m := camelotPattern.FindStringSubmatch(text); m != nil {
		n, _ := strconv.Atoi(m[1])
		if n >= 1 && n <= 12 {
			return keyFromCircle(n+4, strings.EqualFold(m[2], "A")), nil
		}
	}
	if m := openKeyPattern.FindStringSubmatch(text); m != nil {
		n, _ := strconv.Atoi(m[1])
		if n >= 1 && n <= 12 {
			return keyFromCircle(n-1, strings.EqualFold(m[2], "m")), nil
		}
	}
	if m := traditionalPattern.FindStringSubmatch(text); m != nil {
		pc := pitchClasses[strings.ToLower(m[1])[0]]
		switch m[2] {
		case "#", "♯":
			pc++
		case "b", "♭":
			pc--
		}
		suffix := strings.ToLower(m[3])
		minor := suffix == "m" || suffix == "min" || suffix == "minor"
		return NewKey(pc, minor), nil
	}
	return KeyInvalid, fmt.Errorf("%w: %q", ErrInvalidKey, text)
}

// KeySource tells where a key value came from.
type KeySource int

const (
	KeySourceUnknown KeySource = iota
	KeySourceAnalyzer
	KeySourceFileMetadata
	KeySourceUser
)

func (s KeySource) String() string {
	switch s {
	case KeySourceAnalyzer:
		return "analyzer"
	case KeySourceFileMetadata:
		return "file_metadata"
	case KeySourceUser:
		return "user"
	default:
		return "unknown"
	}
}

// Keys is the key analysis result of a track.
type Keys struct {
	Global ChromaticKey `json:"global,omitempty" yaml:"global,omitempty"`
	Source KeySource    `json:"source,omitempty" yaml:"source,omitempty"`
}

// NewKeys returns the keys for a single global key.
func NewKeys(key ChromaticKey, source KeySource) Keys {
	return Keys{Global: key, Source: source}
}

// IsEmpty reports whether no key has been detected.
func (k Keys) IsEmpty() bool {
	return !k.Global.IsValid()
}

// Text returns the global key in traditional notation.
func (k Keys) Text() string {
	return k.Global.String()
}
