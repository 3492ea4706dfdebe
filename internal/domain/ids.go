// Package domain contains the metadata record of a track and the value types
// it is composed of.
package domain

import (
	"fmt"
	"strconv"
)

// TrackID is the persistent identifier assigned by the library. The zero
// value is invalid.
type TrackID int64

// InvalidTrackID marks tracks that are not (yet) stored in the library.
const InvalidTrackID TrackID = 0

// IsValid reports whether the id has been assigned.
func (id TrackID) IsValid() bool {
	return id > 0
}

func (id TrackID) String() string {
	if !id.IsValid() {
		return "<invalid>"
	}
	return strconv.FormatInt(int64(id), 10)
}

// ParseTrackID parses a decimal id.
func ParseTrackID(text string) (TrackID, error) {
	v, err := strconv.ParseInt(text, 10, 64)
	if err != nil || v <= 0 {
		return InvalidTrackID, fmt.Errorf("%w: %q", ErrInvalidTrackID, text)
	}
	return TrackID(v), nil
}

// CueID is the persistent identifier of a cue. The zero value is invalid.
type CueID int64

// IsValid reports whether the id has been assigned.
func (id CueID) IsValid() bool {
	return id > 0
}

// UpdateResult is returned by operations that validate their input before
// applying it.
type UpdateResult int

const (
	UpdateUnchanged UpdateResult = iota
	UpdateUpdated
	UpdateRejected
)

func (r UpdateResult) String() string {
	switch r {
	case UpdateUpdated:
		return "updated"
	case UpdateRejected:
		return "rejected"
	default:
		return "unchanged"
	}
}
