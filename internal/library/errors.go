package library

import "errors"

var (
	ErrTrackNotFound = errors.New("track not found")
	ErrTrackExists   = errors.New("track already exists")
	ErrNotStored     = errors.New("track is not stored in the library")
	ErrClosed        = errors.New("library is closed")
)
