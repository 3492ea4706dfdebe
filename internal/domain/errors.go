package domain

import "errors"

var (
	ErrInvalidTrackID = errors.New("invalid track id")
	ErrInvalidKey     = errors.New("invalid key")
	ErrInvalidGain    = errors.New("invalid replay gain")
)
