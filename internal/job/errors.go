package job

import "errors"

var (
	ErrInvalidRequest = errors.New("invalid export request")
	ErrNotFound       = errors.New("job not found")
	ErrInvalidState   = errors.New("invalid job state")
)
