package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jaki95/djtrack/internal/audio"
	"github.com/jaki95/djtrack/internal/domain"
	"github.com/jaki95/djtrack/internal/job"
	"github.com/jaki95/djtrack/internal/library"
	"github.com/jaki95/djtrack/internal/metadata"
)

var (
	ErrInvalidField = errors.New("invalid field")
	ErrBpmLocked    = errors.New("bpm is locked")
	ErrNoSampleRate = errors.New("bpm cannot be set without sample rate")
)

func statusForError(err error) int {
	switch {
	case errors.Is(err, library.ErrTrackNotFound), errors.Is(err, job.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, library.ErrTrackExists), errors.Is(err, ErrBpmLocked):
		return http.StatusConflict
	case errors.Is(err, job.ErrInvalidRequest), errors.Is(err, job.ErrInvalidState),
		errors.Is(err, domain.ErrInvalidTrackID), errors.Is(err, ErrInvalidField),
		errors.Is(err, metadata.ErrUnknownSource):
		return http.StatusBadRequest
	case errors.Is(err, audio.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, audio.ErrInvalidFile), errors.Is(err, ErrNoSampleRate):
		return http.StatusUnprocessableEntity
	case errors.Is(err, library.ErrClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) respondError(c *gin.Context, err error) {
	status := statusForError(err)
	if status == http.StatusInternalServerError {
		s.log.Error("Request failed", "path", c.FullPath(), "error", err)
	}
	c.JSON(status, ErrorResponse{Error: err.Error()})
}
