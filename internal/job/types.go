// Package job runs metadata exports of library tracks in the background.
package job

import (
	"context"
	"fmt"
	"time"

	"github.com/jaki95/djtrack/internal/domain"
)

// Constants for job status
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
	StatusCancelled  = "cancelled"
)

// Constants for progress percentages
const (
	ProgressStart    = 0
	ProgressComplete = 100
)

// Constants for pagination
const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Constants for configuration
const (
	DefaultMaxConcurrentTasks = 4
	MaxAllowedConcurrentTasks = 100 // Safety limit to prevent excessive memory allocation

	DefaultJobTimeout = 45 * time.Minute
)

// Results of a single track
const (
	ResultSucceeded = "succeeded"
	ResultSkipped   = "skipped"
	ResultFailed    = "failed"
)

// TrackResult is the outcome of exporting one track.
type TrackResult struct {
	TrackID domain.TrackID `json:"track_id"`
	Result  string         `json:"result"`
	Error   string         `json:"error,omitempty"`
}

// Status represents the current state of an export job.
type Status struct {
	ID           string           `json:"id"`
	Status       string           `json:"status"`
	Progress     float64          `json:"progress"`
	Message      string           `json:"message"`
	Error        string           `json:"error,omitempty"`
	TrackIDs     []domain.TrackID `json:"track_ids"`
	EmbeddedTags bool             `json:"embedded_tags"`
	Results      []TrackResult    `json:"results,omitempty"`
	StartTime    time.Time        `json:"start_time"`
	EndTime      *time.Time       `json:"end_time,omitempty"`

	cancelFunc context.CancelFunc
}

// IsFinished reports whether the job has reached a final state.
func (s *Status) IsFinished() bool {
	switch s.Status {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

func (s *Status) clone() *Status {
	c := *s
	c.TrackIDs = append([]domain.TrackID(nil), s.TrackIDs...)
	c.Results = append([]TrackResult(nil), s.Results...)
	if s.EndTime != nil {
		end := *s.EndTime
		c.EndTime = &end
	}
	c.cancelFunc = nil
	return &c
}

// Request represents the request body for exporting tracks.
type Request struct {
	TrackIDs []domain.TrackID `json:"track_ids" binding:"required"`

	// EmbeddedTags also writes color, BPM lock, cues and the beat grid.
	EmbeddedTags bool `json:"embedded_tags"`

	// Force overwrites file tags that have never been imported.
	Force bool `json:"force"`

	MaxConcurrentTasks int `json:"max_concurrent_tasks"`
}

// Validate checks the track ids, drops duplicates and sanitizes the
// concurrency.
func (r *Request) Validate() error {
	if len(r.TrackIDs) == 0 {
		return fmt.Errorf("%w: at least one track is required", ErrInvalidRequest)
	}
	seen := make(map[domain.TrackID]struct{}, len(r.TrackIDs))
	ids := make([]domain.TrackID, 0, len(r.TrackIDs))
	for _, id := range r.TrackIDs {
		if !id.IsValid() {
			return fmt.Errorf("%w: invalid track id %d", ErrInvalidRequest, int64(id))
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	r.TrackIDs = ids
	r.MaxConcurrentTasks = ValidateMaxConcurrentTasks(r.MaxConcurrentTasks)
	return nil
}

// Response represents the response for job status
type Response struct {
	Jobs       []*Status `json:"jobs"`
	Page       int       `json:"page"`
	PageSize   int       `json:"page_size"`
	TotalJobs  int       `json:"total_jobs"`
	TotalPages int       `json:"total_pages"`
}

// ValidateMaxConcurrentTasks validates and sanitizes the maxConcurrentTasks value
// to prevent excessive memory allocation attacks
func ValidateMaxConcurrentTasks(maxConcurrentTasks int) int {
	if maxConcurrentTasks <= 0 {
		return DefaultMaxConcurrentTasks
	}
	if maxConcurrentTasks > MaxAllowedConcurrentTasks {
		return MaxAllowedConcurrentTasks
	}
	return maxConcurrentTasks
}
