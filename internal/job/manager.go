package job

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jaki95/djtrack/internal/domain"
)

// Manager keeps the state of all jobs. It is safe for concurrent use and
// hands out copies, never the stored status.
type Manager struct {
	mu    sync.RWMutex
	jobs  map[string]*Status
	order []string
}

// NewManager creates a new job manager
func NewManager() *Manager {
	return &Manager{
		jobs: make(map[string]*Status),
	}
}

// CreateJob registers a pending job. The returned context is cancelled by
// CancelJob.
func (m *Manager) CreateJob(req Request) (*Status, context.Context) {
	ctx, cancel := context.WithCancel(context.Background())

	job := &Status{
		ID:           uuid.NewString(),
		Status:       StatusPending,
		Progress:     ProgressStart,
		Message:      "Job created",
		TrackIDs:     append([]domain.TrackID(nil), req.TrackIDs...),
		EmbeddedTags: req.EmbeddedTags,
		StartTime:    time.Now(),
		cancelFunc:   cancel,
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[job.ID] = job
	m.order = append(m.order, job.ID)
	return job.clone(), ctx
}

// GetJob retrieves a job by ID
func (m *Manager) GetJob(jobID string) (*Status, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	job, exists := m.jobs[jobID]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, jobID)
	}
	return job.clone(), nil
}

func (m *Manager) update(jobID string, fn func(job *Status) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, exists := m.jobs[jobID]
	if !exists {
		return fmt.Errorf("%w: %s", ErrNotFound, jobID)
	}
	return fn(job)
}

// StartJob moves a pending job to processing.
func (m *Manager) StartJob(jobID string) error {
	return m.update(jobID, func(job *Status) error {
		if job.Status != StatusPending {
			return fmt.Errorf("%w: %s", ErrInvalidState, job.Status)
		}
		job.Status = StatusProcessing
		job.Message = "Exporting track metadata"
		return nil
	})
}

// UpdateJobProgress updates the progress of a running job.
func (m *Manager) UpdateJobProgress(jobID string, progress float64, message string) error {
	return m.update(jobID, func(job *Status) error {
		if job.IsFinished() {
			return fmt.Errorf("%w: %s", ErrInvalidState, job.Status)
		}
		job.Progress = progress
		job.Message = message
		return nil
	})
}

// AddResult records the outcome of one track.
func (m *Manager) AddResult(jobID string, result TrackResult) error {
	return m.update(jobID, func(job *Status) error {
		job.Results = append(job.Results, result)
		return nil
	})
}

// FinishJob sets the final state of a job. A cancelled job keeps its state.
func (m *Manager) FinishJob(jobID, status, message string, err error) error {
	return m.update(jobID, func(job *Status) error {
		if job.IsFinished() {
			return fmt.Errorf("%w: %s", ErrInvalidState, job.Status)
		}
		job.Status = status
		job.Message = message
		if err != nil {
			job.Error = err.Error()
		}
		if status == StatusCompleted {
			job.Progress = ProgressComplete
		}
		endTime := time.Now()
		job.EndTime = &endTime
		job.cancelFunc()
		return nil
	})
}

// CancelJob cancels a job
func (m *Manager) CancelJob(jobID string) error {
	return m.update(jobID, func(job *Status) error {
		if job.Status != StatusProcessing && job.Status != StatusPending {
			return fmt.Errorf("%w: %s", ErrInvalidState, job.Status)
		}

		job.cancelFunc()
		job.Status = StatusCancelled
		job.Message = "Job cancelled by user"
		endTime := time.Now()
		job.EndTime = &endTime
		return nil
	})
}

// CancelAll cancels all pending and running jobs and returns their number.
func (m *Manager) CancelAll() int {
	m.mu.RLock()
	ids := append([]string(nil), m.order...)
	m.mu.RUnlock()

	cancelled := 0
	for _, id := range ids {
		if m.CancelJob(id) == nil {
			cancelled++
		}
	}
	return cancelled
}

// ListJobs lists all jobs with pagination, oldest first.
func (m *Manager) ListJobs(page, pageSize int) *Response {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > MaxPageSize {
		pageSize = DefaultPageSize
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	total := len(m.order)
	response := &Response{
		Jobs:       []*Status{},
		Page:       page,
		PageSize:   pageSize,
		TotalJobs:  total,
		TotalPages: (total + pageSize - 1) / pageSize,
	}

	start := (page - 1) * pageSize
	if start >= total {
		return response
	}
	end := min(start+pageSize, total)
	for _, id := range m.order[start:end] {
		response.Jobs = append(response.Jobs, m.jobs[id].clone())
	}
	return response
}
