package job

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/jaki95/djtrack/internal/domain"
	"github.com/jaki95/djtrack/internal/metrics"
	"github.com/jaki95/djtrack/internal/track"
)

// Exporter writes the metadata of a stored track into its file tags.
type Exporter interface {
	ExportTrack(ctx context.Context, id domain.TrackID, force bool, opts track.ExportOptions) (track.ExportResult, error)
}

// Runner executes export jobs in the background.
type Runner struct {
	manager  *Manager
	exporter Exporter
	metrics  *metrics.TrackMetrics
	log      *slog.Logger
	wg       sync.WaitGroup
}

// NewRunner creates a runner. Metrics are optional.
func NewRunner(manager *Manager, exporter Exporter, m *metrics.TrackMetrics) *Runner {
	return &Runner{
		manager:  manager,
		exporter: exporter,
		metrics:  m,
		log:      slog.Default().With("component", "job"),
	}
}

// Manager returns the manager holding the job states.
func (r *Runner) Manager() *Manager {
	return r.manager
}

// Submit validates the request and starts exporting in the background.
func (r *Runner) Submit(req Request) (*Status, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	status, ctx := r.manager.CreateJob(req)
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.run(ctx, status.ID, req)
	}()
	return status, nil
}

// Wait blocks until all submitted jobs have finished.
func (r *Runner) Wait() {
	r.wg.Wait()
}

// Shutdown cancels all unfinished jobs and waits for them.
func (r *Runner) Shutdown() {
	if n := r.manager.CancelAll(); n > 0 {
		r.log.Info("Cancelled unfinished jobs", "count", n)
	}
	r.wg.Wait()
}

func (r *Runner) run(ctx context.Context, jobID string, req Request) {
	ctx, cancel := context.WithTimeout(ctx, DefaultJobTimeout)
	defer cancel()

	log := r.log.With("jobId", jobID)
	if err := r.manager.StartJob(jobID); err != nil {
		// Cancelled before it started
		log.Debug("Job not started", "error", err)
		return
	}
	if r.metrics != nil {
		r.metrics.JobsRunning.Inc()
		defer r.metrics.JobsRunning.Dec()
	}

	total := len(req.TrackIDs)
	opts := track.ExportOptions{ExportEmbeddedTags: req.EmbeddedTags}
	sem := make(chan struct{}, req.MaxConcurrentTasks)
	var (
		wg     sync.WaitGroup
		done   atomic.Int64
		failed atomic.Int64
	)

loop:
	for _, id := range req.TrackIDs {
		if ctx.Err() != nil {
			break
		}
		select {
		case <-ctx.Done():
			break loop
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(id domain.TrackID) {
			defer wg.Done()
			defer func() { <-sem }()

			result := r.exportTrack(ctx, id, req.Force, opts)
			if result.Result == ResultFailed {
				failed.Add(1)
				log.Warn("Failed to export track", "trackId", id, "error", result.Error)
			}
			if err := r.manager.AddResult(jobID, result); err != nil {
				log.Error("Failed to record track result", "error", err)
			}

			n := done.Add(1)
			progress := float64(n) / float64(total) * ProgressComplete
			message := fmt.Sprintf("Exported track %d/%d", n, total)
			if err := r.manager.UpdateJobProgress(jobID, progress, message); err != nil {
				log.Debug("Progress not updated", "error", err)
			}
			log.Debug("Job progress update", "progress", progress, "message", message)
		}(id)
	}
	wg.Wait()

	var err error
	switch {
	case errors.Is(ctx.Err(), context.Canceled):
		// CancelJob already set the final state
		log.Info("Job cancelled", "exported", done.Load())
		return
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		err = r.manager.FinishJob(jobID, StatusFailed, "Export timed out", ctx.Err())
	case failed.Load() > 0:
		err = r.manager.FinishJob(jobID, StatusFailed, "Export failed",
			fmt.Errorf("%d of %d tracks failed", failed.Load(), total))
	default:
		err = r.manager.FinishJob(jobID, StatusCompleted, "Export completed successfully", nil)
	}
	if err != nil {
		log.Debug("Job state not updated", "error", err)
		return
	}
	log.Info("Job finished", "tracks", total, "failed", failed.Load())
}

func (r *Runner) exportTrack(ctx context.Context, id domain.TrackID, force bool, opts track.ExportOptions) TrackResult {
	result, err := r.exporter.ExportTrack(ctx, id, force, opts)
	if err != nil {
		return TrackResult{TrackID: id, Result: ResultFailed, Error: err.Error()}
	}
	switch result {
	case track.ExportSucceeded:
		return TrackResult{TrackID: id, Result: ResultSucceeded}
	case track.ExportSkipped:
		return TrackResult{TrackID: id, Result: ResultSkipped}
	default:
		return TrackResult{TrackID: id, Result: ResultFailed, Error: "export failed"}
	}
}
