package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/jaki95/djtrack/internal/domain"
	"github.com/jaki95/djtrack/internal/job"
	"github.com/spf13/cobra"
)

const pollInterval = 100 * time.Millisecond

var (
	exportAll      bool
	exportEmbedded bool
	exportForce    bool
	exportWorkers  int

	cmdExport = &cobra.Command{
		Use:   "export [id|file]...",
		Short: "Write the metadata of tracks into their file tags",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ids, err := exportTrackIDs(cmd, args)
			if err != nil {
				return err
			}
			if len(ids) == 0 {
				fmt.Println("Nothing to export")
				return nil
			}

			runner := job.NewRunner(job.NewManager(), application.Exporter, application.Metrics)
			status, err := runner.Submit(job.Request{
				TrackIDs:           ids,
				EmbeddedTags:       exportEmbedded || application.Config.Metadata.ExportEmbeddedTags,
				Force:              exportForce,
				MaxConcurrentTasks: exportWorkers,
			})
			if err != nil {
				return err
			}

			final, err := waitForJob(cmd, runner, status.ID, len(ids))
			if err != nil {
				return err
			}
			counts := map[string]int{}
			for _, result := range final.Results {
				counts[result.Result]++
				if result.Error != "" {
					fmt.Printf("Track %s: %s\n", result.TrackID, result.Error)
				}
			}
			fmt.Printf("Exported %d tracks: %d succeeded, %d skipped, %d failed\n", len(ids),
				counts[job.ResultSucceeded], counts[job.ResultSkipped], counts[job.ResultFailed])
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if final.Status == job.StatusFailed {
				return fmt.Errorf("export failed: %s", final.Error)
			}
			return nil
		},
	}
)

func exportTrackIDs(cmd *cobra.Command, args []string) ([]domain.TrackID, error) {
	ctx := cmd.Context()
	if exportAll {
		tracks, err := application.Library.Tracks(ctx)
		if err != nil {
			return nil, err
		}
		ids := make([]domain.TrackID, 0, len(tracks))
		for _, t := range tracks {
			ids = append(ids, t.ID)
		}
		return ids, nil
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("no tracks given, use --all to export the whole library")
	}
	ids := make([]domain.TrackID, 0, len(args))
	for _, arg := range args {
		tr, err := resolveTrack(ctx, arg)
		if err != nil {
			return nil, err
		}
		ids = append(ids, tr.ID())
	}
	return ids, nil
}

// waitForJob follows the progress of an export job. Interrupting the
// command cancels the job.
func waitForJob(cmd *cobra.Command, runner *job.Runner, jobID string, total int) (*job.Status, error) {
	bar := newProgressBar(total, "[cyan]Exporting tracks...[reset]")
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-cmd.Context().Done():
			if err := runner.Manager().CancelJob(jobID); err != nil && !errors.Is(err, job.ErrInvalidState) {
				return nil, err
			}
			runner.Wait()
		case <-ticker.C:
		}

		status, err := runner.Manager().GetJob(jobID)
		if err != nil {
			return nil, err
		}
		bar.Set(len(status.Results))
		if status.IsFinished() {
			runner.Wait()
			bar.Finish()
			return status, nil
		}
	}
}

func init() {
	cmdExport.Flags().BoolVar(&exportAll, "all", false, "export all tracks of the library")
	cmdExport.Flags().BoolVar(&exportEmbedded, "embedded", false, "also write color, BPM lock, cues and beat grid")
	cmdExport.Flags().BoolVar(&exportForce, "force", false, "overwrite file tags that have never been imported")
	cmdExport.Flags().IntVarP(&exportWorkers, "workers", "w", job.DefaultMaxConcurrentTasks, "maximum concurrent exports")
	cmdRoot.AddCommand(cmdExport)
}
