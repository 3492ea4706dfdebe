package main

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/jaki95/djtrack/internal/audio"
	"github.com/jaki95/djtrack/internal/metadata"
	"github.com/spf13/cobra"
)

var (
	importSkipAnalysis bool

	cmdImport = &cobra.Command{
		Use:   "import <file>...",
		Short: "Add audio files to the library and import their file tags",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			counts := map[metadata.ImportResult]int{}
			added := 0

			bar := newProgressBar(len(args), "[cyan]Importing tracks...[reset]")
			for _, arg := range args {
				if err := ctx.Err(); err != nil {
					return err
				}
				location, err := filepath.Abs(arg)
				if err != nil {
					return err
				}
				tr, isNew, err := loadOrAddTrack(ctx, location)
				if err != nil {
					return err
				}
				if isNew {
					added++
				}

				result, err := application.Exporter.ImportTrack(ctx, tr.ID())
				if err != nil {
					return err
				}
				counts[result]++

				if !importSkipAnalysis {
					err := application.Library.AnalyzeTrack(ctx, tr)
					if err != nil && !errors.Is(err, audio.ErrUnsupportedFormat) {
						slog.Warn("Failed to analyze track", "location", location, "error", err)
					}
					if err := application.Library.SaveTrack(ctx, tr); err != nil {
						return err
					}
				}
				bar.Add(1)
			}
			bar.Finish()

			fmt.Printf("Imported %d tracks (%d new): %d succeeded, %d unavailable, %d failed\n",
				len(args), added,
				counts[metadata.ImportSucceeded], counts[metadata.ImportUnavailable], counts[metadata.ImportFailed])
			return nil
		},
	}

	cmdAnalyze = &cobra.Command{
		Use:   "analyze <id|file>...",
		Short: "Measure the audio streams of tracks",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			failed := 0

			bar := newProgressBar(len(args), "[cyan]Analyzing tracks...[reset]")
			for _, arg := range args {
				tr, err := resolveTrack(ctx, arg)
				if err != nil {
					return err
				}
				if err := application.Library.AnalyzeTrack(ctx, tr); err != nil {
					slog.Warn("Failed to analyze track", "track", arg, "error", err)
					failed++
				} else if err := application.Library.SaveTrack(ctx, tr); err != nil {
					return err
				}
				bar.Add(1)
			}
			bar.Finish()

			fmt.Printf("Analyzed %d tracks, %d failed\n", len(args)-failed, failed)
			return nil
		},
	}
)

func init() {
	cmdImport.Flags().BoolVar(&importSkipAnalysis, "skip-analysis", false, "do not measure the audio streams")
	cmdRoot.AddCommand(cmdImport, cmdAnalyze)
}
