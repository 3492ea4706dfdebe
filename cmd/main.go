package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jaki95/djtrack/config"
	"github.com/jaki95/djtrack/internal/app"
	"github.com/jaki95/djtrack/internal/domain"
	"github.com/jaki95/djtrack/internal/library"
	"github.com/jaki95/djtrack/internal/track"
	"github.com/spf13/cobra"
)

var (
	configPath  string
	application *app.App

	cmdRoot = &cobra.Command{
		Use:           "djtrack",
		Short:         "Manage the DJ metadata of a track library",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOrDefault(configPath)
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}

			logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.Level(cfg.LogLevel)}))
			slog.SetDefault(logger)

			application, err = app.Open(cmd.Context(), cfg)
			return err
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return closeApplication()
		},
	}
)

func init() {
	cmdRoot.PersistentFlags().StringVarP(&configPath, "config", "c", "./config/config.yaml", "path of the configuration file")
}

func closeApplication() error {
	if application == nil {
		return nil
	}
	err := application.Close()
	application = nil
	return err
}

// resolveTrack loads a track by id or by the location of its file.
func resolveTrack(ctx context.Context, arg string) (*track.Track, error) {
	if id, err := domain.ParseTrackID(arg); err == nil {
		return application.Library.LoadTrack(ctx, id)
	}
	return application.Library.LoadTrackByLocation(ctx, arg)
}

// loadOrAddTrack returns the track of a file, adding it to the library if
// it is not stored yet.
func loadOrAddTrack(ctx context.Context, location string) (*track.Track, bool, error) {
	tr, err := application.Library.LoadTrackByLocation(ctx, location)
	if errors.Is(err, library.ErrTrackNotFound) {
		tr, err = application.Library.AddTrack(ctx, location)
		return tr, true, err
	}
	return tr, false, err
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := cmdRoot.ExecuteContext(ctx)
	// Commands failing after the library was opened still save it
	err = errors.Join(err, closeApplication())
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
