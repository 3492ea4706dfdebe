package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/jaki95/djtrack/config"
	"github.com/jaki95/djtrack/internal/app"
	"github.com/jaki95/djtrack/internal/job"
	"github.com/jaki95/djtrack/internal/server"
)

func main() {
	configPath := flag.String("config", "./config/config.yaml", "Configuration file")
	port := flag.String("port", "", "Server port, overrides the configuration")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadOrDefault(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if *port != "" {
		cfg.Server.Port = *port
	}

	// Setup logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.Level(cfg.LogLevel)}))
	slog.SetDefault(logger)
	if slog.Level(cfg.LogLevel) > slog.LevelDebug {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Open(ctx, cfg)
	if err != nil {
		slog.Error("Failed to open library", "error", err)
		os.Exit(1)
	}

	runner := job.NewRunner(job.NewManager(), a.Exporter, a.Metrics)
	srv := server.New(cfg, server.Deps{
		Library:  a.Library,
		Exporter: a.Exporter,
		Runner:   runner,
		Registry: a.Registry,
	})

	slog.Info("Starting track library API server", "port", cfg.Server.Port)
	runErr := srv.Run(ctx, ":"+cfg.Server.Port)
	if runErr != nil {
		slog.Error("Server failed", "error", runErr)
	}

	// Exports are stopped before the library is closed
	runner.Shutdown()
	if err := a.Close(); err != nil {
		slog.Error("Failed to close library", "error", err)
		os.Exit(1)
	}
	if runErr != nil {
		os.Exit(1)
	}
}
