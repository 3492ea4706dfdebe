// Package server exposes the track library over HTTP.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jaki95/djtrack/config"
	"github.com/jaki95/djtrack/internal/job"
	"github.com/jaki95/djtrack/internal/library"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const shutdownTimeout = 10 * time.Second

// Deps are the services behind the API.
type Deps struct {
	Library  *library.Library
	Exporter *library.Exporter
	Runner   *job.Runner

	// Registry is served on /metrics if set.
	Registry *prometheus.Registry
}

// Server handles HTTP requests for the track library
type Server struct {
	cfg      *config.Config
	router   *gin.Engine
	lib      *library.Library
	exporter *library.Exporter
	runner   *job.Runner
	registry *prometheus.Registry
	log      *slog.Logger
}

// New creates a new HTTP server instance
func New(cfg *config.Config, deps Deps) *Server {
	s := &Server{
		cfg:      cfg,
		router:   gin.Default(),
		lib:      deps.Library,
		exporter: deps.Exporter,
		runner:   deps.Runner,
		registry: deps.Registry,
		log:      slog.Default().With("component", "server"),
	}
	s.setupRoutes(s.router)
	return s
}

// Handler returns the HTTP handler of the API.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes configures the HTTP routes
func (s *Server) setupRoutes(router *gin.Engine) {
	router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	router.GET("/health", s.health)
	if s.registry != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{
			ErrorHandling: promhttp.HTTPErrorOnError,
		})))
	}

	api := router.Group("/api")
	{
		api.GET("/tracks", s.listTracks)
		api.POST("/tracks", s.addTrack)
		api.GET("/tracks/:id", s.getTrack)
		api.PATCH("/tracks/:id", s.updateTrack)
		api.DELETE("/tracks/:id", s.purgeTrack)
		api.POST("/tracks/:id/import", s.importTrack)
		api.POST("/tracks/:id/analyze", s.analyzeTrack)

		api.POST("/jobs/export", s.exportTracks)
		api.GET("/jobs/:id", s.getJobStatus)
		api.POST("/jobs/:id/cancel", s.cancelJob)
		api.GET("/jobs", s.listJobs)
	}
}

// Run serves the API on addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("Listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
