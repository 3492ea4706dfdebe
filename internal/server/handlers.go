package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jaki95/djtrack/internal/job"
)

// health godoc
// @Summary Health check
// @Tags Utility
// @Produce json
// @Success 200 {object} MessageResponse
// @Router /health [get]
func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// exportTracks godoc
// @Summary Export track metadata
// @Description Submits a job that writes the metadata of the given tracks into their file tags.
// @Tags Jobs
// @Accept json
// @Produce json
// @Param request body job.Request true "Export parameters"
// @Success 202 {object} JobResponse
// @Failure 400 {object} ErrorResponse
// @Router /api/jobs/export [post]
func (s *Server) exportTracks(c *gin.Context) {
	var req job.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request: " + err.Error()})
		return
	}
	if req.MaxConcurrentTasks <= 0 {
		req.MaxConcurrentTasks = s.cfg.Server.MaxConcurrentJobs
	}
	if !req.EmbeddedTags {
		req.EmbeddedTags = s.cfg.Metadata.ExportEmbeddedTags
	}

	status, err := s.runner.Submit(req)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, JobResponse{Message: "Export started", JobID: status.ID})
}

// getJobStatus godoc
// @Summary Get job status
// @Tags Jobs
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} job.Status
// @Failure 404 {object} ErrorResponse
// @Router /api/jobs/{id} [get]
func (s *Server) getJobStatus(c *gin.Context) {
	status, err := s.runner.Manager().GetJob(c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// cancelJob godoc
// @Summary Cancel a job
// @Tags Jobs
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/jobs/{id}/cancel [post]
func (s *Server) cancelJob(c *gin.Context) {
	if err := s.runner.Manager().CancelJob(c.Param("id")); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "Job cancelled"})
}

// listJobs godoc
// @Summary List jobs
// @Tags Jobs
// @Produce json
// @Param page query int false "Page number"
// @Param pageSize query int false "Page size"
// @Success 200 {object} job.Response
// @Router /api/jobs [get]
func (s *Server) listJobs(c *gin.Context) {
	page, pageSize := pagination(c)
	c.JSON(http.StatusOK, s.runner.Manager().ListJobs(page, pageSize))
}
