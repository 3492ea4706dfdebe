package server

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jaki95/djtrack/internal/domain"
	"github.com/jaki95/djtrack/internal/job"
)

func trackIDParam(c *gin.Context) (domain.TrackID, error) {
	return domain.ParseTrackID(c.Param("id"))
}

// pagination reads the page and pageSize query parameters. Invalid values
// fall back to the defaults.
func pagination(c *gin.Context) (page, pageSize int) {
	page = 1
	pageSize = job.DefaultPageSize

	if p := c.Query("page"); p != "" {
		if parsed, err := strconv.Atoi(p); err == nil && parsed > 0 {
			page = parsed
		}
	}

	if ps := c.Query("pageSize"); ps != "" {
		if parsed, err := strconv.Atoi(ps); err == nil && parsed > 0 && parsed <= job.MaxPageSize {
			pageSize = parsed
		}
	}
	return page, pageSize
}
