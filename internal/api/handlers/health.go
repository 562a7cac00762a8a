package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/linechime/backend/internal/sandbox"
)

var startTime = time.Now()

const version = "1.0.0"

// HealthCheck returns server health status
func HealthCheck(mgr *sandbox.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":   "ok",
			"service":  "linechime-api",
			"version":  version,
			"uptime":   time.Since(startTime).String(),
			"sessions": mgr.Count(),
		})
	}
}
