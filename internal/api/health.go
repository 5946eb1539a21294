package api

import (
	"net/http" // HTTP status codes
	"time"     // Uptime

	"github.com/gin-gonic/gin" // Gin web framework
)

// HealthHandler reports liveness and process uptime
func HealthHandler(started time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"uptime": time.Since(started).Round(time.Second).String(),
		})
	}
}
