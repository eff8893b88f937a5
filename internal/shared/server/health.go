package server

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"resume-critic/internal/shared/server/respond"
)

const dbPingTimeout = 2 * time.Second

// healthHandler reports service health including database reachability.
// Memory-backed deployments report the database as down.
func healthHandler(database *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		dbStatus := gin.H{"status": "down", "error": "not configured"}
		healthy := false

		if database != nil {
			pingCtx, cancel := context.WithTimeout(c.Request.Context(), dbPingTimeout)
			defer cancel()

			start := time.Now()
			if err := database.PingContext(pingCtx); err != nil {
				dbStatus = gin.H{"status": "down", "error": err.Error()}
			} else {
				dbStatus = gin.H{"status": "up", "responseTime": time.Since(start).Milliseconds()}
				healthy = true
			}
		}

		status := http.StatusOK
		overall := "ok"
		if !healthy {
			status = http.StatusServiceUnavailable
			overall = "error"
		}
		respond.JSON(c, status, gin.H{
			"status":    overall,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"services": gin.H{
				"database": dbStatus,
			},
		})
	}
}
