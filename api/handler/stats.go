package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fieldlead/renderbatch/renderer"
)

// Stats returns a handler for GET /api/v1/stats: a snapshot of the
// aggregate render counters with derived rates.
func Stats(rd *renderer.Renderer) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, rd.Statistics())
	}
}

// ResetStats returns a handler for POST /api/v1/stats/reset.
func ResetStats(rd *renderer.Renderer) gin.HandlerFunc {
	return func(c *gin.Context) {
		rd.ResetStatistics()
		c.JSON(http.StatusOK, gin.H{"status": "reset"})
	}
}
