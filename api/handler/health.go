package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fieldlead/renderbatch/models"
	"github.com/fieldlead/renderbatch/renderer"
)

// Health returns a handler for GET /api/v1/health.
//
// Reports gate utilisation and degrades status when > 80% of render slots
// are in flight.
func Health(rd *renderer.Renderer, startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		gate := rd.GateStats()

		status := "healthy"
		if gate.MaxWorkers > 0 && gate.ActiveRenders > int(float64(gate.MaxWorkers)*0.8) {
			status = "degraded"
		}

		c.JSON(http.StatusOK, models.HealthResponse{
			Status:    status,
			Uptime:    time.Since(startTime).Round(time.Second).String(),
			GateStats: gate,
			Version:   "0.1.0",
		})
	}
}
