package handler

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fieldlead/renderbatch/content"
	"github.com/fieldlead/renderbatch/models"
	"github.com/fieldlead/renderbatch/renderer"
	"github.com/fieldlead/renderbatch/webhook"
)

// batchStore holds all in-flight and completed batch jobs.
var batchStore sync.Map

func init() {
	// Background goroutine to expire batch jobs older than 1 hour.
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			cutoff := time.Now().Add(-1 * time.Hour).Unix()
			batchStore.Range(func(key, value any) bool {
				if value.(*models.BatchJob).Expired(cutoff) {
					batchStore.Delete(key)
				}
				return true
			})
		}
	}()
}

// PostBatch returns a handler for POST /api/v1/render/batch.
// It validates the request, registers a batch job, and hands the URL list to
// the renderer in the background. Concurrency is bounded by the renderer's
// own gate, so a large batch never floods the browser.
func PostBatch(rd *renderer.Renderer, proc *content.Processor) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.BatchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: err.Error(),
				},
			})
			return
		}

		jobID := "batch-" + randomID()
		job := models.NewBatchJob(jobID, len(req.URLs))
		batchStore.Store(jobID, job)

		go runBatch(rd, proc, job, jobID, req)

		c.JSON(http.StatusOK, models.BatchResponse{
			ID:     jobID,
			Status: "processing",
			Total:  len(req.URLs),
		})
	}
}

// GetBatch returns a handler for GET /api/v1/render/batch/:id.
func GetBatch() gin.HandlerFunc {
	return func(c *gin.Context) {
		jobID := c.Param("id")
		val, ok := batchStore.Load(jobID)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{
				"error": models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: "batch job not found",
				},
			})
			return
		}

		c.JSON(http.StatusOK, val.(*models.BatchJob).Snapshot())
	}
}

// runBatch renders every URL in the job and post-processes the results.
// Result order matches the input URL order; each slot is published to the
// job as soon as its render finishes, so status polls see progress.
func runBatch(rd *renderer.Renderer, proc *content.Processor, job *models.BatchJob, jobID string, req models.BatchRequest) {
	opts := req.Options
	if opts.OutputFormat == "" {
		opts.OutputFormat = models.OutputFormatHTML
	}
	if opts.ExtractMode == "" {
		opts.ExtractMode = models.ExtractModeRaw
	}

	results, err := rd.RenderManyWithProgress(context.Background(), req.URLs,
		func(i int, res *models.RenderResult) {
			job.SetResult(i, toResponse(proc, res, opts.OutputFormat, opts.ExtractMode, false))
		})
	if err != nil {
		job.Finish("failed")
		slog.Error("batch job aborted", "id", jobID, "error", err)
		notifyBatch(job, jobID, opts)
		return
	}

	failed := 0
	for _, res := range results {
		if !res.Success {
			failed++
		}
	}

	status := "completed"
	switch {
	case failed == len(results):
		status = "failed"
	case failed > 0:
		status = "partial"
	}
	job.Finish(status)

	slog.Info("batch job finished",
		"id", jobID,
		"status", status,
		"failed", failed,
		"total", len(results),
	)

	notifyBatch(job, jobID, opts)
}

// notifyBatch fires the batch.completed webhook when one is configured.
func notifyBatch(job *models.BatchJob, jobID string, opts models.BatchOptions) {
	if opts.WebhookURL == "" {
		return
	}
	webhook.DeliverAsync(opts.WebhookURL, opts.WebhookSecret, &webhook.Event{
		Type:      webhook.EventBatchCompleted,
		JobID:     jobID,
		Timestamp: time.Now().Unix(),
		Data:      job.Snapshot(),
	})
}

// randomID generates a short random hex string for job IDs.
func randomID() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
