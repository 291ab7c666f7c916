package models

import (
	"sync"
	"time"
)

// Output formats for rendered content.
const (
	OutputFormatHTML     = "html"
	OutputFormatMarkdown = "markdown"
	OutputFormatText     = "text"
)

// Extraction modes applied before format conversion.
const (
	ExtractModeRaw         = "raw"
	ExtractModeReadability = "readability"
)

// RenderRequest is the payload for POST /api/v1/render.
type RenderRequest struct {
	// URL is the target page to render. Required. A missing scheme is
	// tolerated; https:// is assumed.
	URL string `json:"url" binding:"required"`

	// OutputFormat controls the content field of the response.
	// Allowed: "html" (default, the raw rendered DOM), "markdown", "text".
	OutputFormat string `json:"output_format,omitempty" binding:"omitempty,oneof=html markdown text"`

	// ExtractMode controls extraction before format conversion.
	// "raw" (default): convert the full rendered DOM.
	// "readability": extract the main article body first.
	ExtractMode string `json:"extract_mode,omitempty" binding:"omitempty,oneof=raw readability"`

	// IncludeMetadata requests page metadata (description, og tags) parsed
	// from the rendered HTML.
	IncludeMetadata bool `json:"include_metadata,omitempty"`

	// MaxCacheAgeMs enables the response cache: a cached result younger
	// than this many milliseconds is returned without touching the browser.
	MaxCacheAgeMs int `json:"max_cache_age_ms,omitempty" binding:"omitempty,min=0"`
}

// Defaults applies default values to unset fields.
func (r *RenderRequest) Defaults() {
	if r.OutputFormat == "" {
		r.OutputFormat = OutputFormatHTML
	}
	if r.ExtractMode == "" {
		r.ExtractMode = ExtractModeRaw
	}
}

// BatchRequest is the payload for POST /api/v1/render/batch.
type BatchRequest struct {
	// URLs is the list of target pages to render. Required.
	URLs []string `json:"urls" binding:"required,min=1,max=500"`

	// Options contains shared settings applied to all URLs.
	Options BatchOptions `json:"options"`
}

// BatchOptions are the shared settings applied to every URL in a batch.
type BatchOptions struct {
	OutputFormat string `json:"output_format,omitempty" binding:"omitempty,oneof=html markdown text"`
	ExtractMode  string `json:"extract_mode,omitempty" binding:"omitempty,oneof=raw readability"`

	// WebhookURL, if set, receives a batch.completed event when the batch
	// finishes. WebhookSecret signs the payload with HMAC-SHA256.
	WebhookURL    string `json:"webhook_url,omitempty" binding:"omitempty,url"`
	WebhookSecret string `json:"webhook_secret,omitempty"`
}

// BatchResponse is the immediate response for POST /api/v1/render/batch.
type BatchResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Total  int    `json:"total"`
}

// BatchStatusResponse is the response for GET /api/v1/render/batch/:id.
type BatchStatusResponse struct {
	ID        string            `json:"id"`
	Status    string            `json:"status"`
	Completed int               `json:"completed"`
	Total     int               `json:"total"`
	Results   []*RenderResponse `json:"results,omitempty"`
}

// BatchJob tracks one batch render operation. The batch runs on a background
// goroutine while status requests read concurrently, so the mutable state is
// behind a mutex and only reachable through methods.
type BatchJob struct {
	mu        sync.Mutex
	id        string
	status    string // "processing", "completed", "failed", "partial"
	total     int
	completed int
	results   []*RenderResponse
	createdAt int64 // unix timestamp, immutable
}

// NewBatchJob creates a job in the "processing" state with one result slot
// per URL.
func NewBatchJob(id string, total int) *BatchJob {
	return &BatchJob{
		id:        id,
		status:    "processing",
		total:     total,
		results:   make([]*RenderResponse, total),
		createdAt: time.Now().Unix(),
	}
}

// SetResult stores the response for one URL slot and bumps the completed
// count. Each slot must be written at most once.
func (j *BatchJob) SetResult(i int, resp *RenderResponse) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.results[i] = resp
	j.completed++
}

// Finish moves the job to a terminal status.
func (j *BatchJob) Finish(status string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.status = status
}

// Expired reports whether the job was created before cutoff.
func (j *BatchJob) Expired(cutoff int64) bool {
	return j.createdAt < cutoff
}

// Snapshot returns a consistent copy of the job state. The results slice is
// copied so JSON encoding never races with in-flight writes; nil slots mark
// URLs that have not finished yet.
func (j *BatchJob) Snapshot() BatchStatusResponse {
	j.mu.Lock()
	defer j.mu.Unlock()
	results := make([]*RenderResponse, len(j.results))
	copy(results, j.results)
	return BatchStatusResponse{
		ID:        j.id,
		Status:    j.status,
		Completed: j.completed,
		Total:     j.total,
		Results:   results,
	}
}
