package models

// RenderResponse is the response for POST /api/v1/render and the element
// type of batch results. It wraps a RenderResult with the optional
// post-processing the API layer applies on top of the core.
type RenderResponse struct {
	// Success mirrors the underlying RenderResult.
	Success bool `json:"success"`

	// URL is the normalized input URL.
	URL string `json:"url"`

	// FinalURL is the URL after following all redirects.
	FinalURL string `json:"final_url,omitempty"`

	// Title is the page title.
	Title string `json:"title,omitempty"`

	// Content is the rendered output in the requested format
	// (html, markdown, or text).
	Content string `json:"content,omitempty"`

	// Metadata is populated when metadata extraction was requested.
	Metadata *PageMetadata `json:"metadata,omitempty"`

	// RenderTimeSeconds is the wall-clock duration of the render attempt.
	RenderTimeSeconds float64 `json:"render_time_seconds,omitempty"`

	// ErrorType is the taxonomy label from the core, set only on failure.
	ErrorType string `json:"error_type,omitempty"`

	// CacheStatus indicates whether the response was served from cache.
	// Values: "hit", "miss", or empty (caching not requested).
	CacheStatus string `json:"cache_status,omitempty"`

	// Error is populated only when Success is false.
	Error *ErrorDetail `json:"error,omitempty"`
}

// PageMetadata holds page-level information parsed from the rendered HTML.
type PageMetadata struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	SiteName    string `json:"site_name,omitempty"`
	Language    string `json:"language,omitempty"`
	OGTitle     string `json:"og_title,omitempty"`
	OGImage     string `json:"og_image,omitempty"`
	SourceURL   string `json:"source_url"`
}

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status    string    `json:"status"` // "healthy" or "degraded"
	Uptime    string    `json:"uptime"`
	GateStats GateStats `json:"gate_stats"`
	Version   string    `json:"version"`
}

// GateStats reports utilisation of the renderer's concurrency gate.
type GateStats struct {
	MaxWorkers    int `json:"max_workers"`
	ActiveRenders int `json:"active_renders"`
}
