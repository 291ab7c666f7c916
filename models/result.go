package models

// Error type labels attached to failed RenderResults. Exactly one label is
// set per failure; successes carry none.
const (
	ErrorTypeValidation  = "validation_error"  // input URL missing or blank
	ErrorTypeHTTP        = "http_error"        // navigation returned status >= 400
	ErrorTypeTimeout     = "timeout_error"     // navigation exceeded the deadline
	ErrorTypeDNS         = "dns_error"         // hostname did not resolve
	ErrorTypeConnRefused = "connection_refused"
	ErrorTypeConnTimeout = "connection_timeout"
	ErrorTypeBrowser     = "browser_error"     // any other engine-reported failure
	ErrorTypeUnexpected  = "unexpected_error"  // defensive catch-all
	ErrorTypeExecution   = "execution_error"   // the render task itself blew up
)

// RenderResult is the outcome of rendering a single URL. Exactly one is
// produced per input URL, in input order. It is immutable once returned.
type RenderResult struct {
	// URL is the (possibly normalized) input URL.
	URL string `json:"url"`

	// Success indicates the page was navigated and extracted without error.
	Success bool `json:"success"`

	// HTMLContent is the serialized DOM after load. Set only on success.
	HTMLContent string `json:"html_content,omitempty"`

	// Title is the page title. Set only on success.
	Title string `json:"title,omitempty"`

	// FinalURL is the URL after redirects.
	FinalURL string `json:"final_url,omitempty"`

	// RenderTimeSeconds is the wall-clock duration of this render attempt,
	// measured from dispatch to completion or failure.
	RenderTimeSeconds float64 `json:"render_time_seconds,omitempty"`

	// ErrorMessage and ErrorType are set only on failure. ErrorType is one
	// of the ErrorType* constants above.
	ErrorMessage string `json:"error_message,omitempty"`
	ErrorType    string `json:"error_type,omitempty"`
}

// RenderStats is a snapshot of the coordinator's aggregate counters plus
// the derived success rate and average render time.
type RenderStats struct {
	TotalRequests     int     `json:"total_requests"`
	SuccessfulRenders int     `json:"successful_renders"`
	FailedRenders     int     `json:"failed_renders"`
	TimeoutErrors     int     `json:"timeout_errors"`
	ConnectionErrors  int     `json:"connection_errors"`
	OtherErrors       int     `json:"other_errors"`
	TotalRenderTime   float64 `json:"total_render_time_seconds"`
	SuccessRate       float64 `json:"success_rate"`
	AverageRenderTime float64 `json:"average_render_time_seconds"`
}
