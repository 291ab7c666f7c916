// Package engine abstracts the browser automation layer behind a small
// interface so the render coordinator can be exercised without a browser.
package engine

import (
	"context"
	"fmt"
	"time"
)

// Engine is the interface every page engine must implement. The coordinator
// calls Start once, Render many times concurrently, and Close once.
type Engine interface {
	// Name returns the engine identifier (e.g. "rod").
	Name() string

	// Start launches the underlying browser session.
	Start(ctx context.Context) error

	// Render loads a single URL in an isolated browsing context and returns
	// the extracted page. Implementations must tear the context down on
	// every exit path.
	Render(ctx context.Context, req *PageRequest) (*PageResult, error)

	// Close releases the browser session. Safe to call when Start never ran.
	Close() error
}

// PageRequest contains everything an engine needs to render one page.
type PageRequest struct {
	// URL is the normalized target URL.
	URL string

	// Timeout bounds the navigation alone, not extraction.
	Timeout time.Duration

	// SettleDelay is the grace period after a successful navigation that
	// lets late-binding dynamic content settle. Failure of this wait is
	// tolerated silently.
	SettleDelay time.Duration

	// UserAgent overrides the browser's default user agent.
	UserAgent string

	// Headers are extra HTTP headers sent with every request from the page.
	Headers map[string]string

	// Allow decides per intercepted request whether it may proceed. When
	// nil, no interception is installed and everything loads.
	Allow AllowFunc

	// Stealth injects anti-bot-detection JS before navigation.
	Stealth bool
}

// PageResult is the output of a successful engine render.
type PageResult struct {
	HTML       string
	Title      string
	StatusCode int
	FinalURL   string
}

// StatusError reports a navigation that completed at the protocol level but
// returned an HTTP error status (>= 400). FinalURL is the post-redirect URL
// the status came from. No extraction is attempted.
type StatusError struct {
	Code     int
	FinalURL string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d", e.Code)
}

// EngineError wraps any failure reported by the automation engine itself,
// as opposed to unexpected errors from outside it.
type EngineError struct {
	Op  string // what the engine was doing, e.g. "navigate", "create context"
	Err error
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("engine: %s: %v", e.Op, e.Err)
}

func (e *EngineError) Unwrap() error {
	return e.Err
}
