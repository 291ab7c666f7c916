// Package renderer implements the bounded-concurrency render coordinator.
// It owns a browser engine, a counting-semaphore gate, and per-URL isolated
// render attempts, and always returns one result per input URL.
package renderer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fieldlead/renderbatch/config"
	"github.com/fieldlead/renderbatch/engine"
	"github.com/fieldlead/renderbatch/models"
)

// ErrNotStarted is returned by RenderMany when Start has not been called.
// It is distinct from any per-URL error: per-URL failures are reported
// in-band via RenderResult and never abort a batch.
var ErrNotStarted = errors.New("renderer not started: call Start or use Run")

// ErrAlreadyStarted is returned by Start when the browser session is live.
var ErrAlreadyStarted = errors.New("renderer already started")

// Renderer coordinates concurrent page renders against one browser engine.
// Configuration is fixed at construction; the browser session and the gate
// are created by Start. A single RenderMany call may be outstanding per
// instance; overlapping calls are out of contract (statistics stay
// consistent regardless, they are mutex-guarded).
type Renderer struct {
	cfg   config.RendererConfig
	eng   engine.Engine
	allow engine.AllowFunc

	mu      sync.Mutex
	started bool
	gate    chan struct{}

	active atomic.Int32
	stats  Stats
}

// New creates a Renderer around the given engine. The browser is not
// launched until Start.
func New(cfg config.RendererConfig, eng engine.Engine) *Renderer {
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = 5
	}
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = 15 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = config.DefaultUserAgent
	}

	var allow engine.AllowFunc
	if cfg.BlockResources {
		allow = engine.BlockPolicy(cfg.BlockedResourceTypes)
	}

	return &Renderer{
		cfg:   cfg,
		eng:   eng,
		allow: allow,
	}
}

// Start launches the browser session and initialises the concurrency gate.
// Calling Start on a started renderer is an error; Close it first.
func (r *Renderer) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return ErrAlreadyStarted
	}

	slog.Info("starting renderer", "engine", r.eng.Name(), "workers", r.cfg.MaxWorkers)
	if err := r.eng.Start(ctx); err != nil {
		return fmt.Errorf("start engine: %w", err)
	}

	r.gate = make(chan struct{}, r.cfg.MaxWorkers)
	r.started = true
	return nil
}

// Close releases the browser session. Safe to call when Start never ran,
// and intended to run via defer on every exit path.
func (r *Renderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.started {
		return nil
	}
	r.started = false

	slog.Info("closing renderer")
	if err := r.eng.Close(); err != nil {
		return fmt.Errorf("close engine: %w", err)
	}
	return nil
}

// Run is the scoped-acquisition helper: it starts the renderer, invokes fn,
// and guarantees Close on every exit path including panics.
func Run(ctx context.Context, cfg config.RendererConfig, eng engine.Engine, fn func(*Renderer) error) error {
	r := New(cfg, eng)
	if err := r.Start(ctx); err != nil {
		return err
	}
	defer func() {
		if err := r.Close(); err != nil {
			slog.Warn("renderer close failed", "error", err)
		}
	}()
	return fn(r)
}

// RenderMany renders all URLs concurrently, bounded by the gate, and returns
// exactly one result per input URL in input order. No per-URL failure ever
// aborts the batch; the only errors returned here are ErrNotStarted and a
// nil-receiver misuse.
func (r *Renderer) RenderMany(ctx context.Context, urls []string) ([]*models.RenderResult, error) {
	return r.RenderManyWithProgress(ctx, urls, nil)
}

// RenderManyWithProgress is RenderMany with a per-URL completion callback.
// onResult fires once per URL, on the worker goroutine that produced the
// result and possibly concurrently with other callbacks; the callback must
// synchronize any state of its own.
func (r *Renderer) RenderManyWithProgress(ctx context.Context, urls []string, onResult func(int, *models.RenderResult)) ([]*models.RenderResult, error) {
	if len(urls) == 0 {
		return []*models.RenderResult{}, nil
	}

	r.mu.Lock()
	started := r.started
	r.mu.Unlock()
	if !started {
		return nil, ErrNotStarted
	}

	slog.Info("rendering batch", "count", len(urls), "workers", r.cfg.MaxWorkers)

	results := make([]*models.RenderResult, len(urls))
	var wg sync.WaitGroup
	for i, rawURL := range urls {
		wg.Add(1)
		go func(idx int, target string) {
			defer wg.Done()
			// A panicking render task must cost exactly one result slot,
			// never the batch.
			res := func() (res *models.RenderResult) {
				defer func() {
					if rec := recover(); rec != nil {
						res = &models.RenderResult{
							URL:          target,
							Success:      false,
							ErrorMessage: fmt.Sprintf("render task panicked: %v", rec),
							ErrorType:    models.ErrorTypeExecution,
						}
					}
				}()
				return r.renderOne(ctx, target)
			}()
			results[idx] = res
			if onResult != nil {
				onResult(idx, res)
			}
		}(i, rawURL)
	}
	wg.Wait()

	r.stats.RecordBatch(results)

	successful, failed := 0, 0
	for _, res := range results {
		if res.Success {
			successful++
		} else {
			failed++
		}
	}
	slog.Info("batch rendering complete", "successful", successful, "failed", failed)

	return results, nil
}

// Render is a convenience wrapper for a single URL.
func (r *Renderer) Render(ctx context.Context, url string) (*models.RenderResult, error) {
	results, err := r.RenderMany(ctx, []string{url})
	if err != nil {
		return nil, err
	}
	return results[0], nil
}

// renderOne performs a single gated render attempt. It never returns an
// error: every outcome, including panics at the engine boundary, becomes a
// populated RenderResult.
func (r *Renderer) renderOne(ctx context.Context, rawURL string) *models.RenderResult {
	start := time.Now()

	// Validation happens before the gate and before the browser.
	target := strings.TrimSpace(rawURL)
	if target == "" {
		return &models.RenderResult{
			URL:          rawURL,
			Success:      false,
			ErrorMessage: "invalid URL provided",
			ErrorType:    models.ErrorTypeValidation,
		}
	}
	target = NormalizeURL(target)

	// Acquire a concurrency slot; release on every exit path.
	select {
	case r.gate <- struct{}{}:
	case <-ctx.Done():
		// The caller gave up while the task was still queued. The browser
		// was never involved, so this is not a navigation timeout.
		return &models.RenderResult{
			URL:               target,
			Success:           false,
			ErrorMessage:      fmt.Sprintf("render cancelled while waiting for a worker slot: %v", ctx.Err()),
			ErrorType:         models.ErrorTypeExecution,
			RenderTimeSeconds: time.Since(start).Seconds(),
		}
	}
	defer func() { <-r.gate }()

	r.active.Add(1)
	defer r.active.Add(-1)

	page, err := r.eng.Render(ctx, &engine.PageRequest{
		URL:         target,
		Timeout:     r.cfg.NavigationTimeout,
		SettleDelay: r.cfg.SettleDelay,
		UserAgent:   r.cfg.UserAgent,
		Allow:       r.allow,
		Stealth:     r.cfg.Stealth,
	})
	if err != nil {
		return r.failure(target, err, start)
	}

	return &models.RenderResult{
		URL:               target,
		Success:           true,
		HTMLContent:       page.HTML,
		Title:             page.Title,
		FinalURL:          page.FinalURL,
		RenderTimeSeconds: time.Since(start).Seconds(),
	}
}

// failure builds an in-band failure result from a classified error.
func (r *Renderer) failure(url string, err error, start time.Time) *models.RenderResult {
	errType := Classify(err)

	msg := err.Error()
	if errType == models.ErrorTypeTimeout {
		msg = fmt.Sprintf("navigation timeout after %s", r.cfg.NavigationTimeout)
	}

	res := &models.RenderResult{
		URL:               url,
		Success:           false,
		ErrorMessage:      msg,
		ErrorType:         errType,
		RenderTimeSeconds: time.Since(start).Seconds(),
	}

	// An HTTP error status means navigation did complete; keep the
	// post-redirect URL it landed on.
	var statusErr *engine.StatusError
	if errors.As(err, &statusErr) {
		res.FinalURL = statusErr.FinalURL
	}

	return res
}

// Statistics returns a snapshot of the aggregate counters.
func (r *Renderer) Statistics() models.RenderStats {
	return r.stats.Snapshot()
}

// ResetStatistics zeroes the aggregate counters.
func (r *Renderer) ResetStatistics() {
	r.stats.Reset()
}

// GateStats reports current gate utilisation for health reporting.
func (r *Renderer) GateStats() models.GateStats {
	return models.GateStats{
		MaxWorkers:    r.cfg.MaxWorkers,
		ActiveRenders: int(r.active.Load()),
	}
}

// NormalizeURL prepends https:// when the URL has no scheme. Already-schemed
// URLs pass through unchanged, so normalization is idempotent.
func NormalizeURL(u string) string {
	lower := strings.ToLower(u)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return u
	}
	return "https://" + u
}
