package engine

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/ysmood/gson"
	"golang.org/x/net/html"
)

// Viewport applied to every isolated context.
const (
	viewportWidth  = 1920
	viewportHeight = 1080
)

// Config controls the rod-backed engine's browser process.
type Config struct {
	// Headless controls whether the browser runs without a visible UI.
	Headless bool

	// NoSandbox disables Chrome's sandbox (needed in containers).
	NoSandbox bool

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string
}

// Rod drives one headless Chromium process via go-rod. Each Render call gets
// its own incognito browser context, so concurrent renders never share
// cookies, cache, or storage.
type Rod struct {
	cfg     Config
	browser *rod.Browser
}

// NewRod creates a Rod engine. The browser is not launched until Start.
func NewRod(cfg Config) *Rod {
	return &Rod{cfg: cfg}
}

func (r *Rod) Name() string { return "rod" }

// Start launches the browser process with hardened flags and connects to it.
func (r *Rod) Start(ctx context.Context) error {
	l := launcher.New().
		Headless(r.cfg.Headless).
		NoSandbox(r.cfg.NoSandbox)

	if r.cfg.BrowserBin != "" {
		l = l.Bin(r.cfg.BrowserBin)
	}

	// Background throttling would starve renders of tabs that never gain
	// focus; the rest keeps Chromium quiet in containerized environments.
	l.Set(flags.Flag("disable-background-timer-throttling"))
	l.Set(flags.Flag("disable-renderer-backgrounding"))
	l.Set(flags.Flag("disable-backgrounding-occluded-windows"))
	l.Set(flags.Flag("disable-ipc-flooding-protection"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-features"), "TranslateUI")
	l.Set(flags.Flag("disable-component-update"))
	l.Set(flags.Flag("disable-default-apps"))
	l.Set(flags.Flag("no-first-run"))

	controlURL, err := l.Launch()
	if err != nil {
		return &EngineError{Op: "launch browser", Err: err}
	}
	slog.Info("browser launched", "controlURL", controlURL)

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return &EngineError{Op: "connect to browser", Err: err}
	}

	r.browser = browser
	return nil
}

// Close kills the browser process. Safe to call when Start never ran.
func (r *Rod) Close() error {
	if r.browser == nil {
		return nil
	}
	err := r.browser.Close()
	r.browser = nil
	if err != nil {
		return &EngineError{Op: "close browser", Err: err}
	}
	return nil
}

// Render loads req.URL in a fresh incognito context.
//
// Pipeline (order matters):
//
//  1. Incognito context + page — the unit of isolation
//  2. DEFER: dispose context and page on every exit path
//  3. Page setup — user agent, viewport, cert tolerance, headers
//  4. Stealth + hijack mount — must precede navigation to take effect
//  5. DOMContentLoaded waiter — registered before Navigate so the event
//     cannot be missed
//  6. Navigate with the per-navigation timeout
//  7. Status check — >= 400 short-circuits without extraction
//  8. Settle wait — best effort
//  9. Extract HTML, title, final URL (outside the navigation deadline)
func (r *Rod) Render(ctx context.Context, req *PageRequest) (*PageResult, error) {
	if r.browser == nil {
		return nil, &EngineError{Op: "render", Err: errors.New("browser not connected")}
	}

	// ── 1. Isolated context ───────────────────────────────────────────
	incog, err := r.browser.Incognito()
	if err != nil {
		return nil, &EngineError{Op: "create context", Err: err}
	}
	defer func() {
		disposeErr := proto.TargetDisposeBrowserContext{
			BrowserContextID: incog.BrowserContextID,
		}.Call(incog)
		if disposeErr != nil {
			slog.Debug("context dispose failed", "url", req.URL, "error", disposeErr)
		}
	}()

	page, err := incog.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, &EngineError{Op: "create page", Err: err}
	}
	defer func() {
		if closeErr := page.Close(); closeErr != nil {
			slog.Debug("page close failed", "url", req.URL, "error", closeErr)
		}
	}()

	// ── 3. Page setup ─────────────────────────────────────────────────
	if req.UserAgent != "" {
		if uaErr := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
			UserAgent: req.UserAgent,
		}); uaErr != nil {
			return nil, &EngineError{Op: "set user agent", Err: uaErr}
		}
	}
	if vpErr := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             viewportWidth,
		Height:            viewportHeight,
		DeviceScaleFactor: 1,
	}); vpErr != nil {
		return nil, &EngineError{Op: "set viewport", Err: vpErr}
	}
	// Lead-gen targets often have broken certs; never let TLS block a render.
	if certErr := (proto.SecuritySetIgnoreCertificateErrors{Ignore: true}).Call(page); certErr != nil {
		return nil, &EngineError{Op: "ignore certificate errors", Err: certErr}
	}
	if len(req.Headers) > 0 {
		_ = proto.NetworkSetExtraHTTPHeaders{
			Headers: toHeadersMap(req.Headers),
		}.Call(page)
	}

	// ── 4. Stealth + hijack (before navigation!) ──────────────────────
	if req.Stealth {
		if _, evalErr := page.EvalOnNewDocument(stealth.JS); evalErr != nil {
			slog.Warn("stealth injection failed, proceeding without stealth",
				"error", evalErr,
			)
		}
	}
	if req.Allow != nil {
		router := mountHijack(page, req.Allow)
		defer func() {
			if stopErr := router.Stop(); stopErr != nil {
				slog.Debug("hijack router stop failed", "url", req.URL, "error", stopErr)
			}
		}()
	}

	// ── 5/6. Navigate, waiting for DOMContentLoaded only ──────────────
	// DOMContentLoaded, not full load: subresources are usually blocked
	// anyway and the DOM is all downstream consumers need.
	navCtx, navCancel := context.WithTimeout(ctx, req.Timeout)
	defer navCancel()

	p := page.Context(navCtx)
	waitDOM := p.WaitEvent(&proto.PageDomContentEventFired{})

	if navErr := p.Navigate(req.URL); navErr != nil {
		return nil, wrapNavError(navErr)
	}
	waitDOM()
	if navCtx.Err() != nil {
		return nil, navCtx.Err()
	}

	// ── 7. Status check via the navigation timing entry ───────────────
	// performance.getEntriesByType avoids CDP network event listeners,
	// which conflict with the Fetch domain used by the hijack router.
	var statusCode int
	if res, evalErr := p.Eval(`() => {
		try {
			const entries = performance.getEntriesByType("navigation");
			if (entries.length > 0) return entries[0].responseStatus || 0;
		} catch(e) {}
		return 0;
	}`); evalErr == nil {
		statusCode = res.Value.Int()
	}
	if statusCode >= 400 {
		return nil, &StatusError{
			Code:     statusCode,
			FinalURL: evalStringOrEmpty(p, `() => window.location.href`),
		}
	}

	// ── 8. Settle wait (best effort) ──────────────────────────────────
	if req.SettleDelay > 0 {
		select {
		case <-time.After(req.SettleDelay):
		case <-ctx.Done():
		}
	}

	// ── 9. Extraction, bound to the caller's context only ─────────────
	ep := page.Context(ctx)
	rawHTML, htmlErr := ep.HTML()
	if htmlErr != nil {
		return nil, &EngineError{Op: "extract html", Err: htmlErr}
	}

	title := evalStringOrEmpty(ep, `() => document.title`)
	if title == "" {
		title = tokenizeTitle(rawHTML)
	}
	finalURL := evalStringOrEmpty(ep, `() => window.location.href`)
	if finalURL == "" {
		finalURL = req.URL
	}

	return &PageResult{
		HTML:       rawHTML,
		Title:      title,
		StatusCode: statusCode,
		FinalURL:   finalURL,
	}, nil
}

// evalStringOrEmpty evaluates a JS expression and returns the string result,
// swallowing any errors (useful for optional metadata extraction).
func evalStringOrEmpty(page *rod.Page, js string) string {
	res, err := page.Eval(js)
	if err != nil {
		return ""
	}
	return res.Value.Str()
}

// toHeadersMap converts a plain string map to the proto.NetworkHeaders type
// (map[string]gson.JSON) required by NetworkSetExtraHTTPHeaders.
func toHeadersMap(headers map[string]string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return m
}

// tokenizeTitle finds the first <title> element in raw HTML. Fallback for
// pages where the in-page eval fails (e.g. a navigated-away frame).
func tokenizeTitle(htmlStr string) string {
	tokenizer := html.NewTokenizer(strings.NewReader(htmlStr))
	for {
		tt := tokenizer.Next()
		switch tt {
		case html.ErrorToken:
			return ""
		case html.StartTagToken:
			tn, _ := tokenizer.TagName()
			if string(tn) == "title" {
				if tokenizer.Next() == html.TextToken {
					return strings.TrimSpace(string(tokenizer.Text()))
				}
				return ""
			}
		}
	}
}
