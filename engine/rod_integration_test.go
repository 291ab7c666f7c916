//go:build browser

package engine

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-rod/rod/lib/proto"
)

// These tests drive a real Chromium process. Run them with:
//
//	go test -tags browser ./engine
//
// They are excluded from the default build because CI workers do not all
// carry a browser binary.

func startBrowser(t *testing.T) *Rod {
	t.Helper()
	r := NewRod(Config{Headless: true, NoSandbox: true})
	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("browser start failed: %v", err)
	}
	t.Cleanup(func() {
		if err := r.Close(); err != nil {
			t.Errorf("browser close failed: %v", err)
		}
	})
	return r
}

func browserContextCount(t *testing.T, r *Rod) int {
	t.Helper()
	res, err := proto.TargetGetBrowserContexts{}.Call(r.browser)
	if err != nil {
		t.Fatalf("listing browser contexts failed: %v", err)
	}
	return len(res.BrowserContextIDs)
}

// Each render must start with a clean cookie jar. The server greets the first
// request from a jar with "first" and sets a cookie; a jar that carries the
// cookie back gets "returning" instead.
func TestRodRender_RendersDoNotShareCookies(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if _, err := req.Cookie("visited"); err == nil {
			w.Write([]byte("<html><body>returning</body></html>"))
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "visited", Value: "1"})
		w.Write([]byte("<html><body>first</body></html>"))
	}))
	defer srv.Close()

	r := startBrowser(t)
	req := &PageRequest{URL: srv.URL, Timeout: 15 * time.Second}

	for i := 0; i < 2; i++ {
		res, err := r.Render(context.Background(), req)
		if err != nil {
			t.Fatalf("render %d failed: %v", i, err)
		}
		if !strings.Contains(res.HTML, "first") {
			t.Errorf("render %d saw cookies from an earlier render: %q", i, res.HTML)
		}
	}
}

// The incognito context created for a render must be disposed on every exit
// path, successful or not.
func TestRodRender_DisposesBrowserContexts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Write([]byte("<html><body>ok</body></html>"))
	}))
	defer srv.Close()

	r := startBrowser(t)
	baseline := browserContextCount(t, r)

	if _, err := r.Render(context.Background(), &PageRequest{URL: srv.URL, Timeout: 15 * time.Second}); err != nil {
		t.Fatalf("render failed: %v", err)
	}
	if got := browserContextCount(t, r); got != baseline {
		t.Errorf("after successful render: %d browser contexts, baseline was %d", got, baseline)
	}

	// Port 1 is never listening; the navigation fails fast.
	if _, err := r.Render(context.Background(), &PageRequest{URL: "http://127.0.0.1:1", Timeout: 15 * time.Second}); err == nil {
		t.Fatal("expected render of an unreachable address to fail")
	}
	if got := browserContextCount(t, r); got != baseline {
		t.Errorf("after failed render: %d browser contexts, baseline was %d", got, baseline)
	}
}
