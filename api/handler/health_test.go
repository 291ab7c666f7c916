package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fieldlead/renderbatch/engine"
	"github.com/fieldlead/renderbatch/models"
	"github.com/fieldlead/renderbatch/renderer"
)

func getHealth(t *testing.T, rd *renderer.Renderer) models.HealthResponse {
	t.Helper()
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.GET("/health", Health(rd, time.Now().Add(-time.Minute)))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp models.HealthResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad response JSON: %v", err)
	}
	return resp
}

func TestHealth_Idle(t *testing.T) {
	rd := testRenderer(t, &fakeEngine{})

	resp := getHealth(t, rd)
	if resp.Status != "healthy" {
		t.Errorf("expected healthy, got %q", resp.Status)
	}
	if resp.GateStats.MaxWorkers != 2 {
		t.Errorf("expected max workers 2, got %d", resp.GateStats.MaxWorkers)
	}
	if resp.GateStats.ActiveRenders != 0 {
		t.Errorf("expected 0 active, got %d", resp.GateStats.ActiveRenders)
	}
	if resp.Uptime == "" {
		t.Error("uptime missing")
	}
}

func TestHealth_DegradedUnderLoad(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{}, 4)
	eng := &fakeEngine{
		render: func(ctx context.Context, req *engine.PageRequest) (*engine.PageResult, error) {
			entered <- struct{}{}
			<-release
			return &engine.PageResult{HTML: "<html></html>", FinalURL: req.URL}, nil
		},
	}
	rd := testRenderer(t, eng)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = rd.RenderMany(context.Background(), []string{
			"https://a.example.com",
			"https://b.example.com",
		})
	}()
	<-entered
	<-entered

	resp := getHealth(t, rd)
	if resp.Status != "degraded" {
		t.Errorf("expected degraded with a saturated gate, got %q", resp.Status)
	}

	close(release)
	<-done
}

func TestStatsEndpoints(t *testing.T) {
	rd := testRenderer(t, &fakeEngine{})

	if _, err := rd.RenderMany(context.Background(), []string{"https://example.com"}); err != nil {
		t.Fatalf("RenderMany failed: %v", err)
	}

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/stats", Stats(rd))
	r.POST("/stats/reset", ResetStats(rd))

	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("stats: expected 200, got %d", w.Code)
	}

	var stats models.RenderStats
	if err := json.Unmarshal(w.Body.Bytes(), &stats); err != nil {
		t.Fatalf("bad stats JSON: %v", err)
	}
	if stats.TotalRequests != 1 || stats.SuccessfulRenders != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}

	req = httptest.NewRequest(http.MethodPost, "/stats/reset", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("reset: expected 200, got %d", w.Code)
	}

	if snap := rd.Statistics(); snap.TotalRequests != 0 {
		t.Errorf("expected zeroed stats after reset, got %+v", snap)
	}
}
