package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fieldlead/renderbatch/content"
	"github.com/fieldlead/renderbatch/engine"
	"github.com/fieldlead/renderbatch/models"
)

func waitForBatch(t *testing.T, jobID string) *models.BatchStatusResponse {
	t.Helper()
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.GET("/batch/:id", GetBatch())

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		req := httptest.NewRequest(http.MethodGet, "/batch/"+jobID, nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("status poll returned %d", w.Code)
		}

		var status models.BatchStatusResponse
		if err := json.Unmarshal(w.Body.Bytes(), &status); err != nil {
			t.Fatalf("bad status JSON: %v", err)
		}
		if status.Status != "processing" {
			return &status
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("batch job never finished")
	return nil
}

func TestBatch_EndToEnd(t *testing.T) {
	eng := &fakeEngine{
		render: func(ctx context.Context, req *engine.PageRequest) (*engine.PageResult, error) {
			if strings.Contains(req.URL, "down") {
				return nil, &engine.NavError{
					Code: engine.NetErrConnectionRefused,
					Err:  errors.New("net::ERR_CONNECTION_REFUSED"),
				}
			}
			return &engine.PageResult{
				HTML:     "<html><body><p>page</p></body></html>",
				Title:    req.URL,
				FinalURL: req.URL,
			}, nil
		},
	}
	rd := testRenderer(t, eng)

	body := `{"urls":["https://a.example.com","https://down.example.com","https://b.example.com"]}`
	w := doJSON(t, PostBatch(rd, content.NewProcessor()), http.MethodPost, "/batch", body)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var created models.BatchResponse
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("bad response JSON: %v", err)
	}
	if created.ID == "" {
		t.Fatal("no job ID returned")
	}
	if created.Status != "processing" {
		t.Errorf("expected processing, got %q", created.Status)
	}
	if created.Total != 3 {
		t.Errorf("expected total 3, got %d", created.Total)
	}

	status := waitForBatch(t, created.ID)
	if status.Status != "partial" {
		t.Errorf("expected partial, got %q", status.Status)
	}
	if status.Completed != 3 {
		t.Errorf("expected 3 completed, got %d", status.Completed)
	}
	if len(status.Results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(status.Results))
	}

	// Results keep input order.
	if !status.Results[0].Success || status.Results[0].URL != "https://a.example.com" {
		t.Errorf("result 0 wrong: %+v", status.Results[0])
	}
	if status.Results[1].Success {
		t.Error("result 1 should have failed")
	}
	if status.Results[1].ErrorType != models.ErrorTypeConnRefused {
		t.Errorf("result 1: expected %s, got %s", models.ErrorTypeConnRefused, status.Results[1].ErrorType)
	}
	if !status.Results[2].Success || status.Results[2].URL != "https://b.example.com" {
		t.Errorf("result 2 wrong: %+v", status.Results[2])
	}
}

func pollBatch(t *testing.T, r *gin.Engine, jobID string) *models.BatchStatusResponse {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/batch/"+jobID, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status poll returned %d", w.Code)
	}
	var status models.BatchStatusResponse
	if err := json.Unmarshal(w.Body.Bytes(), &status); err != nil {
		t.Fatalf("bad status JSON: %v", err)
	}
	return &status
}

func TestBatch_ReportsProgressWhileRunning(t *testing.T) {
	release := make(chan struct{})
	eng := &fakeEngine{
		render: func(ctx context.Context, req *engine.PageRequest) (*engine.PageResult, error) {
			if strings.Contains(req.URL, "slow") {
				<-release
			}
			return &engine.PageResult{HTML: "<html><body><p>page</p></body></html>", FinalURL: req.URL}, nil
		},
	}
	rd := testRenderer(t, eng)

	w := doJSON(t, PostBatch(rd, content.NewProcessor()), http.MethodPost, "/batch",
		`{"urls":["https://fast.example.com","https://slow.example.com"]}`)
	var created models.BatchResponse
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("bad response JSON: %v", err)
	}

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/batch/:id", GetBatch())

	// The fast URL finishes while the slow one is still held; its result must
	// be visible before the job is done.
	deadline := time.Now().Add(5 * time.Second)
	for {
		status := pollBatch(t, r, created.ID)
		if status.Completed >= 1 {
			if status.Status != "processing" {
				t.Errorf("expected processing mid-run, got %q", status.Status)
			}
			if status.Results[0] == nil || !status.Results[0].Success {
				t.Errorf("fast result not published mid-run: %+v", status.Results[0])
			}
			if status.Results[1] != nil {
				t.Errorf("slow slot published before it finished: %+v", status.Results[1])
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("completed count never advanced while the job was running")
		}
		time.Sleep(5 * time.Millisecond)
	}

	close(release)
	status := waitForBatch(t, created.ID)
	if status.Status != "completed" {
		t.Errorf("expected completed, got %q", status.Status)
	}
	if status.Completed != 2 {
		t.Errorf("expected 2 completed, got %d", status.Completed)
	}
}

func TestBatch_ConcurrentStatusPolls(t *testing.T) {
	eng := &fakeEngine{
		render: func(ctx context.Context, req *engine.PageRequest) (*engine.PageResult, error) {
			time.Sleep(2 * time.Millisecond)
			return &engine.PageResult{HTML: "<html><body><p>page</p></body></html>", FinalURL: req.URL}, nil
		},
	}
	rd := testRenderer(t, eng)

	w := doJSON(t, PostBatch(rd, content.NewProcessor()), http.MethodPost, "/batch",
		`{"urls":["https://a.example.com","https://b.example.com","https://c.example.com","https://d.example.com"]}`)
	var created models.BatchResponse
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("bad response JSON: %v", err)
	}

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/batch/:id", GetBatch())

	// Hammer the status endpoint while workers are still writing results.
	// Run with -race to verify the job is safe to read mid-run.
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				status := pollBatch(t, r, created.ID)
				if status.Completed < 0 || status.Completed > status.Total {
					t.Errorf("inconsistent completed count %d of %d", status.Completed, status.Total)
				}
			}
		}()
	}
	wg.Wait()

	status := waitForBatch(t, created.ID)
	if status.Status != "completed" || status.Completed != 4 {
		t.Errorf("expected 4 completed, got %q with %d", status.Status, status.Completed)
	}
}

func TestBatch_AllFailed(t *testing.T) {
	eng := &fakeEngine{
		render: func(ctx context.Context, req *engine.PageRequest) (*engine.PageResult, error) {
			return nil, context.DeadlineExceeded
		},
	}
	rd := testRenderer(t, eng)

	w := doJSON(t, PostBatch(rd, content.NewProcessor()), http.MethodPost, "/batch",
		`{"urls":["https://a.example.com","https://b.example.com"]}`)
	var created models.BatchResponse
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("bad response JSON: %v", err)
	}

	status := waitForBatch(t, created.ID)
	if status.Status != "failed" {
		t.Errorf("expected failed, got %q", status.Status)
	}
}

func TestBatch_EmptyURLsRejected(t *testing.T) {
	rd := testRenderer(t, &fakeEngine{})

	w := doJSON(t, PostBatch(rd, content.NewProcessor()), http.MethodPost, "/batch", `{"urls":[]}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for empty urls, got %d", w.Code)
	}
}

func TestGetBatch_NotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/batch/:id", GetBatch())

	req := httptest.NewRequest(http.MethodGet, "/batch/batch-does-not-exist", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}
