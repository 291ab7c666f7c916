package renderer

import (
	"testing"

	"github.com/fieldlead/renderbatch/models"
)

func batchOf(results ...*models.RenderResult) []*models.RenderResult {
	return results
}

func TestStats_Buckets(t *testing.T) {
	var s Stats
	s.RecordBatch(batchOf(
		&models.RenderResult{Success: true, RenderTimeSeconds: 1.0},
		&models.RenderResult{Success: true, RenderTimeSeconds: 3.0},
		&models.RenderResult{Success: false, ErrorType: models.ErrorTypeTimeout, RenderTimeSeconds: 15.0},
		&models.RenderResult{Success: false, ErrorType: models.ErrorTypeDNS, RenderTimeSeconds: 0.5},
		&models.RenderResult{Success: false, ErrorType: models.ErrorTypeConnRefused, RenderTimeSeconds: 0.1},
		&models.RenderResult{Success: false, ErrorType: models.ErrorTypeConnTimeout, RenderTimeSeconds: 10.0},
		&models.RenderResult{Success: false, ErrorType: models.ErrorTypeHTTP, RenderTimeSeconds: 0.4},
		&models.RenderResult{Success: false, ErrorType: models.ErrorTypeValidation},
	))

	snap := s.Snapshot()
	if snap.TotalRequests != 8 {
		t.Errorf("total: expected 8, got %d", snap.TotalRequests)
	}
	if snap.SuccessfulRenders != 2 {
		t.Errorf("successes: expected 2, got %d", snap.SuccessfulRenders)
	}
	if snap.FailedRenders != 6 {
		t.Errorf("failures: expected 6, got %d", snap.FailedRenders)
	}
	if snap.TimeoutErrors != 1 {
		t.Errorf("timeouts: expected 1, got %d", snap.TimeoutErrors)
	}
	if snap.ConnectionErrors != 3 {
		t.Errorf("connection errors: expected 3, got %d", snap.ConnectionErrors)
	}
	if snap.OtherErrors != 2 {
		t.Errorf("other errors: expected 2, got %d", snap.OtherErrors)
	}
}

func TestStats_DerivedRates(t *testing.T) {
	var s Stats
	s.RecordBatch(batchOf(
		&models.RenderResult{Success: true, RenderTimeSeconds: 2.0},
		&models.RenderResult{Success: true, RenderTimeSeconds: 4.0},
		&models.RenderResult{Success: false, ErrorType: models.ErrorTypeUnexpected, RenderTimeSeconds: 6.0},
	))

	snap := s.Snapshot()
	if want := 2.0 / 3.0; snap.SuccessRate < want-1e-9 || snap.SuccessRate > want+1e-9 {
		t.Errorf("success rate: expected %.4f, got %.4f", want, snap.SuccessRate)
	}
	if want := 4.0; snap.AverageRenderTime != want {
		t.Errorf("average render time: expected %.1f, got %.1f", want, snap.AverageRenderTime)
	}
}

func TestStats_EmptySnapshot(t *testing.T) {
	var s Stats
	snap := s.Snapshot()
	if snap.SuccessRate != 0 || snap.AverageRenderTime != 0 {
		t.Errorf("empty stats should have zero rates, got %+v", snap)
	}
}

func TestStats_AccumulatesAcrossBatches(t *testing.T) {
	var s Stats
	s.RecordBatch(batchOf(&models.RenderResult{Success: true, RenderTimeSeconds: 1.0}))
	s.RecordBatch(batchOf(&models.RenderResult{Success: false, ErrorType: models.ErrorTypeTimeout, RenderTimeSeconds: 5.0}))

	snap := s.Snapshot()
	if snap.TotalRequests != 2 {
		t.Errorf("expected counters to accumulate, got %d total", snap.TotalRequests)
	}
	if snap.TotalRenderTime != 6.0 {
		t.Errorf("expected total render time 6.0, got %.1f", snap.TotalRenderTime)
	}
}

func TestStats_Reset(t *testing.T) {
	var s Stats
	s.RecordBatch(batchOf(
		&models.RenderResult{Success: true, RenderTimeSeconds: 1.0},
		&models.RenderResult{Success: false, ErrorType: models.ErrorTypeDNS},
	))

	s.Reset()

	snap := s.Snapshot()
	if snap.TotalRequests != 0 || snap.TotalRenderTime != 0 || snap.ConnectionErrors != 0 {
		t.Errorf("expected zeroed counters after reset, got %+v", snap)
	}

	// Counters keep working after a reset.
	s.RecordBatch(batchOf(&models.RenderResult{Success: true}))
	if snap := s.Snapshot(); snap.TotalRequests != 1 {
		t.Errorf("expected 1 request after reset+record, got %d", snap.TotalRequests)
	}
}
