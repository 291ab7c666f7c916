package renderer

import (
	"sync"

	"github.com/fieldlead/renderbatch/models"
)

// Stats holds the coordinator's aggregate counters. It is instance-scoped:
// multiple renderers never share counters. Updates happen once per batch via
// RecordBatch, not per URL.
type Stats struct {
	mu                sync.Mutex
	totalRequests     int
	successfulRenders int
	failedRenders     int
	timeoutErrors     int
	connectionErrors  int
	otherErrors       int
	totalRenderTime   float64
}

// connectionErrorTypes are the failure labels counted in the connection
// bucket.
var connectionErrorTypes = map[string]struct{}{
	models.ErrorTypeDNS:         {},
	models.ErrorTypeConnRefused: {},
	models.ErrorTypeConnTimeout: {},
}

// RecordBatch folds one completed batch into the counters.
func (s *Stats) RecordBatch(results []*models.RenderResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, res := range results {
		s.totalRequests++

		if res.Success {
			s.successfulRenders++
		} else {
			s.failedRenders++

			switch {
			case res.ErrorType == models.ErrorTypeTimeout:
				s.timeoutErrors++
			default:
				if _, ok := connectionErrorTypes[res.ErrorType]; ok {
					s.connectionErrors++
				} else {
					s.otherErrors++
				}
			}
		}

		s.totalRenderTime += res.RenderTimeSeconds
	}
}

// Snapshot returns the counters plus derived success rate and average
// render time.
func (s *Stats) Snapshot() models.RenderStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := models.RenderStats{
		TotalRequests:     s.totalRequests,
		SuccessfulRenders: s.successfulRenders,
		FailedRenders:     s.failedRenders,
		TimeoutErrors:     s.timeoutErrors,
		ConnectionErrors:  s.connectionErrors,
		OtherErrors:       s.otherErrors,
		TotalRenderTime:   s.totalRenderTime,
	}
	if s.totalRequests > 0 {
		snap.SuccessRate = float64(s.successfulRenders) / float64(s.totalRequests)
		snap.AverageRenderTime = s.totalRenderTime / float64(s.totalRequests)
	}
	return snap
}

// Reset zeroes all counters.
func (s *Stats) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.totalRequests = 0
	s.successfulRenders = 0
	s.failedRenders = 0
	s.timeoutErrors = 0
	s.connectionErrors = 0
	s.otherErrors = 0
	s.totalRenderTime = 0
}
