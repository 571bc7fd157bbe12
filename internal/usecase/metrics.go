package usecase

import (
	"sync"
	"time"

	"github.com/example/tumor-check/internal/protocol"
)

// MetricsSummary represents aggregated analysis counters since process start.
type MetricsSummary struct {
	TotalRequests              int64   `json:"total_requests"`
	SuccessfulRequests         int64   `json:"successful_requests"`
	FailedRequests             int64   `json:"failed_requests"`
	TumorDetected              int64   `json:"tumor_detected"`
	SuccessRate                float64 `json:"success_rate"`
	AverageConfidence          float64 `json:"average_confidence"`
	AverageProcessingLatencyMs float64 `json:"average_processing_latency_ms"`
}

// Metrics keeps in-process counters. Nothing is persisted.
type Metrics struct {
	mu            sync.Mutex
	total         int64
	succeeded     int64
	tumors        int64
	confidenceSum float64
	latencySum    time.Duration
}

func (m *Metrics) recordSuccess(res *protocol.AnalysisResult, latency time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.total++
	m.succeeded++
	if !res.IsHealthy {
		m.tumors++
	}
	m.confidenceSum += res.Confidence
	m.latencySum += latency
}

func (m *Metrics) recordFailure(latency time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.total++
	m.latencySum += latency
}

func (m *Metrics) summary() *MetricsSummary {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := &MetricsSummary{
		TotalRequests:      m.total,
		SuccessfulRequests: m.succeeded,
		FailedRequests:     m.total - m.succeeded,
		TumorDetected:      m.tumors,
	}
	if m.total > 0 {
		s.SuccessRate = float64(m.succeeded) / float64(m.total)
		s.AverageProcessingLatencyMs = float64(m.latencySum.Microseconds()) / 1000 / float64(m.total)
	}
	if m.succeeded > 0 {
		s.AverageConfidence = m.confidenceSum / float64(m.succeeded)
	}
	return s
}

// GetMetricsSummary reports the counters collected by Analyze.
func (uc *AnalysisUseCase) GetMetricsSummary() *MetricsSummary {
	return uc.metrics.summary()
}
