package forgellm

import (
	"sync"
	"time"
)

// UsageMetrics is an aggregated snapshot of request activity. Counters are
// monotonic between Reset calls; average latency is recomputed from a
// running sum and count rather than stored per sample.
type UsageMetrics struct {
	TotalRequests         int64
	TotalTokens           int64
	TotalPromptTokens     int64
	TotalCompletionTokens int64
	TotalErrors           int64
	TotalRetries          int64
	RequestsByProvider    map[string]int64
	TokensByProvider      map[string]int64
	ErrorsByType          map[string]int64
	LatencySum            time.Duration
	LatencyCount          int64
}

// AvgLatency returns the running average latency, zero before any sample.
func (m UsageMetrics) AvgLatency() time.Duration {
	if m.LatencyCount == 0 {
		return 0
	}
	return m.LatencySum / time.Duration(m.LatencyCount)
}

// AvgLatencyMs returns the running average latency in milliseconds.
func (m UsageMetrics) AvgLatencyMs() float64 {
	if m.LatencyCount == 0 {
		return 0
	}
	return float64(m.LatencySum.Milliseconds()) / float64(m.LatencyCount)
}

func newUsageMetrics() UsageMetrics {
	return UsageMetrics{
		RequestsByProvider: make(map[string]int64),
		TokensByProvider:   make(map[string]int64),
		ErrorsByType:       make(map[string]int64),
	}
}

// MetricsObserver accumulates UsageMetrics under a mutex.
type MetricsObserver struct {
	mu      sync.Mutex
	metrics UsageMetrics
}

// NewMetricsObserver creates a metrics observer with zeroed counters.
func NewMetricsObserver() *MetricsObserver {
	return &MetricsObserver{metrics: newUsageMetrics()}
}

// OnEvent implements Observer.
func (o *MetricsObserver) OnEvent(event Event) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch e := event.(type) {
	case ChatStartEvent:
		o.metrics.TotalRequests++
		o.metrics.RequestsByProvider[e.Provider]++
	case ChatCompleteEvent:
		o.metrics.TotalTokens += int64(e.Usage.TotalTokens)
		o.metrics.TotalPromptTokens += int64(e.Usage.PromptTokens)
		o.metrics.TotalCompletionTokens += int64(e.Usage.CompletionTokens)
		o.metrics.TokensByProvider[e.Provider] += int64(e.Usage.TotalTokens)
		o.metrics.LatencySum += e.Latency
		o.metrics.LatencyCount++
	case ChatErrorEvent:
		o.metrics.TotalErrors++
		o.metrics.ErrorsByType[e.ErrorType]++
	case RetryEvent:
		o.metrics.TotalRetries++
	}
	return nil
}

// Metrics returns a deep-copied snapshot.
func (o *MetricsObserver) Metrics() UsageMetrics {
	o.mu.Lock()
	defer o.mu.Unlock()

	snapshot := o.metrics
	snapshot.RequestsByProvider = copyCounts(o.metrics.RequestsByProvider)
	snapshot.TokensByProvider = copyCounts(o.metrics.TokensByProvider)
	snapshot.ErrorsByType = copyCounts(o.metrics.ErrorsByType)
	return snapshot
}

// Reset zeroes all counters.
func (o *MetricsObserver) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.metrics = newUsageMetrics()
}

func copyCounts(in map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
