package forgellm

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusObserver exports request lifecycle events as Prometheus metrics.
// It is safe for concurrent use and can be registered on the bus alongside
// other observers.
type PrometheusObserver struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	tokensTotal     *prometheus.CounterVec

	retriesTotal *prometheus.CounterVec
	errorsTotal  *prometheus.CounterVec

	cacheServed  *prometheus.CounterVec
	streamChunks *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewPrometheusObserver creates an observer on the default registerer.
func NewPrometheusObserver() *PrometheusObserver {
	return NewPrometheusObserverWithRegistry(prometheus.DefaultRegisterer)
}

// NewPrometheusObserverWithRegistry creates an observer using the supplied
// registerer.
func NewPrometheusObserverWithRegistry(registry prometheus.Registerer) *PrometheusObserver {
	po := &PrometheusObserver{
		requestsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "forgellm_requests_total",
				Help: "Total number of chat requests started",
			},
			[]string{"provider", "model"},
		),
		requestDuration: promauto.With(registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "forgellm_request_duration_seconds",
				Help:    "Duration of chat requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"provider", "model"},
		),
		tokensTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "forgellm_tokens_total",
				Help: "Total number of tokens consumed",
			},
			[]string{"provider", "model", "kind"},
		),
		retriesTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "forgellm_retries_total",
				Help: "Total number of retry attempts",
			},
			[]string{"provider", "error_type"},
		),
		errorsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "forgellm_errors_total",
				Help: "Total number of failed chat requests",
			},
			[]string{"provider", "error_type"},
		),
		cacheServed: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "forgellm_cache_served_total",
				Help: "Total number of responses served from cache",
			},
			[]string{"provider", "model"},
		),
		streamChunks: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "forgellm_stream_chunks_total",
				Help: "Total number of streaming chunks delivered",
			},
			[]string{"provider"},
		),
	}

	if r, ok := registry.(*prometheus.Registry); ok {
		po.registry = r
	}

	return po
}

// OnEvent implements Observer.
func (po *PrometheusObserver) OnEvent(event Event) error {
	if po == nil {
		return nil
	}

	switch e := event.(type) {
	case ChatStartEvent:
		po.requestsTotal.WithLabelValues(e.Provider, e.Model).Inc()
	case ChatCompleteEvent:
		po.requestDuration.WithLabelValues(e.Provider, e.Model).Observe(e.Latency.Seconds())
		po.tokensTotal.WithLabelValues(e.Provider, e.Model, "prompt").Add(float64(e.Usage.PromptTokens))
		po.tokensTotal.WithLabelValues(e.Provider, e.Model, "completion").Add(float64(e.Usage.CompletionTokens))
		if e.FromCache {
			po.cacheServed.WithLabelValues(e.Provider, e.Model).Inc()
		}
	case ChatErrorEvent:
		po.errorsTotal.WithLabelValues(e.Provider, e.ErrorType).Inc()
	case RetryEvent:
		po.retriesTotal.WithLabelValues(e.Provider, e.ErrorType).Inc()
	case StreamChunkEvent:
		po.streamChunks.WithLabelValues(e.Provider).Inc()
	}
	return nil
}

// GetRegistry exposes the underlying prometheus registry when the observer
// was created with a *prometheus.Registry, nil otherwise.
func (po *PrometheusObserver) GetRegistry() *prometheus.Registry {
	return po.registry
}
