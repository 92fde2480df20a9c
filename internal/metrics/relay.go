package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "voicegate"

// Relay domain metrics.
var (
	RAGSearchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rag_searches_total",
			Help:      "Total knowledge base searches",
		},
		[]string{"result"}, // "hit" / "miss"
	)

	KBDocuments = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "kb_documents",
			Help:      "Documents loaded into the knowledge base",
		},
	)

	EmotionEstimatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "emotion_estimates_total",
			Help:      "Total emotion estimates by primary label",
		},
		[]string{"primary"},
	)

	SessionRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_requests_total",
			Help:      "Total upstream session creation requests",
		},
		[]string{"status"}, // "ok" / "upstream_error" / "non_json" / "too_large" / "timeout" / "error"
	)

	SessionRequestDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "session_request_duration_seconds",
			Help:      "Upstream session creation latency in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
		},
	)

	RateLimitedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the token endpoint rate limiter",
		},
	)
)

var registerOnce sync.Once

// Register registers the HTTP and relay metrics on the default registry.
// Safe to call more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpRequestDuration,
			httpRequestsTotal,
			httpRequestsInFlight,
			RAGSearchesTotal,
			KBDocuments,
			EmotionEstimatesTotal,
			SessionRequestsTotal,
			SessionRequestDuration,
			RateLimitedTotal,
		)
	})
}
