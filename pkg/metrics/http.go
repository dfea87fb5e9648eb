package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// HTTPMetrics records request counts and latencies for the API surface.
// Labels are method, route pattern, and status so a redeployed dashboard
// can tell a slow PO generation apart from a slow vendor list.
type HTTPMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewHTTPMetrics registers the HTTP metrics on the provided registerer.
// A nil registerer yields a no-op collector.
func NewHTTPMetrics(reg prometheus.Registerer, namespace string) *HTTPMetrics {
	if reg == nil {
		return &HTTPMetrics{}
	}
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests served, by method, route and status.",
	}, []string{"method", "path", "status"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})
	reg.MustRegister(requests, duration)
	return &HTTPMetrics{
		requests: requests,
		duration: duration,
	}
}

// ObserveRequest records one served request. The path should be the route
// pattern, not the raw URL, so label cardinality stays bounded.
func (h *HTTPMetrics) ObserveRequest(method, path string, status int, elapsed time.Duration) {
	if h == nil || h.requests == nil {
		return
	}
	statusLabel := strconv.Itoa(status)
	h.requests.WithLabelValues(method, normalizeLabel(path), statusLabel).Inc()
	h.duration.WithLabelValues(method, normalizeLabel(path), statusLabel).Observe(elapsed.Seconds())
}
