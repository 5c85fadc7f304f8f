package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "hra"

// knownPaths bounds the path label; anything else is reported as "other".
var knownPaths = map[string]struct{}{
	"/v1/chat":     {},
	"/v1/backends": {},
	"/healthz":     {},
	"/metrics":     {},
}

// HTTPServerMetrics is the registry of a chat-serving process (api or mcp):
// request metrics for the HTTP surface plus the chat, retrieval, backend and
// dependency collectors fed by the orchestrator.
type HTTPServerMetrics struct {
	registry *prometheus.Registry
	service  string

	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	inFlight prometheus.Gauge
	rejected *prometheus.CounterVec

	chat *chatMetrics
	deps *dependencyMetrics
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()
	m := &HTTPServerMetrics{
		registry: registry,
		service:  service,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		}, []string{"service", "method", "path", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			// Chat answers wait on generation, so the tail reaches past the primary timeout.
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 4, 8, 12},
		}, []string{"service", "method", "path"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   "http",
			Name:        "in_flight_requests",
			Help:        "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{"service": service},
		}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "rejected_total",
			Help:      "Requests rejected by rate limiting or backpressure.",
		}, []string{"service", "reason"}),
	}
	registry.MustRegister(m.requests, m.latency, m.inFlight, m.rejected)
	m.chat = newChatMetrics(registry)
	m.deps = newDependencyMetrics(registry, service)
	return m
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		if _, ok := knownPaths[path]; !ok {
			path = "other"
		}
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		m.inFlight.Inc()
		next.ServeHTTP(sw, r)
		m.inFlight.Dec()

		m.requests.WithLabelValues(m.service, r.Method, path, strconv.Itoa(sw.status)).Inc()
		m.latency.WithLabelValues(m.service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// RecordRejected counts requests refused by rate limiting or backpressure.
func (m *HTTPServerMetrics) RecordRejected(reason string) {
	m.rejected.WithLabelValues(m.service, reason).Inc()
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
