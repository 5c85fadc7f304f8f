package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kirillkom/hr-assistant/internal/core/domain"
)

type chatMetrics struct {
	chatTotal         *prometheus.CounterVec
	chatDuration      *prometheus.HistogramVec
	chatDocuments     prometheus.Histogram
	strategyTotal     *prometheus.CounterVec
	strategyDuration  *prometheus.HistogramVec
	attemptTotal      *prometheus.CounterVec
	attemptDuration   *prometheus.HistogramVec
	backendState      *prometheus.GaugeVec
	stateChangesTotal *prometheus.CounterVec
}

func newChatMetrics(registry *prometheus.Registry) *chatMetrics {
	m := &chatMetrics{
		chatTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "chat",
				Name:      "requests_total",
				Help:      "Answered chat requests by confidence band, backend and cache hit.",
			},
			[]string{"band", "backend", "cached"},
		),
		chatDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "chat",
				Name:      "duration_seconds",
				Help:      "End-to-end chat handling duration in seconds.",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 4, 8, 12, 16},
			},
			[]string{"backend"},
		),
		chatDocuments: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "chat",
				Name:      "referenced_documents",
				Help:      "Distribution of referenced documents per answer.",
				Buckets:   []float64{0, 1, 2, 3, 5, 8},
			},
		),
		strategyTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "retrieval",
				Name:      "strategy_total",
				Help:      "Retrieval strategy runs by outcome.",
			},
			[]string{"strategy", "outcome"},
		),
		strategyDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "retrieval",
				Name:      "strategy_duration_seconds",
				Help:      "Retrieval strategy duration in seconds.",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 1.5, 3},
			},
			[]string{"strategy"},
		),
		attemptTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "generation",
				Name:      "attempts_total",
				Help:      "Generation backend attempts by outcome.",
			},
			[]string{"backend", "outcome"},
		),
		attemptDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "generation",
				Name:      "attempt_duration_seconds",
				Help:      "Generation backend attempt duration in seconds.",
				Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 3, 5, 8},
			},
			[]string{"backend"},
		),
		backendState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "generation",
				Name:      "backend_state",
				Help:      "Backend breaker state: 0 closed, 1 half-open, 2 open.",
			},
			[]string{"backend"},
		),
		stateChangesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "generation",
				Name:      "backend_state_changes_total",
				Help:      "Backend breaker transitions by target state.",
			},
			[]string{"backend", "state"},
		),
	}
	registry.MustRegister(
		m.chatTotal,
		m.chatDuration,
		m.chatDocuments,
		m.strategyTotal,
		m.strategyDuration,
		m.attemptTotal,
		m.attemptDuration,
		m.backendState,
		m.stateChangesTotal,
	)
	return m
}

func (m *HTTPServerMetrics) ObserveStrategy(strategy, outcome string, duration time.Duration) {
	m.chat.strategyTotal.WithLabelValues(strategy, outcome).Inc()
	m.chat.strategyDuration.WithLabelValues(strategy).Observe(duration.Seconds())
}

func (m *HTTPServerMetrics) ObserveBackendAttempt(backend, outcome string, duration time.Duration) {
	m.chat.attemptTotal.WithLabelValues(backend, outcome).Inc()
	if duration > 0 {
		m.chat.attemptDuration.WithLabelValues(backend).Observe(duration.Seconds())
	}
}

func (m *HTTPServerMetrics) ObserveBackendState(backend string, state domain.HealthState) {
	m.chat.backendState.WithLabelValues(backend).Set(stateValue(state))
	m.chat.stateChangesTotal.WithLabelValues(backend, string(state)).Inc()
}

func (m *HTTPServerMetrics) ObserveChat(band domain.ConfidenceBand, backend string, cached bool, documents int, duration time.Duration) {
	if band == "" {
		band = domain.ConfidenceNone
	}
	m.chat.chatTotal.WithLabelValues(string(band), backend, strconv.FormatBool(cached)).Inc()
	m.chat.chatDuration.WithLabelValues(backend).Observe(duration.Seconds())
	m.chat.chatDocuments.Observe(float64(documents))
}

func stateValue(state domain.HealthState) float64 {
	switch state {
	case domain.HealthHalfOpen:
		return 1
	case domain.HealthOpen:
		return 2
	default:
		return 0
	}
}
