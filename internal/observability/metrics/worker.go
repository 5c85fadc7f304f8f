package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// WorkerMetrics tracks the workflow relay: events consumed from NATS and
// delivered to the workflow engine webhook.
type WorkerMetrics struct {
	registry *prometheus.Registry
	service  string

	deliverTotal    *prometheus.CounterVec
	deliverDuration *prometheus.HistogramVec
	deliverInFlight prometheus.Gauge
	eventLag        *prometheus.HistogramVec
	deps            *dependencyMetrics
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	deliverTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "workflow_deliver_total",
			Help:      "Total relayed workflow events by kind and status.",
		},
		[]string{"service", "kind", "status"},
	)
	deliverDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "workflow_deliver_duration_seconds",
			Help:      "Workflow webhook delivery duration in seconds by status.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "status"},
	)
	deliverInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "workflow_deliver_in_flight",
			Help:      "Number of in-flight workflow deliveries.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	eventLag := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "event_lag_seconds",
			Help:      "Delay between the chat request raising an event and relay start.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"service"},
	)

	registry.MustRegister(deliverTotal, deliverDuration, deliverInFlight, eventLag)

	return &WorkerMetrics{
		registry:        registry,
		service:         service,
		deliverTotal:    deliverTotal,
		deliverDuration: deliverDuration,
		deliverInFlight: deliverInFlight,
		eventLag:        eventLag,
		deps:            newDependencyMetrics(registry, service),
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartDelivery() {
	m.deliverInFlight.Inc()
}

func (m *WorkerMetrics) FinishDelivery(kind string, duration time.Duration, err error) {
	m.deliverInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}

	m.deliverTotal.WithLabelValues(m.service, kind, status).Inc()
	m.deliverDuration.WithLabelValues(m.service, status).Observe(duration.Seconds())
}

func (m *WorkerMetrics) ObserveEventLag(lag time.Duration) {
	if lag < 0 {
		return
	}
	m.eventLag.WithLabelValues(m.service).Observe(lag.Seconds())
}
