package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kirillkom/hr-assistant/internal/core/domain"
)

// dependencyMetrics exports breaker states of the resilience executor
// guarding qdrant, ollama embeddings, NATS and the workflow webhook.
type dependencyMetrics struct {
	state *prometheus.GaugeVec
}

func newDependencyMetrics(registry *prometheus.Registry, service string) *dependencyMetrics {
	m := &dependencyMetrics{
		state: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace:   namespace,
				Subsystem:   "dependency",
				Name:        "breaker_state",
				Help:        "Dependency breaker state: 0 closed, 1 half-open, 2 open.",
				ConstLabels: prometheus.Labels{"service": service},
			},
			[]string{"operation"},
		),
	}
	registry.MustRegister(m.state)
	return m
}

func (m *dependencyMetrics) observe(operation, to string) {
	m.state.WithLabelValues(operation).Set(stateValue(domain.HealthState(to)))
}

// ObserveDependencyState matches resilience.StateListener.
func (m *HTTPServerMetrics) ObserveDependencyState(operation, _ string, to string) {
	m.deps.observe(operation, to)
}

// ObserveDependencyState matches resilience.StateListener.
func (m *WorkerMetrics) ObserveDependencyState(operation, _ string, to string) {
	m.deps.observe(operation, to)
}
