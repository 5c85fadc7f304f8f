package usecase

import (
	"time"

	"github.com/kirillkom/hr-assistant/internal/core/domain"
)

// Observer receives pipeline outcomes. Metrics collectors implement it.
type Observer interface {
	ObserveStrategy(strategy, outcome string, duration time.Duration)
	ObserveBackendAttempt(backend, outcome string, duration time.Duration)
	ObserveBackendState(backend string, state domain.HealthState)
	ObserveChat(band domain.ConfidenceBand, backend string, cached bool, documents int, duration time.Duration)
}

type noopObserver struct{}

func (noopObserver) ObserveStrategy(string, string, time.Duration) {}
func (noopObserver) ObserveBackendAttempt(string, string, time.Duration) {}
func (noopObserver) ObserveBackendState(string, domain.HealthState) {}
func (noopObserver) ObserveChat(domain.ConfidenceBand, string, bool, int, time.Duration) {}

const (
	outcomeOK       = "ok"
	outcomeError    = "error"
	outcomeTimeout  = "timeout"
	outcomeSkipped  = "skipped"
	outcomeCanceled = "canceled"
)
