package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/kirillkom/hr-assistant/internal/core/domain"
	"github.com/kirillkom/hr-assistant/internal/core/ports"
)

var errCallerCanceled = errors.New("caller canceled")

// windowBuckets splits the failure window so it rolls instead of resetting
// wholesale at each interval boundary.
const windowBuckets = 10

// BackendSpec describes one generation backend. Lower Priority is tried first
// when confidence is high.
type BackendSpec struct {
	Name        string
	Backend     ports.GenerationBackend
	Priority    int
	Timeout     time.Duration
	MaxTokens   int
	Lightweight bool
}

type healthConfig struct {
	failureThreshold int
	window           time.Duration
	cooldown         time.Duration
	maxCooldown      time.Duration
}

// backendHealth wraps a backend in a circuit breaker. The breaker opens after
// failureThreshold consecutive failures inside the window. Every failed
// half-open probe doubles the cooldown up to maxCooldown; a success resets it.
type backendHealth struct {
	spec     BackendSpec
	cfg      healthConfig
	breaker  *gobreaker.CircuitBreaker[string]
	observer Observer

	// mu is never held while calling into breaker: gobreaker invokes
	// onStateChange under its own lock.
	mu          sync.Mutex
	failures    int
	lastFailure time.Time
	trips       int
	cooldown    time.Duration
	openUntil   time.Time
}

func newBackendHealth(spec BackendSpec, cfg healthConfig, observer Observer) *backendHealth {
	h := &backendHealth{
		spec:     spec,
		cfg:      cfg,
		observer: observer,
		cooldown: cfg.cooldown,
	}

	settings := gobreaker.Settings{
		Name:         spec.Name,
		MaxRequests:  1,
		Interval:     cfg.window,
		BucketPeriod: cfg.window / windowBuckets,
		Timeout:      cfg.cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(cfg.failureThreshold)
		},
		IsExcluded: func(err error) bool {
			return errors.Is(err, errCallerCanceled)
		},
		OnStateChange: h.onStateChange,
	}
	h.breaker = gobreaker.NewCircuitBreaker[string](settings)
	return h
}

func (h *backendHealth) onStateChange(name string, from gobreaker.State, to gobreaker.State) {
	now := time.Now()

	h.mu.Lock()
	switch to {
	case gobreaker.StateOpen:
		h.trips++
		h.cooldown = h.cfg.cooldown
		for i := 1; i < h.trips && h.cooldown < h.cfg.maxCooldown; i++ {
			h.cooldown *= 2
		}
		if h.cooldown > h.cfg.maxCooldown {
			h.cooldown = h.cfg.maxCooldown
		}
		h.openUntil = now.Add(h.cooldown)
	case gobreaker.StateClosed:
		h.trips = 0
		h.cooldown = h.cfg.cooldown
		h.openUntil = time.Time{}
	}
	cooldown := h.cooldown
	h.mu.Unlock()

	slog.Warn("circuit_breaker_state_change",
		"backend", name,
		"from", from.String(),
		"to", to.String(),
		"cooldown_ms", cooldown.Milliseconds(),
	)
	h.observer.ObserveBackendState(name, healthState(to))
}

// holding reports whether an extended cooldown still keeps the backend closed
// to traffic even though the breaker's own timeout has elapsed.
func (h *backendHealth) holding(now time.Time) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return now.Before(h.openUntil)
}

type attemptResult struct {
	text string
	err  error
}

// call runs one attempt bounded by the backend timeout. An open backend is
// rejected with gobreaker.ErrOpenState without being invoked.
func (h *backendHealth) call(ctx context.Context, prompt string) (string, error) {
	if h.holding(time.Now()) {
		return "", gobreaker.ErrOpenState
	}

	text, err := h.breaker.Execute(func() (string, error) {
		attemptCtx, cancel := context.WithTimeout(ctx, h.spec.Timeout)
		defer cancel()

		done := make(chan attemptResult, 1)
		go func() {
			text, err := h.spec.Backend.Generate(attemptCtx, prompt, h.spec.MaxTokens)
			done <- attemptResult{text: text, err: err}
		}()

		var result attemptResult
		select {
		case result = <-done:
		case <-attemptCtx.Done():
			result = attemptResult{err: attemptCtx.Err()}
		}

		if err := ctx.Err(); err != nil {
			return "", fmt.Errorf("%w: %w", errCallerCanceled, err)
		}
		if result.err != nil {
			if errors.Is(result.err, context.DeadlineExceeded) || attemptCtx.Err() != nil {
				return "", domain.WrapError(domain.ErrBackendTimeout, "generate "+h.spec.Name, result.err)
			}
			return "", domain.WrapError(domain.ErrBackendUnavailable, "generate "+h.spec.Name, result.err)
		}
		answer := strings.TrimSpace(result.text)
		if answer == "" {
			return "", domain.WrapError(domain.ErrBackendUnavailable, "generate "+h.spec.Name, fmt.Errorf("empty answer"))
		}
		return answer, nil
	})

	switch {
	case err == nil:
		h.recordSuccess()
	case isBreakerRejection(err), errors.Is(err, errCallerCanceled):
	default:
		h.recordFailure(time.Now())
	}
	return text, err
}

func (h *backendHealth) recordSuccess() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.failures = 0
}

func (h *backendHealth) recordFailure(now time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.failures++
	h.lastFailure = now
}

func (h *backendHealth) descriptor() domain.BackendDescriptor {
	state := healthState(h.breaker.State())
	now := time.Now()

	h.mu.Lock()
	defer h.mu.Unlock()

	desc := domain.BackendDescriptor{
		Name:                h.spec.Name,
		Priority:            h.spec.Priority,
		State:               state,
		ConsecutiveFailures: h.failures,
		Cooldown:            h.cooldown,
	}
	if !h.lastFailure.IsZero() {
		lastFailure := h.lastFailure
		desc.LastFailure = &lastFailure
	}
	if now.Before(h.openUntil) {
		openUntil := h.openUntil
		desc.State = domain.HealthOpen
		desc.OpenUntil = &openUntil
	}
	return desc
}

func isBreakerRejection(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

func healthState(state gobreaker.State) domain.HealthState {
	switch state {
	case gobreaker.StateOpen:
		return domain.HealthOpen
	case gobreaker.StateHalfOpen:
		return domain.HealthHalfOpen
	default:
		return domain.HealthClosed
	}
}
