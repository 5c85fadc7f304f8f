package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
)

// ErrorClassification tells the executor what a dependency error means:
// Retryable errors are attempted again, RecordFailure errors count against
// the operation's breaker.
type ErrorClassification struct {
	Retryable     bool
	RecordFailure bool
}

type ErrorClassifier func(err error) ErrorClassification

// Executor runs dependency calls (qdrant, ollama embeddings, NATS, the
// workflow webhook) with bounded retries and one breaker per operation name.
// Breakers are created on first use.
type Executor struct {
	cfg Config

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker[struct{}]
}

func NewExecutor(cfg Config) *Executor {
	return &Executor{
		cfg:      cfg.normalize(),
		breakers: make(map[string]*gobreaker.CircuitBreaker[struct{}]),
	}
}

// Execute calls fn until it succeeds, fails with a non-retryable error, the
// attempt budget runs out or ctx ends. The last error from fn is returned
// unchanged so adapters can keep classifying it.
func (e *Executor) Execute(ctx context.Context, operation string, fn func(context.Context) error, classifier ErrorClassifier) error {
	if fn == nil {
		return fmt.Errorf("resilience: %s: nil callback", operation)
	}
	op := strings.TrimSpace(operation)
	if op == "" {
		op = "unknown"
	}
	if classifier == nil {
		classifier = recordEverything
	}

	call := retryCall{cfg: e.cfg, op: op, fn: fn, classify: classifier}
	if !e.cfg.BreakerEnabled {
		return call.run(ctx)
	}

	_, err := e.breakerFor(op, classifier).Execute(func() (struct{}, error) {
		return struct{}{}, call.run(ctx)
	})
	return err
}

// BreakerStates reports the current breaker state of every operation seen so far.
func (e *Executor) BreakerStates() map[string]string {
	e.mu.Lock()
	snapshot := make(map[string]*gobreaker.CircuitBreaker[struct{}], len(e.breakers))
	for op, breaker := range e.breakers {
		snapshot[op] = breaker
	}
	e.mu.Unlock()

	states := make(map[string]string, len(snapshot))
	for op, breaker := range snapshot {
		states[op] = breaker.State().String()
	}
	return states
}

type retryCall struct {
	cfg      Config
	op       string
	fn       func(context.Context) error
	classify ErrorClassifier
}

func (c retryCall) run(ctx context.Context) error {
	var lastErr error
	for attempt := 1; attempt <= c.cfg.RetryMaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return lastErr
			}
			return err
		}

		lastErr = c.fn(ctx)
		if lastErr == nil {
			return nil
		}
		if attempt == c.cfg.RetryMaxAttempts || !c.classify(lastErr).Retryable {
			return lastErr
		}

		wait := c.cfg.backoff(attempt)
		if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < wait {
			slog.Debug("retry_abandoned", "operation", c.op, "attempt", attempt, "reason", "deadline before backoff")
			return lastErr
		}
		slog.Warn("retry_attempt",
			"operation", c.op,
			"attempt", attempt,
			"max_attempts", c.cfg.RetryMaxAttempts,
			"backoff_ms", wait.Milliseconds(),
			"error", lastErr,
		)
		if !sleep(ctx, wait) {
			return lastErr
		}
	}
	return lastErr
}

// backoff is the pause after the given failed attempt (1-based).
func (c Config) backoff(attempt int) time.Duration {
	wait := float64(c.RetryInitialBackoff)
	for i := 1; i < attempt; i++ {
		wait *= c.RetryMultiplier
		if wait >= float64(c.RetryMaxBackoff) {
			return c.RetryMaxBackoff
		}
	}
	if d := time.Duration(wait); d < c.RetryMaxBackoff {
		return d
	}
	return c.RetryMaxBackoff
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (e *Executor) breakerFor(operation string, classifier ErrorClassifier) *gobreaker.CircuitBreaker[struct{}] {
	e.mu.Lock()
	defer e.mu.Unlock()

	if breaker, ok := e.breakers[operation]; ok {
		return breaker
	}

	minRequests := e.cfg.BreakerMinRequests
	ratio := e.cfg.BreakerFailureRatio
	listener := e.cfg.OnStateChange
	breaker := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        operation,
		MaxRequests: e.cfg.BreakerHalfOpenMaxCalls,
		Timeout:     e.cfg.BreakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.Requests >= minRequests &&
				float64(counts.TotalFailures)/float64(counts.Requests) >= ratio
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !classifier(err).RecordFailure
		},
		// A caller giving up says nothing about the dependency.
		IsExcluded: func(err error) bool {
			return errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("circuit_breaker_state_change", "operation", name, "from", from.String(), "to", to.String())
			if listener != nil {
				listener(name, from.String(), to.String())
			}
		},
	})
	e.breakers[operation] = breaker
	return breaker
}

// IsCircuitOpen reports whether err is a breaker rejection rather than a
// dependency failure.
func IsCircuitOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

func recordEverything(error) ErrorClassification {
	return ErrorClassification{RecordFailure: true}
}
