package resilience

import "time"

// StateListener receives breaker transitions of one dependency operation.
type StateListener func(operation string, from, to string)

// Config tunes retries and the optional per-operation breaker used for calls
// to qdrant, ollama embeddings, NATS and the workflow webhook.
type Config struct {
	RetryMaxAttempts    int
	RetryInitialBackoff time.Duration
	RetryMaxBackoff     time.Duration
	RetryMultiplier     float64

	BreakerEnabled          bool
	BreakerMinRequests      uint32
	BreakerFailureRatio     float64
	BreakerOpenTimeout      time.Duration
	BreakerHalfOpenMaxCalls uint32

	OnStateChange StateListener
}

// DefaultConfig is the interactive profile.
func DefaultConfig() Config {
	return InteractiveConfig()
}

// InteractiveConfig suits calls made while an employee waits for an answer:
// a retrieval strategy has 1.5s in total, so retries stay short and a flaky
// dependency is cut off quickly.
func InteractiveConfig() Config {
	return Config{
		RetryMaxAttempts:    3,
		RetryInitialBackoff: 50 * time.Millisecond,
		RetryMaxBackoff:     200 * time.Millisecond,
		RetryMultiplier:     2.0,

		BreakerEnabled:          true,
		BreakerMinRequests:      10,
		BreakerFailureRatio:     0.5,
		BreakerOpenTimeout:      30 * time.Second,
		BreakerHalfOpenMaxCalls: 2,
	}
}

// BackgroundConfig suits the indexer and the workflow relay, where finishing
// the job matters more than latency.
func BackgroundConfig() Config {
	return Config{
		RetryMaxAttempts:    5,
		RetryInitialBackoff: 500 * time.Millisecond,
		RetryMaxBackoff:     5 * time.Second,
		RetryMultiplier:     2.0,

		BreakerEnabled:          true,
		BreakerMinRequests:      5,
		BreakerFailureRatio:     0.8,
		BreakerOpenTimeout:      time.Minute,
		BreakerHalfOpenMaxCalls: 1,
	}
}

// WithRetry overrides the retry budget; zero values keep the profile's.
func (c Config) WithRetry(maxAttempts int, initial, max time.Duration) Config {
	if maxAttempts > 0 {
		c.RetryMaxAttempts = maxAttempts
	}
	if initial > 0 {
		c.RetryInitialBackoff = initial
	}
	if max > 0 {
		c.RetryMaxBackoff = max
	}
	return c
}

func (c Config) normalize() Config {
	out := c
	def := InteractiveConfig()

	if out.RetryMaxAttempts <= 0 {
		out.RetryMaxAttempts = def.RetryMaxAttempts
	}
	if out.RetryInitialBackoff <= 0 {
		out.RetryInitialBackoff = def.RetryInitialBackoff
	}
	if out.RetryMaxBackoff < out.RetryInitialBackoff {
		out.RetryMaxBackoff = out.RetryInitialBackoff
	}
	if out.RetryMultiplier < 1.0 {
		out.RetryMultiplier = def.RetryMultiplier
	}

	if out.BreakerMinRequests == 0 {
		out.BreakerMinRequests = def.BreakerMinRequests
	}
	if out.BreakerFailureRatio <= 0 || out.BreakerFailureRatio > 1 {
		out.BreakerFailureRatio = def.BreakerFailureRatio
	}
	if out.BreakerOpenTimeout <= 0 {
		out.BreakerOpenTimeout = def.BreakerOpenTimeout
	}
	if out.BreakerHalfOpenMaxCalls == 0 {
		out.BreakerHalfOpenMaxCalls = def.BreakerHalfOpenMaxCalls
	}
	return out
}
