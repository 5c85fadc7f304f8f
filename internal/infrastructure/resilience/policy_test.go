package resilience

import (
	"testing"
	"time"
)

func TestWithRetryKeepsProfileForZeroValues(t *testing.T) {
	cfg := BackgroundConfig().WithRetry(0, 0, 0)
	if cfg.RetryMaxAttempts != 5 || cfg.RetryInitialBackoff != 500*time.Millisecond || cfg.RetryMaxBackoff != 5*time.Second {
		t.Fatalf("unexpected retry budget %+v", cfg)
	}

	cfg = InteractiveConfig().WithRetry(2, 10*time.Millisecond, 20*time.Millisecond)
	if cfg.RetryMaxAttempts != 2 || cfg.RetryInitialBackoff != 10*time.Millisecond || cfg.RetryMaxBackoff != 20*time.Millisecond {
		t.Fatalf("unexpected override %+v", cfg)
	}
}

func TestNormalizeFillsGaps(t *testing.T) {
	cfg := Config{RetryInitialBackoff: time.Second, RetryMaxBackoff: time.Millisecond}.normalize()
	if cfg.RetryMaxAttempts != 3 {
		t.Fatalf("expected default attempts, got %d", cfg.RetryMaxAttempts)
	}
	if cfg.RetryMaxBackoff != time.Second {
		t.Fatalf("expected max backoff raised to initial, got %s", cfg.RetryMaxBackoff)
	}
	if cfg.BreakerFailureRatio != 0.5 || cfg.BreakerHalfOpenMaxCalls != 2 {
		t.Fatalf("unexpected breaker defaults %+v", cfg)
	}
}
