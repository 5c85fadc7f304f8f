package usecase

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/kirillkom/hr-assistant/internal/core/domain"
)

type FallbackConfig struct {
	FailureThreshold int
	Window           time.Duration
	Cooldown         time.Duration
	MaxCooldown      time.Duration
	// LightweightConfidence is the score reported for answers from a lightweight backend.
	LightweightConfidence float64
}

func (c FallbackConfig) normalize() FallbackConfig {
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = 3
	}
	if c.Window <= 0 {
		c.Window = time.Minute
	}
	if c.Cooldown <= 0 {
		c.Cooldown = time.Minute
	}
	if c.MaxCooldown < c.Cooldown {
		c.MaxCooldown = 10 * c.Cooldown
	}
	if c.LightweightConfidence <= 0 || c.LightweightConfidence > 1 {
		c.LightweightConfidence = 0.8
	}
	return c
}

// FallbackManager picks a generation backend by confidence band and falls
// through the remaining healthy ones. When every backend fails it answers with
// a fixed apology instead of an error.
type FallbackManager struct {
	backends []*backendHealth
	cfg      FallbackConfig
	observer Observer
}

func NewFallbackManager(specs []BackendSpec, cfg FallbackConfig, observer Observer) *FallbackManager {
	if observer == nil {
		observer = noopObserver{}
	}
	cfg = cfg.normalize()

	ordered := make([]BackendSpec, len(specs))
	copy(ordered, specs)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority < ordered[j].Priority
	})

	hcfg := healthConfig{
		failureThreshold: cfg.FailureThreshold,
		window:           cfg.Window,
		cooldown:         cfg.Cooldown,
		maxCooldown:      cfg.MaxCooldown,
	}
	backends := make([]*backendHealth, 0, len(ordered))
	for _, spec := range ordered {
		if spec.Timeout <= 0 {
			spec.Timeout = 8 * time.Second
		}
		backends = append(backends, newBackendHealth(spec, hcfg, observer))
	}

	return &FallbackManager{
		backends: backends,
		cfg:      cfg,
		observer: observer,
	}
}

// Generate produces an answer for the assembled context. Caller cancellation
// is returned as ctx.Err() and never counts against a backend.
func (m *FallbackManager) Generate(
	ctx context.Context,
	block domain.ContextBlock,
	query domain.Query,
	assessment domain.ConfidenceAssessment,
) (domain.GeneratedAnswer, error) {
	start := time.Now()
	prompt := block.Prompt(query.Text, query.Language)

	for _, backend := range m.order(assessment.Band) {
		if err := ctx.Err(); err != nil {
			return domain.GeneratedAnswer{}, err
		}

		attemptStart := time.Now()
		text, err := backend.call(ctx, prompt)
		if err == nil {
			m.observer.ObserveBackendAttempt(backend.spec.Name, outcomeOK, time.Since(attemptStart))
			confidence := assessment.Score
			if backend.spec.Lightweight {
				confidence = m.cfg.LightweightConfidence
			}
			return domain.GeneratedAnswer{
				Text:        text,
				Backend:     backend.spec.Name,
				Confidence:  confidence,
				Band:        assessment.Band,
				DocumentIDs: block.DocumentIDs,
				Duration:    time.Since(start),
			}, nil
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			m.observer.ObserveBackendAttempt(backend.spec.Name, outcomeCanceled, time.Since(attemptStart))
			return domain.GeneratedAnswer{}, ctxErr
		}

		switch {
		case isBreakerRejection(err):
			m.observer.ObserveBackendAttempt(backend.spec.Name, outcomeSkipped, 0)
			slog.Info("generation_backend_skipped", "backend", backend.spec.Name, "reason", err.Error())
		case domain.IsKind(err, domain.ErrBackendTimeout):
			m.observer.ObserveBackendAttempt(backend.spec.Name, outcomeTimeout, time.Since(attemptStart))
			slog.Warn("generation_fallback", "backend", backend.spec.Name, "error", err)
		default:
			m.observer.ObserveBackendAttempt(backend.spec.Name, outcomeError, time.Since(attemptStart))
			slog.Warn("generation_fallback", "backend", backend.spec.Name, "error", err)
		}
	}

	slog.Error("generation_backends_exhausted", "backends", len(m.backends), "error", domain.ErrAllBackendsExhausted)
	return domain.GeneratedAnswer{
		Text:        apologyText(query.Language),
		Backend:     domain.BackendTemplate,
		Confidence:  0,
		Band:        assessment.Band,
		DocumentIDs: block.DocumentIDs,
		Duration:    time.Since(start),
		Degraded:    true,
	}, nil
}

// Backends returns health snapshots in priority order.
func (m *FallbackManager) Backends() []domain.BackendDescriptor {
	out := make([]domain.BackendDescriptor, 0, len(m.backends))
	for _, backend := range m.backends {
		out = append(out, backend.descriptor())
	}
	return out
}

// order walks backends by priority when confidence is high or medium and
// starts from the cheapest tier otherwise.
func (m *FallbackManager) order(band domain.ConfidenceBand) []*backendHealth {
	out := make([]*backendHealth, len(m.backends))
	copy(out, m.backends)
	if band.PrefersLightweight() {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return out
}

func apologyText(language string) string {
	if strings.EqualFold(strings.TrimSpace(language), "id") {
		return "Maaf, asisten HR belum dapat menjawab saat ini. Silakan coba lagi nanti atau hubungi tim HR secara langsung."
	}
	return "Sorry, the HR assistant cannot answer right now. Please try again later or contact the HR team directly."
}
