package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kirillkom/hr-assistant/internal/core/domain"
	"github.com/kirillkom/hr-assistant/internal/core/ports"
)

type RetrievalConfig struct {
	TopK            int
	StrategyTimeout time.Duration
	Timeout         time.Duration
	Weights         map[string]float64
}

func (c RetrievalConfig) normalize() RetrievalConfig {
	if c.TopK <= 0 {
		c.TopK = 5
	}
	if c.StrategyTimeout <= 0 {
		c.StrategyTimeout = 1500 * time.Millisecond
	}
	if c.Timeout <= 0 {
		c.Timeout = 3 * time.Second
	}
	return c
}

func (c RetrievalConfig) weight(strategy string) float64 {
	if w, ok := c.Weights[strategy]; ok && w >= 0 {
		return w
	}
	return 1
}

// RetrievalCoordinator fans a query out to every search strategy and merges the hits.
type RetrievalCoordinator struct {
	strategies []ports.SearchStrategy
	cfg        RetrievalConfig
	observer   Observer
}

func NewRetrievalCoordinator(strategies []ports.SearchStrategy, cfg RetrievalConfig, observer Observer) *RetrievalCoordinator {
	if observer == nil {
		observer = noopObserver{}
	}
	return &RetrievalCoordinator{
		strategies: strategies,
		cfg:        cfg.normalize(),
		observer:   observer,
	}
}

// MaxScore is the merged score of a document every strategy ranked at 1.0.
func (c *RetrievalCoordinator) MaxScore() float64 {
	total := 0.0
	for _, strategy := range c.strategies {
		total += c.cfg.weight(strategy.Name())
	}
	return total
}

type strategyReport struct {
	index    int
	name     string
	hits     []domain.SearchHit
	err      error
	duration time.Duration
}

// Retrieve returns at most topK merged documents. topK <= 0 uses the configured default.
// A failing strategy contributes nothing; when no strategy succeeds the empty result
// comes back with ErrRetrievalUnavailable.
func (c *RetrievalCoordinator) Retrieve(ctx context.Context, query domain.Query, topK int) (domain.RankedResult, error) {
	if topK <= 0 {
		topK = c.cfg.TopK
	}
	if len(c.strategies) == 0 {
		return domain.RankedResult{}, domain.WrapError(domain.ErrRetrievalUnavailable, "retrieve", fmt.Errorf("no search strategies configured"))
	}

	retrieveCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	params := domain.SearchParams{
		Limit:    max(topK*3, 10),
		Language: query.Language,
	}

	// Buffered so abandoned strategies can still report and exit.
	results := make(chan strategyReport, len(c.strategies))
	for i, strategy := range c.strategies {
		go func(index int, strategy ports.SearchStrategy) {
			strategyCtx, strategyCancel := context.WithTimeout(retrieveCtx, c.cfg.StrategyTimeout)
			defer strategyCancel()

			start := time.Now()
			hits, err := strategy.Search(strategyCtx, query.Text, params)
			if err == nil && strategyCtx.Err() != nil {
				err = strategyCtx.Err()
			}
			if errors.Is(err, context.DeadlineExceeded) {
				err = domain.WrapError(domain.ErrStrategyTimeout, "search "+strategy.Name(), err)
			}
			results <- strategyReport{
				index:    index,
				name:     strategy.Name(),
				hits:     hits,
				err:      err,
				duration: time.Since(start),
			}
		}(i, strategy)
	}

	reports := make([]strategyReport, len(c.strategies))
	reported := make([]bool, len(c.strategies))
	pending := len(c.strategies)
collect:
	for pending > 0 {
		select {
		case report := <-results:
			reports[report.index] = report
			reported[report.index] = true
			pending--
		case <-retrieveCtx.Done():
			break collect
		}
	}

	if err := ctx.Err(); err != nil {
		return domain.RankedResult{}, err
	}

	succeeded := 0
	for i, strategy := range c.strategies {
		if !reported[i] {
			reports[i] = strategyReport{
				index: i,
				name:  strategy.Name(),
				err:   domain.WrapError(domain.ErrStrategyTimeout, "search "+strategy.Name(), context.DeadlineExceeded),
			}
		}
		report := reports[i]
		switch {
		case report.err == nil:
			succeeded++
			c.observer.ObserveStrategy(report.name, outcomeOK, report.duration)
		case domain.IsKind(report.err, domain.ErrStrategyTimeout):
			slog.Warn("retrieval_strategy_timeout", "strategy", report.name, "duration_ms", report.duration.Milliseconds())
			c.observer.ObserveStrategy(report.name, outcomeTimeout, report.duration)
		default:
			slog.Warn("retrieval_strategy_failed", "strategy", report.name, "error", report.err)
			c.observer.ObserveStrategy(report.name, outcomeError, report.duration)
		}
	}
	if succeeded == 0 {
		return domain.RankedResult{}, domain.WrapError(domain.ErrRetrievalUnavailable, "retrieve", fmt.Errorf("all %d strategies failed", len(c.strategies)))
	}

	merged := mergeStrategyHits(reports, c.cfg.weight)
	return domain.RankedResult{Documents: trimRanked(merged, topK)}, nil
}
