package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/kirillkom/hr-assistant/internal/config"
	"github.com/kirillkom/hr-assistant/internal/core/domain"
	"github.com/kirillkom/hr-assistant/internal/core/ports"
	"github.com/kirillkom/hr-assistant/internal/core/usecase"
	"github.com/kirillkom/hr-assistant/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/hr-assistant/internal/infrastructure/llm/openai"
	"github.com/kirillkom/hr-assistant/internal/infrastructure/memory"
	"github.com/kirillkom/hr-assistant/internal/infrastructure/queue/nats"
	"github.com/kirillkom/hr-assistant/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/hr-assistant/internal/infrastructure/resilience"
	"github.com/kirillkom/hr-assistant/internal/infrastructure/vector/qdrant"
	"github.com/kirillkom/hr-assistant/internal/infrastructure/workflow"
	"github.com/kirillkom/hr-assistant/internal/observability/metrics"
)

// App is the chat side of the assistant: everything behind ports.ChatService.
type App struct {
	Config  config.Config
	Metrics *metrics.HTTPServerMetrics
	Chat    *usecase.ChatOrchestrator

	sweepers      map[string]memory.Sweeper
	conversations *postgres.ConversationRepository

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, service string) (*App, error) {
	httpMetrics := metrics.NewHTTPServerMetrics(service)
	executor := newExecutor(resilience.InteractiveConfig(), cfg, httpMetrics.ObserveDependencyState)

	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	var db *sql.DB
	if cfg.PostgresDSN != "" {
		opened, err := openPostgres(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		db = opened
		closers = append(closers, func() { _ = db.Close() })
	}

	ollamaClient := ollama.New(cfg.OllamaURL, executor)
	embedder := ollama.NewEmbedder(ollamaClient, cfg.EmbedModel)
	vectors := qdrant.New(cfg.QdrantURL, cfg.QdrantCollection, executor)

	strategies := make([]ports.SearchStrategy, 0, 3)
	weights := cfg.StrategyWeights()
	addStrategy := func(strategy ports.SearchStrategy) {
		if weights[strategy.Name()] <= 0 {
			slog.Info("retrieval_strategy_disabled", "strategy", strategy.Name(), "reason", "zero weight")
			return
		}
		strategies = append(strategies, strategy)
	}
	addStrategy(qdrant.NewSemanticStrategy(vectors, embedder))
	addStrategy(qdrant.NewLexicalStrategy(vectors))
	if db != nil {
		addStrategy(postgres.NewFAQStrategy(postgres.NewArticleRepository(db)))
	} else {
		slog.Info("retrieval_strategy_disabled", "strategy", "faq", "reason", "postgres_dsn not set")
	}

	retriever := usecase.NewRetrievalCoordinator(strategies, usecase.RetrievalConfig{
		TopK:            cfg.RetrievalTopK,
		StrategyTimeout: cfg.StrategyTimeout,
		Timeout:         cfg.RetrievalTimeout,
		Weights:         weights,
	}, httpMetrics)
	scorer := usecase.NewConfidenceScorer(usecase.ConfidenceConfig{
		MaxScore:       retriever.MaxScore(),
		AgreementBoost: cfg.AgreementBoost,
	})
	assembler := usecase.NewContextAssembler(usecase.ContextConfig{
		MaxChars:   cfg.ContextMaxChars,
		TurnPairs:  cfg.ContextTurnPairs,
		ScoreFloor: cfg.ContextScoreFloor,
	})
	fallback := usecase.NewFallbackManager(backendSpecs(cfg, ollamaClient), usecase.FallbackConfig{
		FailureThreshold:      cfg.BreakerFailureThreshold,
		Window:                cfg.BreakerWindow,
		Cooldown:              cfg.BreakerCooldown,
		MaxCooldown:           cfg.BreakerMaxCooldown,
		LightweightConfidence: cfg.LightweightConfidence,
	}, httpMetrics)

	cache := memory.NewResponseCache(memory.ResponseCacheConfig{
		DefaultTTL: cfg.CacheTTL,
		MaxEntries: cfg.CacheMaxEntries,
	})
	sweepers := map[string]memory.Sweeper{"response_cache": cache}

	var conversations ports.ConversationStore
	var durable *postgres.ConversationRepository
	if cfg.ConversationStore == "postgres" {
		durable = postgres.NewConversationRepository(db)
		conversations = durable
	} else {
		store := memory.NewConversationStore(memory.ConversationStoreConfig{
			IdleTTL:  cfg.ConversationTTL,
			MaxTurns: cfg.ConversationMaxTurns,
		})
		sweepers["conversation_store"] = store
		conversations = store
	}

	trigger, closeTrigger, err := newWorkflowTrigger(cfg, executor)
	if err != nil {
		closeAll()
		return nil, err
	}
	if closeTrigger != nil {
		closers = append(closers, closeTrigger)
	}

	chat := usecase.NewChatOrchestrator(
		retriever,
		scorer,
		assembler,
		fallback,
		conversations,
		cache,
		trigger,
		httpMetrics,
		usecase.OrchestratorConfig{
			TopK:                 cfg.RetrievalTopK,
			MaxQueryChars:        cfg.MaxQueryChars,
			ConversationMaxChars: cfg.ConversationMaxChars,
			CacheTTL:             cfg.CacheTTL,
			EscalationKeywords:   cfg.EscalationKeywords,
			WorkflowTimeout:      cfg.WorkflowTimeout,
		},
	)

	slog.Info("chat_app_ready",
		"strategies", len(strategies),
		"primary_provider", cfg.PrimaryProvider,
		"conversation_store", cfg.ConversationStore,
	)

	return &App{
		Config:        cfg,
		Metrics:       httpMetrics,
		Chat:          chat,
		sweepers:      sweepers,
		conversations: durable,
		closeFn:       closeAll,
	}, nil
}

// Run sweeps expired cache entries and idle conversations until ctx is done.
func (a *App) Run(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		memory.RunJanitor(ctx, a.Config.SweepInterval, a.sweepers)
	}()

	if a.conversations != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.sweepDurableConversations(ctx)
		}()
	}
	wg.Wait()
}

func (a *App) sweepDurableConversations(ctx context.Context) {
	interval := a.Config.SweepInterval
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			removed, err := a.conversations.DeleteIdle(ctx, now.Add(-a.Config.ConversationTTL))
			if err != nil {
				slog.Warn("conversation_sweep_failed", "error", err)
				continue
			}
			if removed > 0 {
				slog.Debug("conversation_sweep", "removed", removed)
			}
		}
	}
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

func newExecutor(profile resilience.Config, cfg config.Config, listener resilience.StateListener) *resilience.Executor {
	rcfg := profile.WithRetry(cfg.RetryMaxAttempts, cfg.RetryInitialBackoff, cfg.RetryMaxBackoff)
	rcfg.OnStateChange = listener
	return resilience.NewExecutor(rcfg)
}

func openPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := postgres.OpenDB(dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return db, nil
}

func backendSpecs(cfg config.Config, ollamaClient *ollama.Client) []usecase.BackendSpec {
	var primary ports.GenerationBackend = ollama.NewGenerator(ollamaClient, cfg.PrimaryModel)
	if cfg.PrimaryProvider == "openai" {
		primary = openai.NewGenerator(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.PrimaryModel)
	}
	return []usecase.BackendSpec{
		{
			Name:      domain.BackendPrimary,
			Backend:   primary,
			Priority:  0,
			Timeout:   cfg.PrimaryTimeout,
			MaxTokens: cfg.PrimaryMaxTokens,
		},
		{
			Name:        domain.BackendLightweight,
			Backend:     ollama.NewGenerator(ollamaClient, cfg.LightweightModel),
			Priority:    1,
			Timeout:     cfg.LightweightTimeout,
			MaxTokens:   cfg.LightweightMaxTokens,
			Lightweight: true,
		},
	}
}

// newWorkflowTrigger prefers the NATS relay, then a direct webhook, then a
// log-only trigger.
func newWorkflowTrigger(cfg config.Config, executor *resilience.Executor) (ports.WorkflowTrigger, func(), error) {
	switch {
	case cfg.NATSURL != "":
		queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.WorkflowSubject, nats.Options{
			ClientName:         "hr-assistant-api",
			ResilienceExecutor: executor,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("init workflow queue: %w", err)
		}
		return queue, queue.Close, nil
	case cfg.WorkflowWebhookURL != "":
		return workflow.NewWebhook(cfg.WorkflowWebhookURL, cfg.WorkflowWebhookToken, executor), nil, nil
	default:
		slog.Warn("workflow_trigger_unconfigured", "hint", "set nats_url or workflow_webhook_url")
		return workflow.LogTrigger{}, nil, nil
	}
}
