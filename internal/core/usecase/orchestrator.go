package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/hr-assistant/internal/core/domain"
	"github.com/kirillkom/hr-assistant/internal/core/ports"
)

type OrchestratorConfig struct {
	TopK                 int
	MaxQueryChars        int
	ConversationMaxChars int
	CacheTTL             time.Duration
	EscalationKeywords   []string
	WorkflowTimeout      time.Duration
}

func (c OrchestratorConfig) normalize() OrchestratorConfig {
	if c.TopK <= 0 {
		c.TopK = 5
	}
	if c.MaxQueryChars <= 0 {
		c.MaxQueryChars = 2000
	}
	if c.ConversationMaxChars <= 0 {
		c.ConversationMaxChars = 4000
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = time.Hour
	}
	if c.WorkflowTimeout <= 0 {
		c.WorkflowTimeout = 5 * time.Second
	}
	return c
}

// ChatOrchestrator runs one question through cache, retrieval, scoring,
// context assembly and generation.
type ChatOrchestrator struct {
	retriever     *RetrievalCoordinator
	scorer        *ConfidenceScorer
	assembler     *ContextAssembler
	fallback      *FallbackManager
	conversations ports.ConversationStore
	cache         ports.ResponseCache
	workflow      ports.WorkflowTrigger
	observer      Observer
	cfg           OrchestratorConfig

	locks *keyedLocks
}

func NewChatOrchestrator(
	retriever *RetrievalCoordinator,
	scorer *ConfidenceScorer,
	assembler *ContextAssembler,
	fallback *FallbackManager,
	conversations ports.ConversationStore,
	cache ports.ResponseCache,
	workflow ports.WorkflowTrigger,
	observer Observer,
	cfg OrchestratorConfig,
) *ChatOrchestrator {
	if observer == nil {
		observer = noopObserver{}
	}
	return &ChatOrchestrator{
		retriever:     retriever,
		scorer:        scorer,
		assembler:     assembler,
		fallback:      fallback,
		conversations: conversations,
		cache:         cache,
		workflow:      workflow,
		observer:      observer,
		cfg:           cfg.normalize(),
		locks:         newKeyedLocks(),
	}
}

// Handle answers one question. Only malformed input and caller cancellation
// are returned as errors; every backend-side failure degrades into an answer.
func (o *ChatOrchestrator) Handle(ctx context.Context, query domain.Query) (*domain.ChatResponse, error) {
	start := time.Now()

	query.Text = strings.TrimSpace(query.Text)
	if query.Text == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "handle chat", fmt.Errorf("query is required"))
	}
	if n := len([]rune(query.Text)); n > o.cfg.MaxQueryChars {
		return nil, domain.WrapError(domain.ErrInvalidInput, "handle chat", fmt.Errorf("query has %d characters, limit is %d", n, o.cfg.MaxQueryChars))
	}
	query.ConversationID = strings.TrimSpace(query.ConversationID)
	if query.ConversationID == "" {
		query.ConversationID = uuid.NewString()
	}
	query.Language = strings.ToLower(strings.TrimSpace(query.Language))

	unlock, err := o.locks.Lock(ctx, query.ConversationID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	history, err := o.conversations.Recent(ctx, query.ConversationID, o.assembler.HistoryTurns())
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		slog.Warn("conversation_history_unavailable", "conversation_id", query.ConversationID, "error", err)
		history = nil
	}

	fingerprint := Fingerprint(query.Text, history)
	if cached, ok := o.cache.Get(ctx, fingerprint); ok {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		o.recordTurns(ctx, query, cached)
		o.notifyWorkflow(ctx, query)
		return o.respond(query, cached, true, start), nil
	}

	ranked, err := o.retriever.Retrieve(ctx, query, o.cfg.TopK)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		slog.Warn("retrieval_degraded", "conversation_id", query.ConversationID, "error", err)
		ranked = domain.RankedResult{}
	}

	assessment := o.scorer.Score(ranked)
	block := o.assembler.Build(ranked, history)

	answer, err := o.fallback.Generate(ctx, block, query, assessment)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	o.recordTurns(ctx, query, answer)
	if !answer.Degraded {
		o.cache.Put(ctx, fingerprint, answer, o.cfg.CacheTTL)
	}
	o.notifyWorkflow(ctx, query)

	return o.respond(query, answer, false, start), nil
}

// Backends exposes generation backend health.
func (o *ChatOrchestrator) Backends() []domain.BackendDescriptor {
	return o.fallback.Backends()
}

func (o *ChatOrchestrator) respond(query domain.Query, answer domain.GeneratedAnswer, cached bool, start time.Time) *domain.ChatResponse {
	documentIDs := answer.DocumentIDs
	if documentIDs == nil {
		documentIDs = []string{}
	}
	band := answer.Band
	if band == "" {
		band = domain.ConfidenceNone
	}
	elapsed := time.Since(start)
	o.observer.ObserveChat(band, answer.Backend, cached, len(documentIDs), elapsed)

	return &domain.ChatResponse{
		ConversationID:        query.ConversationID,
		Answer:                answer.Text,
		ConfidenceScore:       answer.Confidence,
		ConfidenceBand:        band,
		ReferencedDocumentIDs: documentIDs,
		BackendUsed:           answer.Backend,
		ProcessingTimeMs:      elapsed.Milliseconds(),
		Cached:                cached,
	}
}

func (o *ChatOrchestrator) recordTurns(ctx context.Context, query domain.Query, answer domain.GeneratedAnswer) {
	now := time.Now().UTC()
	turns := []domain.ConversationTurn{
		{
			ID:        uuid.NewString(),
			Role:      domain.RoleUser,
			Text:      query.Text,
			CreatedAt: now,
		},
		{
			ID:          uuid.NewString(),
			Role:        domain.RoleAssistant,
			Text:        answer.Text,
			DocumentIDs: answer.DocumentIDs,
			CreatedAt:   now,
		},
	}
	for _, turn := range turns {
		if err := o.conversations.Append(ctx, query.ConversationID, turn); err != nil {
			slog.Warn("conversation_append_failed", "conversation_id", query.ConversationID, "role", turn.Role, "error", err)
			return
		}
	}
	if err := o.conversations.Trim(ctx, query.ConversationID, o.cfg.ConversationMaxChars); err != nil {
		slog.Warn("conversation_trim_failed", "conversation_id", query.ConversationID, "error", err)
	}
}

func (o *ChatOrchestrator) notifyWorkflow(ctx context.Context, query domain.Query) {
	if o.workflow == nil {
		return
	}
	matched := matchKeywords(query.Text, o.cfg.EscalationKeywords)
	if len(matched) == 0 {
		return
	}

	event := domain.WorkflowEvent{
		Kind:            domain.WorkflowEventEscalation,
		ConversationID:  query.ConversationID,
		Query:           query.Text,
		Language:        query.Language,
		MatchedKeywords: matched,
		OccurredAt:      time.Now().UTC(),
	}
	notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.cfg.WorkflowTimeout)
	go func() {
		defer cancel()
		if err := o.workflow.Notify(notifyCtx, event); err != nil {
			slog.Warn("workflow_notify_failed", "conversation_id", event.ConversationID, "error", err)
		}
	}()
}
