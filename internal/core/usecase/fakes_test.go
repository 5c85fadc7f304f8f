package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/kirillkom/hr-assistant/internal/core/domain"
)

type strategyFake struct {
	name  string
	hits  []domain.SearchHit
	err   error
	delay time.Duration

	mu     sync.Mutex
	calls  int
	params domain.SearchParams
}

func (f *strategyFake) Name() string { return f.name }

func (f *strategyFake) Search(ctx context.Context, _ string, params domain.SearchParams) ([]domain.SearchHit, error) {
	f.mu.Lock()
	f.calls++
	f.params = params
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.hits, nil
}

func (f *strategyFake) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type backendFake struct {
	answer string
	err    error
	delay  time.Duration

	mu      sync.Mutex
	calls   int
	prompts []string
}

func (f *backendFake) Generate(ctx context.Context, contextText string, _ int) (string, error) {
	f.mu.Lock()
	f.calls++
	f.prompts = append(f.prompts, contextText)
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}

func (f *backendFake) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type callLog struct {
	mu    sync.Mutex
	order []string
}

func (l *callLog) add(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.order = append(l.order, name)
}

func (l *callLog) calls() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.order...)
}

type loggingBackend struct {
	name string
	log  *callLog
	err  error
}

func (b *loggingBackend) Generate(context.Context, string, int) (string, error) {
	b.log.add(b.name)
	if b.err != nil {
		return "", b.err
	}
	return "answer from " + b.name, nil
}

type conversationStoreFake struct {
	mu        sync.Mutex
	turns     map[string][]domain.ConversationTurn
	appends   int
	recentErr error
}

func newConversationStoreFake() *conversationStoreFake {
	return &conversationStoreFake{turns: make(map[string][]domain.ConversationTurn)}
}

func (f *conversationStoreFake) Append(_ context.Context, id string, turn domain.ConversationTurn) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.appends++
	f.turns[id] = append(f.turns[id], turn)
	return nil
}

func (f *conversationStoreFake) Recent(_ context.Context, id string, n int) ([]domain.ConversationTurn, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.recentErr != nil {
		return nil, f.recentErr
	}
	turns := f.turns[id]
	if len(turns) > n {
		turns = turns[len(turns)-n:]
	}
	return append([]domain.ConversationTurn(nil), turns...), nil
}

func (f *conversationStoreFake) Trim(_ context.Context, id string, maxChars int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.turns[id] = domain.TrimTurns(f.turns[id], maxChars)
	return nil
}

func (f *conversationStoreFake) appendCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.appends
}

type cacheFake struct {
	mu      sync.Mutex
	entries map[string]domain.GeneratedAnswer
	puts    int
}

func newCacheFake() *cacheFake {
	return &cacheFake{entries: make(map[string]domain.GeneratedAnswer)}
}

func (f *cacheFake) Get(_ context.Context, fingerprint string) (domain.GeneratedAnswer, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	answer, ok := f.entries[fingerprint]
	return answer, ok
}

func (f *cacheFake) Put(_ context.Context, fingerprint string, answer domain.GeneratedAnswer, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts++
	f.entries[fingerprint] = answer
}

func (f *cacheFake) putCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.puts
}

type workflowFake struct {
	events chan domain.WorkflowEvent
}

func newWorkflowFake() *workflowFake {
	return &workflowFake{events: make(chan domain.WorkflowEvent, 8)}
}

func (f *workflowFake) Notify(_ context.Context, event domain.WorkflowEvent) error {
	f.events <- event
	return nil
}

var errUnreachable = errors.New("dial tcp 10.0.0.5:6333: connect: connection refused")
