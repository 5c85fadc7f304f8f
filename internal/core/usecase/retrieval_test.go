package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/kirillkom/hr-assistant/internal/core/domain"
	"github.com/kirillkom/hr-assistant/internal/core/ports"
)

func TestRetrieveMergesAndBreaksTiesByAgreementThenID(t *testing.T) {
	semantic := &strategyFake{name: "semantic", hits: []domain.SearchHit{
		{DocumentID: "doc-a", Title: "Overtime", Score: 0.75},
		{DocumentID: "doc-b", Title: "Leave", Score: 0.5},
	}}
	lexical := &strategyFake{name: "lexical", hits: []domain.SearchHit{
		{DocumentID: "doc-b", Score: 0.25, Snippet: "Open the HR portal and choose Leave Request."},
		{DocumentID: "doc-c", Title: "Sick leave", Score: 0.375},
	}}
	faq := &strategyFake{name: "faq", hits: []domain.SearchHit{
		{DocumentID: "doc-c", Score: 0.375},
	}}

	coordinator := NewRetrievalCoordinator([]ports.SearchStrategy{semantic, lexical, faq}, RetrievalConfig{}, nil)
	result, err := coordinator.Retrieve(context.Background(), domain.Query{Text: "leave"}, 5)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}

	got := result.IDs()
	want := []string{"doc-b", "doc-c", "doc-a"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("unexpected order: got %v want %v", got, want)
	}
	top := result.Documents[0]
	if top.Title != "Leave" || top.Snippet == "" {
		t.Fatalf("expected merged candidate fields, got %+v", top)
	}
	if len(top.Strategies) != 2 {
		t.Fatalf("expected 2 contributing strategies, got %v", top.Strategies)
	}
}

func TestRetrieveKeepsBestScorePerStrategyAndAppliesWeights(t *testing.T) {
	semantic := &strategyFake{name: "semantic", hits: []domain.SearchHit{
		{DocumentID: "doc-a", Score: 0.25},
		{DocumentID: "doc-a", Score: 0.5},
	}}
	faq := &strategyFake{name: "faq", hits: []domain.SearchHit{
		{DocumentID: "doc-a", Score: 0.5},
	}}

	coordinator := NewRetrievalCoordinator(
		[]ports.SearchStrategy{semantic, faq},
		RetrievalConfig{Weights: map[string]float64{"faq": 2}},
		nil,
	)
	result, err := coordinator.Retrieve(context.Background(), domain.Query{Text: "q"}, 5)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if got := result.Documents[0].Score; got != 1.5 {
		t.Fatalf("expected merged score 1.5, got %v", got)
	}
	if coordinator.MaxScore() != 3 {
		t.Fatalf("expected max score 3, got %v", coordinator.MaxScore())
	}
}

func TestRetrieveToleratesFailedStrategy(t *testing.T) {
	broken := &strategyFake{name: "semantic", err: errUnreachable}
	faq := &strategyFake{name: "faq", hits: []domain.SearchHit{{DocumentID: "faq-1", Score: 0.8}}}

	coordinator := NewRetrievalCoordinator([]ports.SearchStrategy{broken, faq}, RetrievalConfig{}, nil)
	result, err := coordinator.Retrieve(context.Background(), domain.Query{Text: "q"}, 5)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(result.Documents) != 1 || result.Documents[0].DocumentID != "faq-1" {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestRetrieveAllStrategiesFailed(t *testing.T) {
	coordinator := NewRetrievalCoordinator([]ports.SearchStrategy{
		&strategyFake{name: "semantic", err: errUnreachable},
		&strategyFake{name: "lexical", err: errUnreachable},
	}, RetrievalConfig{}, nil)

	result, err := coordinator.Retrieve(context.Background(), domain.Query{Text: "q"}, 5)
	if !errors.Is(err, domain.ErrRetrievalUnavailable) {
		t.Fatalf("expected ErrRetrievalUnavailable, got %v", err)
	}
	if !result.Empty() {
		t.Fatalf("expected empty result, got %+v", result)
	}
}

func TestRetrieveAbandonsSlowStrategy(t *testing.T) {
	slow := &strategyFake{name: "semantic", delay: time.Second, hits: []domain.SearchHit{{DocumentID: "late", Score: 1}}}
	fast := &strategyFake{name: "faq", hits: []domain.SearchHit{{DocumentID: "fast", Score: 0.6}}}

	coordinator := NewRetrievalCoordinator(
		[]ports.SearchStrategy{slow, fast},
		RetrievalConfig{StrategyTimeout: 20 * time.Millisecond, Timeout: 200 * time.Millisecond},
		nil,
	)

	start := time.Now()
	result, err := coordinator.Retrieve(context.Background(), domain.Query{Text: "q"}, 5)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Fatalf("slow strategy was awaited: %v", elapsed)
	}
	if ids := result.IDs(); len(ids) != 1 || ids[0] != "fast" {
		t.Fatalf("expected only fast hits, got %v", ids)
	}
}

func TestRetrieveCapsAtTopKAndWidensStrategyLimit(t *testing.T) {
	hits := make([]domain.SearchHit, 0, 8)
	for i := 0; i < 8; i++ {
		hits = append(hits, domain.SearchHit{DocumentID: fmt.Sprintf("doc-%d", i), Score: float64(i+1) / 10})
	}
	strategy := &strategyFake{name: "semantic", hits: hits}

	coordinator := NewRetrievalCoordinator([]ports.SearchStrategy{strategy}, RetrievalConfig{}, nil)
	result, err := coordinator.Retrieve(context.Background(), domain.Query{Text: "q", Language: "id"}, 0)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(result.Documents) != 5 {
		t.Fatalf("expected default topK=5, got %d", len(result.Documents))
	}
	if result.Documents[0].DocumentID != "doc-7" {
		t.Fatalf("expected best document first, got %s", result.Documents[0].DocumentID)
	}
	if strategy.params.Limit != 15 || strategy.params.Language != "id" {
		t.Fatalf("unexpected strategy params: %+v", strategy.params)
	}
}

func TestRetrieveNoCandidatesIsNotAnError(t *testing.T) {
	coordinator := NewRetrievalCoordinator([]ports.SearchStrategy{&strategyFake{name: "faq"}}, RetrievalConfig{}, nil)
	result, err := coordinator.Retrieve(context.Background(), domain.Query{Text: "q"}, 5)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if !result.Empty() {
		t.Fatalf("expected empty result")
	}
}

func TestRetrieveReturnsCallerCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	coordinator := NewRetrievalCoordinator([]ports.SearchStrategy{
		&strategyFake{name: "faq", delay: 50 * time.Millisecond},
	}, RetrievalConfig{}, nil)
	_, err := coordinator.Retrieve(ctx, domain.Query{Text: "q"}, 5)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
