package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kirillkom/hr-assistant/internal/core/domain"
)

func TestConversationStoreRecentReturnsOldestFirst(t *testing.T) {
	store := NewConversationStore(ConversationStoreConfig{})
	ctx := context.Background()

	for i := 1; i <= 4; i++ {
		if err := store.Append(ctx, "conv-1", domain.ConversationTurn{Role: domain.RoleUser, Text: fmt.Sprintf("q%d", i)}); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	turns, err := store.Recent(ctx, "conv-1", 2)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(turns) != 2 || turns[0].Text != "q3" || turns[1].Text != "q4" {
		t.Fatalf("unexpected recent turns: %+v", turns)
	}
}

func TestConversationStoreUnknownConversationIsEmpty(t *testing.T) {
	store := NewConversationStore(ConversationStoreConfig{})
	turns, err := store.Recent(context.Background(), "missing", 6)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(turns) != 0 {
		t.Fatalf("expected no turns, got %d", len(turns))
	}
	if err := store.Trim(context.Background(), "missing", 10); err != nil {
		t.Fatalf("Trim() error = %v", err)
	}
}

func TestConversationStoreEnforcesMaxTurns(t *testing.T) {
	store := NewConversationStore(ConversationStoreConfig{MaxTurns: 3})
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_ = store.Append(ctx, "conv", domain.ConversationTurn{Role: domain.RoleUser, Text: fmt.Sprintf("t%d", i)})
	}

	turns, _ := store.Recent(ctx, "conv", 10)
	if len(turns) != 3 {
		t.Fatalf("expected 3 turns, got %d", len(turns))
	}
	if turns[0].Text != "t2" {
		t.Fatalf("expected oldest turns dropped first, got %+v", turns)
	}
}

func TestConversationStoreTrimKeepsLatestUserTurn(t *testing.T) {
	store := NewConversationStore(ConversationStoreConfig{})
	ctx := context.Background()
	_ = store.Append(ctx, "conv", domain.ConversationTurn{Role: domain.RoleUser, Text: strings.Repeat("a", 40)})
	_ = store.Append(ctx, "conv", domain.ConversationTurn{Role: domain.RoleAssistant, Text: strings.Repeat("b", 40)})
	_ = store.Append(ctx, "conv", domain.ConversationTurn{Role: domain.RoleUser, Text: strings.Repeat("c", 30)})

	if err := store.Trim(ctx, "conv", 50); err != nil {
		t.Fatalf("Trim() error = %v", err)
	}

	turns, _ := store.Recent(ctx, "conv", 10)
	if size := domain.TurnsSize(turns); size > 50 {
		t.Fatalf("expected size <= 50, got %d", size)
	}
	last := turns[len(turns)-1]
	if last.Role != domain.RoleUser || last.Text != strings.Repeat("c", 30) {
		t.Fatalf("latest user turn must survive trim, got %+v", turns)
	}
}

func TestConversationStoreExpiresIdleConversations(t *testing.T) {
	store := NewConversationStore(ConversationStoreConfig{IdleTTL: time.Minute})
	now := time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	_ = store.Append(context.Background(), "conv", domain.ConversationTurn{Role: domain.RoleUser, Text: "hello"})

	now = now.Add(2 * time.Minute)
	turns, err := store.Recent(context.Background(), "conv", 5)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(turns) != 0 {
		t.Fatalf("expected expired conversation to read empty, got %+v", turns)
	}
	if store.Len() != 0 {
		t.Fatalf("expected lazy eviction, store has %d entries", store.Len())
	}
}

func TestConversationStoreSweep(t *testing.T) {
	store := NewConversationStore(ConversationStoreConfig{IdleTTL: time.Minute})
	now := time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	_ = store.Append(context.Background(), "old", domain.ConversationTurn{Role: domain.RoleUser, Text: "a"})
	now = now.Add(50 * time.Second)
	_ = store.Append(context.Background(), "fresh", domain.ConversationTurn{Role: domain.RoleUser, Text: "b"})

	removed := store.Sweep(now.Add(30 * time.Second))
	if removed != 1 {
		t.Fatalf("expected one removed conversation, got %d", removed)
	}
	if store.Len() != 1 {
		t.Fatalf("expected fresh conversation to stay, len=%d", store.Len())
	}
}

func TestConversationStoreConcurrentAppends(t *testing.T) {
	store := NewConversationStore(ConversationStoreConfig{MaxTurns: 1000})
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = store.Append(ctx, "shared", domain.ConversationTurn{Role: domain.RoleUser, Text: fmt.Sprintf("m%d", i)})
			_ = store.Append(ctx, fmt.Sprintf("own-%d", i), domain.ConversationTurn{Role: domain.RoleUser, Text: "x"})
		}(i)
	}
	wg.Wait()

	turns, _ := store.Recent(ctx, "shared", 1000)
	if len(turns) != 50 {
		t.Fatalf("expected 50 turns, got %d", len(turns))
	}
	if store.Len() != 51 {
		t.Fatalf("expected 51 conversations, got %d", store.Len())
	}
}
