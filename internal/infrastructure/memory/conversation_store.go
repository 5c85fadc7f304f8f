package memory

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	cmap "github.com/orcaman/concurrent-map"

	"github.com/kirillkom/hr-assistant/internal/core/domain"
)

type ConversationStoreConfig struct {
	IdleTTL  time.Duration
	MaxTurns int
}

// ConversationStore keeps conversations in a sharded map. Each conversation has
// its own lock, so unrelated conversations never contend. Idle conversations
// are dropped on the next access or by Sweep.
type ConversationStore struct {
	entries  cmap.ConcurrentMap
	idleTTL  time.Duration
	maxTurns int
	now      func() time.Time
}

type conversationEntry struct {
	mu      sync.Mutex
	conv    domain.Conversation
	touched atomic.Int64
	removed atomic.Bool
}

func NewConversationStore(cfg ConversationStoreConfig) *ConversationStore {
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 30 * time.Minute
	}
	if cfg.MaxTurns <= 0 {
		cfg.MaxTurns = 40
	}
	return &ConversationStore{
		entries:  cmap.New(),
		idleTTL:  cfg.IdleTTL,
		maxTurns: cfg.MaxTurns,
		now:      time.Now,
	}
}

func (s *ConversationStore) Append(_ context.Context, conversationID string, turn domain.ConversationTurn) error {
	now := s.now()
	for {
		entry := s.entry(conversationID, now)
		entry.mu.Lock()
		if entry.removed.Load() {
			entry.mu.Unlock()
			continue
		}
		if turn.CreatedAt.IsZero() {
			turn.CreatedAt = now.UTC()
		}
		entry.conv.Turns = append(entry.conv.Turns, turn)
		if overflow := len(entry.conv.Turns) - s.maxTurns; overflow > 0 {
			slog.Debug("conversation_overflow", "conversation_id", conversationID, "dropped_turns", overflow, "error", domain.ErrConversationOverflow)
			entry.conv.Turns = append([]domain.ConversationTurn(nil), entry.conv.Turns[overflow:]...)
		}
		entry.conv.LastAccess = now
		entry.touched.Store(now.UnixNano())
		entry.mu.Unlock()
		return nil
	}
}

// Recent returns up to n turns, oldest first. Unknown or expired conversations read as empty.
func (s *ConversationStore) Recent(_ context.Context, conversationID string, n int) ([]domain.ConversationTurn, error) {
	if n <= 0 {
		return nil, nil
	}
	entry, ok := s.live(conversationID, s.now())
	if !ok {
		return nil, nil
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	turns := entry.conv.Turns
	if len(turns) > n {
		turns = turns[len(turns)-n:]
	}
	out := make([]domain.ConversationTurn, len(turns))
	copy(out, turns)
	return out, nil
}

func (s *ConversationStore) Trim(_ context.Context, conversationID string, maxChars int) error {
	entry, ok := s.live(conversationID, s.now())
	if !ok {
		return nil
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	entry.conv.Turns = domain.TrimTurns(entry.conv.Turns, maxChars)
	return nil
}

// Sweep drops every conversation idle for longer than the TTL and returns how many were removed.
func (s *ConversationStore) Sweep(now time.Time) int {
	removed := 0
	for item := range s.entries.IterBuffered() {
		entry, ok := item.Val.(*conversationEntry)
		if !ok || !s.expired(entry, now) {
			continue
		}
		if s.remove(item.Key, entry, now) {
			removed++
		}
	}
	return removed
}

func (s *ConversationStore) Len() int {
	return s.entries.Count()
}

func (s *ConversationStore) entry(conversationID string, now time.Time) *conversationEntry {
	if entry, ok := s.live(conversationID, now); ok {
		return entry
	}
	fresh := &conversationEntry{
		conv: domain.Conversation{
			ID:         conversationID,
			CreatedAt:  now,
			LastAccess: now,
		},
	}
	fresh.touched.Store(now.UnixNano())
	s.entries.SetIfAbsent(conversationID, fresh)

	value, _ := s.entries.Get(conversationID)
	if entry, ok := value.(*conversationEntry); ok {
		return entry
	}
	return fresh
}

func (s *ConversationStore) live(conversationID string, now time.Time) (*conversationEntry, bool) {
	value, ok := s.entries.Get(conversationID)
	if !ok {
		return nil, false
	}
	entry, ok := value.(*conversationEntry)
	if !ok {
		return nil, false
	}
	if s.expired(entry, now) {
		s.remove(conversationID, entry, now)
		return nil, false
	}
	entry.touched.Store(now.UnixNano())
	return entry, true
}

func (s *ConversationStore) expired(entry *conversationEntry, now time.Time) bool {
	return now.Sub(time.Unix(0, entry.touched.Load())) > s.idleTTL
}

// remove deletes the entry only if it is still the mapped value and still idle.
func (s *ConversationStore) remove(conversationID string, entry *conversationEntry, now time.Time) bool {
	return s.entries.RemoveCb(conversationID, func(_ string, v interface{}, exists bool) bool {
		if !exists || v != entry || !s.expired(entry, now) {
			return false
		}
		entry.removed.Store(true)
		return true
	})
}
