package usecase

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/kirillkom/hr-assistant/internal/core/domain"
)

const truncationMarker = "…"

type ContextConfig struct {
	MaxChars   int
	TurnPairs  int
	ScoreFloor float64
}

func (c ContextConfig) normalize() ContextConfig {
	if c.MaxChars <= 0 {
		c.MaxChars = 2000
	}
	if c.TurnPairs < 0 {
		c.TurnPairs = 0
	}
	if c.ScoreFloor < 0 {
		c.ScoreFloor = 0
	}
	return c
}

type ContextAssembler struct {
	cfg ContextConfig
}

func NewContextAssembler(cfg ContextConfig) *ContextAssembler {
	return &ContextAssembler{cfg: cfg.normalize()}
}

// HistoryTurns is how many recent turns Build can use.
func (a *ContextAssembler) HistoryTurns() int {
	return a.cfg.TurnPairs * 2
}

// Build packs document snippets in rank order and the most recent turns into
// at most MaxChars runes. History takes at most half of the budget; documents
// fill the rest and the snippet crossing the limit is cut, not dropped.
func (a *ContextAssembler) Build(result domain.RankedResult, history []domain.ConversationTurn) domain.ContextBlock {
	turns, dropped := a.selectTurns(history)
	remaining := a.cfg.MaxChars - domain.TurnsSize(turns)

	block := domain.ContextBlock{
		DocumentIDs:      make([]string, 0, len(result.Documents)),
		Turns:            turns,
		HistoryTruncated: dropped > 0,
	}
	if dropped > 0 {
		slog.Debug("context_history_truncated",
			"dropped_turns", dropped,
			"kept_turns", len(turns),
			"history_budget", a.cfg.MaxChars/2,
		)
	}

	var text strings.Builder
	for _, doc := range result.Documents {
		if remaining <= 0 {
			block.Truncated = true
			break
		}
		if doc.Score < a.cfg.ScoreFloor {
			continue
		}

		entry := formatContextEntry(len(block.DocumentIDs)+1, doc)
		size := len([]rune(entry))
		if size > remaining {
			entry = domain.TruncateRunes(entry, remaining-1) + truncationMarker
			size = remaining
			block.Truncated = true
		}
		text.WriteString(entry)
		remaining -= size
		block.DocumentIDs = append(block.DocumentIDs, doc.DocumentID)
	}

	block.Text = strings.TrimRight(text.String(), "\n")
	return block
}

// selectTurns keeps the newest turns that fit in half the budget. dropped
// counts turns within the TurnPairs window that did not fit.
func (a *ContextAssembler) selectTurns(history []domain.ConversationTurn) (turns []domain.ConversationTurn, dropped int) {
	limit := a.HistoryTurns()
	if limit == 0 || len(history) == 0 {
		return nil, 0
	}
	if len(history) > limit {
		history = history[len(history)-limit:]
	}

	budget := a.cfg.MaxChars / 2
	for len(history) > 0 && domain.TurnsSize(history) > budget {
		history = history[1:]
		dropped++
	}

	turns = make([]domain.ConversationTurn, len(history))
	copy(turns, history)
	return turns, dropped
}

func formatContextEntry(n int, doc domain.RankedDocument) string {
	title := doc.Title
	if title == "" {
		title = doc.DocumentID
	}
	header := fmt.Sprintf("[%d] %s", n, title)
	if doc.Category != "" {
		header += " (" + doc.Category + ")"
	}
	return header + "\n" + strings.TrimSpace(doc.Snippet) + "\n\n"
}
