package domain

import "time"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type ConversationTurn struct {
	ID          string    `json:"id"`
	Role        string    `json:"role"`
	Text        string    `json:"text"`
	DocumentIDs []string  `json:"document_ids,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type Conversation struct {
	ID         string             `json:"id"`
	Turns      []ConversationTurn `json:"turns"`
	CreatedAt  time.Time          `json:"created_at"`
	LastAccess time.Time          `json:"last_access"`
}

func (c Conversation) LastTurn() (ConversationTurn, bool) {
	if len(c.Turns) == 0 {
		return ConversationTurn{}, false
	}
	return c.Turns[len(c.Turns)-1], true
}

// TurnsSize is the character budget consumed by turns, counted in runes.
func TurnsSize(turns []ConversationTurn) int {
	total := 0
	for _, turn := range turns {
		total += len([]rune(turn.Text))
	}
	return total
}

// TrimTurns drops the oldest turns until the total size fits maxChars.
// The most recent user turn is never dropped; if it alone exceeds the budget
// its text is truncated instead. maxChars <= 0 disables trimming.
func TrimTurns(turns []ConversationTurn, maxChars int) []ConversationTurn {
	if maxChars <= 0 || TurnsSize(turns) <= maxChars {
		return turns
	}

	keep := -1
	for i := len(turns) - 1; i >= 0; i-- {
		if turns[i].Role == RoleUser {
			keep = i
			break
		}
	}

	size := TurnsSize(turns)
	drop := make([]bool, len(turns))
	for i := range turns {
		if size <= maxChars {
			break
		}
		if i == keep {
			continue
		}
		drop[i] = true
		size -= len([]rune(turns[i].Text))
	}

	out := make([]ConversationTurn, 0, len(turns))
	for i, turn := range turns {
		if drop[i] {
			continue
		}
		if i == keep && size > maxChars {
			turn.Text = TruncateRunes(turn.Text, maxChars)
		}
		out = append(out, turn)
	}
	return out
}

// TruncateRunes cuts text to at most limit runes without splitting a code point.
func TruncateRunes(text string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}
