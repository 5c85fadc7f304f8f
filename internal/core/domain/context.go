package domain

import (
	"fmt"
	"strings"
)

// ContextBlock is the bounded text handed to a generation backend.
// Truncated marks a cut document snippet; HistoryTruncated marks recent turns
// left out to keep history within its share of the budget.
type ContextBlock struct {
	Text             string             `json:"text"`
	DocumentIDs      []string           `json:"document_ids"`
	Turns            []ConversationTurn `json:"turns,omitempty"`
	Truncated        bool               `json:"truncated"`
	HistoryTruncated bool               `json:"history_truncated,omitempty"`
}

var languageNames = map[string]string{
	"id": "Indonesian",
	"en": "English",
}

func LanguageInstruction(language string) string {
	name, ok := languageNames[strings.ToLower(strings.TrimSpace(language))]
	if !ok {
		return "Reply in the same language as the question."
	}
	return fmt.Sprintf("Reply in %s.", name)
}

// Prompt renders the block together with the employee question.
func (b ContextBlock) Prompt(question, language string) string {
	var history strings.Builder
	for _, turn := range b.Turns {
		history.WriteString(fmt.Sprintf("%s: %s\n", turn.Role, turn.Text))
	}

	documents := b.Text
	if strings.TrimSpace(documents) == "" {
		documents = "(no matching HR documents)"
	}

	return fmt.Sprintf(`You are an HR assistant answering employee questions.
Answer only from the HR documents below. If they are insufficient, say so and suggest contacting HR.
%s

Documents:
%s

Conversation:
%s
Question:
%s
`, LanguageInstruction(language), documents, history.String(), question)
}
