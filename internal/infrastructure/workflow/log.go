package workflow

import (
	"context"
	"log/slog"

	"github.com/kirillkom/hr-assistant/internal/core/domain"
)

// LogTrigger records workflow events when no engine is configured.
type LogTrigger struct{}

func (LogTrigger) Notify(_ context.Context, event domain.WorkflowEvent) error {
	slog.Warn("workflow_event_unrouted",
		"kind", event.Kind,
		"conversation_id", event.ConversationID,
		"keywords", event.MatchedKeywords,
	)
	return nil
}
