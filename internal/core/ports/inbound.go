package ports

import (
	"context"

	"github.com/kirillkom/hr-assistant/internal/core/domain"
)

// ChatService is the inbound contract for answering one employee question.
type ChatService interface {
	Handle(ctx context.Context, query domain.Query) (*domain.ChatResponse, error)
}

// BackendHealthReader exposes generation backend health snapshots.
type BackendHealthReader interface {
	Backends() []domain.BackendDescriptor
}

// KnowledgeIndexer is the inbound contract for loading HR knowledge into the document index.
type KnowledgeIndexer interface {
	IndexAll(ctx context.Context) (domain.IndexReport, error)
}
