package ports

import (
	"context"
	"io"
	"time"

	"github.com/kirillkom/hr-assistant/internal/core/domain"
)

// SearchStrategy is one retrieval method over the HR document index.
type SearchStrategy interface {
	Name() string
	Search(ctx context.Context, text string, params domain.SearchParams) ([]domain.SearchHit, error)
}

// GenerationBackend turns an assembled prompt into answer text.
type GenerationBackend interface {
	Generate(ctx context.Context, contextText string, maxTokens int) (string, error)
}

// ConversationStore keeps per-conversation turn history.
type ConversationStore interface {
	Append(ctx context.Context, conversationID string, turn domain.ConversationTurn) error
	Recent(ctx context.Context, conversationID string, n int) ([]domain.ConversationTurn, error)
	Trim(ctx context.Context, conversationID string, maxChars int) error
}

// ResponseCache memoizes generated answers by query fingerprint.
type ResponseCache interface {
	Get(ctx context.Context, fingerprint string) (domain.GeneratedAnswer, bool)
	Put(ctx context.Context, fingerprint string, answer domain.GeneratedAnswer, ttl time.Duration)
}

// WorkflowTrigger notifies the external HR workflow engine.
type WorkflowTrigger interface {
	Notify(ctx context.Context, event domain.WorkflowEvent) error
}

// Embedder builds vectors for chunks and query text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Chunker splits text into semantically usable chunks.
type Chunker interface {
	Split(text string) []string
}

// ArticleRepository persists knowledge articles for full-text FAQ lookup.
type ArticleRepository interface {
	Upsert(ctx context.Context, article domain.KnowledgeArticle) error
}

// VectorIndex stores article chunks with dense and sparse vectors.
type VectorIndex interface {
	IndexChunks(ctx context.Context, article domain.KnowledgeArticle, chunks []string, vectors [][]float32) error
}

// ArticleLoader decodes knowledge articles from one source file.
type ArticleLoader interface {
	Supports(path string) bool
	Load(ctx context.Context, path string, body io.Reader) ([]domain.KnowledgeArticle, error)
}

// SourceStorage lists and opens knowledge source files.
type SourceStorage interface {
	List(ctx context.Context) ([]string, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}
