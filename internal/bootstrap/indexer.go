package bootstrap

import (
	"context"
	"fmt"

	"github.com/kirillkom/hr-assistant/internal/config"
	"github.com/kirillkom/hr-assistant/internal/core/usecase"
	"github.com/kirillkom/hr-assistant/internal/infrastructure/chunking"
	"github.com/kirillkom/hr-assistant/internal/infrastructure/knowledge"
	"github.com/kirillkom/hr-assistant/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/hr-assistant/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/hr-assistant/internal/infrastructure/resilience"
	"github.com/kirillkom/hr-assistant/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/hr-assistant/internal/infrastructure/vector/qdrant"
)

// Indexer loads the knowledge directory into postgres and qdrant.
type Indexer struct {
	Config  config.Config
	IndexUC *usecase.IndexKnowledgeUseCase

	closeFn func()
}

func NewIndexer(ctx context.Context, cfg config.Config) (*Indexer, error) {
	if cfg.PostgresDSN == "" {
		return nil, fmt.Errorf("indexer requires postgres_dsn for the faq article table")
	}
	db, err := openPostgres(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}

	storage, err := localfs.New(cfg.KnowledgeDir)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init knowledge storage: %w", err)
	}

	executor := newExecutor(resilience.BackgroundConfig(), cfg, nil)
	ollamaClient := ollama.New(cfg.OllamaURL, executor)

	indexUC := usecase.NewIndexKnowledgeUseCase(
		storage,
		knowledge.DefaultRegistry(),
		postgres.NewArticleRepository(db),
		chunking.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap),
		ollama.NewEmbedder(ollamaClient, cfg.EmbedModel),
		qdrant.New(cfg.QdrantURL, cfg.QdrantCollection, executor),
	)

	return &Indexer{
		Config:  cfg,
		IndexUC: indexUC,
		closeFn: func() {
			_ = db.Close()
		},
	}, nil
}

func (i *Indexer) Close() {
	if i.closeFn != nil {
		i.closeFn()
	}
}
