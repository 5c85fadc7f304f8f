package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/kirillkom/hr-assistant/internal/core/domain"
	"github.com/kirillkom/hr-assistant/internal/core/ports"
)

// IndexKnowledgeUseCase loads HR sources and writes them to both the FAQ
// table and the vector index.
type IndexKnowledgeUseCase struct {
	storage  ports.SourceStorage
	loader   ports.ArticleLoader
	articles ports.ArticleRepository
	chunker  ports.Chunker
	embedder ports.Embedder
	vectors  ports.VectorIndex
}

func NewIndexKnowledgeUseCase(
	storage ports.SourceStorage,
	loader ports.ArticleLoader,
	articles ports.ArticleRepository,
	chunker ports.Chunker,
	embedder ports.Embedder,
	vectors ports.VectorIndex,
) *IndexKnowledgeUseCase {
	return &IndexKnowledgeUseCase{
		storage:  storage,
		loader:   loader,
		articles: articles,
		chunker:  chunker,
		embedder: embedder,
		vectors:  vectors,
	}
}

func (uc *IndexKnowledgeUseCase) IndexAll(ctx context.Context) (domain.IndexReport, error) {
	report := domain.IndexReport{
		Skipped:  []string{},
		Failures: []domain.IndexFailure{},
	}

	keys, err := uc.storage.List(ctx)
	if err != nil {
		return report, fmt.Errorf("list knowledge sources: %w", err)
	}

	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if !uc.loader.Supports(key) {
			report.Skipped = append(report.Skipped, key)
			continue
		}
		report.Sources++

		articles, chunks, err := uc.indexSource(ctx, key)
		report.Articles += articles
		report.Chunks += chunks
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return report, ctxErr
			}
			slog.Warn("knowledge_source_failed", "source", key, "error", err)
			report.Failures = append(report.Failures, domain.IndexFailure{Source: key, Error: err.Error()})
			continue
		}
		slog.Info("knowledge_source_indexed", "source", key, "articles", articles, "chunks", chunks)
	}
	return report, nil
}

func (uc *IndexKnowledgeUseCase) indexSource(ctx context.Context, key string) (int, int, error) {
	articles, err := uc.load(ctx, key)
	if err != nil {
		return 0, 0, err
	}

	indexed, chunks := 0, 0
	for _, article := range articles {
		n, err := uc.indexArticle(ctx, article)
		if err != nil {
			return indexed, chunks, fmt.Errorf("article %s: %w", article.ID, err)
		}
		indexed++
		chunks += n
	}
	return indexed, chunks, nil
}

func (uc *IndexKnowledgeUseCase) load(ctx context.Context, key string) ([]domain.KnowledgeArticle, error) {
	reader, err := uc.storage.Open(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("open source: %w", err)
	}
	defer reader.Close()

	articles, err := uc.loader.Load(ctx, key, reader)
	if err != nil {
		return nil, fmt.Errorf("load source: %w", err)
	}
	return articles, nil
}

func (uc *IndexKnowledgeUseCase) indexArticle(ctx context.Context, article domain.KnowledgeArticle) (int, error) {
	chunks, err := uc.chunk(article)
	if err != nil {
		return 0, err
	}

	vectors, err := uc.embed(ctx, chunks)
	if err != nil {
		return 0, err
	}

	if err := uc.articles.Upsert(ctx, article); err != nil {
		return 0, fmt.Errorf("upsert article: %w", err)
	}
	if err := uc.vectors.IndexChunks(ctx, article, chunks, vectors); err != nil {
		return 0, fmt.Errorf("index chunks in vector db: %w", err)
	}
	return len(chunks), nil
}

func (uc *IndexKnowledgeUseCase) chunk(article domain.KnowledgeArticle) ([]string, error) {
	chunks := uc.chunker.Split(article.Body)
	if len(chunks) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "chunk article", errors.New("chunking produced zero chunks"))
	}
	return chunks, nil
}

func (uc *IndexKnowledgeUseCase) embed(ctx context.Context, chunks []string) ([][]float32, error) {
	vectors, err := uc.embedder.Embed(ctx, chunks)
	if err != nil {
		return nil, fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return nil, domain.WrapError(
			domain.ErrInvalidInput,
			"embed chunks",
			fmt.Errorf("vectors/chunks mismatch: %d/%d", len(vectors), len(chunks)),
		)
	}
	return vectors, nil
}
