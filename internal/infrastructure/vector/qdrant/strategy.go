package qdrant

import (
	"context"
	"fmt"

	"github.com/kirillkom/hr-assistant/internal/core/domain"
	"github.com/kirillkom/hr-assistant/internal/core/ports"
)

// SemanticStrategy searches the dense embedding of the query.
type SemanticStrategy struct {
	client   *Client
	embedder ports.Embedder
}

func NewSemanticStrategy(client *Client, embedder ports.Embedder) *SemanticStrategy {
	return &SemanticStrategy{client: client, embedder: embedder}
}

func (s *SemanticStrategy) Name() string { return "semantic" }

func (s *SemanticStrategy) Search(ctx context.Context, text string, params domain.SearchParams) ([]domain.SearchHit, error) {
	queryVector, err := s.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	points, err := s.client.searchNamed(ctx, "qdrant_search_dense", map[string]any{
		"name":   denseVectorName,
		"vector": queryVector,
	}, params.Limit)
	if err != nil {
		return nil, err
	}
	// Cosine similarity; negative scores carry no signal.
	return toSearchHits(points, 1), nil
}

// LexicalStrategy searches the BM25-style sparse vector of the query.
type LexicalStrategy struct {
	client *Client
}

func NewLexicalStrategy(client *Client) *LexicalStrategy {
	return &LexicalStrategy{client: client}
}

func (s *LexicalStrategy) Name() string { return "lexical" }

func (s *LexicalStrategy) Search(ctx context.Context, text string, params domain.SearchParams) ([]domain.SearchHit, error) {
	query := encodeSparseQuery(text)
	bound := sparseScoreBound(query)
	if bound <= 0 {
		return nil, nil
	}
	points, err := s.client.searchNamed(ctx, "qdrant_search_sparse", map[string]any{
		"name":   sparseVectorName,
		"vector": query,
	}, params.Limit)
	if err != nil {
		return nil, err
	}
	return toSearchHits(points, bound), nil
}

func toSearchHits(points []scoredPoint, scale float64) []domain.SearchHit {
	out := make([]domain.SearchHit, 0, len(points))
	for _, p := range points {
		score := p.Score / scale
		if score < 0 {
			score = 0
		}
		if score > 1 {
			score = 1
		}
		out = append(out, domain.SearchHit{
			DocumentID: getStringPayload(p.Payload, "doc_id"),
			Title:      getStringPayload(p.Payload, "title"),
			Category:   getStringPayload(p.Payload, "category"),
			Snippet:    getStringPayload(p.Payload, "text"),
			Score:      score,
		})
	}
	return out
}
