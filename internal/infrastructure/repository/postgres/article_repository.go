package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/kirillkom/hr-assistant/internal/core/domain"
)

const faqSnippetChars = 600

type ArticleRepository struct {
	db *sql.DB
}

func NewArticleRepository(db *sql.DB) *ArticleRepository {
	return &ArticleRepository{db: db}
}

func (r *ArticleRepository) Upsert(ctx context.Context, article domain.KnowledgeArticle) error {
	if strings.TrimSpace(article.ID) == "" {
		return domain.WrapError(domain.ErrInvalidInput, "upsert article", fmt.Errorf("article id is empty"))
	}
	updatedAt := article.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO knowledge_articles (id, title, category, language, body, source, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
ON CONFLICT (id) DO UPDATE
SET title = EXCLUDED.title, category = EXCLUDED.category, language = EXCLUDED.language,
	body = EXCLUDED.body, source = EXCLUDED.source, updated_at = EXCLUDED.updated_at
`, article.ID, article.Title, article.Category, article.Language, article.Body, article.Source, updatedAt)
	if err != nil {
		return fmt.Errorf("upsert article: %w", err)
	}
	return nil
}

// FAQStrategy ranks curated HR articles with postgres full-text search.
type FAQStrategy struct {
	repo *ArticleRepository
}

func NewFAQStrategy(repo *ArticleRepository) *FAQStrategy {
	return &FAQStrategy{repo: repo}
}

func (s *FAQStrategy) Name() string { return "faq" }

func (s *FAQStrategy) Search(ctx context.Context, text string, params domain.SearchParams) ([]domain.SearchHit, error) {
	tsQuery := buildOrTSQuery(text)
	if tsQuery == "" {
		return nil, nil
	}
	limit := params.Limit
	if limit <= 0 {
		limit = 10
	}
	language := params.Language
	if language == "auto" {
		language = ""
	}

	// Normalization flag 32 maps rank into [0,1) as rank/(rank+1).
	rows, err := s.repo.db.QueryContext(ctx, `
SELECT id, title, category, LEFT(body, $4), ts_rank_cd(search_vector, q, 32) AS score
FROM knowledge_articles, to_tsquery('simple', $1) AS q
WHERE search_vector @@ q AND ($2 = '' OR language = '' OR language = $2)
ORDER BY score DESC, id ASC
LIMIT $3
`, tsQuery, language, limit, faqSnippetChars)
	if err != nil {
		return nil, fmt.Errorf("faq search: %w", err)
	}
	defer rows.Close()

	out := make([]domain.SearchHit, 0, limit)
	for rows.Next() {
		var hit domain.SearchHit
		if err := rows.Scan(&hit.DocumentID, &hit.Title, &hit.Category, &hit.Snippet, &hit.Score); err != nil {
			return nil, fmt.Errorf("scan faq hit: %w", err)
		}
		out = append(out, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate faq hits: %w", err)
	}
	return out, nil
}

// buildOrTSQuery turns free text into "term1 | term2" so any shared word matches.
func buildOrTSQuery(text string) string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	seen := make(map[string]struct{}, len(fields))
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		if len([]rune(f)) < 2 {
			continue
		}
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		terms = append(terms, f)
	}
	return strings.Join(terms, " | ")
}
