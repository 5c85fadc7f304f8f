// Package knowledge turns HR source files into knowledge articles.
package knowledge

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/kirillkom/hr-assistant/internal/core/domain"
	"github.com/kirillkom/hr-assistant/internal/core/ports"
)

// Registry dispatches a source file to the first loader that supports it.
type Registry struct {
	loaders []ports.ArticleLoader
}

func NewRegistry(loaders ...ports.ArticleLoader) *Registry {
	return &Registry{loaders: loaders}
}

// DefaultRegistry knows every source format the indexer accepts.
func DefaultRegistry() *Registry {
	return NewRegistry(
		NewYAMLLoader(),
		NewSpreadsheetLoader(),
		NewPDFLoader(),
		NewHTMLLoader(),
		NewTextLoader(),
	)
}

func (r *Registry) Supports(path string) bool {
	return r.find(path) != nil
}

func (r *Registry) Load(ctx context.Context, path string, src io.Reader) ([]domain.KnowledgeArticle, error) {
	loader := r.find(path)
	if loader == nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "load article", fmt.Errorf("unsupported source %s", path))
	}
	return loader.Load(ctx, path, src)
}

func (r *Registry) find(path string) ports.ArticleLoader {
	for _, l := range r.loaders {
		if l.Supports(path) {
			return l
		}
	}
	return nil
}

func hasExt(path string, exts ...string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}

var slugInvalid = regexp.MustCompile(`[^a-z0-9]+`)

// articleID derives a stable id from the source key, e.g. "leave/annual.md" -> "leave-annual".
func articleID(path string) string {
	base := strings.TrimSuffix(filepath.ToSlash(path), filepath.Ext(path))
	slug := strings.Trim(slugInvalid.ReplaceAllString(strings.ToLower(base), "-"), "-")
	if slug == "" {
		return "article"
	}
	return slug
}

// categoryFromPath uses the parent directory as the category.
func categoryFromPath(path string) string {
	dir := filepath.Base(filepath.Dir(filepath.ToSlash(path)))
	if dir == "." || dir == "/" {
		return "general"
	}
	return strings.ToLower(dir)
}

func titleFromPath(path string) string {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	base = strings.NewReplacer("_", " ", "-", " ").Replace(base)
	return strings.TrimSpace(base)
}

func fileArticle(path, title, body string) domain.KnowledgeArticle {
	if strings.TrimSpace(title) == "" {
		title = titleFromPath(path)
	}
	return domain.KnowledgeArticle{
		ID:       articleID(path),
		Title:    strings.TrimSpace(title),
		Category: categoryFromPath(path),
		Body:     strings.TrimSpace(body),
		Source:   filepath.ToSlash(path),
	}
}
