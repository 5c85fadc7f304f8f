package knowledge

import (
	"context"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kirillkom/hr-assistant/internal/core/domain"
)

// YAMLLoader reads curated FAQ files:
//
//	articles:
//	  - id: leave-annual
//	    title: Annual leave
//	    category: leave
//	    language: en
//	    body: Employees receive 12 days of paid leave per year.
type YAMLLoader struct{}

func NewYAMLLoader() *YAMLLoader { return &YAMLLoader{} }

func (l *YAMLLoader) Supports(path string) bool {
	return hasExt(path, ".yaml", ".yml")
}

type yamlFile struct {
	Articles []domain.KnowledgeArticle `yaml:"articles"`
}

func (l *YAMLLoader) Load(_ context.Context, path string, src io.Reader) ([]domain.KnowledgeArticle, error) {
	var file yamlFile
	if err := yaml.NewDecoder(src).Decode(&file); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, domain.WrapError(domain.ErrInvalidInput, "load yaml", fmt.Errorf("decode %s: %w", path, err))
	}

	out := make([]domain.KnowledgeArticle, 0, len(file.Articles))
	for i, a := range file.Articles {
		if strings.TrimSpace(a.Body) == "" {
			continue
		}
		if strings.TrimSpace(a.ID) == "" {
			a.ID = fmt.Sprintf("%s-%d", articleID(path), i+1)
		}
		if strings.TrimSpace(a.Category) == "" {
			a.Category = categoryFromPath(path)
		}
		if strings.TrimSpace(a.Title) == "" {
			a.Title = titleFromPath(path)
		}
		a.Body = strings.TrimSpace(a.Body)
		a.Source = path
		out = append(out, a)
	}
	return out, nil
}
