package knowledge

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/kirillkom/hr-assistant/internal/core/domain"
)

// TextLoader reads .txt and .md policies; a leading markdown heading becomes the title.
type TextLoader struct{}

func NewTextLoader() *TextLoader { return &TextLoader{} }

func (l *TextLoader) Supports(path string) bool {
	return hasExt(path, ".txt", ".md", ".markdown")
}

func (l *TextLoader) Load(_ context.Context, path string, src io.Reader) ([]domain.KnowledgeArticle, error) {
	raw, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("read source document: %w", err)
	}
	if !utf8.Valid(raw) {
		return nil, domain.WrapError(domain.ErrInvalidInput, "load text", fmt.Errorf("not utf-8 text: %s", path))
	}

	text := strings.TrimSpace(string(raw))
	if text == "" {
		return nil, nil
	}

	title := ""
	scanner := bufio.NewScanner(strings.NewReader(text))
	if scanner.Scan() {
		first := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(first, "#") {
			title = strings.TrimSpace(strings.TrimLeft(first, "#"))
			text = strings.TrimSpace(strings.TrimPrefix(text, scanner.Text()))
		}
	}
	if text == "" {
		return nil, nil
	}
	return []domain.KnowledgeArticle{fileArticle(path, title, text)}, nil
}
