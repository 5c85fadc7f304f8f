package knowledge

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/kirillkom/hr-assistant/internal/core/domain"
)

// PDFLoader extracts the plain text of policy handbooks.
type PDFLoader struct{}

func NewPDFLoader() *PDFLoader { return &PDFLoader{} }

func (l *PDFLoader) Supports(path string) bool {
	return hasExt(path, ".pdf")
}

func (l *PDFLoader) Load(ctx context.Context, path string, src io.Reader) ([]domain.KnowledgeArticle, error) {
	raw, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("read pdf: %w", err)
	}
	reader, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "load pdf", fmt.Errorf("parse %s: %w", path, err))
	}

	var text strings.Builder
	for pageIndex := 1; pageIndex <= reader.NumPage(); pageIndex++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := reader.Page(pageIndex)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		text.WriteString(pageText)
		text.WriteString("\n")
	}

	body := strings.TrimSpace(text.String())
	if body == "" {
		return nil, nil
	}
	return []domain.KnowledgeArticle{fileArticle(path, "", body)}, nil
}
