package knowledge

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/hr-assistant/internal/core/domain"
)

// SpreadsheetLoader reads FAQ workbooks exported by HR. The first row of
// each sheet is a header naming at least "question" and "answer" columns;
// "id", "category" and "language" are optional.
type SpreadsheetLoader struct{}

func NewSpreadsheetLoader() *SpreadsheetLoader { return &SpreadsheetLoader{} }

func (l *SpreadsheetLoader) Supports(path string) bool {
	return hasExt(path, ".xlsx")
}

func (l *SpreadsheetLoader) Load(_ context.Context, path string, src io.Reader) ([]domain.KnowledgeArticle, error) {
	book, err := excelize.OpenReader(src)
	if err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "load xlsx", fmt.Errorf("open %s: %w", path, err))
	}
	defer func() {
		_ = book.Close()
	}()

	var out []domain.KnowledgeArticle
	for _, sheet := range book.GetSheetList() {
		rows, err := book.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
		}
		if len(rows) < 2 {
			continue
		}
		cols := headerIndex(rows[0])
		qCol, okQ := cols["question"]
		aCol, okA := cols["answer"]
		if !okQ || !okA {
			continue
		}

		for i, row := range rows[1:] {
			question := cell(row, qCol)
			answer := cell(row, aCol)
			if question == "" || answer == "" {
				continue
			}
			id := cellByName(row, cols, "id")
			if id == "" {
				id = fmt.Sprintf("%s-%s-%d", articleID(path), articleID(sheet), i+1)
			}
			category := cellByName(row, cols, "category")
			if category == "" {
				category = categoryFromPath(path)
			}
			out = append(out, domain.KnowledgeArticle{
				ID:       id,
				Title:    question,
				Category: strings.ToLower(category),
				Language: strings.ToLower(cellByName(row, cols, "language")),
				Body:     question + "\n" + answer,
				Source:   path,
			})
		}
	}
	return out, nil
}

func headerIndex(header []string) map[string]int {
	out := make(map[string]int, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(h))
		if key == "" {
			continue
		}
		if _, exists := out[key]; !exists {
			out[key] = i
		}
	}
	return out
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func cellByName(row []string, cols map[string]int, name string) string {
	idx, ok := cols[name]
	if !ok {
		return ""
	}
	return cell(row, idx)
}
