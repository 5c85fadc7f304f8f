package knowledge

import (
	"context"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"

	"github.com/kirillkom/hr-assistant/internal/core/domain"
)

// HTMLLoader reads intranet policy pages. The <title> (or first <h1>) names
// the article; scripts, styles and navigation are skipped.
type HTMLLoader struct{}

func NewHTMLLoader() *HTMLLoader { return &HTMLLoader{} }

func (l *HTMLLoader) Supports(path string) bool {
	return hasExt(path, ".html", ".htm")
}

var skippedElements = map[string]struct{}{
	"script":   {},
	"style":    {},
	"noscript": {},
	"nav":      {},
	"head":     {},
}

var blockElements = map[string]struct{}{
	"p": {}, "div": {}, "li": {}, "br": {}, "tr": {}, "section": {}, "article": {},
	"h1": {}, "h2": {}, "h3": {}, "h4": {}, "h5": {}, "h6": {},
}

func (l *HTMLLoader) Load(_ context.Context, path string, src io.Reader) ([]domain.KnowledgeArticle, error) {
	doc, err := html.Parse(src)
	if err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "load html", fmt.Errorf("parse %s: %w", path, err))
	}

	title := ""
	if n := findElement(doc, "title"); n != nil {
		title = nodeText(n)
	}
	if title == "" {
		if n := findElement(doc, "h1"); n != nil {
			title = nodeText(n)
		}
	}

	var body strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if _, skip := skippedElements[n.Data]; skip {
				return
			}
		}
		if n.Type == html.TextNode {
			if text := strings.Join(strings.Fields(n.Data), " "); text != "" {
				body.WriteString(text)
				body.WriteString(" ")
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode {
			if _, block := blockElements[n.Data]; block {
				body.WriteString("\n")
			}
		}
	}
	walk(doc)

	text := collapseBlankLines(body.String())
	if text == "" {
		return nil, nil
	}
	return []domain.KnowledgeArticle{fileArticle(path, title, text)}, nil
}

func findElement(n *html.Node, name string) *html.Node {
	if n.Type == html.ElementNode && n.Data == name {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, name); found != nil {
			return found
		}
	}
	return nil
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(b.String()), " ")
}

func collapseBlankLines(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
