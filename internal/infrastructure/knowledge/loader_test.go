package knowledge

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/hr-assistant/internal/core/domain"
)

func TestRegistryDispatchesByExtension(t *testing.T) {
	registry := DefaultRegistry()
	for _, path := range []string{"a.yaml", "b.YML", "c.xlsx", "d.pdf", "e.html", "f.md", "g.txt"} {
		if !registry.Supports(path) {
			t.Fatalf("expected %s to be supported", path)
		}
	}
	if registry.Supports("photo.png") {
		t.Fatalf("png must not be supported")
	}
	_, err := registry.Load(context.Background(), "photo.png", strings.NewReader(""))
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestArticleIDAndCategoryFromPath(t *testing.T) {
	if got := articleID("Leave/Annual Leave.md"); got != "leave-annual-leave" {
		t.Fatalf("articleID() = %q", got)
	}
	if got := categoryFromPath("benefits/health.md"); got != "benefits" {
		t.Fatalf("categoryFromPath() = %q", got)
	}
	if got := categoryFromPath("handbook.pdf"); got != "general" {
		t.Fatalf("categoryFromPath() = %q", got)
	}
}

func TestTextLoaderUsesMarkdownHeadingAsTitle(t *testing.T) {
	src := "# Annual leave\n\nEmployees receive 12 days of paid leave.\n"
	articles, err := NewTextLoader().Load(context.Background(), "leave/annual.md", strings.NewReader(src))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(articles) != 1 {
		t.Fatalf("expected 1 article, got %d", len(articles))
	}
	a := articles[0]
	if a.ID != "leave-annual" || a.Title != "Annual leave" || a.Category != "leave" {
		t.Fatalf("unexpected article %+v", a)
	}
	if a.Body != "Employees receive 12 days of paid leave." {
		t.Fatalf("unexpected body %q", a.Body)
	}
}

func TestTextLoaderRejectsBinary(t *testing.T) {
	_, err := NewTextLoader().Load(context.Background(), "x.txt", bytes.NewReader([]byte{0xff, 0xfe, 0x00}))
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestYAMLLoaderFillsDefaults(t *testing.T) {
	src := `
articles:
  - id: leave-annual
    title: Annual leave
    category: leave
    language: en
    body: Employees receive 12 days of paid leave per year.
  - title: Cuti sakit
    language: id
    body: Cuti sakit memerlukan surat dokter.
  - title: Empty
    body: "  "
`
	articles, err := NewYAMLLoader().Load(context.Background(), "faq/general.yaml", strings.NewReader(src))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(articles) != 2 {
		t.Fatalf("expected 2 articles, got %d", len(articles))
	}
	if articles[0].ID != "leave-annual" || articles[0].Source != "faq/general.yaml" {
		t.Fatalf("unexpected first article %+v", articles[0])
	}
	if articles[1].ID != "faq-general-2" || articles[1].Category != "faq" || articles[1].Language != "id" {
		t.Fatalf("unexpected defaults %+v", articles[1])
	}
}

func TestYAMLLoaderRejectsMalformed(t *testing.T) {
	_, err := NewYAMLLoader().Load(context.Background(), "bad.yaml", strings.NewReader("articles: [unclosed"))
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestSpreadsheetLoaderReadsFAQRows(t *testing.T) {
	book := excelize.NewFile()
	defer book.Close()
	rows := [][]any{
		{"Question", "Answer", "Category", "Language"},
		{"How many leave days?", "12 days per year.", "Leave", "EN"},
		{"", "orphan answer", "", ""},
		{"Berapa hari cuti?", "12 hari per tahun.", "", "id"},
	}
	for i, row := range rows {
		cellName, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("CoordinatesToCellName() error = %v", err)
		}
		r := row
		if err := book.SetSheetRow("Sheet1", cellName, &r); err != nil {
			t.Fatalf("SetSheetRow() error = %v", err)
		}
	}
	buf, err := book.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer() error = %v", err)
	}

	articles, err := NewSpreadsheetLoader().Load(context.Background(), "faq/leave.xlsx", buf)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(articles) != 2 {
		t.Fatalf("expected 2 articles, got %d: %+v", len(articles), articles)
	}
	first := articles[0]
	if first.Title != "How many leave days?" || first.Category != "leave" || first.Language != "en" {
		t.Fatalf("unexpected first article %+v", first)
	}
	if !strings.Contains(first.Body, "12 days per year.") {
		t.Fatalf("answer missing from body %q", first.Body)
	}
	if articles[1].ID != "faq-leave-sheet1-3" || articles[1].Category != "faq" {
		t.Fatalf("unexpected generated id or category %+v", articles[1])
	}
}

func TestPDFLoaderRejectsInvalidDocument(t *testing.T) {
	_, err := NewPDFLoader().Load(context.Background(), "handbook.pdf", strings.NewReader("not a pdf"))
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestHTMLLoaderExtractsVisibleText(t *testing.T) {
	src := `<html><head><title>Remote work policy</title><style>p{color:red}</style></head>
<body><nav>Home | Policies</nav>
<h1>Remote work</h1>
<p>Employees may work remotely   two days per week.</p>
<script>track()</script>
<ul><li>Ask your manager first.</li></ul>
</body></html>`
	articles, err := NewHTMLLoader().Load(context.Background(), "policies/remote.html", strings.NewReader(src))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(articles) != 1 {
		t.Fatalf("expected 1 article, got %d", len(articles))
	}
	a := articles[0]
	if a.Title != "Remote work policy" {
		t.Fatalf("unexpected title %q", a.Title)
	}
	for _, unwanted := range []string{"track()", "color:red", "Home | Policies"} {
		if strings.Contains(a.Body, unwanted) {
			t.Fatalf("body contains %q: %q", unwanted, a.Body)
		}
	}
	if !strings.Contains(a.Body, "Employees may work remotely two days per week.") || !strings.Contains(a.Body, "Ask your manager first.") {
		t.Fatalf("unexpected body %q", a.Body)
	}
}
