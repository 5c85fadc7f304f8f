package qdrant

import (
	"fmt"
	"strings"
	"testing"
)

func TestEncodeSparseQueryDeterministic(t *testing.T) {
	v1 := encodeSparseQuery("Berapa hari cuti tahunan saya?")
	v2 := encodeSparseQuery("Berapa hari cuti tahunan saya?")
	if fmt.Sprint(v1) != fmt.Sprint(v2) {
		t.Fatalf("expected identical vectors, got %v and %v", v1, v2)
	}
}

func TestEncodeSparseQuerySortsIndices(t *testing.T) {
	v := encodeSparseQuery("leave request approval manager")
	if len(v.Indices) != 4 {
		t.Fatalf("expected 4 terms, got %d", len(v.Indices))
	}
	for i := 1; i < len(v.Indices); i++ {
		if v.Indices[i-1] > v.Indices[i] {
			t.Fatalf("indices not sorted at %d: %d > %d", i, v.Indices[i-1], v.Indices[i])
		}
	}
}

func TestEncodeSparseQueryEmptyNoiseInput(t *testing.T) {
	v := encodeSparseQuery("___---!!!")
	if len(v.Indices) != 0 || len(v.Values) != 0 {
		t.Fatalf("expected empty sparse vector, got %+v", v)
	}
	if sparseScoreBound(v) != 0 {
		t.Fatalf("expected zero bound for empty query")
	}
}

func TestEncodeSparseDocumentKeepsMostFrequentTerms(t *testing.T) {
	var b strings.Builder
	for i := 0; i < maxSparseTerms+50; i++ {
		fmt.Fprintf(&b, "term%d ", i)
	}
	b.WriteString(strings.Repeat("cuti ", 5))

	v := encodeSparseDocument(b.String(), "")
	if len(v.Indices) != maxSparseTerms {
		t.Fatalf("expected %d terms, got %d", maxSparseTerms, len(v.Indices))
	}
	want := hashToken("cuti")
	for _, idx := range v.Indices {
		if idx == want {
			return
		}
	}
	t.Fatalf("most frequent term must survive truncation")
}

func TestSparseScoreBoundLimitsSelfMatch(t *testing.T) {
	query := encodeSparseQuery("annual leave days")
	doc := encodeSparseDocument(strings.Repeat("annual leave days ", 20), "Annual leave")

	dot := 0.0
	for i, qi := range query.Indices {
		for j, di := range doc.Indices {
			if qi == di {
				dot += float64(query.Values[i]) * float64(doc.Values[j])
			}
		}
	}
	if bound := sparseScoreBound(query); dot > bound {
		t.Fatalf("dot product %.3f exceeds bound %.3f", dot, bound)
	}
}

func TestTokenizeAlphaNumUnicodeAndDigits(t *testing.T) {
	tokens := tokenizeAlphaNum("Cuti-Tahunan 2026 pelecehan_kerja")
	if fmt.Sprint(tokens) != "[cuti tahunan 2026 pelecehan kerja]" {
		t.Fatalf("unexpected tokens: %v", tokens)
	}
}

func TestEncodeSparseQueryDropsStopwords(t *testing.T) {
	full := encodeSparseQuery("Apakah saya bisa mengambil cuti di bulan Desember?")
	core := encodeSparseQuery("bisa mengambil cuti bulan Desember")
	if fmt.Sprint(full) != fmt.Sprint(core) {
		t.Fatalf("expected stopwords to be ignored: %v vs %v", full, core)
	}
	if v := encodeSparseQuery("what is the"); len(v.Indices) != 0 {
		t.Fatalf("expected empty vector for stopword-only query, got %+v", v)
	}
}
