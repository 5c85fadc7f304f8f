package qdrant

import (
	"hash/fnv"
	"math"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// sparseVector is the qdrant wire form of a BM25-style term vector.
type sparseVector struct {
	Indices []uint32  `json:"indices"`
	Values  []float32 `json:"values"`
}

const (
	bm25K1         = 1.2
	titleBoost     = 1.5
	maxSparseTerms = 256
)

// stopwords covers the English and Indonesian filler words employees use
// when phrasing HR questions.
var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "can": {}, "do": {}, "does": {}, "for": {},
	"how": {}, "i": {}, "in": {}, "is": {}, "it": {}, "me": {}, "my": {}, "of": {},
	"on": {}, "or": {}, "the": {}, "to": {}, "what": {}, "when": {}, "where": {}, "who": {},
	"ada": {}, "adalah": {}, "akan": {}, "apa": {}, "apakah": {}, "bagaimana": {}, "dan": {},
	"dari": {}, "di": {}, "ini": {}, "itu": {}, "ke": {}, "saya": {}, "untuk": {}, "yang": {},
}

// termCounts accumulates weighted term frequencies keyed by hashed token.
type termCounts map[uint32]float64

func (tc termCounts) add(text string, weight float64) {
	for _, token := range tokenizeAlphaNum(text) {
		if utf8.RuneCountInString(token) < 2 {
			continue
		}
		if _, skip := stopwords[token]; skip {
			continue
		}
		tc[hashToken(token)] += weight
	}
}

// vector saturates every count with the BM25 curve tf*(k+1)/(tf+k) and keeps
// the maxSparseTerms most frequent terms, indices ascending.
func (tc termCounts) vector() sparseVector {
	if len(tc) == 0 {
		return sparseVector{}
	}
	indices := make([]uint32, 0, len(tc))
	for idx := range tc {
		indices = append(indices, idx)
	}
	if len(indices) > maxSparseTerms {
		sort.Slice(indices, func(i, j int) bool {
			if tc[indices[i]] != tc[indices[j]] {
				return tc[indices[i]] > tc[indices[j]]
			}
			return indices[i] < indices[j]
		})
		indices = indices[:maxSparseTerms]
	}
	sort.Slice(indices, func(i, j int) bool { return indices[i] < indices[j] })

	values := make([]float32, len(indices))
	for i, idx := range indices {
		values[i] = float32(saturate(tc[idx]))
	}
	return sparseVector{Indices: indices, Values: values}
}

func saturate(tf float64) float64 {
	w := tf * (bm25K1 + 1) / (tf + bm25K1)
	if math.IsNaN(w) || math.IsInf(w, 0) {
		return 0
	}
	return w
}

func encodeSparseDocument(text string, title string) sparseVector {
	tc := make(termCounts, 64)
	tc.add(text, 1)
	tc.add(title, titleBoost)
	return tc.vector()
}

func encodeSparseQuery(query string) sparseVector {
	tc := make(termCounts, 16)
	tc.add(query, 1)
	return tc.vector()
}

// sparseScoreBound is the highest dot product a document vector can reach
// against query: every document term saturated at k1+1.
func sparseScoreBound(query sparseVector) float64 {
	total := 0.0
	for _, v := range query.Values {
		total += float64(v) * (bm25K1 + 1)
	}
	return total
}

func hashToken(token string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(token))
	if sum := h.Sum32(); sum != 0 {
		return sum
	}
	return 1
}

func tokenizeAlphaNum(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
