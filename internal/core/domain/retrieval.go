package domain

type SearchParams struct {
	Limit    int
	Language string
}

// SearchHit is a raw match reported by one retrieval strategy. Score is in [0,1].
type SearchHit struct {
	DocumentID string  `json:"document_id"`
	Title      string  `json:"title"`
	Category   string  `json:"category"`
	Snippet    string  `json:"snippet"`
	Score      float64 `json:"score"`
}

type DocumentCandidate struct {
	DocumentID     string             `json:"document_id"`
	Title          string             `json:"title"`
	Category       string             `json:"category"`
	Snippet        string             `json:"snippet"`
	StrategyScores map[string]float64 `json:"strategy_scores"`
	Strategies     []string           `json:"strategies"`
}

type RankedDocument struct {
	DocumentCandidate
	Score float64 `json:"score"`
}

// RankedResult is sorted by Score descending and never longer than the requested topK.
type RankedResult struct {
	Documents []RankedDocument `json:"documents"`
}

func (r RankedResult) Empty() bool {
	return len(r.Documents) == 0
}

func (r RankedResult) Top() (RankedDocument, bool) {
	if len(r.Documents) == 0 {
		return RankedDocument{}, false
	}
	return r.Documents[0], true
}

func (r RankedResult) IDs() []string {
	out := make([]string, 0, len(r.Documents))
	for _, doc := range r.Documents {
		out = append(out, doc.DocumentID)
	}
	return out
}

type ConfidenceBand string

const (
	ConfidenceHigh   ConfidenceBand = "high"
	ConfidenceMedium ConfidenceBand = "medium"
	ConfidenceLow    ConfidenceBand = "low"
	ConfidenceNone   ConfidenceBand = "none"
)

// PrefersLightweight reports whether backend selection should start from the cheapest tier.
func (b ConfidenceBand) PrefersLightweight() bool {
	return b == ConfidenceLow || b == ConfidenceNone
}

type ConfidenceAssessment struct {
	Score  float64        `json:"score"`
	Band   ConfidenceBand `json:"band"`
	Reason string         `json:"reason"`
}
