package usecase

import (
	"sort"

	"github.com/kirillkom/hr-assistant/internal/core/domain"
)

// mergeStrategyHits keys hits by document id. A strategy contributes its best raw
// score per document; the merged score is the weighted sum over strategies.
func mergeStrategyHits(reports []strategyReport, weight func(string) float64) []domain.RankedDocument {
	acc := make(map[string]*domain.RankedDocument)
	order := make([]string, 0)
	for _, report := range reports {
		if report.err != nil {
			continue
		}
		for _, hit := range report.hits {
			if hit.DocumentID == "" {
				continue
			}
			doc, ok := acc[hit.DocumentID]
			if !ok {
				doc = &domain.RankedDocument{
					DocumentCandidate: domain.DocumentCandidate{
						DocumentID:     hit.DocumentID,
						StrategyScores: make(map[string]float64),
					},
				}
				acc[hit.DocumentID] = doc
				order = append(order, hit.DocumentID)
			}
			doc.DocumentCandidate = preferRicherCandidate(doc.DocumentCandidate, hit)

			score := clampUnit(hit.Score)
			prev, seen := doc.StrategyScores[report.name]
			if !seen {
				doc.Strategies = append(doc.Strategies, report.name)
				doc.StrategyScores[report.name] = score
			} else if score > prev {
				doc.StrategyScores[report.name] = score
			}
		}
	}

	out := make([]domain.RankedDocument, 0, len(acc))
	for _, id := range order {
		doc := acc[id]
		total := 0.0
		for _, strategy := range doc.Strategies {
			total += weight(strategy) * doc.StrategyScores[strategy]
		}
		doc.Score = total
		out = append(out, *doc)
	}
	sortRanked(out)
	return out
}

// sortRanked orders by merged score, then by how many strategies agree, then by id.
func sortRanked(docs []domain.RankedDocument) {
	sort.SliceStable(docs, func(i, j int) bool {
		if docs[i].Score != docs[j].Score {
			return docs[i].Score > docs[j].Score
		}
		if len(docs[i].Strategies) != len(docs[j].Strategies) {
			return len(docs[i].Strategies) > len(docs[j].Strategies)
		}
		return docs[i].DocumentID < docs[j].DocumentID
	})
}

func trimRanked(docs []domain.RankedDocument, limit int) []domain.RankedDocument {
	if limit <= 0 || len(docs) <= limit {
		return docs
	}
	return docs[:limit]
}

func preferRicherCandidate(current domain.DocumentCandidate, hit domain.SearchHit) domain.DocumentCandidate {
	if current.Title == "" && hit.Title != "" {
		current.Title = hit.Title
	}
	if current.Category == "" && hit.Category != "" {
		current.Category = hit.Category
	}
	if len(hit.Snippet) > len(current.Snippet) {
		current.Snippet = hit.Snippet
	}
	return current
}

func clampUnit(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
