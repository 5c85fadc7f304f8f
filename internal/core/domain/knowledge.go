package domain

import "time"

// KnowledgeArticle is one HR policy, FAQ entry or guide loaded into the document index.
type KnowledgeArticle struct {
	ID        string    `json:"id" yaml:"id"`
	Title     string    `json:"title" yaml:"title"`
	Category  string    `json:"category" yaml:"category"`
	Language  string    `json:"language" yaml:"language"`
	Body      string    `json:"body" yaml:"body"`
	Source    string    `json:"source" yaml:"-"`
	UpdatedAt time.Time `json:"updated_at" yaml:"-"`
}

// IndexReport summarizes one indexing run. A failed source does not stop the run.
type IndexReport struct {
	Sources  int            `json:"sources"`
	Articles int            `json:"articles"`
	Chunks   int            `json:"chunks"`
	Skipped  []string       `json:"skipped"`
	Failures []IndexFailure `json:"failures"`
}

type IndexFailure struct {
	Source string `json:"source"`
	Error  string `json:"error"`
}
