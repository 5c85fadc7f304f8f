package domain

import "time"

// Query is a single employee question. It is never mutated after Handle receives it.
type Query struct {
	Text           string `json:"query"`
	ConversationID string `json:"conversation_id,omitempty"`
	Language       string `json:"language,omitempty"`
}

type ChatResponse struct {
	ConversationID        string         `json:"conversation_id"`
	Answer                string         `json:"answer"`
	ConfidenceScore       float64        `json:"confidence_score"`
	ConfidenceBand        ConfidenceBand `json:"confidence_band"`
	ReferencedDocumentIDs []string       `json:"referenced_document_ids"`
	BackendUsed           string         `json:"backend_used"`
	ProcessingTimeMs      int64          `json:"processing_time_ms"`
	Cached                bool           `json:"cached"`
}

type WorkflowEvent struct {
	Kind            string    `json:"kind"`
	ConversationID  string    `json:"conversation_id"`
	Query           string    `json:"query"`
	Language        string    `json:"language,omitempty"`
	MatchedKeywords []string  `json:"matched_keywords"`
	OccurredAt      time.Time `json:"occurred_at"`
}

const WorkflowEventEscalation = "escalation"
