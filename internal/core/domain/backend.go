package domain

import "time"

type HealthState string

const (
	HealthClosed   HealthState = "closed"
	HealthOpen     HealthState = "open"
	HealthHalfOpen HealthState = "half-open"
)

const (
	BackendPrimary     = "primary"
	BackendLightweight = "lightweight"
	BackendTemplate    = "template"
)

// BackendDescriptor is a point-in-time snapshot of a generation backend's health.
type BackendDescriptor struct {
	Name                string        `json:"name"`
	Priority            int           `json:"priority"`
	State               HealthState   `json:"state"`
	ConsecutiveFailures int           `json:"consecutive_failures"`
	LastFailure         *time.Time    `json:"last_failure,omitempty"`
	Cooldown            time.Duration `json:"cooldown_ns"`
	OpenUntil           *time.Time    `json:"open_until,omitempty"`
}

type GeneratedAnswer struct {
	Text        string         `json:"text"`
	Backend     string         `json:"backend"`
	Confidence  float64        `json:"confidence"`
	Band        ConfidenceBand `json:"band"`
	DocumentIDs []string       `json:"document_ids"`
	Duration    time.Duration  `json:"duration_ns"`
	Degraded    bool           `json:"degraded"`
}

type CacheEntry struct {
	Fingerprint string          `json:"fingerprint"`
	Answer      GeneratedAnswer `json:"answer"`
	CreatedAt   time.Time       `json:"created_at"`
	TTL         time.Duration   `json:"ttl_ns"`
}

func (e CacheEntry) Expired(now time.Time) bool {
	if e.TTL <= 0 {
		return false
	}
	return !now.Before(e.CreatedAt.Add(e.TTL))
}
