package usecase

import (
	"math"

	"github.com/kirillkom/hr-assistant/internal/core/domain"
)

type ConfidenceConfig struct {
	// MaxScore normalizes the merged score into [0,1]; usually RetrievalCoordinator.MaxScore.
	MaxScore        float64
	AgreementBoost  float64
	HighThreshold   float64
	MediumThreshold float64
	LowThreshold    float64
}

func (c ConfidenceConfig) normalize() ConfidenceConfig {
	if c.MaxScore <= 0 {
		c.MaxScore = 1
	}
	if c.AgreementBoost < 0 {
		c.AgreementBoost = 0
	}
	if c.HighThreshold <= 0 {
		c.HighThreshold = 0.7
	}
	if c.MediumThreshold <= 0 {
		c.MediumThreshold = 0.4
	}
	if c.LowThreshold <= 0 {
		c.LowThreshold = 0.15
	}
	return c
}

type ConfidenceScorer struct {
	cfg ConfidenceConfig
}

func NewConfidenceScorer(cfg ConfidenceConfig) *ConfidenceScorer {
	return &ConfidenceScorer{cfg: cfg.normalize()}
}

// Score rates how well the top document answers the query. More agreeing
// strategies on the top document never lower the score.
func (s *ConfidenceScorer) Score(result domain.RankedResult) domain.ConfidenceAssessment {
	top, ok := result.Top()
	if !ok {
		return domain.ConfidenceAssessment{Score: 0, Band: domain.ConfidenceNone, Reason: "no matches"}
	}

	agreeing := len(top.Strategies)
	score := top.Score / s.cfg.MaxScore
	if agreeing > 1 {
		score += s.cfg.AgreementBoost * float64(agreeing-1)
	}
	if math.IsNaN(score) {
		score = 0
	}
	score = clampUnit(score)

	band := s.band(score)
	reason := "multi-strategy agreement"
	switch {
	case agreeing <= 1 && (band == domain.ConfidenceLow || band == domain.ConfidenceNone):
		reason = "single weak strategy agreement"
	case agreeing <= 1:
		reason = "single strategy agreement"
	}

	return domain.ConfidenceAssessment{
		Score:  score,
		Band:   band,
		Reason: reason,
	}
}

func (s *ConfidenceScorer) band(score float64) domain.ConfidenceBand {
	switch {
	case score >= s.cfg.HighThreshold:
		return domain.ConfidenceHigh
	case score >= s.cfg.MediumThreshold:
		return domain.ConfidenceMedium
	case score >= s.cfg.LowThreshold:
		return domain.ConfidenceLow
	default:
		return domain.ConfidenceNone
	}
}
