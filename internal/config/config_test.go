package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadUsesDefaultsWithoutFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.APIPort != "8080" || cfg.PrimaryProvider != "ollama" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.StrategyTimeout != 1500*time.Millisecond || cfg.RetrievalTimeout != 3*time.Second {
		t.Fatalf("unexpected retrieval timeouts %s %s", cfg.StrategyTimeout, cfg.RetrievalTimeout)
	}
	if cfg.LightweightConfidence != 0.8 {
		t.Fatalf("expected lightweight confidence 0.8, got %v", cfg.LightweightConfidence)
	}
	if cfg.BreakerFailureThreshold != 3 || cfg.BreakerMaxCooldown != 10*time.Minute {
		t.Fatalf("unexpected breaker defaults %+v", cfg)
	}
	if len(cfg.EscalationKeywords) == 0 {
		t.Fatalf("expected default escalation keywords")
	}
	weights := cfg.StrategyWeights()
	if weights["semantic"] != 1 || weights["lexical"] != 1 || weights["faq"] != 1 {
		t.Fatalf("unexpected weights %v", weights)
	}
}

func TestLoadReadsYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
api_port: "9000"
primary_model: llama3.1:70b
weight_faq: 1.5
breaker_cooldown: 30s
breaker_max_cooldown: 5m
context_max_chars: 3000
escalation_keywords:
  - Harassment
  - pelecehan
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.APIPort != "9000" || cfg.PrimaryModel != "llama3.1:70b" {
		t.Fatalf("yaml values not applied: %+v", cfg)
	}
	if cfg.WeightFAQ != 1.5 || cfg.ContextMaxChars != 3000 {
		t.Fatalf("yaml numbers not applied: faq=%v ctx=%d", cfg.WeightFAQ, cfg.ContextMaxChars)
	}
	if cfg.BreakerCooldown != 30*time.Second || cfg.BreakerMaxCooldown != 5*time.Minute {
		t.Fatalf("yaml durations not applied: %s %s", cfg.BreakerCooldown, cfg.BreakerMaxCooldown)
	}
	if len(cfg.EscalationKeywords) != 2 || cfg.EscalationKeywords[0] != "harassment" {
		t.Fatalf("expected yaml keyword list to replace defaults, got %v", cfg.EscalationKeywords)
	}
	if cfg.LightweightModel != "qwen2.5:1.5b" {
		t.Fatalf("unset keys should keep defaults, got %q", cfg.LightweightModel)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("api_port: \"9000\"\nretrieval_top_k: 7\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("HRA_API_PORT", "9100")
	t.Setenv("HRA_LIGHTWEIGHT_TIMEOUT", "2s")
	t.Setenv("HRA_API_RATE_LIMIT_RPS", "2.5")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.APIPort != "9100" {
		t.Fatalf("expected env to win, got %q", cfg.APIPort)
	}
	if cfg.RetrievalTopK != 7 {
		t.Fatalf("expected file value for top k, got %d", cfg.RetrievalTopK)
	}
	if cfg.LightweightTimeout != 2*time.Second {
		t.Fatalf("expected env duration, got %s", cfg.LightweightTimeout)
	}
	if cfg.APIRateLimitRPS != 2.5 {
		t.Fatalf("expected env float, got %v", cfg.APIRateLimitRPS)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"HRA_PRIMARY_PROVIDER":       "anthropic",
		"HRA_CONVERSATION_STORE":     "redis",
		"HRA_LIGHTWEIGHT_CONFIDENCE": "1.5",
		"HRA_WEIGHT_SEMANTIC":        "-1",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			if _, err := Load(""); err == nil {
				t.Fatalf("expected validation error for %s=%s", key, value)
			}
		})
	}
}

func TestValidateRequiresDSNForPostgresStore(t *testing.T) {
	cfg := Default()
	cfg.ConversationStore = "postgres"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error without postgres_dsn")
	}
	cfg.PostgresDSN = "postgres://localhost/hr"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
