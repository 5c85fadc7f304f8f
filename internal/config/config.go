package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "HRA_"

var defaultEscalationKeywords = []string{
	"harassment", "discrimination", "resign", "resignation", "grievance", "lawsuit",
	"pelecehan", "diskriminasi", "mengundurkan", "pengaduan",
}

type Config struct {
	APIPort  string `koanf:"api_port"`
	LogLevel string `koanf:"log_level"`

	APIRateLimitRPS   float64 `koanf:"api_rate_limit_rps"`
	APIRateLimitBurst int     `koanf:"api_rate_limit_burst"`
	APIMaxInFlight    int     `koanf:"api_max_in_flight"`

	PostgresDSN string `koanf:"postgres_dsn"`

	NATSURL              string        `koanf:"nats_url"`
	WorkflowSubject      string        `koanf:"workflow_subject"`
	WorkflowWebhookURL   string        `koanf:"workflow_webhook_url"`
	WorkflowWebhookToken string        `koanf:"workflow_webhook_token"`
	WorkflowTimeout      time.Duration `koanf:"workflow_timeout"`
	EscalationKeywords   []string      `koanf:"escalation_keywords"`

	OllamaURL        string `koanf:"ollama_url"`
	PrimaryProvider  string `koanf:"primary_provider"`
	PrimaryModel     string `koanf:"primary_model"`
	LightweightModel string `koanf:"lightweight_model"`
	EmbedModel       string `koanf:"embed_model"`
	OpenAIAPIKey     string `koanf:"openai_api_key"`
	OpenAIBaseURL    string `koanf:"openai_base_url"`

	QdrantURL        string `koanf:"qdrant_url"`
	QdrantCollection string `koanf:"qdrant_collection"`

	KnowledgeDir string `koanf:"knowledge_dir"`
	ChunkSize    int    `koanf:"chunk_size"`
	ChunkOverlap int    `koanf:"chunk_overlap"`

	RetrievalTopK    int           `koanf:"retrieval_top_k"`
	StrategyTimeout  time.Duration `koanf:"strategy_timeout"`
	RetrievalTimeout time.Duration `koanf:"retrieval_timeout"`
	WeightSemantic   float64       `koanf:"weight_semantic"`
	WeightLexical    float64       `koanf:"weight_lexical"`
	WeightFAQ        float64       `koanf:"weight_faq"`
	AgreementBoost   float64       `koanf:"agreement_boost"`

	ContextMaxChars   int     `koanf:"context_max_chars"`
	ContextTurnPairs  int     `koanf:"context_turn_pairs"`
	ContextScoreFloor float64 `koanf:"context_score_floor"`

	BreakerFailureThreshold int           `koanf:"breaker_failure_threshold"`
	BreakerWindow           time.Duration `koanf:"breaker_window"`
	BreakerCooldown         time.Duration `koanf:"breaker_cooldown"`
	BreakerMaxCooldown      time.Duration `koanf:"breaker_max_cooldown"`
	PrimaryTimeout          time.Duration `koanf:"primary_timeout"`
	LightweightTimeout      time.Duration `koanf:"lightweight_timeout"`
	PrimaryMaxTokens        int           `koanf:"primary_max_tokens"`
	LightweightMaxTokens    int           `koanf:"lightweight_max_tokens"`
	LightweightConfidence   float64       `koanf:"lightweight_confidence"`

	// Zero retry values keep the resilience profile of the process.
	RetryMaxAttempts    int           `koanf:"retry_max_attempts"`
	RetryInitialBackoff time.Duration `koanf:"retry_initial_backoff"`
	RetryMaxBackoff     time.Duration `koanf:"retry_max_backoff"`

	ConversationStore    string        `koanf:"conversation_store"`
	ConversationTTL      time.Duration `koanf:"conversation_ttl"`
	ConversationMaxChars int           `koanf:"conversation_max_chars"`
	ConversationMaxTurns int           `koanf:"conversation_max_turns"`
	CacheTTL             time.Duration `koanf:"cache_ttl"`
	CacheMaxEntries      int           `koanf:"cache_max_entries"`
	SweepInterval        time.Duration `koanf:"sweep_interval"`
	MaxQueryChars        int           `koanf:"max_query_chars"`

	WorkerMetricsPort string `koanf:"worker_metrics_port"`
}

func Default() Config {
	return Config{
		APIPort:  "8080",
		LogLevel: "info",

		APIRateLimitRPS:   20,
		APIRateLimitBurst: 40,
		APIMaxInFlight:    64,

		WorkflowSubject:    "hr.workflow.escalations",
		WorkflowTimeout:    5 * time.Second,
		EscalationKeywords: append([]string(nil), defaultEscalationKeywords...),

		OllamaURL:        "http://localhost:11434",
		PrimaryProvider:  "ollama",
		PrimaryModel:     "llama3.1:8b",
		LightweightModel: "qwen2.5:1.5b",
		EmbedModel:       "nomic-embed-text",

		QdrantURL:        "http://localhost:6333",
		QdrantCollection: "hr_knowledge",

		KnowledgeDir: "./data/knowledge",
		ChunkSize:    900,
		ChunkOverlap: 150,

		RetrievalTopK:    5,
		StrategyTimeout:  1500 * time.Millisecond,
		RetrievalTimeout: 3 * time.Second,
		WeightSemantic:   1,
		WeightLexical:    1,
		WeightFAQ:        1,
		AgreementBoost:   0.1,

		ContextMaxChars:   2000,
		ContextTurnPairs:  3,
		ContextScoreFloor: 0.05,

		BreakerFailureThreshold: 3,
		BreakerWindow:           time.Minute,
		BreakerCooldown:         time.Minute,
		BreakerMaxCooldown:      10 * time.Minute,
		PrimaryTimeout:          8 * time.Second,
		LightweightTimeout:      3 * time.Second,
		PrimaryMaxTokens:        512,
		LightweightMaxTokens:    256,
		LightweightConfidence:   0.8,

		ConversationStore:    "memory",
		ConversationTTL:      30 * time.Minute,
		ConversationMaxChars: 4000,
		ConversationMaxTurns: 40,
		CacheTTL:             time.Hour,
		CacheMaxEntries:      10000,
		SweepInterval:        time.Minute,
		MaxQueryChars:        2000,

		WorkerMetricsPort: "9090",
	}
}

// Load reads defaults, then the optional YAML file at path, then HRA_*
// environment overrides (HRA_PRIMARY_MODEL -> primary_model).
func Load(path string) (Config, error) {
	k := koanf.New(".")
	cfg := Default()
	// Decoding into a pre-filled slice overwrites by index, so lists start empty.
	cfg.EscalationKeywords = nil

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return Config{}, fmt.Errorf("reading config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("accessing config %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	}), nil); err != nil {
		return Config{}, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if len(cfg.EscalationKeywords) == 0 {
		cfg.EscalationKeywords = defaultEscalationKeywords
	}
	cfg.EscalationKeywords = normalizeKeywords(cfg.EscalationKeywords)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Path returns the config file location from HRA_CONFIG, defaulting to config.yaml.
func Path() string {
	if v := strings.TrimSpace(os.Getenv(envPrefix + "CONFIG")); v != "" {
		return v
	}
	return "config.yaml"
}

var validProviders = map[string]bool{
	"ollama": true,
	"openai": true,
}

var validConversationStores = map[string]bool{
	"memory":   true,
	"postgres": true,
}

func (c Config) Validate() error {
	if !validProviders[c.PrimaryProvider] {
		return fmt.Errorf("invalid primary_provider %q: must be one of ollama, openai", c.PrimaryProvider)
	}
	if c.PrimaryProvider == "openai" && c.OpenAIAPIKey == "" && c.OpenAIBaseURL == "" {
		return fmt.Errorf("primary_provider openai requires openai_api_key or openai_base_url")
	}
	if !validConversationStores[c.ConversationStore] {
		return fmt.Errorf("invalid conversation_store %q: must be one of memory, postgres", c.ConversationStore)
	}
	if c.ConversationStore == "postgres" && c.PostgresDSN == "" {
		return fmt.Errorf("conversation_store postgres requires postgres_dsn")
	}
	if c.WeightSemantic < 0 || c.WeightLexical < 0 || c.WeightFAQ < 0 {
		return fmt.Errorf("strategy weights must be non-negative")
	}
	if c.WeightSemantic+c.WeightLexical+c.WeightFAQ <= 0 {
		return fmt.Errorf("at least one strategy weight must be positive")
	}
	if c.LightweightConfidence <= 0 || c.LightweightConfidence > 1 {
		return fmt.Errorf("lightweight_confidence must be in (0, 1]")
	}
	if c.ContextScoreFloor < 0 || c.ContextScoreFloor > 1 {
		return fmt.Errorf("context_score_floor must be in [0, 1]")
	}
	if c.AgreementBoost < 0 || c.AgreementBoost > 1 {
		return fmt.Errorf("agreement_boost must be in [0, 1]")
	}
	if c.StrategyTimeout <= 0 || c.RetrievalTimeout <= 0 {
		return fmt.Errorf("strategy_timeout and retrieval_timeout must be positive")
	}
	if c.PrimaryTimeout <= 0 || c.LightweightTimeout <= 0 {
		return fmt.Errorf("primary_timeout and lightweight_timeout must be positive")
	}
	if c.BreakerMaxCooldown < c.BreakerCooldown {
		return fmt.Errorf("breaker_max_cooldown must not be below breaker_cooldown")
	}
	if c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("chunk_overlap must be smaller than chunk_size")
	}
	if c.APIRateLimitRPS < 0 || c.APIRateLimitBurst < 0 || c.APIMaxInFlight < 0 {
		return fmt.Errorf("api traffic limits must be non-negative")
	}
	return nil
}

// StrategyWeights maps retrieval strategy names to their merge weight.
func (c Config) StrategyWeights() map[string]float64 {
	return map[string]float64{
		"semantic": c.WeightSemantic,
		"lexical":  c.WeightLexical,
		"faq":      c.WeightFAQ,
	}
}

func normalizeKeywords(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, kw := range in {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		if _, ok := seen[kw]; ok {
			continue
		}
		seen[kw] = struct{}{}
		out = append(out, kw)
	}
	return out
}
