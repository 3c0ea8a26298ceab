package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/kirillkom/bafoeg-assistant/internal/core/domain"
)

type Config struct {
	LogLevel  string
	LogFormat string

	OpenRouterBaseURL     string
	OpenRouterModel       string
	OpenRouterTemperature float64
	OpenRouterMaxTokens   int
	OpenRouterReferer     string
	OpenRouterTitle       string
	OpenRouterAPIKey      string

	CredentialPrefix string
	CredentialDir    string

	BackendURL          string
	BackendProbeTimeout time.Duration

	KnowledgeIndex   string
	KnowledgeBaseDir string
	ScoringProfile   string
	HistoryLimit     int

	APIPort             string
	APIRateLimitRPS     float64
	APIRateLimitBurst   int
	APIMaxInFlight      int
	APIBackpressureWait time.Duration
	APICORSOrigin       string

	NATSURL     string
	NATSSubject string

	IndexFetchRetryMaxAttempts    int
	IndexFetchRetryInitialBackoff time.Duration
	IndexFetchRetryMaxBackoff     time.Duration
	IndexFetchBreakerEnabled      bool
	IndexFetchBreakerMinRequests  int
	IndexFetchBreakerFailureRatio float64
	IndexFetchBreakerOpenTimeout  time.Duration

	CompletionBreakerEnabled      bool
	CompletionBreakerMinRequests  int
	CompletionBreakerFailureRatio float64
	CompletionBreakerOpenTimeout  time.Duration
}

// Load reads the environment. Values from a .env file in the working
// directory are applied first without overriding variables already set.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		LogLevel:  mustEnv("LOG_LEVEL", "info"),
		LogFormat: mustEnv("LOG_FORMAT", "json"),

		OpenRouterBaseURL:     mustEnv("OPENROUTER_BASE_URL", "https://openrouter.ai/api/v1"),
		OpenRouterModel:       mustEnv("OPENROUTER_MODEL", "openai/gpt-oss-120b:free"),
		OpenRouterTemperature: mustEnvFloat("OPENROUTER_TEMPERATURE", 0.7),
		OpenRouterMaxTokens:   mustEnvInt("OPENROUTER_MAX_TOKENS", 1000),
		OpenRouterReferer:     mustEnv("OPENROUTER_REFERER", ""),
		OpenRouterTitle:       mustEnv("OPENROUTER_TITLE", "BAföG Chatbot"),
		OpenRouterAPIKey:      mustEnv("OPENROUTER_API_KEY", ""),

		CredentialPrefix: mustEnv("CREDENTIAL_PREFIX", "sk-or-"),
		CredentialDir:    mustEnv("CREDENTIAL_DIR", defaultCredentialDir()),

		BackendURL:          optionalEnv("BACKEND_URL", "http://localhost:5000"),
		BackendProbeTimeout: mustEnvDuration("BACKEND_PROBE_TIMEOUT", 2*time.Second),

		KnowledgeIndex:   mustEnv("KNOWLEDGE_INDEX", "knowledge_base/knowledge_index.json"),
		KnowledgeBaseDir: mustEnv("KNOWLEDGE_BASE_DIR", "knowledge_base"),
		ScoringProfile:   mustEnv("SCORING_PROFILE", ""),
		HistoryLimit:     mustEnvInt("HISTORY_LIMIT", domain.DefaultHistoryLimit),

		APIPort:             mustEnv("API_PORT", "5000"),
		APIRateLimitRPS:     mustEnvFloat("API_RATE_LIMIT_RPS", 5),
		APIRateLimitBurst:   mustEnvInt("API_RATE_LIMIT_BURST", 10),
		APIMaxInFlight:      mustEnvInt("API_MAX_IN_FLIGHT", 16),
		APIBackpressureWait: mustEnvDuration("API_BACKPRESSURE_WAIT", 250*time.Millisecond),
		APICORSOrigin:       optionalEnv("API_CORS_ORIGIN", "*"),

		NATSURL:     mustEnv("NATS_URL", ""),
		NATSSubject: mustEnv("NATS_SUBJECT", "knowledge.index.rebuilt"),

		IndexFetchRetryMaxAttempts:    mustEnvInt("INDEX_FETCH_RETRY_MAX_ATTEMPTS", 3),
		IndexFetchRetryInitialBackoff: mustEnvDuration("INDEX_FETCH_RETRY_INITIAL_BACKOFF", 200*time.Millisecond),
		IndexFetchRetryMaxBackoff:     mustEnvDuration("INDEX_FETCH_RETRY_MAX_BACKOFF", 2*time.Second),
		IndexFetchBreakerEnabled:      mustEnvBool("INDEX_FETCH_BREAKER_ENABLED", true),
		IndexFetchBreakerMinRequests:  mustEnvInt("INDEX_FETCH_BREAKER_MIN_REQUESTS", 5),
		IndexFetchBreakerFailureRatio: mustEnvFloat("INDEX_FETCH_BREAKER_FAILURE_RATIO", 0.5),
		IndexFetchBreakerOpenTimeout:  mustEnvDuration("INDEX_FETCH_BREAKER_OPEN_TIMEOUT", 30*time.Second),

		CompletionBreakerEnabled:      mustEnvBool("COMPLETION_BREAKER_ENABLED", true),
		CompletionBreakerMinRequests:  mustEnvInt("COMPLETION_BREAKER_MIN_REQUESTS", 5),
		CompletionBreakerFailureRatio: mustEnvFloat("COMPLETION_BREAKER_FAILURE_RATIO", 0.6),
		CompletionBreakerOpenTimeout:  mustEnvDuration("COMPLETION_BREAKER_OPEN_TIMEOUT", 30*time.Second),
	}
}

// LoadScoringProfile reads scoring weights from a YAML file. Keys missing from
// the file keep their default weight; an empty path yields the defaults.
func LoadScoringProfile(path string) (domain.ScoringWeights, error) {
	weights := domain.DefaultScoringWeights()
	if path == "" {
		return weights, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return weights, fmt.Errorf("read scoring profile: %w", err)
	}
	if err := yaml.Unmarshal(raw, &weights); err != nil {
		return domain.DefaultScoringWeights(), fmt.Errorf("parse scoring profile: %w", err)
	}
	if weights.Exact < 0 || weights.KeywordContainsToken < 0 || weights.TokenContainsKeyword < 0 ||
		weights.NameMatch < 0 || weights.MinPartialLength < 0 {
		return domain.DefaultScoringWeights(), fmt.Errorf("scoring profile %s: weights must not be negative", path)
	}
	return weights, nil
}

func defaultCredentialDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".bafoeg-assistant"
	}
	return filepath.Join(dir, "bafoeg-assistant")
}

func mustEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

// optionalEnv keeps an explicitly empty value, so BACKEND_URL= disables the
// backend.
func optionalEnv(key, fallback string) string {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	return v
}

func mustEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func mustEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func mustEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func mustEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		return fallback
	}
	return d
}
