// Package config loads the institution profiler's runtime configuration
// from environment variables, following the teacher's getEnv*-helper /
// LoadConfig / ValidateConfig layering.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"log/slog"
)

// Default values
const (
	DefaultBaseDir = ".institution-profiler"

	DefaultSearchTimeout  = 10 * time.Second
	DefaultCrawlTimeout   = 60 * time.Second
	DefaultExtractTimeout = 30 * time.Second

	DefaultCrawlConcurrency = 8
	DefaultCrawlJSEnabled   = true

	DefaultSearchCacheTTL  = 7 * 24 * time.Hour
	DefaultCrawlCacheTTL   = 24 * time.Hour
	DefaultExtractCacheTTL = 7 * 24 * time.Hour
	DefaultCacheMaxEntries = 2000

	DefaultSearchRateLimitPerSecond = 1
	DefaultSearchRateLimitBurst     = 4

	DefaultLLMProvider       = "openai"
	DefaultOpenAIModel       = "gpt-4o-mini"
	DefaultAnthropicModel    = "claude-3-5-haiku-20241022"
	DefaultLLMRequestTimeout = 30 * time.Second
	DefaultLLMMaxRetries     = 3
	DefaultLLMRetryBaseDelay = 1 * time.Second
	DefaultLLMMaxTokens      = 2000
	DefaultLLMTemperature    = 0.1

	DefaultDailyBudgetUSD = 5.0

	DefaultBenchmarkMaxSessionsKept = 500
)

// Config is the fully-resolved runtime configuration for one profiling
// process (spec.md §6's ambient layer).
type Config struct {
	// Storage
	BaseDir string

	// PromptsDir holds operator-supplied YAML overrides for LLM system
	// prompts (spec.md §6.3); empty means the embedded defaults are used.
	PromptsDir string

	// Phase timeouts (spec.md §5's independent per-phase timeouts)
	SearchTimeout  time.Duration
	CrawlTimeout   time.Duration
	ExtractTimeout time.Duration

	// Crawl
	CrawlConcurrency int
	CrawlJSEnabled   bool

	// Cache TTLs per cache namespace (spec.md §4.4/§6.5)
	SearchCacheTTL  time.Duration
	CrawlCacheTTL   time.Duration
	ExtractCacheTTL time.Duration
	CacheMaxEntries int

	// Search rate limiting
	SearchRateLimitPerSecond int
	SearchRateLimitBurst     int

	// LLM provider selection and credentials
	LLMProvider       string // "openai" or "anthropic"
	OpenAIAPIKey      string
	OpenAIModel       string
	AnthropicAPIKey   string
	AnthropicModel    string
	LLMRequestTimeout time.Duration
	LLMMaxRetries     int
	LLMRetryBaseDelay time.Duration
	LLMMaxTokens      int
	LLMTemperature    float64

	// Cost control (spec.md §4.8 budget manager)
	DailyBudgetUSD float64

	// Benchmark
	BenchmarkMaxSessionsKept int
}

// LoadConfig reads every recognized environment variable, applying the
// defaults above, and auto-enables whichever LLM provider has an API key
// set (mirroring the teacher's "AI auto-enabled when OPENAI_API_KEY is
// set" convention).
func LoadConfig() *Config {
	openAIKey := getEnv("OPENAI_API_KEY", "")
	anthropicKey := getEnv("ANTHROPIC_API_KEY", "")

	provider := getEnv("LLM_PROVIDER", "")
	if provider == "" {
		switch {
		case openAIKey != "":
			provider = "openai"
		case anthropicKey != "":
			provider = "anthropic"
		default:
			provider = DefaultLLMProvider
		}
	}

	if openAIKey == "" && anthropicKey == "" {
		slog.Warn("no LLM API key set (OPENAI_API_KEY / ANTHROPIC_API_KEY); ExtractPhase will degrade on every call")
	}

	return &Config{
		BaseDir:    getEnv("PROFILER_BASE_DIR", DefaultBaseDir),
		PromptsDir: getEnv("PROFILER_PROMPTS_DIR", ""),

		SearchTimeout:  getEnvDuration("SEARCH_TIMEOUT", DefaultSearchTimeout),
		CrawlTimeout:   getEnvDuration("CRAWL_TIMEOUT", DefaultCrawlTimeout),
		ExtractTimeout: getEnvDuration("EXTRACT_TIMEOUT", DefaultExtractTimeout),

		CrawlConcurrency: getEnvInt("CRAWL_CONCURRENCY", DefaultCrawlConcurrency),
		CrawlJSEnabled:   getEnvBool("CRAWL_JS_ENABLED", DefaultCrawlJSEnabled),

		SearchCacheTTL:  getEnvDuration("SEARCH_CACHE_TTL", DefaultSearchCacheTTL),
		CrawlCacheTTL:   getEnvDuration("CRAWL_CACHE_TTL", DefaultCrawlCacheTTL),
		ExtractCacheTTL: getEnvDuration("EXTRACT_CACHE_TTL", DefaultExtractCacheTTL),
		CacheMaxEntries: getEnvInt("CACHE_MAX_ENTRIES", DefaultCacheMaxEntries),

		SearchRateLimitPerSecond: getEnvInt("SEARCH_RATE_LIMIT_PER_SECOND", DefaultSearchRateLimitPerSecond),
		SearchRateLimitBurst:     getEnvInt("SEARCH_RATE_LIMIT_BURST", DefaultSearchRateLimitBurst),

		LLMProvider:       provider,
		OpenAIAPIKey:      openAIKey,
		OpenAIModel:       getEnv("OPENAI_MODEL", DefaultOpenAIModel),
		AnthropicAPIKey:   anthropicKey,
		AnthropicModel:    getEnv("ANTHROPIC_MODEL", DefaultAnthropicModel),
		LLMRequestTimeout: getEnvDuration("LLM_REQUEST_TIMEOUT", DefaultLLMRequestTimeout),
		LLMMaxRetries:     getEnvInt("LLM_MAX_RETRIES", DefaultLLMMaxRetries),
		LLMRetryBaseDelay: getEnvDuration("LLM_RETRY_BASE_DELAY", DefaultLLMRetryBaseDelay),
		LLMMaxTokens:      getEnvInt("LLM_MAX_TOKENS", DefaultLLMMaxTokens),
		LLMTemperature:    getEnvFloat64("LLM_TEMPERATURE", DefaultLLMTemperature),

		DailyBudgetUSD: getEnvFloat64("DAILY_BUDGET_USD", DefaultDailyBudgetUSD),

		BenchmarkMaxSessionsKept: getEnvInt("BENCHMARK_MAX_SESSIONS_KEPT", DefaultBenchmarkMaxSessionsKept),
	}
}

// ValidateConfig checks config values and returns an error on the first
// failure. Call after LoadConfig to fail fast on invalid configuration.
func ValidateConfig(cfg *Config) error {
	if strings.TrimSpace(cfg.BaseDir) == "" {
		return fmt.Errorf("PROFILER_BASE_DIR must not be empty")
	}
	if cfg.SearchTimeout <= 0 || cfg.CrawlTimeout <= 0 || cfg.ExtractTimeout <= 0 {
		return fmt.Errorf("phase timeouts must be positive")
	}
	if cfg.CrawlConcurrency <= 0 {
		return fmt.Errorf("CRAWL_CONCURRENCY must be positive")
	}
	if cfg.SearchCacheTTL <= 0 || cfg.CrawlCacheTTL <= 0 || cfg.ExtractCacheTTL <= 0 {
		return fmt.Errorf("cache TTLs must be positive")
	}
	if cfg.SearchRateLimitPerSecond <= 0 || cfg.SearchRateLimitBurst <= 0 {
		return fmt.Errorf("search rate limit values must be positive")
	}
	switch cfg.LLMProvider {
	case "openai", "anthropic":
	default:
		return fmt.Errorf("LLM_PROVIDER must be %q or %q, got %q", "openai", "anthropic", cfg.LLMProvider)
	}
	if cfg.LLMProvider == "openai" && cfg.OpenAIAPIKey == "" {
		return fmt.Errorf("LLM_PROVIDER=openai requires OPENAI_API_KEY")
	}
	if cfg.LLMProvider == "anthropic" && cfg.AnthropicAPIKey == "" {
		return fmt.Errorf("LLM_PROVIDER=anthropic requires ANTHROPIC_API_KEY")
	}
	if cfg.LLMMaxTokens <= 0 {
		return fmt.Errorf("LLM_MAX_TOKENS must be positive")
	}
	if cfg.LLMTemperature < 0 || cfg.LLMTemperature > 2 {
		return fmt.Errorf("LLM_TEMPERATURE must be in range 0..2")
	}
	if cfg.DailyBudgetUSD <= 0 {
		return fmt.Errorf("DAILY_BUDGET_USD must be positive")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvFloat64(key string, fallback float64) float64 {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}
