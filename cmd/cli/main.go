package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/yourorg/institution-profiler/internal/benchmark"
	"github.com/yourorg/institution-profiler/internal/cache"
	"github.com/yourorg/institution-profiler/internal/config"
	"github.com/yourorg/institution-profiler/internal/crawl"
	"github.com/yourorg/institution-profiler/internal/extract"
	"github.com/yourorg/institution-profiler/internal/institution"
	"github.com/yourorg/institution-profiler/internal/llm"
	"github.com/yourorg/institution-profiler/internal/pipeline"
	"github.com/yourorg/institution-profiler/internal/search"
)

const (
	version = "1.0.0"
	usage   = `Institution Profiler CLI

Usage:
  profiler <command> [options]

Commands:
  profile     Profile one institution: search, crawl, extract, and score it
  version     Print version information

Run 'profiler <command> --help' for more information on a command.

Examples:
  profiler profile --name "Harvard University"
  profiler profile --name "Acme Bank" --type bank --force-refresh --json
`
)

func main() {
	_ = godotenv.Load()
	_ = godotenv.Load("../.env")

	if len(os.Args) < 2 {
		fmt.Print(usage)
		os.Exit(0)
	}

	switch os.Args[1] {
	case "profile":
		runProfile(os.Args[2:])
	case "version", "-v", "--version":
		fmt.Printf("profiler version %s\n", version)
	case "help", "-h", "--help":
		fmt.Print(usage)
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		fmt.Print(usage)
		os.Exit(1)
	}
}

func runProfile(args []string) {
	fs := flag.NewFlagSet("profile", flag.ExitOnError)
	name := fs.String("name", "", "Institution name (required)")
	instType := fs.String("type", "", "Institution type: university, hospital, bank (default: inferred)")
	location := fs.String("location", "", "Location refinement")
	keywords := fs.String("keywords", "", "Additional search keywords")
	domainHint := fs.String("domain-hint", "", "Preferred domain, e.g. harvard.edu")
	excludeTerms := fs.String("exclude", "", "Space-separated terms to exclude from search")
	strategy := fs.String("strategy", "priority_based", "Crawl tier strategy: equal, priority_based, high_links, high_depth")
	maxPages := fs.Int("max-pages", 0, "Global cap on pages crawled (0 = tier defaults)")
	forceRefresh := fs.Bool("force-refresh", false, "Bypass the search and extract caches for this request (the crawl cache is still read; writes still populate caches)")
	skipExtraction := fs.Bool("skip-extraction", false, "Skip the LLM extraction phase; return crawl-derived fields only")
	jsonOutput := fs.Bool("json", false, "Output the full record and score as JSON")

	fs.Usage = func() {
		fmt.Println(`Profile one institution end to end

Usage:
  profiler profile --name <name> [options]

Options:
  --name            Institution name (required)
  --type            Institution type: university, hospital, bank
  --location        Location refinement, e.g. "Cambridge, MA"
  --keywords        Additional search keywords
  --domain-hint     Preferred domain, e.g. harvard.edu
  --exclude         Space-separated terms to exclude from search
  --strategy        Crawl tier strategy (default: priority_based)
  --max-pages       Global cap on pages crawled
  --force-refresh   Bypass the search and extract caches for this request
  --skip-extraction Skip the LLM extraction phase
  --json            Output as JSON`)
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	if *name == "" {
		fmt.Fprintln(os.Stderr, "Error: --name is required")
		fs.Usage()
		os.Exit(1)
	}

	cfg := config.LoadConfig()
	if err := config.ValidateConfig(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid configuration: %v\n", err)
		os.Exit(1)
	}

	orchestrator, cleanup, err := buildOrchestrator(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	req := pipeline.Request{
		InstitutionName:    *name,
		InstitutionType:    institution.ParseType(*instType),
		Location:           *location,
		AdditionalKeywords: *keywords,
		DomainHint:         *domainHint,
		ExcludeTerms:       *excludeTerms,
		ForceRefresh:       *forceRefresh,
		SkipExtraction:     *skipExtraction,
		Strategy:           crawl.Strategy(*strategy),
		MaxPages:           *maxPages,
	}

	slog.Info("profiling institution", "name", *name, "type", string(req.InstitutionType))

	result, err := orchestrator.Run(context.Background(), req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: profiling failed: %v\n", err)
		os.Exit(1)
	}

	if *jsonOutput {
		printJSON(result)
		return
	}
	printSummary(result)
}

// buildOrchestrator wires a pipeline.Orchestrator from cfg: an LLM
// provider (the configured LLM_PROVIDER as primary, the other provider as
// fallback when both keys are present), the go-rod crawl engine, a
// SerpAPI-backed search provider, and the per-phase search/crawl/extract
// caches plus the benchmark collector.
func buildOrchestrator(cfg *config.Config) (*pipeline.Orchestrator, func(), error) {
	searchCacheStore, err := cache.NewPersistent(cfg.BaseDir, "search")
	if err != nil {
		return nil, nil, fmt.Errorf("open search cache: %w", err)
	}
	crawlCacheStore, err := cache.NewPersistent(cfg.BaseDir, "crawl")
	if err != nil {
		return nil, nil, fmt.Errorf("open crawl cache: %w", err)
	}
	extractCacheStore, err := cache.NewPersistent(cfg.BaseDir, "extract")
	if err != nil {
		return nil, nil, fmt.Errorf("open extract cache: %w", err)
	}

	searchML := cache.NewMultiLevel(cache.NewMemory(cfg.CacheMaxEntries), searchCacheStore, cfg.SearchCacheTTL)
	extractML := cache.NewMultiLevel(cache.NewMemory(cfg.CacheMaxEntries), extractCacheStore, cfg.ExtractCacheTTL)

	searchProvider := buildSearchProvider()
	searchPhase := search.New(searchProvider)

	engine := crawl.NewRodEngine(cfg.CrawlJSEnabled)
	crawlPhase := crawl.New(engine, crawl.NewPersistentCache(crawlCacheStore))
	crawlPhase.Concurrency = cfg.CrawlConcurrency
	crawlPhase.JSEnabled = cfg.CrawlJSEnabled

	llmProvider, err := buildLLMProvider(cfg)
	if err != nil {
		return nil, nil, err
	}
	promptRegistry, err := extract.NewRegistryFromFiles(cfg.PromptsDir)
	if err != nil {
		return nil, nil, fmt.Errorf("load extraction prompts: %w", err)
	}

	extractPhase := extract.New(llmProvider)
	extractPhase.Cache = cache.NewDeduped(extractML)
	extractPhase.Prompts = promptRegistry
	extractPhase.Model = resolveModel(cfg)
	extractPhase.MaxTokens = cfg.LLMMaxTokens
	extractPhase.Temperature = cfg.LLMTemperature

	bc, err := benchmark.NewCollector(cfg.BaseDir)
	if err != nil {
		return nil, nil, fmt.Errorf("open benchmark store: %w", err)
	}

	orchestrator := pipeline.New(searchPhase, crawlPhase, extractPhase, bc)
	orchestrator.SearchCache = cache.NewDeduped(searchML)
	orchestrator.SearchTimeout = cfg.SearchTimeout
	orchestrator.CrawlTimeout = cfg.CrawlTimeout
	orchestrator.ExtractTimeout = cfg.ExtractTimeout

	cleanup := func() {
		if err := engine.Close(); err != nil {
			slog.Warn("crawl engine close failed", "error", err)
		}
	}
	return orchestrator, cleanup, nil
}

func buildSearchProvider() search.Provider {
	if key := os.Getenv("SERPAPI_API_KEY"); key != "" {
		return search.NewSerpAPIProvider(key)
	}
	slog.Warn("SERPAPI_API_KEY not set; search phase will degrade on every call")
	return search.NewSerpAPIProvider("")
}

func resolveModel(cfg *config.Config) string {
	if cfg.LLMProvider == "anthropic" {
		return cfg.AnthropicModel
	}
	return cfg.OpenAIModel
}

// buildLLMProvider constructs the configured primary provider, chaining to
// the other provider as a fallback when both API keys are present
// (spec.md's DOMAIN STACK "LLM provider fallback").
func buildLLMProvider(cfg *config.Config) (llm.LLMProvider, error) {
	costs := llm.NewCostCalculator()

	var primary llm.LLMProvider
	var secondary llm.LLMProvider

	buildOpenAI := func() (llm.LLMProvider, error) {
		return llm.NewOpenAIProvider(llm.OpenAIConfig{
			Model:          cfg.OpenAIModel,
			APIKey:         cfg.OpenAIAPIKey,
			RequestTimeout: cfg.LLMRequestTimeout,
			MaxRetries:     cfg.LLMMaxRetries,
			RetryBaseDelay: cfg.LLMRetryBaseDelay,
		}, costs)
	}
	buildAnthropic := func() (llm.LLMProvider, error) {
		return llm.NewAnthropicProvider(llm.AnthropicConfig{
			Model:          cfg.AnthropicModel,
			APIKey:         cfg.AnthropicAPIKey,
			RequestTimeout: cfg.LLMRequestTimeout,
			MaxRetries:     cfg.LLMMaxRetries,
			RetryBaseDelay: cfg.LLMRetryBaseDelay,
		}, costs)
	}

	if cfg.LLMProvider == "anthropic" {
		p, err := buildAnthropic()
		if err != nil {
			return nil, fmt.Errorf("build anthropic provider: %w", err)
		}
		primary = p
		if cfg.OpenAIAPIKey != "" {
			if s, err := buildOpenAI(); err == nil {
				secondary = s
			}
		}
	} else {
		p, err := buildOpenAI()
		if err != nil {
			return nil, fmt.Errorf("build openai provider: %w", err)
		}
		primary = p
		if cfg.AnthropicAPIKey != "" {
			if s, err := buildAnthropic(); err == nil {
				secondary = s
			}
		}
	}

	if secondary == nil {
		return primary, nil
	}
	return &fallbackProvider{chain: llm.NewFallbackChain(primary, secondary), primary: primary}, nil
}

// fallbackProvider adapts llm.FallbackChain (which exposes only Call) onto
// the llm.LLMProvider interface ExtractPhase expects.
type fallbackProvider struct {
	chain   *llm.FallbackChain
	primary llm.LLMProvider
}

func (f *fallbackProvider) CallStructured(ctx context.Context, req llm.LLMRequest) (*llm.LLMResponse, error) {
	return f.chain.Call(ctx, req)
}

func (f *fallbackProvider) Name() string    { return f.primary.Name() }
func (f *fallbackProvider) ModelID() string { return f.primary.ModelID() }

func printJSON(result *pipeline.Result) {
	payload := map[string]interface{}{
		"session_id":  result.SessionID,
		"type":        result.Record.Type,
		"fields":      result.Record.Fields,
		"score":       result.Score,
		"degraded":    result.Degraded,
		"error_kinds": result.ErrorKinds,
	}
	out, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding JSON: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(out))
}

func printSummary(result *pipeline.Result) {
	fmt.Printf("Session:  %s\n", result.SessionID)
	fmt.Printf("Type:     %s\n", result.Record.Type)
	fmt.Printf("Score:    %.1f (%s)\n", result.Score.Total, result.Score.Rating)
	fmt.Printf("Fields:   %d\n", len(result.Record.Fields))
	if result.Degraded {
		fmt.Printf("Degraded: yes (%v)\n", result.ErrorKinds)
	} else {
		fmt.Println("Degraded: no")
	}
	if name, ok := result.Record.Fields["name"]; ok {
		fmt.Printf("Name:     %s\n", name.Text())
	}
}
