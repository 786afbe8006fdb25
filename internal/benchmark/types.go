// Package benchmark implements the thread-safe append-only benchmark
// journal described in spec.md §4.11: per-phase cost/latency/token/cache
// provenance samples, flushed to durable per-session storage and
// aggregated into in-memory counters.
package benchmark

// Category is one of the four benchmark dimensions (spec.md §3).
type Category string

const (
	CategorySearch   Category = "search"
	CategoryCrawl    Category = "crawl"
	CategoryExtract  Category = "extract"
	CategoryPipeline Category = "pipeline"
)

// CacheHitKind is the provenance tag recorded alongside a sample.
type CacheHitKind string

const (
	CacheHitNone       CacheHitKind = ""
	CacheHitDirect     CacheHitKind = "direct_hit"
	CacheHitSimilarity CacheHitKind = "similarity_hit"
	CacheHitFresh      CacheHitKind = "fresh"
	CacheHitStale      CacheHitKind = "stale_refresh"
)

// Sample is one flushed benchmark record (spec.md §3 "BenchmarkSample").
type Sample struct {
	SessionID       string       `json:"session_id"`
	Category        Category     `json:"category"`
	PhaseMS         int64        `json:"phase_ms"`
	CostUSD         float64      `json:"cost_usd"`
	APICalls        int          `json:"api_calls"`
	InputTokens     int          `json:"input_tokens"`
	OutputTokens    int          `json:"output_tokens"`
	CacheHitKind    CacheHitKind `json:"cache_hit_kind"`
	Success         bool         `json:"success"`
	CompletenessPct float64      `json:"completeness_pct"`
	ErrorKind       string       `json:"error_kind,omitempty"`
	ClosedAtEpochMS int64        `json:"closed_at_epoch_ms"`
}
