package benchmark

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Span is an open, in-flight benchmark handle returned by OpenSpan. Its
// fields accumulate via Record/SetCacheHit until CloseSpan flushes it.
type Span struct {
	id        string
	category  Category
	start     time.Time
	costUSD   float64
	apiCalls  int
	inTokens  int
	outTokens int
	cacheHit  CacheHitKind
}

// aggregateState is the in-memory rollup kept across a collector's lifetime.
type aggregateState struct {
	TotalCostUSD       float64                  `json:"total_cost_usd"`
	CallsByCategory    map[Category]int         `json:"calls_by_category"`
	SuccessByCategory  map[Category]int         `json:"success_by_category"`
	CacheHitsByKind    map[CacheHitKind]int     `json:"cache_hits_by_kind"`
	CacheLookupsTotal  int                      `json:"cache_lookups_total"`
	SamplesByCategory  map[Category]int         `json:"samples_by_category"`
}

func newAggregateState() aggregateState {
	return aggregateState{
		CallsByCategory:   make(map[Category]int),
		SuccessByCategory: make(map[Category]int),
		CacheHitsByKind:   make(map[CacheHitKind]int),
		SamplesByCategory: make(map[Category]int),
	}
}

// Collector is the per-process benchmark journal. One Collector is created
// per pipeline startup and shared across concurrent requests; each request
// uses its own session ID.
type Collector struct {
	mu        sync.Mutex
	store     *Store
	aggregate aggregateState
	prom      *promMetrics
}

// NewCollector creates a collector persisting under baseDir (spec.md
// §6.5's "benchmarks/" directory) and exposing Prometheus gauges/counters.
func NewCollector(baseDir string) (*Collector, error) {
	store, err := newStore(baseDir)
	if err != nil {
		return nil, err
	}
	return &Collector{
		store:     store,
		aggregate: newAggregateState(),
		prom:      newPromMetrics(),
	}, nil
}

// NewSessionID mints a fresh session identifier for one pipeline request.
func NewSessionID() string {
	return uuid.NewString()
}

// OpenSpan starts a new span for the given category.
func (c *Collector) OpenSpan(category Category) *Span {
	return &Span{category: category, start: time.Now()}
}

// Record accumulates a named metric onto the span. Recognized metric names:
// "cost_usd", "api_calls", "input_tokens", "output_tokens".
func (s *Span) Record(metric string, value float64) {
	switch metric {
	case "cost_usd":
		s.costUSD += value
	case "api_calls":
		s.apiCalls += int(value)
	case "input_tokens":
		s.inTokens += int(value)
	case "output_tokens":
		s.outTokens += int(value)
	}
}

// SetCacheHit tags the span's cache provenance.
func (s *Span) SetCacheHit(kind CacheHitKind) {
	s.cacheHit = kind
}

// CloseSpan finalizes the span into a Sample, flushes it to the session
// journal, and folds it into the in-memory aggregate.
func (c *Collector) CloseSpan(sessionID string, s *Span, success bool, completenessPct float64, errorKind string) Sample {
	sample := Sample{
		SessionID:       sessionID,
		Category:        s.category,
		PhaseMS:         time.Since(s.start).Milliseconds(),
		CostUSD:         s.costUSD,
		APICalls:        s.apiCalls,
		InputTokens:     s.inTokens,
		OutputTokens:    s.outTokens,
		CacheHitKind:    s.cacheHit,
		Success:         success,
		CompletenessPct: completenessPct,
		ErrorKind:       errorKind,
		ClosedAtEpochMS: time.Now().UnixMilli(),
	}

	c.mu.Lock()
	c.aggregate.TotalCostUSD += sample.CostUSD
	c.aggregate.CallsByCategory[sample.Category] += sample.APICalls
	c.aggregate.SamplesByCategory[sample.Category]++
	if sample.Success {
		c.aggregate.SuccessByCategory[sample.Category]++
	}
	if sample.CacheHitKind != CacheHitNone {
		c.aggregate.CacheHitsByKind[sample.CacheHitKind]++
		c.aggregate.CacheLookupsTotal++
	}
	snapshot := c.aggregate
	c.mu.Unlock()

	if c.prom != nil {
		c.prom.observe(sample)
	}

	_ = c.store.appendSession(sessionID, sample)
	_ = c.store.writeAggregate(snapshot)
	return sample
}

// Aggregate is the read-only query surface over the collector's in-memory
// rollup (spec.md §4.11 "Aggregates are exposed via a read-only query
// method").
type Aggregate struct {
	TotalCostUSD      float64
	SuccessRate       map[Category]float64
	CacheHitRate      float64
}

// Query returns the current aggregate snapshot.
func (c *Collector) Query() Aggregate {
	c.mu.Lock()
	defer c.mu.Unlock()

	rate := make(map[Category]float64, len(c.aggregate.SamplesByCategory))
	for cat, total := range c.aggregate.SamplesByCategory {
		if total == 0 {
			continue
		}
		rate[cat] = float64(c.aggregate.SuccessByCategory[cat]) / float64(total)
	}

	var cacheHitRate float64
	totalLookups := c.aggregate.CacheLookupsTotal
	if totalLookups > 0 {
		hits := c.aggregate.CacheHitsByKind[CacheHitDirect] + c.aggregate.CacheHitsByKind[CacheHitSimilarity]
		cacheHitRate = float64(hits) / float64(totalLookups)
	}

	return Aggregate{
		TotalCostUSD: c.aggregate.TotalCostUSD,
		SuccessRate:  rate,
		CacheHitRate: cacheHitRate,
	}
}
