package crawl

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/yourorg/institution-profiler/internal/search"
)

// Engine is the narrow crawler capability interface of spec.md §6.2.
type Engine interface {
	Fetch(ctx context.Context, url string, jsEnabled bool, followDepth, maxPagesFromThis int) (Artifact, error)
}

// Cache is the narrow per-URL crawl-cache surface the phase needs; the
// concrete implementations are PersistentCache (over internal/cache's
// Persistent store) and MemoryCache in cache.go, both with the 1-day
// URLCacheTTL (spec.md §4.4).
type Cache interface {
	Get(canonicalURL string) (Artifact, bool)
	Put(canonicalURL string, artifact Artifact)
}

// DefaultConcurrency is the bounded URL-fetch parallelism within one crawl
// phase (spec.md §5's default of 8).
const DefaultConcurrency = 8

// PageTextBudget caps markdown.primary_content contributed by a single
// page into the phase's aggregated total_text (spec.md §4.6).
const PageTextBudget = 2000

// ErrKindCrawlEmpty is spec.md §7's CrawlEmpty.
const ErrKindCrawlEmpty = "crawl_empty"

// PageResult pairs a fetched artifact with its scored images.
type PageResult struct {
	Artifact Artifact
	Images   []ScoredImage
	FromCache bool
	Err       error
}

// Outcome is the phase's output (spec.md §4.6).
type Outcome struct {
	Pages      []PageResult
	TotalText  string
	TotalBytes int64
	Degraded   bool
	ErrorKind  string
}

// Phase runs the CrawlPhase: priority-tiered fetching, content capture, and
// media scoring, bounded by a worker pool (spec.md §5, §9 "Concurrent crawl
// with cancellation").
type Phase struct {
	Engine      Engine
	Cache       Cache
	Concurrency int
	JSEnabled   bool
}

// New builds a Phase with the spec's default bounded concurrency.
func New(engine Engine, cache Cache) *Phase {
	return &Phase{Engine: engine, Cache: cache, Concurrency: DefaultConcurrency, JSEnabled: true}
}

// job is one URL assigned to a tier, carrying its budget.
type job struct {
	url    string
	tier   search.Tier
	budget TierBudget
	index  int // original priority order, for deterministic recombination
}

// Run fetches links' URLs under tier budgets modulated by strategy and a
// global maxPages cap, deduplicating by canonical URL, consulting the
// per-URL cache, and scoring media over every returned image
// (spec.md §4.6 steps 1–3).
//
// Results are recombined in priority order regardless of completion order
// (spec.md §5), so downstream merges stay deterministic.
func (p *Phase) Run(ctx context.Context, links []search.Link, institutionName string, strategy Strategy, maxPages int) Outcome {
	budgets := applyGlobalCap(ResolveTierBudgets(strategy), maxPages)

	seen := map[string]bool{}
	var jobs []job
	for i, l := range links {
		canon := canonicalize(l.URL)
		if seen[canon] {
			continue
		}
		seen[canon] = true
		budget := budgets[l.Tier]
		if budget.MaxPages <= 0 {
			continue
		}
		jobs = append(jobs, job{url: canon, tier: l.Tier, budget: budget, index: i})
	}

	// Enforce each tier's MaxPages cap on the job list itself, preserving
	// original (already-prioritized) order within a tier.
	jobs = capPerTier(jobs)

	results := make([]PageResult, len(jobs))
	concurrency := p.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	g, gctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, concurrency)
	var mu sync.Mutex

	for idx, j := range jobs {
		idx, j := idx, j
		g.Go(func() error {
			select {
			case sem <- struct{}{}:
			case <-gctx.Done():
				return gctx.Err()
			}
			defer func() { <-sem }()

			res := p.fetchOne(gctx, j, institutionName)
			mu.Lock()
			results[idx] = res
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait() // per-URL failures are isolated; only ctx cancellation aborts early

	ordered := make([]PageResult, 0, len(results))
	for _, r := range results {
		if r.Artifact.URL != "" || r.Err != nil {
			ordered = append(ordered, r)
		}
	}

	return assemble(ordered)
}

func (p *Phase) fetchOne(ctx context.Context, j job, institutionName string) PageResult {
	if cached, ok := p.Cache.Get(j.url); ok {
		return PageResult{Artifact: cached, Images: scoreImages(cached.Images, institutionName), FromCache: true}
	}

	artifact, err := p.Engine.Fetch(ctx, j.url, p.JSEnabled, j.budget.MaxDepth, j.budget.MaxPages)
	if err != nil {
		if ctx.Err() != nil {
			return PageResult{Err: ctx.Err()}
		}
		slog.Warn("crawl_fetch_failed", "url", j.url, "error", err)
		return PageResult{Err: err}
	}

	// Cancellation leaves caches un-written with partial results
	// (spec.md §5); only a completed fetch is ever persisted.
	p.Cache.Put(j.url, artifact)
	return PageResult{Artifact: artifact, Images: scoreImages(artifact.Images, institutionName)}
}

func scoreImages(images []Image, institutionName string) []ScoredImage {
	out := make([]ScoredImage, 0, len(images))
	for _, img := range images {
		out = append(out, Score(img, institutionName))
	}
	return out
}

func assemble(pages []PageResult) Outcome {
	successCount := 0
	var textParts []string
	var totalBytes int64

	for i, pr := range pages {
		if pr.Err != nil {
			continue
		}
		successCount++
		totalBytes += pr.Artifact.SizeBytes

		content := pr.Artifact.Markdown.PrimaryContent
		if len(content) > PageTextBudget {
			content = truncateAtBoundary(content, PageTextBudget)
		}
		header := "[page " + strconv.Itoa(i+1) + ": " + pr.Artifact.URL + "]"
		textParts = append(textParts, header+"\n"+content)
	}

	if successCount == 0 {
		return Outcome{Pages: pages, Degraded: true, ErrorKind: ErrKindCrawlEmpty}
	}

	return Outcome{
		Pages:      pages,
		TotalText:  strings.Join(textParts, "\n\n"),
		TotalBytes: totalBytes,
	}
}

func capPerTier(jobs []job) []job {
	counts := map[search.Tier]int{}
	var out []job
	for _, j := range jobs {
		if counts[j.tier] >= j.budget.MaxPages {
			continue
		}
		counts[j.tier]++
		out = append(out, j)
	}
	return out
}

func canonicalize(rawURL string) string {
	u := strings.TrimSpace(rawURL)
	u = strings.TrimSuffix(u, "/")
	u = strings.TrimPrefix(u, "https://")
	u = strings.TrimPrefix(u, "http://")
	u = strings.TrimPrefix(u, "www.")
	return strings.ToLower(u)
}

func truncateAtBoundary(s string, budget int) string {
	if len(s) <= budget {
		return s
	}
	window := s[:budget]
	tolerance := budget / 10
	for _, boundary := range []string{"\n\n", ". ", "\n"} {
		if idx := strings.LastIndex(window, boundary); idx >= budget-tolerance {
			return window[:idx+len(boundary)]
		}
	}
	if idx := strings.LastIndexByte(window, ' '); idx > 0 {
		return window[:idx]
	}
	return window
}

