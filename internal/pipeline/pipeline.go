// Package pipeline implements the PipelineOrchestrator of spec.md §4.9: a
// strictly sequential Search → Crawl → Extract phase chain sharing a
// cancellation token, independent per-phase timeouts, and a benchmark span
// per phase.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/yourorg/institution-profiler/internal/benchmark"
	"github.com/yourorg/institution-profiler/internal/cache"
	"github.com/yourorg/institution-profiler/internal/content"
	"github.com/yourorg/institution-profiler/internal/crawl"
	"github.com/yourorg/institution-profiler/internal/extract"
	"github.com/yourorg/institution-profiler/internal/institution"
	"github.com/yourorg/institution-profiler/internal/normalize"
	"github.com/yourorg/institution-profiler/internal/scoring"
	"github.com/yourorg/institution-profiler/internal/search"
)

// ErrCanceled is spec.md §7's Canceled: the only other top-level error a
// request can surface, alongside ErrSchemaMismatch.
var ErrCanceled = errors.New("pipeline: canceled")

// ErrSchemaMismatch is spec.md §7's SchemaMismatch: fatal, aborts the
// request outright. It fires when a cached or extracted record carries an
// institution type inconsistent with the request's resolved type — a sign
// the cache key collided or the extractor ignored its schema.
var ErrSchemaMismatch = errors.New("pipeline: schema mismatch")

// Request is one profiling request, covering every recognized option of
// spec.md §6.4.
type Request struct {
	InstitutionName    string
	InstitutionType    institution.Type
	Location           string
	AdditionalKeywords string
	DomainHint         string
	ExcludeTerms       string
	ForceRefresh       bool
	SkipExtraction     bool
	Strategy           crawl.Strategy
	MaxPages           int
	DirectText         string // caller-supplied fallback content (§6.4's direct-input path)
}

// Result is the orchestrator's output for one request.
type Result struct {
	SessionID  string
	Record     *institution.Record
	Score      scoring.Breakdown
	Degraded   bool
	ErrorKinds []string
}

// Orchestrator wires the three phases and shared infrastructure together.
type Orchestrator struct {
	Search  *search.Phase
	Crawl   *crawl.Phase
	Extract *extract.Phase

	SearchCache *cache.Deduped // optional; nil disables search caching
	Benchmark   *benchmark.Collector
	Abbrev      map[string]string

	SearchTimeout  time.Duration
	CrawlTimeout   time.Duration
	ExtractTimeout time.Duration
}

// New builds an Orchestrator with spec.md §4.9's default phase timeouts
// (search 10s, crawl 60s, extract 30s).
func New(searchPhase *search.Phase, crawlPhase *crawl.Phase, extractPhase *extract.Phase, bc *benchmark.Collector) *Orchestrator {
	return &Orchestrator{
		Search:         searchPhase,
		Crawl:          crawlPhase,
		Extract:        extractPhase,
		Benchmark:      bc,
		SearchTimeout:  10 * time.Second,
		CrawlTimeout:   60 * time.Second,
		ExtractTimeout: 30 * time.Second,
	}
}

// Run drives Search → Crawl → Extract for req, sharing ctx as the
// cancellation token across all three phases (spec.md §4.9, §5). Only
// ErrSchemaMismatch and ErrCanceled surface as a returned error; every
// other phase failure is folded into Result.Degraded/ErrorKinds
// (spec.md §7's propagation rule).
func (o *Orchestrator) Run(ctx context.Context, req Request) (*Result, error) {
	sessionID := benchmark.NewSessionID()
	pipelineSpan := o.Benchmark.OpenSpan(benchmark.CategoryPipeline)

	result := &Result{SessionID: sessionID}
	phasesOK := 0
	var cacheLookups, cacheHits int

	searchOutcome, fatal, err := o.runSearch(ctx, sessionID, req)
	if fatal {
		o.Benchmark.CloseSpan(sessionID, pipelineSpan, false, 0, "canceled")
		return nil, err
	}
	if searchOutcome.Degraded {
		result.ErrorKinds = append(result.ErrorKinds, searchOutcome.ErrorKind)
	} else {
		phasesOK++
	}
	if searchOutcome.Links != nil || !searchOutcome.Degraded {
		cacheLookups++
	}

	crawlOutcome, fatal, err := o.runCrawl(ctx, sessionID, req, searchOutcome)
	if fatal {
		o.Benchmark.CloseSpan(sessionID, pipelineSpan, false, 0, "canceled")
		return nil, err
	}
	if crawlOutcome.Degraded {
		result.ErrorKinds = append(result.ErrorKinds, crawlOutcome.ErrorKind)
	} else {
		phasesOK++
	}
	for _, p := range crawlOutcome.Pages {
		cacheLookups++
		if p.FromCache {
			cacheHits++
		}
	}

	media := extract.DeriveFromCrawl(crawlOutcome.Pages)

	if req.SkipExtraction {
		rec := institution.NewRecord(resolvedType(req, searchOutcome))
		applyDirectFields(rec, media)
		result.Record = rec
		result.Degraded = len(result.ErrorKinds) > 0
		result.Score = o.score(rec, media, crawlOutcome, phasesOK, cacheLookups, cacheHits)
		o.Benchmark.CloseSpan(sessionID, pipelineSpan, !result.Degraded, result.Score.Total, "")
		return result, nil
	}

	extractOutcome, fatal, err := o.runExtract(ctx, sessionID, req, searchOutcome, crawlOutcome, media)
	if fatal {
		o.Benchmark.CloseSpan(sessionID, pipelineSpan, false, 0, "canceled")
		return nil, err
	}
	if extractOutcome.Degraded {
		result.ErrorKinds = append(result.ErrorKinds, extractOutcome.ErrorKind)
	} else {
		phasesOK++
	}

	if extractOutcome.Record != nil && extractOutcome.Record.Type != resolvedType(req, searchOutcome) {
		o.Benchmark.CloseSpan(sessionID, pipelineSpan, false, 0, "schema_mismatch")
		return nil, fmt.Errorf("%w: extracted type %q does not match resolved type %q",
			ErrSchemaMismatch, extractOutcome.Record.Type, resolvedType(req, searchOutcome))
	}

	result.Record = extractOutcome.Record
	result.Degraded = len(result.ErrorKinds) > 0
	result.Score = o.score(result.Record, media, crawlOutcome, phasesOK, cacheLookups, cacheHits)

	o.Benchmark.CloseSpan(sessionID, pipelineSpan, !result.Degraded, result.Score.Total, "")
	return result, nil
}

func resolvedType(req Request, out search.Outcome) institution.Type {
	if out.Type != "" {
		return out.Type
	}
	return req.InstitutionType
}

func applyDirectFields(rec *institution.Record, media extract.CrawlDerived) {
	if media.Title != "" {
		rec.Set("name", institution.Text(media.Title))
	}
	if media.LogoURL != "" {
		rec.Set("logo_url", institution.Text(media.LogoURL))
	}
	if len(media.SocialLinks) > 0 {
		vals := make([]institution.Value, len(media.SocialLinks))
		for i, s := range media.SocialLinks {
			vals[i] = institution.Text(s)
		}
		rec.Set("social_media", institution.List(vals))
	}
}

func (o *Orchestrator) runSearch(ctx context.Context, sessionID string, req Request) (search.Outcome, bool, error) {
	phaseCtx, cancel := context.WithTimeout(ctx, o.SearchTimeout)
	defer cancel()

	span := o.Benchmark.OpenSpan(benchmark.CategorySearch)
	opts := search.Options{
		Location:           req.Location,
		AdditionalKeywords: req.AdditionalKeywords,
		DomainHint:         req.DomainHint,
		ExcludeTerms:       req.ExcludeTerms,
	}

	fetch := func(fctx context.Context, _ normalize.Key) (interface{}, error) {
		return o.Search.Run(fctx, req.InstitutionName, req.InstitutionType, opts), nil
	}

	var outcome search.Outcome
	var cacheErr error
	switch {
	case o.SearchCache == nil:
		raw, _ := fetch(phaseCtx, normalize.Key{})
		outcome = raw.(search.Outcome)
	case req.ForceRefresh:
		key := normalize.NewKey(req.InstitutionName, req.InstitutionType, search.CacheKey(opts), o.Abbrev)
		raw, err := o.SearchCache.ForceFetch(phaseCtx, key, fetch)
		outcome, cacheErr = coerceSearchOutcome(raw, err)
	default:
		key := normalize.NewKey(req.InstitutionName, req.InstitutionType, search.CacheKey(opts), o.Abbrev)
		raw, _, err := o.SearchCache.GetOrFetch(phaseCtx, key, fetch)
		outcome, cacheErr = coerceSearchOutcome(raw, err)
	}
	if cacheErr != nil {
		outcome = search.Outcome{Degraded: true, ErrorKind: search.ErrKindSearchProviderUnavailable}
	}

	if errors.Is(phaseCtx.Err(), context.Canceled) {
		o.Benchmark.CloseSpan(sessionID, span, false, 0, "canceled")
		return outcome, true, fmt.Errorf("%w: search phase", ErrCanceled)
	}

	o.Benchmark.CloseSpan(sessionID, span, !outcome.Degraded, 0, outcome.ErrorKind)
	return outcome, false, nil
}

// coerceSearchOutcome recovers a search.Outcome from whatever the cache
// handed back: the live value on an L1 hit, or a generic map after an L2
// round trip through JSON.
func coerceSearchOutcome(v interface{}, err error) (search.Outcome, error) {
	if err != nil {
		return search.Outcome{}, err
	}
	if out, ok := v.(search.Outcome); ok {
		return out, nil
	}
	data, merr := json.Marshal(v)
	if merr != nil {
		return search.Outcome{}, merr
	}
	var out search.Outcome
	if uerr := json.Unmarshal(data, &out); uerr != nil {
		return search.Outcome{}, uerr
	}
	return out, nil
}

func (o *Orchestrator) runCrawl(ctx context.Context, sessionID string, req Request, searchOutcome search.Outcome) (crawl.Outcome, bool, error) {
	phaseCtx, cancel := context.WithTimeout(ctx, o.CrawlTimeout)
	defer cancel()

	span := o.Benchmark.OpenSpan(benchmark.CategoryCrawl)

	strategy := req.Strategy
	if strategy == "" {
		strategy = crawl.StrategyPriorityBased
	}
	outcome := o.Crawl.Run(phaseCtx, searchOutcome.Links, req.InstitutionName, strategy, req.MaxPages)

	if errors.Is(phaseCtx.Err(), context.Canceled) {
		o.Benchmark.CloseSpan(sessionID, span, false, 0, "canceled")
		return outcome, true, fmt.Errorf("%w: crawl phase", ErrCanceled)
	}

	o.Benchmark.CloseSpan(sessionID, span, !outcome.Degraded, 0, outcome.ErrorKind)
	return outcome, false, nil
}

func (o *Orchestrator) runExtract(ctx context.Context, sessionID string, req Request, searchOutcome search.Outcome, crawlOutcome crawl.Outcome, media extract.CrawlDerived) (extract.Outcome, bool, error) {
	phaseCtx, cancel := context.WithTimeout(ctx, o.ExtractTimeout)
	defer cancel()

	span := o.Benchmark.OpenSpan(benchmark.CategoryExtract)

	var searchSnippet, searchDescription string
	if len(searchOutcome.Links) > 0 {
		searchSnippet = searchOutcome.Links[0].Snippet
		searchDescription = searchOutcome.Links[0].Title + "\n\n" + searchOutcome.Links[0].Snippet
	}
	prepared := content.Prepare(content.Inputs{
		CrawlPages:        crawlOutcome.Pages,
		SearchDescription: searchDescription,
		SearchSnippet:     searchSnippet,
		DirectText:        req.DirectText,
	})

	t := resolvedType(req, searchOutcome)
	var outcome extract.Outcome
	if req.ForceRefresh {
		outcome = o.Extract.RunForceRefresh(phaseCtx, req.InstitutionName, t, prepared.Text, media)
	} else {
		outcome = o.Extract.Run(phaseCtx, req.InstitutionName, t, prepared.Text, media)
	}

	if errors.Is(phaseCtx.Err(), context.Canceled) {
		o.Benchmark.CloseSpan(sessionID, span, false, 0, "canceled")
		return outcome, true, fmt.Errorf("%w: extract phase", ErrCanceled)
	}

	o.Benchmark.CloseSpan(sessionID, span, !outcome.Degraded, 0, outcome.ErrorKind)
	return outcome, false, nil
}

// score assembles scoring.MediaSignals from the crawl outcome's pages and
// the phase-completion count, then runs the QualityScorer (spec.md §4.10).
func (o *Orchestrator) score(rec *institution.Record, media extract.CrawlDerived, crawlOutcome crawl.Outcome, phasesOK, cacheLookups, cacheHits int) scoring.Breakdown {
	attempted := len(crawlOutcome.Pages)
	succeeded := 0
	for _, p := range crawlOutcome.Pages {
		if p.Err == nil {
			succeeded++
		}
	}
	var crawlSuccessRate float64
	if attempted > 0 {
		crawlSuccessRate = float64(succeeded) / float64(attempted)
	}

	var cacheHitRate float64
	if cacheLookups > 0 {
		cacheHitRate = float64(cacheHits) / float64(cacheLookups)
	}

	sources := 0
	for _, p := range crawlOutcome.Pages {
		if p.Err == nil {
			sources++
		}
	}

	signals := scoring.MediaSignals{
		HasLogo:            media.LogoURL != "",
		ImageCount:         len(media.Images),
		FacilityImageCount: len(media.FacilityImages),
		CampusImageCount:   len(media.CampusImages),
		SocialLinkCount:    len(media.SocialLinks),
		DocumentCount:      0,
		SourceCount:        sources,
		CrawlSuccessRate:   crawlSuccessRate,
		TotalBytes:         crawlOutcome.TotalBytes,
		CacheHitRate:       cacheHitRate,
		PhasesOK:           phasesOK,
	}
	if rec == nil {
		rec = institution.NewRecord(institution.TypeGeneral)
	}
	return scoring.Score(rec, signals)
}
