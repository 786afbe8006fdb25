// Package search implements the SearchPhase of spec.md §4.5: turning a
// (name, type, options) request into a ranked, tiered list of candidate
// URLs plus a short description text, through the narrow Search provider
// capability of §6.1.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/yourorg/institution-profiler/internal/institution"
	"github.com/yourorg/institution-profiler/internal/normalize"
)

// Result is one provider hit, before prioritization (spec.md §4.5).
type Result struct {
	URL     string
	Title   string
	Snippet string
	Domain  string
}

// Provider is the narrow capability interface of spec.md §6.1.
type Provider interface {
	Search(ctx context.Context, query string, numResults int, language, country string, safeSearch bool) ([]Result, error)
}

// Tier is the priority bucket a link is assigned to (spec.md's glossary).
type Tier string

const (
	TierHigh   Tier = "high"
	TierMedium Tier = "medium"
	TierLow    Tier = "low"
)

// Link is a scored, tiered search result.
type Link struct {
	Result
	Score int
	Tier  Tier
}

// Options mirrors the recognized request options relevant to query
// construction (spec.md §6.4).
type Options struct {
	Location           string
	AdditionalKeywords string
	DomainHint         string
	ExcludeTerms       string
}

// typeKeywords enumerates the type-distinguishing tokens scanned against a
// free-text name when institution_type is absent (spec.md §4.5 step 1).
var typeKeywords = map[institution.Type][]string{
	institution.TypeUniversity: {"university", "college"},
	institution.TypeHospital:   {"hospital", "clinic", "medical"},
	institution.TypeBank:       {"bank", "banking", "financial"},
}

// InferType scans name for type-distinguishing tokens, falling back to
// TypeGeneral (spec.md §4.5 step 1, §9 "institution-type inference").
func InferType(name string) institution.Type {
	lower := strings.ToLower(name)
	for _, t := range []institution.Type{institution.TypeUniversity, institution.TypeHospital, institution.TypeBank} {
		for _, kw := range typeKeywords[t] {
			if strings.Contains(lower, kw) {
				return t
			}
		}
	}
	return institution.TypeGeneral
}

// enrichmentTemplate is the fixed per-type term set appended to the query
// (spec.md §4.5 step 2).
var enrichmentTemplate = map[institution.Type]string{
	institution.TypeUniversity: "university college education academic research",
	institution.TypeHospital:   "hospital medical center healthcare patient care",
	institution.TypeBank:       "bank banking financial services institution",
	institution.TypeGeneral:    "organization official information",
}

// siteFilterSuggestion is the type's preferred TLD/site filter appended to
// the query as a soft suggestion (spec.md §4.5 step 4).
var siteFilterSuggestion = map[institution.Type]string{
	institution.TypeUniversity: "site:edu OR site:ac.uk",
	institution.TypeHospital:   "site:org OR site:gov",
	institution.TypeBank:       "site:com",
	institution.TypeGeneral:    "",
}

// preferredTLDs is used by link prioritization's +100 domain-match rule.
var preferredTLDs = map[institution.Type][]string{
	institution.TypeUniversity: {".edu", ".ac.uk"},
	institution.TypeHospital:   {".org", ".gov"},
	institution.TypeBank:       {".com"},
}

var socialMediaHosts = []string{
	"facebook.com", "twitter.com", "x.com", "instagram.com", "linkedin.com",
	"youtube.com", "tiktok.com", "pinterest.com", "reddit.com", "wikipedia.org",
}

// BuildQuery constructs the search string per spec.md §4.5 steps 1–4.
func BuildQuery(name string, t institution.Type, opts Options) (string, institution.Type) {
	if t == "" || t == institution.TypeGeneral {
		if inferred := InferType(name); inferred != institution.TypeGeneral {
			t = inferred
		} else if t == "" {
			t = institution.TypeGeneral
		}
	}

	var b strings.Builder
	b.WriteString(name)
	if enrich := enrichmentTemplate[t]; enrich != "" {
		b.WriteString(" ")
		b.WriteString(enrich)
	}
	if opts.Location != "" {
		fmt.Fprintf(&b, " %s", opts.Location)
	}
	if opts.AdditionalKeywords != "" {
		fmt.Fprintf(&b, " %s", opts.AdditionalKeywords)
	}
	if opts.DomainHint != "" {
		fmt.Fprintf(&b, " site:%s", opts.DomainHint)
	}
	for _, term := range strings.Fields(opts.ExcludeTerms) {
		fmt.Fprintf(&b, " -%s", term)
	}
	if filter := siteFilterSuggestion[t]; filter != "" {
		fmt.Fprintf(&b, " (%s)", filter)
	}
	return b.String(), t
}

// scoreLink applies spec.md §4.5's link prioritization rules.
func scoreLink(r Result, t institution.Type, name string, opts Options) int {
	score := 0
	domainLower := strings.ToLower(r.Domain)
	urlLower := strings.ToLower(r.URL)
	titleLower := strings.ToLower(r.Title)

	for _, tld := range preferredTLDs[t] {
		if strings.HasSuffix(domainLower, tld) {
			score += 100
			break
		}
	}

	matches := 0
	for _, kw := range typeKeywords[t] {
		if matches >= 3 {
			break
		}
		if strings.Contains(urlLower, kw) || strings.Contains(titleLower, kw) {
			score += 15
			matches++
		}
	}

	if strings.Contains(urlLower, "about") || strings.Contains(titleLower, "official") || isHomepagePath(urlLower) {
		score += 50
	}

	for _, host := range socialMediaHosts {
		if strings.Contains(domainLower, host) {
			score -= 20
			break
		}
	}

	if opts.DomainHint != "" && strings.Contains(domainLower, strings.ToLower(opts.DomainHint)) {
		score += 20
	}

	_ = name // name-token matching is folded into typeKeywords above; the
	// raw institution name itself isn't part of the scored keyword set.
	return score
}

// isHomepagePath reports whether u looks like a bare domain root, e.g.
// "https://harvard.edu" or "https://harvard.edu/" with no further path.
func isHomepagePath(u string) bool {
	trimmed := strings.TrimSuffix(u, "/")
	return strings.Count(trimmed, "/") <= 2
}

func tierFor(score int) Tier {
	switch {
	case score >= 100:
		return TierHigh
	case score >= 50:
		return TierMedium
	default:
		return TierLow
	}
}

// Outcome is the phase's output (spec.md §4.5, merged with degradation
// bookkeeping for the orchestrator).
type Outcome struct {
	Query     string
	Type      institution.Type
	Links     []Link
	Degraded  bool
	ErrorKind string
}

// ErrKindSearchProviderUnavailable is spec.md §7's SearchProviderUnavailable.
const ErrKindSearchProviderUnavailable = "search_provider_unavailable"

// Phase runs the SearchPhase. limiter bounds provider calls per spec.md's
// backpressure model; a nil limiter disables rate limiting (tests).
type Phase struct {
	Provider   Provider
	Limiter    *rate.Limiter
	TopK       int
	Language   string
	Country    string
	SafeSearch bool
}

// New builds a Phase with the spec's default top-k of 15.
func New(provider Provider) *Phase {
	return &Phase{Provider: provider, Limiter: rate.NewLimiter(rate.Every(time.Second), 4), TopK: 15, Language: "en", Country: "us", SafeSearch: true}
}

// Run executes the phase. A provider failure degrades rather than fails
// (spec.md §4.5 "Failure semantics").
func (p *Phase) Run(ctx context.Context, name string, t institution.Type, opts Options) Outcome {
	query, resolvedType := BuildQuery(name, t, opts)

	if p.Limiter != nil {
		if err := p.Limiter.Wait(ctx); err != nil {
			return Outcome{Query: query, Type: resolvedType, Degraded: true, ErrorKind: ErrKindSearchProviderUnavailable}
		}
	}

	k := p.TopK
	if k <= 0 {
		k = 15
	}
	results, err := p.Provider.Search(ctx, query, k, p.Language, p.Country, p.SafeSearch)
	if err != nil {
		slog.Warn("search_provider_failed", "query", query, "error", err)
		return Outcome{Query: query, Type: resolvedType, Degraded: true, ErrorKind: ErrKindSearchProviderUnavailable}
	}

	links := make([]Link, 0, len(results))
	for _, r := range results {
		score := scoreLink(r, resolvedType, name, opts)
		links = append(links, Link{Result: r, Score: score, Tier: tierFor(score)})
	}
	sortLinks(links)
	if len(links) > k {
		links = links[:k]
	}

	return Outcome{Query: query, Type: resolvedType, Links: links}
}

func sortLinks(links []Link) {
	tierRank := map[Tier]int{TierHigh: 0, TierMedium: 1, TierLow: 2}
	// simple insertion sort: tier then score descending, stable for equal keys
	for i := 1; i < len(links); i++ {
		j := i
		for j > 0 {
			a, b := links[j-1], links[j]
			less := tierRank[a.Tier] > tierRank[b.Tier] || (tierRank[a.Tier] == tierRank[b.Tier] && a.Score < b.Score)
			if !less {
				break
			}
			links[j-1], links[j] = links[j], links[j-1]
			j--
		}
	}
}

// CacheKey builds the normalize.Options this phase's refinements map onto,
// for the orchestrator to derive a normalize.Key for the search cache.
func CacheKey(opts Options) normalize.Options {
	return normalize.Options{
		Location:           opts.Location,
		AdditionalKeywords: opts.AdditionalKeywords,
		DomainHint:         opts.DomainHint,
		ExcludeTerms:       opts.ExcludeTerms,
	}
}
