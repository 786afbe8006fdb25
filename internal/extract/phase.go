package extract

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/yourorg/institution-profiler/internal/cache"
	"github.com/yourorg/institution-profiler/internal/crawl"
	"github.com/yourorg/institution-profiler/internal/institution"
	"github.com/yourorg/institution-profiler/internal/llm"
	"github.com/yourorg/institution-profiler/internal/normalize"
)

// ErrKindExtractFailed is spec.md §7's ExtractFailed.
const ErrKindExtractFailed = "extract_failed"

// systemPromptTemplate embeds the field schema's field names directly into
// the instruction (spec.md §4.8 "embeds the field schema and the prepared
// content"); unknown keys are to be omitted by the model, and parsing below
// drops anything that doesn't match institution.Schema regardless.
const systemPromptTemplate = `You are an institution-profiling assistant. Extract factual fields about the named institution from the provided content.
Only use fields from this list: %s
Emit a JSON object with only the fields you can support from the content; omit anything you cannot find. Do not invent values.`

// BuildSystemPrompt renders the embedded schema-aware system prompt for
// type t. Phases configured with a PromptRegistry (spec.md §6.3's LLM
// capability being a configuration concern) use buildSystemPromptFromRegistry
// instead, to honor an operator-supplied YAML override.
func BuildSystemPrompt(t institution.Type) string {
	return fmt.Sprintf(systemPromptTemplate, strings.Join(eligibleFieldNames(t), ", "))
}

// ContentHash hashes the prepared content for the cache key
// (spec.md §4.8 "Caching: by (NormalizedKey, hash(prepared_content),
// schema_version, model_id)").
func ContentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])[:16]
}

// Outcome is the phase's output: the merged record plus degradation info.
type Outcome struct {
	Record    *institution.Record
	Degraded  bool
	ErrorKind string
	Response  *llm.LLMResponse
}

// Phase runs the ExtractPhase.
type Phase struct {
	Provider    llm.LLMProvider
	Cache       *cache.Deduped // optional; nil disables extraction caching
	Abbrev      map[string]string
	Prompts     *PromptRegistry // optional; nil falls back to the embedded template
	Model       string
	MaxTokens   int
	Temperature float64
}

// New builds a Phase with sane extraction defaults.
func New(provider llm.LLMProvider) *Phase {
	return &Phase{Provider: provider, MaxTokens: 2000, Temperature: 0.1}
}

// Run calls the LLM capability, parses its response against the schema,
// and merges in crawl-derived media. On transport or parse failure, it
// returns a record built only from crawl-derived fields
// (spec.md §4.8 "Failure semantics"). When p.Cache is set, the LLM-derived
// fields are cached by (NormalizedKey, content hash, schema version, model)
// per spec.md §4.8; crawl-derived media is always merged fresh, never
// cached, since it varies independently of the extraction call.
func (p *Phase) Run(ctx context.Context, name string, t institution.Type, preparedContent string, media CrawlDerived) Outcome {
	rec := institution.NewRecord(t)

	if strings.TrimSpace(preparedContent) == "" && p.Provider == nil {
		applyCrawlOnly(rec, media)
		return Outcome{Record: rec}
	}

	fields, degraded, errKind := p.extractFields(ctx, name, t, preparedContent)
	for k, v := range fields {
		rec.Set(k, v)
	}
	if degraded {
		applyCrawlOnly(rec, media)
	} else {
		mergeMedia(rec, media)
	}

	return Outcome{Record: rec, Degraded: degraded, ErrorKind: errKind}
}

// RunForceRefresh behaves like Run but bypasses the extraction cache's read
// path (the `force_refresh` request option of spec.md §6.4); the fresh
// result still populates the cache for subsequent calls.
func (p *Phase) RunForceRefresh(ctx context.Context, name string, t institution.Type, preparedContent string, media CrawlDerived) Outcome {
	rec := institution.NewRecord(t)

	if strings.TrimSpace(preparedContent) == "" && p.Provider == nil {
		applyCrawlOnly(rec, media)
		return Outcome{Record: rec}
	}

	fields, degraded, errKind := p.extractFieldsForced(ctx, name, t, preparedContent)
	for k, v := range fields {
		rec.Set(k, v)
	}
	if degraded {
		applyCrawlOnly(rec, media)
	} else {
		mergeMedia(rec, media)
	}

	return Outcome{Record: rec, Degraded: degraded, ErrorKind: errKind}
}

// extractFields consults the cache (if configured) and otherwise calls the
// LLM capability directly, returning only the LLM-derived field map.
func (p *Phase) extractFields(ctx context.Context, name string, t institution.Type, preparedContent string) (map[string]institution.Value, bool, string) {
	if p.Cache == nil {
		return p.callLLM(ctx, name, t, preparedContent)
	}

	key := CacheKey(name, t, ContentHash(preparedContent), p.Model, p.Abbrev)
	var degraded bool
	var errKind string

	v, _, err := p.Cache.GetOrFetch(ctx, key, func(ctx context.Context, _ normalize.Key) (interface{}, error) {
		fields, deg, kind := p.callLLM(ctx, name, t, preparedContent)
		degraded, errKind = deg, kind
		if deg {
			// Do not cache a degraded (LLM-call-failed) result; the next
			// call should retry rather than replay the failure.
			return nil, fmt.Errorf("extract: %s", kind)
		}
		return toCached(&institution.Record{Type: t, Fields: fields}), nil
	})
	if err != nil {
		if !degraded {
			degraded, errKind = true, ErrKindExtractFailed
		}
		return nil, degraded, errKind
	}

	rec, ok := fromCachedValue(v)
	if !ok {
		return nil, true, ErrKindExtractFailed
	}
	return rec.Fields, false, ""
}

// extractFieldsForced is extractFields' force_refresh counterpart: it always
// calls the LLM and always writes the fresh result through to the cache.
func (p *Phase) extractFieldsForced(ctx context.Context, name string, t institution.Type, preparedContent string) (map[string]institution.Value, bool, string) {
	if p.Cache == nil {
		return p.callLLM(ctx, name, t, preparedContent)
	}

	key := CacheKey(name, t, ContentHash(preparedContent), p.Model, p.Abbrev)
	var degraded bool
	var errKind string

	v, err := p.Cache.ForceFetch(ctx, key, func(ctx context.Context, _ normalize.Key) (interface{}, error) {
		fields, deg, kind := p.callLLM(ctx, name, t, preparedContent)
		degraded, errKind = deg, kind
		if deg {
			return nil, fmt.Errorf("extract: %s", kind)
		}
		return toCached(&institution.Record{Type: t, Fields: fields}), nil
	})
	if err != nil {
		if !degraded {
			degraded, errKind = true, ErrKindExtractFailed
		}
		return nil, degraded, errKind
	}

	rec, ok := fromCachedValue(v)
	if !ok {
		return nil, true, ErrKindExtractFailed
	}
	return rec.Fields, false, ""
}

func (p *Phase) callLLM(ctx context.Context, name string, t institution.Type, preparedContent string) (map[string]institution.Value, bool, string) {
	sanitized := llm.SanitizeForPrompt(preparedContent)
	req := llm.LLMRequest{
		SystemPrompt: buildSystemPromptFromRegistry(p.Prompts, t),
		UserContent:  fmt.Sprintf("Institution name: %s\n\nContent:\n%s", name, sanitized),
		Schema:       JSONSchema(t),
		Model:        p.Model,
		MaxTokens:    p.MaxTokens,
		Temperature:  p.Temperature,
	}

	resp, err := p.Provider.CallStructured(ctx, req)
	if err != nil {
		slog.Warn("extract_llm_failed", "institution", name, "error", err)
		return nil, true, ErrKindExtractFailed
	}

	fields, warnings := parseFields(resp.Content, t)
	for _, w := range warnings {
		slog.Warn("extract_malformed_field", "institution", name, "field", w)
	}
	if fields == nil {
		// the response was not a JSON object at all: a parse failure
		return nil, true, ErrKindExtractFailed
	}
	return fields, false, ""
}

// parseFields decodes the LLM's JSON content into institution.Value
// entries, dropping any key not present in the frozen schema or not
// eligible for t (spec.md §4.8 "malformed keys are dropped with a warning").
func parseFields(content string, t institution.Type) (map[string]institution.Value, []string) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return nil, []string{"response_not_json_object"}
	}

	out := make(map[string]institution.Value, len(raw))
	var warnings []string
	for key, rawVal := range raw {
		class, ok := institution.FieldClassOf(key)
		if !ok {
			warnings = append(warnings, key)
			continue
		}
		def := fieldDefFor(key)
		if !def.Eligible(t) {
			warnings = append(warnings, key)
			continue
		}
		var v institution.Value
		if err := json.Unmarshal(rawVal, &v); err != nil {
			warnings = append(warnings, key)
			continue
		}
		_ = class
		out[key] = v
	}
	return out, warnings
}

func fieldDefFor(name string) institution.FieldDef {
	for _, f := range institution.Schema {
		if f.Name == name {
			return f
		}
	}
	return institution.FieldDef{}
}

// CrawlDerived carries the fields and media the phase can fall back on
// when the LLM call fails, plus what ExtractPhase merges in on success
// (spec.md §4.8 "Merging").
type CrawlDerived struct {
	Title         string
	LogoURL       string
	InternalLinks []string
	ExternalLinks []string

	Logos          []crawl.ScoredImage
	Images         []crawl.ScoredImage
	FacilityImages []crawl.ScoredImage
	CampusImages   []crawl.ScoredImage
	SocialLinks    []string
}

// knownSocialHosts backs the social_links filter (spec.md §4.8 merging
// rule 4, "a known host list").
var knownSocialHosts = []string{"facebook.com", "twitter.com", "x.com", "instagram.com", "linkedin.com", "youtube.com"}

// DeriveFromCrawl builds a CrawlDerived bundle from a crawl.Outcome's pages
// and institution name, implementing spec.md §4.8's merge rules:
//   - logos: confidence >= 0.5, ordered descending
//   - images: relevance >= 3, ordered descending
//   - facility_images: relevance >= 5
//   - campus_images: relevance == 4 (the activity/event band, spec.md §4.6's
//     mid tier), the visual-bonus signal distinct from facility_images that
//     spec.md §4.10 step 4 scores separately
//   - social_links: external links matched against knownSocialHosts, deduped
func DeriveFromCrawl(pages []crawl.PageResult) CrawlDerived {
	var all []crawl.ScoredImage
	var external []string
	var title string
	for _, p := range pages {
		if p.Err != nil {
			continue
		}
		all = append(all, p.Images...)
		external = append(external, p.Artifact.ExternalLinks...)
		if title == "" {
			title = p.Artifact.Markdown.PageTitle
		}
	}

	var logos, images, facility, campus []crawl.ScoredImage
	for _, img := range all {
		if img.LogoConfidence >= crawl.LogoThreshold {
			logos = append(logos, img)
		}
		if img.RelevanceScore >= 3 {
			images = append(images, img)
		}
		if img.RelevanceScore >= 5 {
			facility = append(facility, img)
		}
		if img.RelevanceScore == 4 {
			campus = append(campus, img)
		}
	}
	sort.Slice(logos, func(i, j int) bool { return logos[i].LogoConfidence > logos[j].LogoConfidence })
	sort.Slice(images, func(i, j int) bool { return images[i].RelevanceScore > images[j].RelevanceScore })
	sort.Slice(facility, func(i, j int) bool { return facility[i].RelevanceScore > facility[j].RelevanceScore })
	sort.Slice(campus, func(i, j int) bool { return campus[i].RelevanceScore > campus[j].RelevanceScore })

	social := dedupSocialLinks(external)

	var logoURL string
	if len(logos) > 0 {
		logoURL = logos[0].Src
	}

	return CrawlDerived{
		Title:          title,
		LogoURL:        logoURL,
		ExternalLinks:  external,
		Logos:          logos,
		Images:         images,
		FacilityImages: facility,
		CampusImages:   campus,
		SocialLinks:    social,
	}
}

func dedupSocialLinks(links []string) []string {
	seenPlatform := map[string]bool{}
	var out []string
	for _, link := range links {
		lower := strings.ToLower(link)
		for _, host := range knownSocialHosts {
			if strings.Contains(lower, host) {
				if seenPlatform[host] {
					break
				}
				seenPlatform[host] = true
				out = append(out, link)
				break
			}
		}
	}
	return out
}

func applyCrawlOnly(rec *institution.Record, media CrawlDerived) {
	if media.Title != "" {
		rec.Set("name", institution.Text(media.Title))
	}
	if media.LogoURL != "" {
		rec.Set("logo_url", institution.Text(media.LogoURL))
	}
	mergeMedia(rec, media)
}

func mergeMedia(rec *institution.Record, media CrawlDerived) {
	if media.LogoURL != "" && !rec.Has("logo_url") {
		rec.Set("logo_url", institution.Text(media.LogoURL))
	}
	if len(media.SocialLinks) > 0 && !rec.Has("social_media") {
		vals := make([]institution.Value, len(media.SocialLinks))
		for i, s := range media.SocialLinks {
			vals[i] = institution.Text(s)
		}
		rec.Set("social_media", institution.List(vals))
	}
}
