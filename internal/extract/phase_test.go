package extract

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/institution-profiler/internal/cache"
	"github.com/yourorg/institution-profiler/internal/crawl"
	"github.com/yourorg/institution-profiler/internal/institution"
	"github.com/yourorg/institution-profiler/internal/llm"
)

type stubProvider struct {
	content string
	err     error
	calls   int
}

func (s *stubProvider) CallStructured(ctx context.Context, req llm.LLMRequest) (*llm.LLMResponse, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &llm.LLMResponse{Content: s.content, Model: "stub-model"}, nil
}

func (s *stubProvider) Name() string    { return "stub" }
func (s *stubProvider) ModelID() string { return "stub-model" }

func TestBuildSystemPromptOnlyListsEligibleFields(t *testing.T) {
	prompt := BuildSystemPrompt(institution.TypeBank)
	assert.Contains(t, prompt, "total_assets")
	assert.NotContains(t, prompt, "student_population")
}

func TestRunParsesAndDropsUnknownFields(t *testing.T) {
	provider := &stubProvider{content: `{"name": "Example Bank", "total_assets": 100, "bogus_field": "x", "student_population": 500}`}
	phase := New(provider)

	out := phase.Run(context.Background(), "Example Bank", institution.TypeBank, "some content", CrawlDerived{})

	require.False(t, out.Degraded)
	assert.True(t, out.Record.Has("name"))
	assert.True(t, out.Record.Has("total_assets"))
	assert.False(t, out.Record.Has("bogus_field"), "unknown keys must be dropped")
	assert.False(t, out.Record.Has("student_population"), "ineligible specialized field for bank must be dropped")
}

func TestRunDegradesOnProviderFailure(t *testing.T) {
	provider := &stubProvider{err: errors.New("rate limited")}
	phase := New(provider)

	media := CrawlDerived{Title: "Example Bank", LogoURL: "https://example.com/logo.png"}
	out := phase.Run(context.Background(), "Example Bank", institution.TypeBank, "some content", media)

	assert.True(t, out.Degraded)
	assert.Equal(t, ErrKindExtractFailed, out.ErrorKind)
	assert.Equal(t, "Example Bank", out.Record.Fields["name"].Text())
	assert.Equal(t, "https://example.com/logo.png", out.Record.Fields["logo_url"].Text())
}

func TestRunMergesCrawlDerivedMedia(t *testing.T) {
	provider := &stubProvider{content: `{"name": "Example University"}`}
	phase := New(provider)

	pages := []crawl.PageResult{
		{Artifact: crawl.Artifact{
			URL:           "https://example.edu",
			ExternalLinks: []string{"https://facebook.com/example", "https://twitter.com/example", "https://facebook.com/example2"},
		}, Images: []crawl.ScoredImage{
			{Image: crawl.Image{Src: "logo.png"}, LogoConfidence: 0.9, RelevanceScore: 6, IsLogoCandidate: true},
		}},
	}
	media := DeriveFromCrawl(pages)

	out := phase.Run(context.Background(), "Example University", institution.TypeUniversity, "content", media)

	require.False(t, out.Degraded)
	social := out.Record.Fields["social_media"].List()
	assert.Len(t, social, 2, "duplicate facebook links dedupe to one per platform")
	assert.Equal(t, "logo.png", out.Record.Fields["logo_url"].Text())
}

func TestExtractFieldsUsesCacheOnSecondCall(t *testing.T) {
	provider := &stubProvider{content: `{"name": "Cached University"}`}
	phase := New(provider)
	phase.Cache = newTestCache(t)

	out1 := phase.Run(context.Background(), "Cached University", institution.TypeUniversity, "same content", CrawlDerived{})
	out2 := phase.Run(context.Background(), "Cached University", institution.TypeUniversity, "same content", CrawlDerived{})

	require.False(t, out1.Degraded)
	require.False(t, out2.Degraded)
	assert.Equal(t, 1, provider.calls, "second call with identical key must be served from cache")
	assert.Equal(t, "Cached University", out2.Record.Fields["name"].Text())
}

// facility_images (relevance >= 5) and campus_images (relevance == 4) must
// be able to vary independently, since spec.md §4.10 step 4 scores them as
// two separate visual-bonus signals.
func TestDeriveFromCrawlSeparatesFacilityAndCampusImages(t *testing.T) {
	pages := []crawl.PageResult{
		{Images: []crawl.ScoredImage{
			{Image: crawl.Image{Src: "quad.jpg"}, RelevanceScore: 5},
			{Image: crawl.Image{Src: "game-day.jpg"}, RelevanceScore: 4},
		}},
	}

	media := DeriveFromCrawl(pages)

	assert.Len(t, media.FacilityImages, 1)
	assert.Len(t, media.CampusImages, 1)
	assert.NotEqual(t, media.FacilityImages[0].Src, media.CampusImages[0].Src)
}

func TestExtractFieldsDoesNotCacheFailures(t *testing.T) {
	provider := &stubProvider{err: errors.New("down")}
	phase := New(provider)
	phase.Cache = newTestCache(t)

	phase.Run(context.Background(), "Flaky Inc", institution.TypeGeneral, "content", CrawlDerived{})
	phase.Run(context.Background(), "Flaky Inc", institution.TypeGeneral, "content", CrawlDerived{})

	assert.Equal(t, 2, provider.calls, "a failed extraction must not be cached; every call retries")
}

// newTestCache builds a Deduped cache backed by an in-memory L1 and a
// throwaway L2 directory, for tests that need caching without touching the
// real baseDir.
func newTestCache(t *testing.T) *cache.Deduped {
	t.Helper()
	l2, err := cache.NewPersistent(t.TempDir(), "extract_test")
	require.NoError(t, err)
	l1 := cache.NewMemory(0)
	ml := cache.NewMultiLevel(l1, l2, DefaultCacheTTL)
	return cache.NewDeduped(ml)
}
