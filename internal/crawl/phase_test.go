package crawl

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/institution-profiler/internal/search"
)

type stubEngine struct {
	artifacts map[string]Artifact
	fail      map[string]bool
}

func (s *stubEngine) Fetch(ctx context.Context, url string, jsEnabled bool, followDepth, maxPagesFromThis int) (Artifact, error) {
	if s.fail[url] {
		return Artifact{}, errors.New("fetch failed")
	}
	a, ok := s.artifacts[url]
	if !ok {
		return Artifact{}, errors.New("not found")
	}
	return a, nil
}

func TestRunDeduplicatesAndAssembles(t *testing.T) {
	engine := &stubEngine{artifacts: map[string]Artifact{
		"harvard.edu": {URL: "harvard.edu", Markdown: Markdown{PrimaryContent: "Harvard is a university."}, SizeBytes: 100},
	}}
	phase := &Phase{Engine: engine, Cache: NewMemoryCache(), Concurrency: 4}

	links := []search.Link{
		{Result: search.Result{URL: "https://harvard.edu"}, Tier: search.TierHigh},
		{Result: search.Result{URL: "https://harvard.edu/"}, Tier: search.TierHigh},
	}

	out := phase.Run(context.Background(), links, "Harvard University", StrategyPriorityBased, 0)

	require.Len(t, out.Pages, 1, "duplicate canonical URLs collapse to one job")
	assert.False(t, out.Degraded)
	assert.Contains(t, out.TotalText, "Harvard is a university.")
}

// Degraded crawl: every URL's fetch fails, so no page succeeds.
func TestRunDegradesWhenAllURLsFail(t *testing.T) {
	engine := &stubEngine{fail: map[string]bool{"example.com": true}}
	phase := &Phase{Engine: engine, Cache: NewMemoryCache(), Concurrency: 4}

	links := []search.Link{{Result: search.Result{URL: "https://example.com"}, Tier: search.TierLow}}

	out := phase.Run(context.Background(), links, "Example", StrategyPriorityBased, 0)

	assert.True(t, out.Degraded)
	assert.Equal(t, ErrKindCrawlEmpty, out.ErrorKind)
}

func TestResolveTierBudgetsEqualStrategy(t *testing.T) {
	b := ResolveTierBudgets(StrategyEqual)
	assert.Equal(t, b[search.TierHigh], b[search.TierMedium])
	assert.Equal(t, b[search.TierMedium], b[search.TierLow])
}
