package search

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/institution-profiler/internal/institution"
)

type stubProvider struct {
	results []Result
	err     error
}

func (s *stubProvider) Search(ctx context.Context, query string, numResults int, language, country string, safeSearch bool) ([]Result, error) {
	return s.results, s.err
}

func TestBuildQueryInfersType(t *testing.T) {
	q, ty := BuildQuery("Harvard University", "", Options{})
	assert.Equal(t, institution.TypeUniversity, ty)
	assert.Contains(t, q, "university college education")
}

func TestBuildQueryAppendsRefinements(t *testing.T) {
	q, _ := BuildQuery("Acme Bank", institution.TypeBank, Options{
		Location:     "Chicago",
		DomainHint:   "acmebank.com",
		ExcludeTerms: "fraud scam",
	})
	assert.Contains(t, q, "Chicago")
	assert.Contains(t, q, "site:acmebank.com")
	assert.Contains(t, q, "-fraud")
	assert.Contains(t, q, "-scam")
}

func TestRunTieringAndOrder(t *testing.T) {
	provider := &stubProvider{results: []Result{
		{URL: "https://facebook.com/harvard", Title: "Harvard on Facebook", Domain: "facebook.com"},
		{URL: "https://harvard.edu", Title: "Harvard University Official", Domain: "harvard.edu"},
		{URL: "https://news.example.com/harvard-university-story", Title: "Harvard university news", Domain: "news.example.com"},
	}}
	p := &Phase{Provider: provider, TopK: 15}

	out := p.Run(context.Background(), "Harvard University", institution.TypeUniversity, Options{})

	require.Len(t, out.Links, 3)
	assert.Equal(t, TierHigh, out.Links[0].Tier)
	assert.Equal(t, "harvard.edu", out.Links[0].Domain)
	assert.Less(t, out.Links[2].Score, out.Links[0].Score)
	assert.False(t, out.Degraded)
}

// S5 degraded pipeline: search provider failure (spec.md §8).
func TestRunDegradesOnProviderError(t *testing.T) {
	provider := &stubProvider{err: errors.New("transport failure")}
	p := &Phase{Provider: provider, TopK: 15}

	out := p.Run(context.Background(), "Acme", institution.TypeGeneral, Options{})

	assert.True(t, out.Degraded)
	assert.Equal(t, ErrKindSearchProviderUnavailable, out.ErrorKind)
	assert.Empty(t, out.Links)
}
