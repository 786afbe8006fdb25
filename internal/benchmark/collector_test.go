package benchmark

import (
	"bufio"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenRecordCloseSpanFlushesJournal(t *testing.T) {
	dir := t.TempDir()
	c, err := NewCollector(dir)
	require.NoError(t, err)

	session := NewSessionID()
	span := c.OpenSpan(CategorySearch)
	span.Record("cost_usd", 0.002)
	span.Record("api_calls", 1)
	span.SetCacheHit(CacheHitFresh)
	time.Sleep(time.Millisecond)
	sample := c.CloseSpan(session, span, true, 100, "")

	assert.True(t, sample.Success)
	assert.Equal(t, CacheHitFresh, sample.CacheHitKind)
	assert.GreaterOrEqual(t, sample.PhaseMS, int64(0))

	path := filepath.Join(dir, "benchmarks", sessionFileName(session))
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	scanner := bufio.NewScanner(f)
	lines := 0
	for scanner.Scan() {
		lines++
	}
	assert.Equal(t, 1, lines)

	aggPath := filepath.Join(dir, "benchmarks", "aggregate.json")
	_, err = os.Stat(aggPath)
	assert.NoError(t, err)
}

func TestQueryAggregatesSuccessRateAndCacheHitRate(t *testing.T) {
	dir := t.TempDir()
	c, err := NewCollector(dir)
	require.NoError(t, err)
	session := NewSessionID()

	s1 := c.OpenSpan(CategoryCrawl)
	s1.SetCacheHit(CacheHitDirect)
	c.CloseSpan(session, s1, true, 100, "")

	s2 := c.OpenSpan(CategoryCrawl)
	s2.SetCacheHit(CacheHitFresh)
	c.CloseSpan(session, s2, false, 0, "crawl_empty")

	agg := c.Query()
	assert.Equal(t, 0.5, agg.SuccessRate[CategoryCrawl])
	assert.Equal(t, 0.5, agg.CacheHitRate, "one direct hit and one fresh-fetch miss must average to 0.5, not 1.0")
}

// Property 10: sum(phase_ms) <= pipeline_ms for sequential, non-overlapping
// phases, demonstrated here by construction.
func TestBenchmarkConservationProperty(t *testing.T) {
	dir := t.TempDir()
	c, err := NewCollector(dir)
	require.NoError(t, err)
	session := NewSessionID()

	pipelineStart := time.Now()
	var sumPhaseMS int64
	for _, cat := range []Category{CategorySearch, CategoryCrawl, CategoryExtract} {
		span := c.OpenSpan(cat)
		time.Sleep(time.Millisecond)
		sample := c.CloseSpan(session, span, true, 100, "")
		sumPhaseMS += sample.PhaseMS
	}
	pipelineMS := time.Since(pipelineStart).Milliseconds()

	assert.LessOrEqual(t, sumPhaseMS, pipelineMS)
}
