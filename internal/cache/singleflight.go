package cache

import (
	"context"

	"golang.org/x/sync/singleflight"

	"github.com/yourorg/institution-profiler/internal/normalize"
)

// Fetcher produces a fresh value for key on a cache miss.
type Fetcher func(ctx context.Context, key normalize.Key) (interface{}, error)

// Deduped wraps a MultiLevel cache with an in-flight map so concurrent
// callers requesting the same key collapse onto a single fetch — the
// second caller blocks on the first's result rather than launching a
// parallel fetch (spec.md §5, §9 "Cache single-flight deduplication").
type Deduped struct {
	cache *MultiLevel
	group singleflight.Group
}

// NewDeduped wraps cache with single-flight deduplication.
func NewDeduped(cache *MultiLevel) *Deduped {
	return &Deduped{cache: cache}
}

// GetOrFetch returns the cached value for key if present (exact or
// similarity hit); otherwise it calls fetch exactly once per concurrently
// requested key, caches the result with ProvenanceFresh, and returns it to
// every waiter.
func (d *Deduped) GetOrFetch(ctx context.Context, key normalize.Key, fetch Fetcher) (interface{}, ProvenanceTag, error) {
	if entry, err := d.cache.Get(key); err == nil {
		return entry.Value, entry.Provenance, nil
	}

	v, err, _ := d.group.Do(key.String(), func() (interface{}, error) {
		value, ferr := fetch(ctx, key)
		if ferr != nil {
			return nil, ferr
		}
		// Cancellation leaves caches un-written with partial results
		// (spec.md §5); a fetch that observed ctx.Err() should have
		// already returned an error above.
		if err := d.cache.Put(key, value, ProvenanceFresh); err != nil {
			return nil, err
		}
		return value, nil
	})
	if err != nil {
		return nil, "", err
	}
	return v, ProvenanceFresh, nil
}

// ForceFetch skips the cache lookup entirely — for the `force_refresh`
// request option (spec.md §6.4: "bypass caches for this request; writes
// still populate caches") — but still deduplicates concurrent callers and
// still writes the fresh result through to both cache levels.
func (d *Deduped) ForceFetch(ctx context.Context, key normalize.Key, fetch Fetcher) (interface{}, error) {
	v, err, _ := d.group.Do(key.String(), func() (interface{}, error) {
		value, ferr := fetch(ctx, key)
		if ferr != nil {
			return nil, ferr
		}
		if err := d.cache.Put(key, value, ProvenanceFresh); err != nil {
			return nil, err
		}
		return value, nil
	})
	return v, err
}
