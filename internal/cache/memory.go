package cache

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yourorg/institution-profiler/internal/normalize"
)

// Memory is the L1 in-memory SimilarityCache layer. Many concurrent readers
// may proceed in parallel; Put and Sweep serialize against each other and
// against readers, per spec.md §4.4 and §5's reader-writer discipline.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]Entry
	maxSize int
	hits    int64
	misses  int64
}

// NewMemory constructs an empty L1 cache. maxSize <= 0 means unbounded.
func NewMemory(maxSize int) *Memory {
	return &Memory{entries: make(map[string]Entry), maxSize: maxSize}
}

// Get performs an exact lookup first; on miss it iterates over alive
// (non-expired) entries, scores each by Similarity against key's canonical
// name within the same type tag and option fingerprint, and returns the
// highest-scoring entry above normalize.Threshold, tagged similarity_hit.
// It is acceptable for a reader to observe a just-expired entry once
// (spec.md §4.4); a subsequent Sweep removes it.
func (m *Memory) Get(key normalize.Key) (Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	now := time.Now()
	if e, ok := m.entries[key.String()]; ok && !e.Expired(now) {
		atomic.AddInt64(&m.hits, 1)
		e.Provenance = ProvenanceDirectHit
		return e, nil
	}

	var best Entry
	bestScore := 0.0
	found := false
	for _, e := range m.entries {
		if e.Expired(now) {
			continue
		}
		if e.Key.TypeTag != key.TypeTag || e.Key.Fingerprint != key.Fingerprint {
			continue
		}
		score := normalize.Similarity(e.Key.CanonicalName, key.CanonicalName)
		if score >= normalize.Threshold && score > bestScore {
			bestScore = score
			best = e
			found = true
		}
	}
	if found {
		atomic.AddInt64(&m.hits, 1)
		best.Provenance = ProvenanceSimilarityHit
		return best, nil
	}

	atomic.AddInt64(&m.misses, 1)
	return Entry{}, ErrMiss
}

// Put inserts or overwrites key's entry, recording CreatedAt as now.
func (m *Memory) Put(key normalize.Key, value interface{}, ttl time.Duration, provenance ProvenanceTag) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[key.String()] = Entry{
		Key:        key,
		Value:      value,
		CreatedAt:  time.Now(),
		TTL:        ttl,
		Provenance: provenance,
	}
	if m.maxSize > 0 && len(m.entries) > m.maxSize {
		m.evictOldest()
	}
}

// evictOldest drops the single oldest entry; caller must hold the write
// lock. Used as the overflow policy when maxSize is exceeded.
func (m *Memory) evictOldest() {
	type kv struct {
		k string
		t time.Time
	}
	var ordered []kv
	for k, e := range m.entries {
		ordered = append(ordered, kv{k, e.CreatedAt})
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].t.Before(ordered[j].t) })
	if len(ordered) > 0 {
		delete(m.entries, ordered[0].k)
	}
}

// Sweep removes every entry whose CreatedAt+TTL has elapsed.
func (m *Memory) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	removed := 0
	for k, e := range m.entries {
		if e.Expired(now) {
			delete(m.entries, k)
			removed++
		}
	}
	return removed
}

// Stats returns the current hit/miss counters and size.
func (m *Memory) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Stats{
		Hits:    atomic.LoadInt64(&m.hits),
		Misses:  atomic.LoadInt64(&m.misses),
		Size:    len(m.entries),
		MaxSize: m.maxSize,
		Level:   "L1",
	}
}
