package crawl

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"
	"time"

	"github.com/yourorg/institution-profiler/internal/cache"
)

// URLCacheTTL is the per-URL crawl cache TTL (spec.md §4.4: "crawl cache
// per-URL 1 day").
const URLCacheTTL = 24 * time.Hour

// PersistentCache adapts internal/cache.Persistent to this package's Cache
// interface, keyed by the SHA-256 of the canonicalized URL
// (spec.md §6.5 "cache/crawl/").
type PersistentCache struct {
	store *cache.Persistent
}

// NewPersistentCache wraps store for use as a CrawlPhase Cache.
func NewPersistentCache(store *cache.Persistent) *PersistentCache {
	return &PersistentCache{store: store}
}

func urlHash(canonicalURL string) string {
	sum := sha256.Sum256([]byte(canonicalURL))
	return hex.EncodeToString(sum[:])[:16]
}

// Get returns the cached artifact for canonicalURL if present and unexpired.
func (c *PersistentCache) Get(canonicalURL string) (Artifact, bool) {
	rec, err := c.store.Get(urlHash(canonicalURL))
	if err != nil || rec.Expired(time.Now()) {
		return Artifact{}, false
	}
	var a Artifact
	if err := json.Unmarshal(rec.Value, &a); err != nil {
		return Artifact{}, false
	}
	return a, true
}

// Put writes artifact under canonicalURL's hash with URLCacheTTL.
func (c *PersistentCache) Put(canonicalURL string, artifact Artifact) {
	data, err := json.Marshal(artifact)
	if err != nil {
		return
	}
	_ = c.store.Put(urlHash(canonicalURL), canonicalURL, data, URLCacheTTL, cache.ProvenanceFresh)
}

// MemoryCache is a Cache for tests and for callers that don't need
// persistence across process restarts. CrawlPhase.Run hits a shared Cache
// from Concurrency worker goroutines, so Get/Put must be safe for
// concurrent use.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]cachedEntry
}

type cachedEntry struct {
	artifact Artifact
	expires  time.Time
}

// NewMemoryCache returns an empty in-process Cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]cachedEntry)}
}

func (m *MemoryCache) Get(canonicalURL string) (Artifact, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[canonicalURL]
	if !ok || time.Now().After(e.expires) {
		return Artifact{}, false
	}
	return e.artifact, true
}

func (m *MemoryCache) Put(canonicalURL string, artifact Artifact) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[canonicalURL] = cachedEntry{artifact: artifact, expires: time.Now().Add(URLCacheTTL)}
}
