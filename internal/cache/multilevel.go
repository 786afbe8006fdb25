package cache

import (
	"encoding/json"
	"time"

	"github.com/yourorg/institution-profiler/internal/normalize"
)

// MultiLevel chains an in-memory L1 over a persisted L2, backfilling L1 on
// an L2 hit — the same shape as the teacher's MultiLevelCache in
// internal/ai/cache_layer.go, generalized to SimilarityCache semantics.
type MultiLevel struct {
	l1        *Memory
	l2        *Persistent
	ttl       time.Duration
	namespace string
}

// NewMultiLevel builds a two-level cache with a fixed default TTL for new
// writes (spec.md §4.4's per-cache-instance TTL configuration).
func NewMultiLevel(l1 *Memory, l2 *Persistent, ttl time.Duration) *MultiLevel {
	return &MultiLevel{l1: l1, l2: l2, ttl: ttl}
}

// Get tries L1 (exact then fuzzy), then L2 on an L1 miss, backfilling L1
// with whatever L2 returned so the next lookup is served from memory.
func (m *MultiLevel) Get(key normalize.Key) (Entry, error) {
	if e, err := m.l1.Get(key); err == nil {
		return e, nil
	}

	rec, err := m.l2.Get(KeyHash(key))
	if err != nil {
		return Entry{}, ErrMiss
	}
	if rec.Expired(time.Now()) {
		return Entry{}, ErrMiss
	}

	var value interface{}
	if err := json.Unmarshal(rec.Value, &value); err != nil {
		return Entry{}, ErrMiss
	}

	entry := Entry{
		Key:        key,
		Value:      value,
		CreatedAt:  time.Unix(rec.CreatedAtEpochS, 0),
		TTL:        time.Duration(rec.TTLSeconds) * time.Second,
		Provenance: ProvenanceDirectHit,
	}
	m.l1.Put(key, value, entry.TTL, entry.Provenance)
	return entry, nil
}

// Put writes through both levels.
func (m *MultiLevel) Put(key normalize.Key, value interface{}, provenance ProvenanceTag) error {
	ttl := m.ttl
	m.l1.Put(key, value, ttl, provenance)

	valueJSON, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return m.l2.Put(KeyHash(key), key.String(), valueJSON, ttl, provenance)
}

// Sweep expires stale L1 entries. L2 entries expire lazily on read; a
// corrupt or stale L2 file is quarantined/ignored on the next Get.
func (m *MultiLevel) Sweep() int {
	return m.l1.Sweep()
}

// Stats reports the L1 hit/miss counters.
func (m *MultiLevel) Stats() Stats {
	return m.l1.Stats()
}
