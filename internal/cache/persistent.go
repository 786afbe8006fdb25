package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/yourorg/institution-profiler/internal/normalize"
)

// fileRecord is the on-disk shape of a cache file, exactly the fields
// named in spec.md §6.5: {key, value, created_at_epoch_s, ttl_s,
// provenance}.
type fileRecord struct {
	Key             string          `json:"key"`
	Value           json.RawMessage `json:"value"`
	CreatedAtEpochS int64           `json:"created_at_epoch_s"`
	TTLSeconds      int64           `json:"ttl_s"`
	Provenance      ProvenanceTag   `json:"provenance"`
}

// Persistent is the L2 durable cache layer: one JSON file per entry, named
// by the first 16 hex characters of the SHA-256 of the entry's key,
// replacing the teacher's SQLite-backed L2 layer per spec.md §6.5's
// explicit file-per-entry requirement.
type Persistent struct {
	mu  sync.Mutex
	dir string
}

// NewPersistent opens (creating if absent) baseDir/cache/<namespace>/.
func NewPersistent(baseDir, namespace string) (*Persistent, error) {
	dir := filepath.Join(baseDir, "cache", namespace)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cache: create namespace dir %s: %w", namespace, err)
	}
	return &Persistent{dir: dir}, nil
}

func (p *Persistent) path(fileKey string) string {
	return filepath.Join(p.dir, fileKey+".json")
}

// Get loads the entry named by fileKey (a content hash — callers supply
// normalize.Key.Hash() or a URL hash per spec.md §6.5). A corrupt file is
// quarantined (renamed with a .bad suffix) and treated as a miss, per
// spec.md §7's CacheCorrupt recovery.
func (p *Persistent) Get(fileKey string) (fileRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	data, err := os.ReadFile(p.path(fileKey))
	if err != nil {
		return fileRecord{}, ErrMiss
	}

	var rec fileRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		p.quarantineLocked(fileKey)
		return fileRecord{}, ErrMiss
	}
	return rec, nil
}

// quarantineLocked renames a corrupt file with a .bad suffix. Caller must
// hold p.mu.
func (p *Persistent) quarantineLocked(fileKey string) {
	_ = os.Rename(p.path(fileKey), p.path(fileKey)+".bad")
}

// Put writes fileKey's entry. valueJSON must already be a JSON-encoded
// value.
func (p *Persistent) Put(fileKey, rawKey string, valueJSON []byte, ttl time.Duration, provenance ProvenanceTag) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	rec := fileRecord{
		Key:             rawKey,
		Value:           valueJSON,
		CreatedAtEpochS: time.Now().Unix(),
		TTLSeconds:      int64(ttl.Seconds()),
		Provenance:      provenance,
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("cache: marshal file record: %w", err)
	}
	tmp := p.path(fileKey) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("cache: write file record: %w", err)
	}
	return os.Rename(tmp, p.path(fileKey))
}

// Expired reports whether a loaded fileRecord has outlived its TTL.
func (r fileRecord) Expired(now time.Time) bool {
	if r.TTLSeconds <= 0 {
		return false
	}
	created := time.Unix(r.CreatedAtEpochS, 0)
	return now.After(created.Add(time.Duration(r.TTLSeconds) * time.Second))
}

// KeyHash is the canonical file-naming function for a normalize.Key:
// SHA-256 first 16 hex characters, per spec.md §6.5.
func KeyHash(k normalize.Key) string {
	return k.Hash()
}
