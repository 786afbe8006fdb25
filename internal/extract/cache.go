package extract

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/yourorg/institution-profiler/internal/institution"
	"github.com/yourorg/institution-profiler/internal/normalize"
)

// DefaultCacheTTL is the extraction cache's entry lifetime (spec.md §4.8,
// §6.5's 7-day default for expensive LLM-derived results).
const DefaultCacheTTL = 7 * 24 * time.Hour

// cachedRecord is the JSON shape stored under the extraction cache key; it
// holds only the LLM-derived fields, never the per-call crawl media, so a
// cache hit still gets fresh media merged in on every call.
type cachedRecord struct {
	Type   institution.Type             `json:"type"`
	Fields map[string]institution.Value `json:"fields"`
}

// CacheKey builds the extraction cache key of spec.md §4.8:
// (NormalizedKey, content hash, schema version, model).
func CacheKey(name string, t institution.Type, contentHash, model string, abbrev map[string]string) normalize.Key {
	tag := string(t)
	if tag == "" {
		tag = "unknown"
	}
	return normalize.Key{
		CanonicalName: normalize.CanonicalName(name, abbrev),
		TypeTag:       tag,
		Fingerprint:   fingerprintExtract(contentHash, model),
	}
}

func fingerprintExtract(contentHash, model string) string {
	joined := contentHash + "|" + SchemaVersion + "|" + model
	sum := sha256.Sum256([]byte(joined))
	return hex.EncodeToString(sum[:])[:16]
}

func toCached(rec *institution.Record) cachedRecord {
	return cachedRecord{Type: rec.Type, Fields: rec.Fields}
}

// fromCachedValue recovers a *institution.Record from whatever the
// SimilarityCache handed back — a cachedRecord on an L1 hit, or a
// generic map[string]interface{} after an L2 round-trip through JSON.
func fromCachedValue(v interface{}) (*institution.Record, bool) {
	if cr, ok := v.(cachedRecord); ok {
		return &institution.Record{Type: cr.Type, Fields: cr.Fields}, true
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, false
	}
	var cr cachedRecord
	if err := json.Unmarshal(data, &cr); err != nil {
		return nil, false
	}
	return &institution.Record{Type: cr.Type, Fields: cr.Fields}, true
}
