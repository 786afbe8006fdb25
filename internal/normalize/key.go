package normalize

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/yourorg/institution-profiler/internal/institution"
)

// DefaultAbbreviations seeds the acronym-expansion table. A candidate enters
// a live table only through BuildAbbreviationTable, which drops any acronym
// whose expansion does not exist as a trie entry (spec.md §4.4). Nothing in
// this module builds that table on its own; a caller passes the result in.
var DefaultAbbreviations = map[string]string{
	"mit":  "massachusetts institute of technology",
	"ucla": "university of california los angeles",
	"nyu":  "new york university",
	"usc":  "university of southern california",
	"lse":  "london school of economics",
}

// TrieContainer is the minimal surface BuildAbbreviationTable needs from a
// *trie.Trie, kept narrow to avoid a hard dependency on the trie package.
type TrieContainer interface {
	Contains(name string) bool
}

// BuildAbbreviationTable filters seed candidates down to those whose
// expansion is a real trie entry.
func BuildAbbreviationTable(tr TrieContainer, seed map[string]string) map[string]string {
	out := make(map[string]string, len(seed))
	for acr, expansion := range seed {
		if tr.Contains(expansion) {
			out[strings.ToLower(strings.TrimSpace(acr))] = expansion
		}
	}
	return out
}

// foldDiacritics strips combining marks via NFD decomposition, so "café"
// folds to "cafe" before the final ASCII-only pass.
func foldDiacritics(s string) string {
	t := norm.NFD.String(s)
	var b strings.Builder
	for _, r := range t {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// CanonicalName runs the full NormalizedKey pipeline: lowercase →
// Unicode-folding → abbreviation expansion → whitespace collapse →
// punctuation stripping (spec.md §4.4). It is idempotent: running it twice
// yields the same result as running it once, because every step maps onto
// a fixed point that is itself unaffected by a second pass.
func CanonicalName(raw string, abbrev map[string]string) string {
	s := strings.ToLower(raw)
	s = foldDiacritics(s)

	words := strings.Fields(s)
	for i, w := range words {
		clean := stripPunctWord(w)
		if expansion, ok := abbrev[clean]; ok {
			words[i] = expansion
		} else {
			words[i] = clean
		}
	}
	joined := strings.Join(words, " ")
	return collapseWhitespace(stripPunctKeepSpaces(joined))
}

func stripPunctWord(w string) string {
	var b strings.Builder
	for _, r := range w {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func stripPunctKeepSpaces(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Options holds the recognized search-refinement options that feed the
// option fingerprint (spec.md §3, §6.4).
type Options struct {
	Location           string
	AdditionalKeywords string
	DomainHint         string
	ExcludeTerms       string
}

// Fingerprint hashes the recognized search-refinement options into a short
// hex digest used as the third NormalizedKey component.
func Fingerprint(o Options) string {
	joined := strings.Join([]string{
		strings.ToLower(strings.TrimSpace(o.Location)),
		strings.ToLower(strings.TrimSpace(o.AdditionalKeywords)),
		strings.ToLower(strings.TrimSpace(o.DomainHint)),
		strings.ToLower(strings.TrimSpace(o.ExcludeTerms)),
	}, "|")
	sum := sha256.Sum256([]byte(joined))
	return hex.EncodeToString(sum[:])[:16]
}

// Key is the canonical cache key: (canonical_name, type_tag_or_unknown,
// option_fingerprint).
type Key struct {
	CanonicalName string
	TypeTag       string
	Fingerprint   string
}

// NewKey builds a Key from a raw institution name, an optional type, and
// request options.
func NewKey(rawName string, t institution.Type, opts Options, abbrev map[string]string) Key {
	tag := string(t)
	if tag == "" {
		tag = "unknown"
	}
	return Key{
		CanonicalName: CanonicalName(rawName, abbrev),
		TypeTag:       tag,
		Fingerprint:   Fingerprint(opts),
	}
}

// String renders a stable, hashable string form used for cache file naming
// (spec.md §6.5: "name = SHA-256 of NormalizedKey").
func (k Key) String() string {
	return k.CanonicalName + "|" + k.TypeTag + "|" + k.Fingerprint
}

// Hash returns the first 16 hex characters of the SHA-256 of the key's
// string form, matching the persisted cache file naming convention.
func (k Key) Hash() string {
	sum := sha256.Sum256([]byte(k.String()))
	return hex.EncodeToString(sum[:])[:16]
}
