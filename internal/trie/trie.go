// Package trie implements the prefix index of known institution names
// described in spec §4.1: O(m) prefix search on an m-length prefix, with
// per-terminal metadata (original casing, frequency, institution type).
//
// The tree is filled by Insert calls (this package loads no CSV or other
// file itself) and no read method modifies it, so reads need no locking
// once construction is complete (spec §5 "Trie and SpellCorrector: immutable after startup,
// free concurrent read").
package trie

import (
	"sort"
	"strings"
	"unicode"

	"github.com/yourorg/institution-profiler/internal/institution"
)

// Metadata is the terminal payload of a trie entry.
type Metadata struct {
	OriginalName string
	Type         institution.Type
	Frequency    int
}

// node is one level of the sparse, lowercase-character-keyed child map.
type node struct {
	children map[rune]*node
	terminal bool
	meta     Metadata
}

func newNode() *node {
	return &node{children: make(map[rune]*node)}
}

// Trie is the institution-name prefix index. The zero value is not usable;
// construct with New.
type Trie struct {
	root *node
	size int
}

// New returns an empty trie ready for Insert calls.
func New() *Trie {
	return &Trie{root: newNode()}
}

// Normalize lowercases and collapses whitespace/punctuation the way trie
// keys are canonicalized (spec §3 "Normalized form: lowercase, whitespace
// collapsed, punctuation stripped"). It does not apply abbreviation
// expansion — that belongs to the query-level NormalizedKey pipeline.
func Normalize(name string) string {
	var b strings.Builder
	lastSpace := true
	for _, r := range strings.ToLower(name) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastSpace = false
		case unicode.IsSpace(r):
			if !lastSpace {
				b.WriteRune(' ')
				lastSpace = true
			}
		default:
			// punctuation: stripped, not replaced with a space
		}
	}
	return strings.TrimSpace(b.String())
}

// Insert is idempotent on the normalized name: on a repeat insert it keeps
// the higher frequency, and keeps the institution type of the earlier
// insert unless the new insert carries a non-empty type and the existing
// entry's type is empty (spec §4.1).
func (t *Trie) Insert(name string, meta Metadata) {
	norm := Normalize(name)
	if norm == "" {
		return
	}
	cur := t.root
	for _, r := range norm {
		child, ok := cur.children[r]
		if !ok {
			child = newNode()
			cur.children[r] = child
		}
		cur = child
	}
	if !cur.terminal {
		if meta.OriginalName == "" {
			meta.OriginalName = name
		}
		cur.terminal = true
		cur.meta = meta
		t.size++
		return
	}
	// already present: merge per the idempotence rule
	if meta.Frequency > cur.meta.Frequency {
		cur.meta.Frequency = meta.Frequency
	}
	if cur.meta.Type == "" && meta.Type != "" {
		cur.meta.Type = meta.Type
	}
}

// Contains reports an exact normalized match; used by the spell-corrector
// validator to guarantee zero out-of-vocabulary suggestions.
func (t *Trie) Contains(name string) bool {
	n := t.find(Normalize(name))
	return n != nil && n.terminal
}

// Lookup returns the metadata for an exact normalized match.
func (t *Trie) Lookup(name string) (Metadata, bool) {
	n := t.find(Normalize(name))
	if n == nil || !n.terminal {
		return Metadata{}, false
	}
	return n.meta, true
}

func (t *Trie) find(norm string) *node {
	cur := t.root
	for _, r := range norm {
		child, ok := cur.children[r]
		if !ok {
			return nil
		}
		cur = child
	}
	return cur
}

// Suggestion is one ranked result from Suggest.
type Suggestion struct {
	Name      string
	Type      institution.Type
	Frequency int
}

// Suggest collects all terminals in the subtree rooted at prefix, orders by
// descending frequency (ties broken by ascending normalized name), and
// returns the top k. Case-insensitive input, case-preserving output (spec
// §4.1).
func (t *Trie) Suggest(prefix string, k int) []Suggestion {
	if k <= 0 {
		return nil
	}
	norm := Normalize(prefix)
	root := t.find(norm)
	if root == nil {
		return nil
	}
	var out []Suggestion
	var walk func(n *node, path string)
	walk = func(n *node, path string) {
		if n.terminal {
			out = append(out, Suggestion{Name: n.meta.OriginalName, Type: n.meta.Type, Frequency: n.meta.Frequency})
		}
		for r, child := range n.children {
			walk(child, path+string(r))
		}
	}
	walk(root, norm)

	sort.Slice(out, func(i, j int) bool {
		if out[i].Frequency != out[j].Frequency {
			return out[i].Frequency > out[j].Frequency
		}
		return Normalize(out[i].Name) < Normalize(out[j].Name)
	})
	if len(out) > k {
		out = out[:k]
	}
	return out
}

// Size reports the number of distinct entries inserted.
func (t *Trie) Size() int { return t.size }

// All returns every terminal entry in the trie, unordered. spellcorrect.New
// uses it to seed the spell corrector's word vocabulary.
func (t *Trie) All() []Suggestion {
	var out []Suggestion
	var walk func(n *node)
	walk = func(n *node) {
		if n.terminal {
			out = append(out, Suggestion{Name: n.meta.OriginalName, Type: n.meta.Type, Frequency: n.meta.Frequency})
		}
		for _, child := range n.children {
			walk(child)
		}
	}
	walk(t.root)
	return out
}
