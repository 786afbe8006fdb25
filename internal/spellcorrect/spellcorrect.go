// Package spellcorrect implements phrase-level spelling correction and
// autocomplete validated against a trie, per spec.md §4.2–§4.3: every
// suggestion emitted is guaranteed to be a reachable terminal node in the
// trie (zero tolerance for out-of-vocabulary suggestions).
package spellcorrect

import (
	"sort"
	"strings"

	"github.com/yourorg/institution-profiler/internal/normalize"
	"github.com/yourorg/institution-profiler/internal/trie"
)

// DefaultTypeTerms is the small set of common institution-type terms unioned
// into the last word position's candidate set (spec.md §4.2 step 2).
var DefaultTypeTerms = []string{"university", "college", "hospital", "clinic", "bank", "institute", "school"}

// DefaultProductCap bounds the cartesian product enumerated across word
// positions (spec.md §4.2 step 3).
const DefaultProductCap = 128

// AutocompletePrefixTokens are institutional prefix tokens used to generate
// alternate prefixes when the bare Trie.Suggest result is empty (spec.md
// §4.3): each token is prepended to the prefix, so "Mass" is retried as
// "University of Mass" and can surface "University of Massachusetts".
var AutocompletePrefixTokens = []string{"University of", "Bank of", "Hospital of", "College of"}

// Correction describes one word-level edit within a corrected phrase.
type Correction struct {
	Position  int
	Original  string
	Corrected string
}

// Result is a single trie-validated correction candidate.
type Result struct {
	CorrectedPhrase string
	Corrections     []Correction
	EditDistance    int
	Frequency       int
}

// Corrector holds the word vocabulary derived from the trie's contents plus
// tuning parameters. Construct with New once the trie is fully built.
type Corrector struct {
	tr         *trie.Trie
	vocab      []string
	typeTerms  []string
	productCap int
	maxDist    int
}

// New builds a Corrector backed by tr. The word vocabulary is derived once
// from every trie entry's tokens, since spell correction must only ever
// suggest words that actually occur in known institution names.
func New(tr *trie.Trie, maxEditDistance int) *Corrector {
	seen := map[string]struct{}{}
	var vocab []string
	for _, entry := range tr.All() {
		for _, w := range strings.Fields(trie.Normalize(entry.Name)) {
			if _, ok := seen[w]; !ok {
				seen[w] = struct{}{}
				vocab = append(vocab, w)
			}
		}
	}
	return &Corrector{
		tr:         tr,
		vocab:      vocab,
		typeTerms:  DefaultTypeTerms,
		productCap: DefaultProductCap,
		maxDist:    maxEditDistance,
	}
}

// candidate is one per-word option with its edit distance from the original.
type candidate struct {
	word string
	dist int
}

// symspellCandidates returns vocabulary words within maxDist edits of word,
// ordered by ascending distance.
func (c *Corrector) symspellCandidates(word string) []candidate {
	var out []candidate
	for _, v := range c.vocab {
		d := normalize.EditDistance(word, v)
		if d <= c.maxDist {
			out = append(out, candidate{word: v, dist: d})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].dist < out[j].dist })
	return out
}

// Correct runs the phrase-level algorithm of spec.md §4.2 and returns up to
// k trie-validated corrections, ordered by ascending total edit distance
// then descending trie frequency. Returns an empty slice (not an error —
// NoSuggestion per spec.md §7) when the bounded product is exhausted
// without any trie match.
func (c *Corrector) Correct(query string, k int) []Result {
	words := strings.Fields(trie.Normalize(query))
	if len(words) == 0 {
		return nil
	}

	perPosition := make([][]candidate, len(words))
	for i, w := range words {
		set := []candidate{{word: w, dist: 0}}
		set = append(set, c.symspellCandidates(w)...)
		if i == len(words)-1 {
			for _, term := range c.typeTerms {
				set = append(set, candidate{word: term, dist: normalize.EditDistance(w, term)})
			}
		}
		set = dedupCandidates(set)
		sort.Slice(set, func(a, b int) bool { return set[a].dist < set[b].dist })
		perPosition[i] = set
	}

	perPosition = prune(perPosition, c.productCap)

	var results []Result
	seenPhrase := map[string]bool{}
	enumerate(perPosition, 0, make([]candidate, len(perPosition)), func(tuple []candidate) {
		phrase := make([]string, len(tuple))
		total := 0
		var corrections []Correction
		for i, cand := range tuple {
			phrase[i] = cand.word
			total += cand.dist
			if cand.dist > 0 {
				corrections = append(corrections, Correction{Position: i, Original: words[i], Corrected: cand.word})
			}
		}
		joined := strings.Join(phrase, " ")
		if !c.tr.Contains(joined) {
			return
		}
		if seenPhrase[joined] {
			return
		}
		seenPhrase[joined] = true
		meta, _ := c.tr.Lookup(joined)
		results = append(results, Result{
			CorrectedPhrase: meta.OriginalName,
			Corrections:     corrections,
			EditDistance:    total,
			Frequency:       meta.Frequency,
		})
	})

	sort.Slice(results, func(i, j int) bool {
		if results[i].EditDistance != results[j].EditDistance {
			return results[i].EditDistance < results[j].EditDistance
		}
		return results[i].Frequency > results[j].Frequency
	})
	if k > 0 && len(results) > k {
		results = results[:k]
	}
	return results
}

func dedupCandidates(in []candidate) []candidate {
	seen := map[string]bool{}
	var out []candidate
	for _, c := range in {
		if seen[c.word] {
			continue
		}
		seen[c.word] = true
		out = append(out, c)
	}
	return out
}

// prune keeps, per position, the candidates with smallest edit distance
// until the cartesian product size is within cap.
func prune(perPosition [][]candidate, cap int) [][]candidate {
	product := func(pp [][]candidate) int {
		n := 1
		for _, p := range pp {
			n *= len(p)
		}
		return n
	}
	for product(perPosition) > cap {
		// shrink the position with the most candidates
		widest := 0
		for i, p := range perPosition {
			if len(p) > len(perPosition[widest]) {
				widest = i
			}
		}
		if len(perPosition[widest]) <= 1 {
			break
		}
		perPosition[widest] = perPosition[widest][:len(perPosition[widest])-1]
	}
	return perPosition
}

func enumerate(perPosition [][]candidate, idx int, acc []candidate, emit func([]candidate)) {
	if idx == len(perPosition) {
		cp := make([]candidate, len(acc))
		copy(cp, acc)
		emit(cp)
		return
	}
	for _, c := range perPosition[idx] {
		acc[idx] = c
		enumerate(perPosition, idx+1, acc, emit)
	}
}
