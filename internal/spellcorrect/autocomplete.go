package spellcorrect

import (
	"strings"

	"github.com/yourorg/institution-profiler/internal/trie"
)

// Provenance labels how an autocomplete result was produced.
type Provenance string

const (
	ProvenanceAutocomplete    Provenance = "autocomplete"
	ProvenanceSpellCorrection Provenance = "spell_correction"
)

// Suggestion is one annotated autocomplete result.
type Suggestion struct {
	Name       string
	Frequency  int
	Provenance Provenance
}

// FallbackCharThreshold (N in spec.md §4.3) is the minimum prefix length
// that triggers a spell-correction fallback when Trie.Suggest is empty and
// the prefix is a single token.
const FallbackCharThreshold = 4

// Autocomplete implements spec.md §4.3's front end: try Trie.Suggest, widen
// via institutional prefix tokens, then fall back to spell correction.
type Autocomplete struct {
	tr        *trie.Trie
	corrector *Corrector
}

// NewAutocomplete binds a trie and a corrector built over the same trie.
func NewAutocomplete(tr *trie.Trie, corrector *Corrector) *Autocomplete {
	return &Autocomplete{tr: tr, corrector: corrector}
}

// Complete returns up to k annotated suggestions for prefix.
func (a *Autocomplete) Complete(prefix string, k int) []Suggestion {
	direct := a.tr.Suggest(prefix, k)
	if len(direct) > 0 {
		return annotate(direct, ProvenanceAutocomplete)
	}

	for _, tok := range AutocompletePrefixTokens {
		widened := tok + " " + prefix
		if res := a.tr.Suggest(widened, k); len(res) > 0 {
			return annotate(res, ProvenanceAutocomplete)
		}
	}

	tokenCount := len(strings.Fields(prefix))
	if tokenCount < 2 && len([]rune(prefix)) < FallbackCharThreshold {
		return nil
	}

	corrections := a.corrector.Correct(prefix, k)
	out := make([]Suggestion, 0, len(corrections))
	for _, c := range corrections {
		out = append(out, Suggestion{Name: c.CorrectedPhrase, Frequency: c.Frequency, Provenance: ProvenanceSpellCorrection})
	}
	return out
}

func annotate(in []trie.Suggestion, p Provenance) []Suggestion {
	out := make([]Suggestion, len(in))
	for i, s := range in {
		out[i] = Suggestion{Name: s.Name, Frequency: s.Frequency, Provenance: p}
	}
	return out
}
