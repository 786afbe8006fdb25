package spellcorrect

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yourorg/institution-profiler/internal/normalize"
	"github.com/yourorg/institution-profiler/internal/trie"
)

func buildTestTrie() *trie.Trie {
	tr := trie.New()
	tr.Insert("Harvard University", trie.Metadata{Frequency: 10})
	tr.Insert("Harvest", trie.Metadata{Frequency: 1})
	return tr
}

// S1 spell correction scenario (spec.md §8).
func TestCorrectScenarioS1(t *testing.T) {
	tr := buildTestTrie()
	c := New(tr, 2)

	results := c.Correct("harvrd university", 5)
	assert.Len(t, results, 1)
	assert.Equal(t, "Harvard University", results[0].CorrectedPhrase)
	assert.Len(t, results[0].Corrections, 1)
	assert.Equal(t, 0, results[0].Corrections[0].Position)
	assert.Equal(t, "harvrd", results[0].Corrections[0].Original)
	assert.Equal(t, "harvard", results[0].Corrections[0].Corrected)
	assert.Equal(t, 1, results[0].EditDistance)
}

// Property 1: every suggestion corresponds to a reachable trie terminal.
func TestCorrectPrecisionProperty(t *testing.T) {
	tr := trie.New()
	tr.Insert("Boston College", trie.Metadata{Frequency: 5})
	tr.Insert("Boston University", trie.Metadata{Frequency: 7})
	tr.Insert("Bank of America", trie.Metadata{Frequency: 3})
	c := New(tr, 2)

	queries := []string{"bston collage", "bank of amerika", "nonexistent institution xyz"}
	for _, q := range queries {
		for _, r := range c.Correct(q, 5) {
			assert.True(t, tr.Contains(normalize.CanonicalName(r.CorrectedPhrase, nil)) || tr.Contains(r.CorrectedPhrase))
		}
	}
}

func TestCorrectNoSuggestionReturnsEmpty(t *testing.T) {
	tr := buildTestTrie()
	c := New(tr, 1)
	results := c.Correct("completely unrelated query text", 5)
	assert.Empty(t, results)
}

func TestAutocompleteAnnotatesProvenance(t *testing.T) {
	tr := trie.New()
	tr.Insert("Massachusetts Institute of Technology", trie.Metadata{Frequency: 100})
	c := New(tr, 2)
	ac := NewAutocomplete(tr, c)

	direct := ac.Complete("mass", 3)
	assert.NotEmpty(t, direct)
	assert.Equal(t, ProvenanceAutocomplete, direct[0].Provenance)
}
