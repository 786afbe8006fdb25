package trie

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yourorg/institution-profiler/internal/institution"
)

func TestInsertIdempotentKeepsHigherFrequency(t *testing.T) {
	tr := New()
	tr.Insert("Harvard University", Metadata{Frequency: 5, Type: institution.TypeUniversity})
	tr.Insert("harvard university", Metadata{Frequency: 10})

	meta, ok := tr.Lookup("HARVARD UNIVERSITY")
	assert.True(t, ok)
	assert.Equal(t, 10, meta.Frequency)
	assert.Equal(t, institution.TypeUniversity, meta.Type) // kept from earlier insert
	assert.Equal(t, 1, tr.Size())
}

func TestContainsExactNormalizedMatch(t *testing.T) {
	tr := New()
	tr.Insert("Harvard University", Metadata{Frequency: 1})
	assert.True(t, tr.Contains("  HARVARD   University!!"))
	assert.False(t, tr.Contains("Yale University"))
}

// S2 Autocomplete prefix scenario (spec.md §8).
func TestSuggestOrderingScenarioS2(t *testing.T) {
	tr := New()
	tr.Insert("Massachusetts Institute of Technology", Metadata{Frequency: 100})
	tr.Insert("Massachusetts General Hospital", Metadata{Frequency: 80})
	tr.Insert("Massey University", Metadata{Frequency: 40})
	tr.Insert("Masseter Clinic", Metadata{Frequency: 5})

	got := tr.Suggest("mass", 3)
	assert.Len(t, got, 3)
	assert.Equal(t, "Massachusetts Institute of Technology", got[0].Name)
	assert.Equal(t, "Massachusetts General Hospital", got[1].Name)
	assert.Equal(t, "Massey University", got[2].Name)
}

func TestSuggestTieBreaksLexicographically(t *testing.T) {
	tr := New()
	tr.Insert("Bank Zed", Metadata{Frequency: 1})
	tr.Insert("Bank Alpha", Metadata{Frequency: 1})

	got := tr.Suggest("bank", 5)
	assert.Equal(t, "Bank Alpha", got[0].Name)
	assert.Equal(t, "Bank Zed", got[1].Name)
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{"  Harvard, University!! ", "mit", "Bank-of America"}
	for _, in := range inputs {
		once := Normalize(in)
		twice := Normalize(once)
		assert.Equal(t, once, twice)
	}
}
