package institution

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseTypeFallsBackToGeneral(t *testing.T) {
	assert.Equal(t, TypeBank, ParseType("bank"))
	assert.Equal(t, TypeGeneral, ParseType("nonsense"))
	assert.Equal(t, TypeGeneral, ParseType(""))
}

func TestEligibleRestrictsSpecializedFields(t *testing.T) {
	bedCount := FieldDef{Name: "bed_count", Class: ClassSpecialized, Types: []Type{TypeHospital}}
	assert.True(t, bedCount.Eligible(TypeHospital))
	assert.False(t, bedCount.Eligible(TypeUniversity))
	assert.False(t, bedCount.Eligible(TypeGeneral))

	name := FieldDef{Name: "name", Class: ClassCritical}
	assert.True(t, name.Eligible(TypeGeneral))
}

func TestFieldsByClassExcludesIneligibleSpecialized(t *testing.T) {
	byClass := FieldsByClass(TypeBank)
	var names []string
	for _, f := range byClass[ClassSpecialized] {
		names = append(names, f.Name)
	}
	assert.Contains(t, names, "total_assets")
	assert.NotContains(t, names, "bed_count")
	assert.NotContains(t, names, "student_population")
}

func TestRecordSetDropsUnknownAndNullFields(t *testing.T) {
	rec := NewRecord(TypeUniversity)
	rec.Set("name", Text("Example University"))
	rec.Set("not_a_real_field", Text("x"))
	rec.Set("website", Null())

	assert.True(t, rec.Has("name"))
	assert.False(t, rec.Has("not_a_real_field"))
	assert.False(t, rec.Has("website"))
}
