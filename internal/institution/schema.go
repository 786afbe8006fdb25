package institution

// Type tags an institution record with its domain for field eligibility and
// keyword enrichment purposes.
type Type string

const (
	TypeUniversity Type = "university"
	TypeHospital   Type = "hospital"
	TypeBank       Type = "bank"
	TypeGeneral    Type = "general"
)

// ParseType maps a free-text type token onto one of the four known tags,
// falling back to TypeGeneral for anything unrecognized.
func ParseType(s string) Type {
	switch Type(s) {
	case TypeUniversity, TypeHospital, TypeBank, TypeGeneral:
		return Type(s)
	default:
		return TypeGeneral
	}
}

// FieldClass is the priority category assigned to every schema field.
type FieldClass string

const (
	ClassCritical    FieldClass = "critical"
	ClassImportant   FieldClass = "important"
	ClassValuable    FieldClass = "valuable"
	ClassSpecialized FieldClass = "specialized"
	ClassEnhanced    FieldClass = "enhanced"
)

// BaseWeight is the QualityScorer's per-class weight (spec.md §4.10 step 1).
var BaseWeight = map[FieldClass]float64{
	ClassCritical:    0.40,
	ClassImportant:   0.25,
	ClassValuable:    0.20,
	ClassSpecialized: 0.10,
	ClassEnhanced:    0.05,
}

// FieldDef describes one entry of the frozen field schema. Types is nil for
// fields eligible under every institution type; non-nil Types restricts a
// specialized field to the listed types, per spec.md §3's "specialized
// fields are further tagged with one or more institution types".
type FieldDef struct {
	Name  string
	Class FieldClass
	Types []Type
}

// Schema is the closed field list. Extraction and scoring both read this
// table; adding a field means updating it here once, nowhere else.
var Schema = []FieldDef{
	// critical — every institution, regardless of type
	{Name: "name", Class: ClassCritical},
	{Name: "official_name", Class: ClassCritical},
	{Name: "website", Class: ClassCritical},
	{Name: "description", Class: ClassCritical},
	{Name: "location_city", Class: ClassCritical},
	{Name: "location_country", Class: ClassCritical},
	{Name: "founded", Class: ClassCritical},
	{Name: "address", Class: ClassCritical},

	// important
	{Name: "phone", Class: ClassImportant},
	{Name: "email", Class: ClassImportant},
	{Name: "ceo", Class: ClassImportant},
	{Name: "leadership", Class: ClassImportant},
	{Name: "location_state", Class: ClassImportant},
	{Name: "postal_code", Class: ClassImportant},
	{Name: "type_classification", Class: ClassImportant},
	{Name: "parent_organization", Class: ClassImportant},
	{Name: "established_status", Class: ClassImportant},
	{Name: "employee_count", Class: ClassImportant},

	// valuable
	{Name: "mission_statement", Class: ClassValuable},
	{Name: "accreditation", Class: ClassValuable},
	{Name: "awards", Class: ClassValuable},
	{Name: "social_media", Class: ClassValuable},
	{Name: "annual_revenue", Class: ClassValuable},
	{Name: "service_area", Class: ClassValuable},

	// specialized — type-restricted
	{Name: "student_population", Class: ClassSpecialized, Types: []Type{TypeUniversity}},
	{Name: "faculty_count", Class: ClassSpecialized, Types: []Type{TypeUniversity}},
	{Name: "programs_offered", Class: ClassSpecialized, Types: []Type{TypeUniversity}},
	{Name: "tuition", Class: ClassSpecialized, Types: []Type{TypeUniversity}},
	{Name: "campus_size", Class: ClassSpecialized, Types: []Type{TypeUniversity}},
	{Name: "research_focus", Class: ClassSpecialized, Types: []Type{TypeUniversity}},

	{Name: "bed_count", Class: ClassSpecialized, Types: []Type{TypeHospital}},
	{Name: "specialties", Class: ClassSpecialized, Types: []Type{TypeHospital}},
	{Name: "emergency_services", Class: ClassSpecialized, Types: []Type{TypeHospital}},
	{Name: "trauma_level", Class: ClassSpecialized, Types: []Type{TypeHospital}},
	{Name: "patient_capacity", Class: ClassSpecialized, Types: []Type{TypeHospital}},

	{Name: "total_assets", Class: ClassSpecialized, Types: []Type{TypeBank}},
	{Name: "branch_count", Class: ClassSpecialized, Types: []Type{TypeBank}},
	{Name: "swift_code", Class: ClassSpecialized, Types: []Type{TypeBank}},
	{Name: "services_offered", Class: ClassSpecialized, Types: []Type{TypeBank}},
	{Name: "regulatory_body", Class: ClassSpecialized, Types: []Type{TypeBank}},

	// enhanced
	{Name: "logo_url", Class: ClassEnhanced},
	{Name: "video_tour_url", Class: ClassEnhanced},
	{Name: "press_mentions", Class: ClassEnhanced},
	{Name: "historical_timeline", Class: ClassEnhanced},
	{Name: "sustainability_notes", Class: ClassEnhanced},
}

// FieldClassOf looks up the class for a schema field name; ok is false for
// an unknown field.
func FieldClassOf(name string) (FieldClass, bool) {
	for _, f := range Schema {
		if f.Name == name {
			return f.Class, true
		}
	}
	return "", false
}

// Eligible reports whether a field applies to the given institution type:
// non-specialized fields always apply; specialized fields apply only when
// t appears in FieldDef.Types, and never for TypeGeneral or an unknown type
// (spec.md §4.10 step 2).
func (f FieldDef) Eligible(t Type) bool {
	if f.Class != ClassSpecialized {
		return true
	}
	if t == TypeGeneral || t == "" {
		return false
	}
	for _, want := range f.Types {
		if want == t {
			return true
		}
	}
	return false
}

// FieldsByClass groups the schema's fields eligible for type t by class.
func FieldsByClass(t Type) map[FieldClass][]FieldDef {
	out := make(map[FieldClass][]FieldDef, 5)
	for _, f := range Schema {
		if f.Eligible(t) {
			out[f.Class] = append(out[f.Class], f)
		}
	}
	return out
}

// Record is a mapping field_name → Value, drawn from Schema. Absent fields
// are simply missing keys, never present with a null Value.
type Record struct {
	Type   Type
	Fields map[string]Value
}

// NewRecord returns an empty record of the given type.
func NewRecord(t Type) *Record {
	return &Record{Type: t, Fields: make(map[string]Value)}
}

// Set stores v under name if name is a known schema field and v is non-null;
// storing a null value is a no-op, matching "absent fields are omitted, not
// null" (spec.md §3).
func (r *Record) Set(name string, v Value) {
	if _, ok := FieldClassOf(name); !ok {
		return
	}
	if v.IsNull() {
		return
	}
	r.Fields[name] = v
}

// Has reports whether name is present with a non-null value.
func (r *Record) Has(name string) bool {
	v, ok := r.Fields[name]
	return ok && !v.IsNull()
}
