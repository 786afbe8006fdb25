// Package extract implements the ExtractPhase of spec.md §4.8: an
// LLM-prompted structured-field extraction over the prepared content,
// validated against the frozen field schema, cached by
// (NormalizedKey, content hash, schema version, model), and merged with
// crawl-derived media.
package extract

import "github.com/yourorg/institution-profiler/internal/institution"

// SchemaVersion is bumped whenever institution.Schema changes shape
// (spec.md §4.8's cache key component), mirroring the teacher's
// SchemaVersionColumnMapping convention.
const SchemaVersion = "v1"

// JSONSchema builds the JSON-schema object sent to the LLM capability's
// complete() call (spec.md §6.3), shaped to every field of the frozen
// schema that is eligible for t, so the model knows exactly which keys are
// legal
// (spec.md §4.8 "embeds the field schema").
func JSONSchema(t institution.Type) map[string]interface{} {
	props := make(map[string]interface{}, len(institution.Schema))
	for _, f := range institution.Schema {
		if !f.Eligible(t) {
			continue
		}
		props[f.Name] = fieldSchema(f.Name)
	}
	return map[string]interface{}{
		"type":                 "object",
		"properties":           props,
		"additionalProperties": false,
	}
}

// fieldSchema returns a permissive per-field schema: most fields are
// strings, "leadership" is a list of {name, title} records, and the
// remaining list-shaped fields (accreditation, awards, ...) are string
// arrays. This mirrors institution.Value's tagged-variant shape at the
// extractor boundary (spec.md §9 "Mixed list/map result shapes").
func fieldSchema(name string) map[string]interface{} {
	switch name {
	case "leadership":
		return map[string]interface{}{
			"type": "array",
			"items": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"name":  map[string]interface{}{"type": "string"},
					"title": map[string]interface{}{"type": "string"},
				},
			},
		}
	case "accreditation", "awards", "social_media", "programs_offered", "specialties",
		"services_offered", "press_mentions":
		return map[string]interface{}{
			"type":  "array",
			"items": map[string]interface{}{"type": "string"},
		}
	case "student_population", "faculty_count", "employee_count", "bed_count",
		"patient_capacity", "branch_count", "total_assets", "annual_revenue",
		"tuition", "campus_size", "trauma_level":
		return map[string]interface{}{"type": "number"}
	default:
		return map[string]interface{}{"type": "string"}
	}
}
