// Package institution defines the closed field schema and the polymorphic
// value type shared by the extractor and the scorer.
package institution

import (
	"encoding/json"
	"fmt"
)

// Kind discriminates the variant held by a Value.
type Kind int

const (
	KindNull Kind = iota
	KindText
	KindNumber
	KindList
	KindRecord
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindNumber:
		return "number"
	case KindList:
		return "list"
	case KindRecord:
		return "record"
	default:
		return "null"
	}
}

// Value is a tagged-variant: Null | Text(string) | Number(float64) |
// List(Value[]) | Record(map[string]Value). It is parsed once at the
// extractor boundary from whatever JSON shape the LLM returned and carried
// unchanged through scoring and persistence.
type Value struct {
	kind   Kind
	text   string
	number float64
	list   []Value
	record map[string]Value
}

// Null returns the null variant.
func Null() Value { return Value{kind: KindNull} }

// Text wraps a string.
func Text(s string) Value { return Value{kind: KindText, text: s} }

// Number wraps a float64.
func Number(n float64) Value { return Value{kind: KindNumber, number: n} }

// List wraps a slice of values.
func List(vs []Value) Value { return Value{kind: KindList, list: vs} }

// Record wraps a nested field map, e.g. a leadership entry {name, title}.
func Record(m map[string]Value) Value { return Value{kind: KindRecord, record: m} }

// Kind reports which variant is held.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether the value is the null/absent variant.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Text returns the string payload; "" if the value is not KindText.
func (v Value) Text() string { return v.text }

// Number returns the numeric payload; 0 if the value is not KindNumber.
func (v Value) Number() float64 { return v.number }

// List returns the element slice; nil if the value is not KindList.
func (v Value) List() []Value { return v.list }

// Record returns the nested map; nil if the value is not KindRecord.
func (v Value) Record() map[string]Value { return v.record }

// MarshalJSON renders the held variant directly, with no wrapper envelope,
// so extraction cache files and benchmark payloads stay plain JSON.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNull:
		return []byte("null"), nil
	case KindText:
		return json.Marshal(v.text)
	case KindNumber:
		return json.Marshal(v.number)
	case KindList:
		return json.Marshal(v.list)
	case KindRecord:
		return json.Marshal(v.record)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON infers the variant from the raw JSON token: object → Record,
// array → List, string → Text, number → Number, null/anything else → Null.
func (v *Value) UnmarshalJSON(data []byte) error {
	var probe interface{}
	if err := json.Unmarshal(data, &probe); err != nil {
		return fmt.Errorf("institution: decode value: %w", err)
	}
	*v = fromAny(probe)
	return nil
}

func fromAny(a interface{}) Value {
	switch t := a.(type) {
	case nil:
		return Null()
	case string:
		return Text(t)
	case float64:
		return Number(t)
	case []interface{}:
		out := make([]Value, 0, len(t))
		for _, e := range t {
			out = append(out, fromAny(e))
		}
		return List(out)
	case map[string]interface{}:
		out := make(map[string]Value, len(t))
		for k, e := range t {
			out[k] = fromAny(e)
		}
		return Record(out)
	default:
		return Null()
	}
}
