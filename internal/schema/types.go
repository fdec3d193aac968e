// Package schema defines the persisted schema model: per-field aggregates,
// per-file schemas, and the catalog keyed by filename. The JSON encoding of
// these types is the contract consumed by format writers and the validator,
// so field names and nesting are fixed.
package schema

import (
	"fmt"
	"sort"
	"strings"

	json "github.com/goccy/go-json"

	"schemascan/internal/classify"
)

// FieldType is a tagged variant: either a single semantic type or the set of
// types observed for one field across the sample. The zero value is the
// unknown single type.
type FieldType struct {
	types []classify.Type
}

// Single returns a FieldType holding exactly one semantic type.
func Single(t classify.Type) FieldType {
	return FieldType{types: []classify.Type{t}}
}

// Mixed returns a FieldType holding the set of the given types, deduplicated
// and sorted. One distinct type collapses to Single.
func Mixed(ts ...classify.Type) FieldType {
	seen := make(map[classify.Type]bool, len(ts))
	uniq := make([]classify.Type, 0, len(ts))
	for _, t := range ts {
		if !seen[t] {
			seen[t] = true
			uniq = append(uniq, t)
		}
	}
	sort.Slice(uniq, func(i, j int) bool { return uniq[i] < uniq[j] })
	return FieldType{types: uniq}
}

// IsMixed reports whether more than one semantic type was observed.
func (ft FieldType) IsMixed() bool { return len(ft.types) > 1 }

// Types returns the member types, sorted. Single values return a one-element
// slice. The caller must not mutate the result.
func (ft FieldType) Types() []classify.Type {
	if len(ft.types) == 0 {
		return []classify.Type{classify.TypeUnknown}
	}
	return ft.types
}

// Has reports set membership.
func (ft FieldType) Has(t classify.Type) bool {
	for _, m := range ft.types {
		if m == t {
			return true
		}
	}
	return false
}

// Equal compares by set membership; order never matters.
func (ft FieldType) Equal(other FieldType) bool {
	a, b := ft.Types(), other.Types()
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (ft FieldType) String() string {
	ts := ft.Types()
	if len(ts) == 1 {
		return string(ts[0])
	}
	parts := make([]string, len(ts))
	for i, t := range ts {
		parts[i] = string(t)
	}
	return "mixed(" + strings.Join(parts, ", ") + ")"
}

// MarshalJSON encodes a single type as a JSON string and a mixed set as a
// sorted JSON array of strings.
func (ft FieldType) MarshalJSON() ([]byte, error) {
	ts := ft.Types()
	if len(ts) == 1 {
		return json.Marshal(string(ts[0]))
	}
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = string(t)
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts either encoding.
func (ft *FieldType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*ft = Single(classify.Type(s))
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("schema: field_type is neither string nor array: %w", err)
	}
	ts := make([]classify.Type, len(list))
	for i, s := range list {
		ts[i] = classify.Type(s)
	}
	*ft = Mixed(ts...)
	return nil
}

// Field is the aggregate for one flattened field path.
//
// ExampleValue is always the stringified first non-null observation (nil
// pointer when the field was only ever null). DistinctValues is nil unless
// the field passed the enum-cardinality gate. The numeric and length stats
// are pointers so absent and zero stay distinguishable in the persisted
// form.
type Field struct {
	Name           string            `json:"name"`
	Type           FieldType         `json:"field_type"`
	Nullable       bool              `json:"nullable"`
	ExampleValue   *string           `json:"example_value"`
	IsNested       bool              `json:"is_nested"`
	NestedFields   map[string]*Field `json:"nested_fields"`
	DistinctValues []string          `json:"distinct_values"`
	MinValue       *float64          `json:"min_value"`
	MaxValue       *float64          `json:"max_value"`
	MinLength      *int              `json:"min_length"`
	MaxLength      *int              `json:"max_length"`
	AvgLength      *float64          `json:"avg_length"`
}

// Equal compares two fields semantically: types and distinct values as sets,
// everything else by value, nested fields recursively.
func (f *Field) Equal(other *Field) bool {
	if f == nil || other == nil {
		return f == other
	}
	if f.Name != other.Name || !f.Type.Equal(other.Type) || f.Nullable != other.Nullable ||
		f.IsNested != other.IsNested {
		return false
	}
	if !ptrEqual(f.ExampleValue, other.ExampleValue) {
		return false
	}
	if !ptrEqual(f.MinValue, other.MinValue) || !ptrEqual(f.MaxValue, other.MaxValue) {
		return false
	}
	if !ptrEqual(f.MinLength, other.MinLength) || !ptrEqual(f.MaxLength, other.MaxLength) ||
		!ptrEqual(f.AvgLength, other.AvgLength) {
		return false
	}
	if !stringSetEqual(f.DistinctValues, other.DistinctValues) {
		return false
	}
	if len(f.NestedFields) != len(other.NestedFields) {
		return false
	}
	for name, nf := range f.NestedFields {
		if !nf.Equal(other.NestedFields[name]) {
			return false
		}
	}
	return true
}

func ptrEqual[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func stringSetEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[string]int, len(a))
	for _, s := range a {
		set[s]++
	}
	for _, s := range b {
		set[s]--
		if set[s] < 0 {
			return false
		}
	}
	return true
}

// File is the inferred schema of one source file.
//
// RecordCountSampled marks a count taken from a truncated streaming pass; the
// true total was never known, so RecordCount is the sampled count rather than
// an exact figure.
type File struct {
	Filename           string            `json:"filename"`
	RecordCount        int               `json:"record_count"`
	RecordCountSampled bool              `json:"record_count_sampled,omitempty"`
	Fields             map[string]*Field `json:"fields"`
}

// Equal compares two file schemas semantically.
func (s *File) Equal(other *File) bool {
	if s == nil || other == nil {
		return s == other
	}
	if s.Filename != other.Filename || s.RecordCount != other.RecordCount ||
		s.RecordCountSampled != other.RecordCountSampled {
		return false
	}
	if len(s.Fields) != len(other.Fields) {
		return false
	}
	for name, f := range s.Fields {
		if !f.Equal(other.Fields[name]) {
			return false
		}
	}
	return true
}

// FieldNames returns the field paths of s, sorted.
func (s *File) FieldNames() []string {
	names := make([]string, 0, len(s.Fields))
	for name := range s.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Catalog maps source filename to its inferred schema. Filenames are unique
// by construction.
type Catalog map[string]*File

// Equal compares two catalogs semantically.
func (c Catalog) Equal(other Catalog) bool {
	if len(c) != len(other) {
		return false
	}
	for name, s := range c {
		if !s.Equal(other[name]) {
			return false
		}
	}
	return true
}
