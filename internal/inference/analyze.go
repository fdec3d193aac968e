// Package inference aggregates observed field values into field schemas and
// orchestrates sampling, flattening, and per-field analysis for one file.
package inference

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"

	"schemascan/internal/classify"
	"schemascan/internal/schema"
)

// Classifier resolves one scalar value to its semantic type. *classify.Memo
// satisfies this.
type Classifier interface {
	Value(v any) classify.Type
}

// plainClassifier is the memo-less default.
type plainClassifier struct{}

func (plainClassifier) Value(v any) classify.Type { return classify.Value(v) }

// arrayElemSample bounds how many leading array elements decide between a
// homogeneous and a mixed element type.
const arrayElemSample = 10

// maxEnumDistinct is the absolute cap on enum-like cardinality.
const maxEnumDistinct = 20

// AnalyzeField aggregates every value observed for one field path into a
// single field schema. values holds one entry per sampled record, nil for
// records where the field was absent or null.
//
// Object values short-circuit on first occurrence: the object's keys are
// analyzed recursively from that single representative value and the field
// reports type object with nested_fields. Array values short-circuit the
// same way, reporting array<T> when the leading elements agree on one type
// and array<mixed> otherwise. Neither short-circuit collects further
// statistics.
func AnalyzeField(name string, values []any, cl Classifier) *schema.Field {
	if cl == nil {
		cl = plainClassifier{}
	}
	if len(values) == 0 {
		return &schema.Field{Name: name, Type: schema.Single(classify.TypeUnknown), Nullable: true}
	}

	nonNull := make([]any, 0, len(values))
	for _, v := range values {
		if v != nil {
			nonNull = append(nonNull, v)
		}
	}
	nullable := len(nonNull) < len(values)

	if len(nonNull) == 0 {
		return &schema.Field{Name: name, Type: schema.Single(classify.TypeNull), Nullable: true}
	}

	var (
		seen     []classify.Type
		seenSet  = map[classify.Type]bool{}
		example  *string
		distinct = map[string]string{}

		minVal, maxVal *float64
		lengths        []int
	)

	for _, v := range nonNull {
		t := cl.Value(v)
		if !seenSet[t] {
			seenSet[t] = true
			seen = append(seen, t)
		}

		if example == nil {
			s := stringify(v)
			example = &s
		}

		if key, display, ok := distinctSurrogate(v); ok {
			distinct[key] = display
		}

		if num, ok := numericValue(v, t); ok {
			if minVal == nil || num < *minVal {
				minVal = ptr(num)
			}
			if maxVal == nil || num > *maxVal {
				maxVal = ptr(num)
			}
		}

		if s, ok := v.(string); ok {
			lengths = append(lengths, len(s))
		}

		if obj, ok := v.(map[string]any); ok {
			nested := make(map[string]*schema.Field, len(obj))
			for k, nv := range obj {
				nested[k] = AnalyzeField(name+"."+k, []any{nv}, cl)
			}
			return &schema.Field{
				Name:         name,
				Type:         schema.Single(classify.TypeObject),
				Nullable:     nullable,
				ExampleValue: example,
				IsNested:     true,
				NestedFields: nested,
			}
		}

		if arr, ok := v.([]any); ok && len(arr) > 0 {
			return &schema.Field{
				Name:         name,
				Type:         schema.Single(arrayElemType(arr, cl)),
				Nullable:     nullable,
				ExampleValue: example,
			}
		}
	}

	f := &schema.Field{
		Name:         name,
		Nullable:     nullable,
		ExampleValue: example,
	}
	if len(seen) == 1 {
		f.Type = schema.Single(seen[0])
	} else {
		f.Type = schema.Mixed(seen...)
	}

	f.MinValue = minVal
	f.MaxValue = maxVal
	if len(lengths) > 0 {
		minL, maxL, sum := lengths[0], lengths[0], 0
		for _, n := range lengths {
			if n < minL {
				minL = n
			}
			if n > maxL {
				maxL = n
			}
			sum += n
		}
		f.MinLength = ptr(minL)
		f.MaxLength = ptr(maxL)
		f.AvgLength = ptr(float64(sum) / float64(len(lengths)))
	}

	// Enum gate: keep the distinct set only for genuinely low-cardinality
	// fields relative to the sample.
	threshold := len(nonNull) / 2
	if threshold > maxEnumDistinct {
		threshold = maxEnumDistinct
	}
	if len(distinct) <= threshold {
		vals := make([]string, 0, len(distinct))
		have := map[string]bool{}
		for _, display := range distinct {
			if !have[display] {
				have[display] = true
				vals = append(vals, display)
			}
		}
		sort.Strings(vals)
		f.DistinctValues = vals
	}
	return f
}

// arrayElemType classifies the leading elements of one observed array.
func arrayElemType(arr []any, cl Classifier) classify.Type {
	sample := arr
	if len(sample) > arrayElemSample {
		sample = sample[:arrayElemSample]
	}
	elem := cl.Value(sample[0])
	for _, it := range sample[1:] {
		if cl.Value(it) != elem {
			return classify.ArrayMixed
		}
	}
	return classify.ArrayOf(elem)
}

// numericValue extracts a float for min/max tracking from native numbers and
// numeric-looking strings.
func numericValue(v any, t classify.Type) (float64, bool) {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case string:
		if t != classify.TypeNumericString {
			return 0, false
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// distinctSurrogate maps one value to a collision-safe counting key and a
// display form. The key carries a kind tag so the integer 1 and the string
// "1" stay distinct observations.
func distinctSurrogate(v any) (key, display string, ok bool) {
	switch t := v.(type) {
	case string:
		return "s:" + t, t, true
	case bool:
		return "b:" + strconv.FormatBool(t), strconv.FormatBool(t), true
	case json.Number:
		return "n:" + t.String(), t.String(), true
	case int:
		s := strconv.Itoa(t)
		return "n:" + s, s, true
	case int64:
		s := strconv.FormatInt(t, 10)
		return "n:" + s, s, true
	case float64:
		s := strconv.FormatFloat(t, 'g', -1, 64)
		return "n:" + s, s, true
	case []any, map[string]any:
		data, err := json.Marshal(t)
		if err != nil {
			return "", "", false
		}
		return "j:" + string(data), string(data), true
	default:
		return "", "", false
	}
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case []any, map[string]any:
		data, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprintf("%v", t)
		}
		return string(data)
	default:
		return fmt.Sprintf("%v", t)
	}
}

func ptr[T any](v T) *T { return &v }
