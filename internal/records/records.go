// Package records defines the flat record type shared between the shape
// normalizer, the inference engine, and downstream sinks.
package records

import (
	json "github.com/goccy/go-json"
)

// Record maps a dotted field path to a scalar or opaque-JSON value.
// Keys are unique; ordering carries no meaning.
type Record map[string]any

// maxFlattenDepth caps recursion while flattening. JSON nesting depth is
// attacker-controlled input; anything past this level is kept as an opaque
// JSON text scalar instead of being expanded further.
const maxFlattenDepth = 64

// Flatten converts a nested JSON object into a single-level Record with
// dot-separated field paths.
//
// Rules:
//   - Nested objects expand recursively: {"a":{"b":1}} -> {"a.b":1}.
//   - An array whose first element is an object is re-serialized to a JSON
//     text scalar instead of being expanded.
//   - Arrays of scalars are kept as arrays.
//   - Values below maxFlattenDepth are kept as opaque JSON text.
func Flatten(obj map[string]any) Record {
	out := make(Record, len(obj))
	flattenInto(obj, "", 0, out)
	return out
}

func flattenInto(obj map[string]any, prefix string, depth int, out Record) {
	for k, v := range obj {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}

		switch t := v.(type) {
		case map[string]any:
			if depth+1 >= maxFlattenDepth {
				out[key] = opaqueJSON(t)
				continue
			}
			flattenInto(t, key, depth+1, out)

		case []any:
			if len(t) > 0 {
				if _, ok := t[0].(map[string]any); ok {
					out[key] = opaqueJSON(t)
					continue
				}
			}
			out[key] = t

		default:
			out[key] = v
		}
	}
}

// opaqueJSON renders v back to JSON text so it survives as a string scalar.
func opaqueJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		// Only non-JSON-representable values fail here; none are produced by
		// the normalizer. Degrade to an empty object rather than dropping data.
		return "{}"
	}
	return string(b)
}

// Paths returns the record's field paths in unspecified order.
func (r Record) Paths() []string {
	out := make([]string, 0, len(r))
	for k := range r {
		out = append(out, k)
	}
	return out
}
