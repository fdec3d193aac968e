// Package shape implements the top-level shape normalizer.
//
// JSON exports in the wild arrive in a handful of structural shapes: plain
// arrays of objects, NDJSON logs, wrapper objects with a named record array,
// tabular arrays-of-arrays (with or without column metadata), GeoJSON
// Feature/FeatureCollection documents, and bare single objects. The
// normalizer detects which shape a file uses and yields a uniform sequence
// of JSON objects with all wrapper layers removed.
//
// Design constraints:
//   - Detection is ordered and deterministic; the first matching shape wins.
//   - Parsing cascades through strict JSON, NDJSON, relaxed JSON, and a
//     YAML flow fallback before giving up on a file.
//   - Recoverable conditions (empty input, malformed NDJSON lines) warn via
//     the injected Logger and never fail the file.
//   - Streaming mode keeps memory bounded and falls back to the eager path
//     whenever streaming is not possible.
package shape

import (
	"bytes"
	"strconv"

	json "github.com/goccy/go-json"
)

// Logger is the minimal diagnostics sink used by the normalizer.
// *log.Logger satisfies this interface; nil discards.
type Logger interface {
	Printf(format string, v ...any)
}

func logf(l Logger, format string, v ...any) {
	if l != nil {
		l.Printf(format, v...)
	}
}

// wrapperKeys is the fixed, ordered list of object keys that may hold the
// record array in a wrapper document. Order is part of the contract.
var wrapperKeys = []string{"data", "results", "items", "records", "rows", "entries"}

// Normalize eagerly parses raw file content and returns one object per
// source record, wrapper layers removed.
//
// Parse cascade:
//  1. strict JSON (a single top-level value)
//  2. newline-delimited JSON, malformed lines skipped with a warning
//  3. relaxed JSON (comments, trailing commas, unquoted keys)
//  4. YAML flow parsing, as a literal-syntax fallback
//
// Unparsable or empty content yields an empty slice with a warning, never an
// error; the caller decides whether "no records" is fatal.
func Normalize(data []byte, log Logger) []map[string]any {
	data = bytes.TrimSpace(DecodeUTF8(data))
	if len(data) == 0 {
		logf(log, "shape: empty input")
		return nil
	}

	if root, ok := decodeStrict(data); ok {
		return normalizeRoot(root, log)
	}

	if recs := parseNDJSON(data, log); len(recs) > 0 {
		return recs
	}

	if root, ok := decodeRelaxed(data); ok {
		return normalizeRoot(root, log)
	}

	if root, ok := decodeLiteral(data); ok {
		return normalizeRoot(root, log)
	}

	logf(log, "shape: content did not parse with any known strategy")
	return nil
}

// decodeStrict parses data as exactly one JSON document. Trailing non-space
// content (NDJSON, concatenated documents) rejects the strict interpretation
// so the line-oriented pass can take over.
func decodeStrict(data []byte) (any, bool) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var root any
	if err := dec.Decode(&root); err != nil {
		return nil, false
	}
	if dec.More() {
		return nil, false
	}
	return root, true
}

// normalizeRoot dispatches on the type of the parsed top-level value.
func normalizeRoot(root any, log Logger) []map[string]any {
	switch t := root.(type) {
	case []any:
		return normalizeArray(t, nil, log)
	case map[string]any:
		return normalizeObject(t, log)
	default:
		logf(log, "shape: top-level value is %T, not an object or array", root)
		return nil
	}
}

// normalizeArray handles a top-level (or unwrapped) record array.
//
// If the first element is itself an array the input is tabular: rows map to
// objects either through the supplied column definitions or through
// synthesized column_0..column_N names from the widest row. Otherwise
// objects pass through and scalars are wrapped as {"value": v}.
func normalizeArray(arr []any, cols []map[string]any, log Logger) []map[string]any {
	if len(arr) == 0 {
		return nil
	}

	if _, tabular := arr[0].([]any); tabular {
		if len(cols) > 0 {
			out := make([]map[string]any, 0, len(arr))
			for _, row := range arr {
				r, ok := row.([]any)
				if !ok {
					continue
				}
				out = append(out, convertArrayRow(r, cols))
			}
			return out
		}
		return tabularWithoutMetadata(arr)
	}

	if _, objects := arr[0].(map[string]any); objects {
		out := make([]map[string]any, 0, len(arr))
		for _, it := range arr {
			if m, ok := it.(map[string]any); ok {
				out = append(out, m)
			}
		}
		return out
	}

	// Array of primitives: wrap each element so the result is object-shaped.
	out := make([]map[string]any, 0, len(arr))
	for _, it := range arr {
		out = append(out, coerceRecord(it))
	}
	return out
}

// tabularWithoutMetadata synthesizes column names from the widest row and
// maps every array row positionally.
func tabularWithoutMetadata(arr []any) []map[string]any {
	width := 0
	for _, row := range arr {
		if r, ok := row.([]any); ok && len(r) > width {
			width = len(r)
		}
	}

	names := make([]string, width)
	for i := range names {
		names[i] = "column_" + strconv.Itoa(i)
	}

	out := make([]map[string]any, 0, len(arr))
	for _, row := range arr {
		r, ok := row.([]any)
		if !ok {
			continue
		}
		rec := make(map[string]any, len(r))
		for i, v := range r {
			rec[names[i]] = v
		}
		out = append(out, rec)
	}
	return out
}

// normalizeObject handles a top-level object: wrapper unwrapping (with
// optional column metadata), GeoJSON, or a single record.
func normalizeObject(obj map[string]any, log Logger) []map[string]any {
	for _, key := range wrapperKeys {
		inner, ok := obj[key].([]any)
		if !ok {
			continue
		}
		var cols []map[string]any
		if len(inner) > 0 {
			if _, tabular := inner[0].([]any); tabular {
				cols = extractColumnDefs(obj, log)
			}
		}
		return normalizeArray(inner, cols, log)
	}

	if obj["type"] == "FeatureCollection" {
		if features, ok := obj["features"].([]any); ok {
			out := make([]map[string]any, 0, len(features))
			for _, f := range features {
				fm, ok := f.(map[string]any)
				if !ok {
					continue
				}
				props, _ := fm["properties"].(map[string]any)
				if props == nil {
					props = map[string]any{}
				}
				out = append(out, props)
			}
			return out
		}
	}

	if obj["type"] == "Feature" {
		props, _ := obj["properties"].(map[string]any)
		if props == nil {
			props = map[string]any{}
		}
		return []map[string]any{props}
	}

	// No recognized wrapper: one record.
	return []map[string]any{obj}
}

// parseNDJSON attempts a line-oriented pass. Each line parses independently
// and is wrapper-unwrapped with the same fixed key list; malformed lines are
// skipped with a warning. Returns nil when no line parsed.
func parseNDJSON(data []byte, log Logger) []map[string]any {
	var out []map[string]any
	bad := 0

	for lineNo, line := range bytes.Split(data, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		v, ok := decodeStrict(line)
		if !ok {
			bad++
			logf(log, "shape: ndjson line %d unparsable, skipped", lineNo+1)
			continue
		}
		out = append(out, coerceLine(v, log)...)
	}

	if bad > 0 {
		logf(log, "shape: ndjson pass skipped %d malformed line(s)", bad)
	}
	return out
}

// coerceLine converts one parsed NDJSON line into records.
func coerceLine(v any, log Logger) []map[string]any {
	switch t := v.(type) {
	case map[string]any:
		return normalizeObject(t, log)
	case []any:
		return []map[string]any{coerceRecord(t)}
	default:
		return []map[string]any{coerceRecord(t)}
	}
}

// coerceRecord guarantees an object-shaped record for any normalized value.
// Arrays map to synthetic positional keys; scalars become {"value": v}.
func coerceRecord(v any) map[string]any {
	switch t := v.(type) {
	case map[string]any:
		return t
	case []any:
		rec := make(map[string]any, len(t))
		for i, it := range t {
			rec["field_"+strconv.Itoa(i)] = it
		}
		return rec
	default:
		return map[string]any{"value": v}
	}
}
