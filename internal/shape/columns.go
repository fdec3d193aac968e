package shape

import (
	"strconv"
	"strings"
)

// metadataPaths are the known locations of column definitions inside a
// wrapper document (Socrata and similar open-data exports), tried in order.
var metadataPaths = [][]string{
	{"meta", "view", "columns"},
	{"view", "columns"},
	{"columns"},
	{"schema", "fields"},
	{"fields"},
	{"header"},
}

// columnNameKeys is the resolution order for a column definition's name.
var columnNameKeys = []string{"fieldName", "name", "id", "key"}

// extractColumnDefs walks the known metadata paths of a wrapper document and
// returns column definitions, or nil when none validate. A candidate list
// validates only when its first element carries a name or fieldName key.
func extractColumnDefs(doc map[string]any, log Logger) []map[string]any {
	for _, path := range metadataPaths {
		var cur any = doc
		found := true
		for _, key := range path {
			m, ok := cur.(map[string]any)
			if !ok {
				found = false
				break
			}
			cur, ok = m[key]
			if !ok {
				found = false
				break
			}
		}
		if !found {
			continue
		}

		list, ok := cur.([]any)
		if !ok || len(list) == 0 {
			continue
		}
		first, ok := list[0].(map[string]any)
		if !ok {
			continue
		}
		if _, hasName := first["name"]; !hasName {
			if _, hasFieldName := first["fieldName"]; !hasFieldName {
				continue
			}
		}

		cols := make([]map[string]any, 0, len(list))
		for _, it := range list {
			if m, ok := it.(map[string]any); ok {
				cols = append(cols, m)
			}
		}
		logf(log, "shape: column definitions found at metadata path %s", strings.Join(path, "."))
		return cols
	}
	return nil
}

// convertArrayRow maps an array-based row to an object using column
// definitions.
//
// Per column: the field name resolves from the first present key among
// fieldName/name/id/key (else column_<position> is synthesized), the value
// resolves through the column's declared position index into the row
// (falling back to the list index when position is absent or out of range),
// a leading ':' is stripped from the name, and columns flagged hidden or
// typed meta_data+hidden are skipped.
func convertArrayRow(row []any, cols []map[string]any) map[string]any {
	rec := make(map[string]any, len(cols))

	for idx, col := range cols {
		name := ""
		for _, k := range columnNameKeys {
			if v, ok := col[k]; ok {
				name = stringify(v)
				break
			}
		}
		if name == "" {
			name = "column_" + strconv.Itoa(columnPosition(col, len(rec)))
		}

		if hasHiddenFlag(col) {
			continue
		}
		if stringify(col["dataTypeName"]) == "meta_data" && hasHiddenFlag(col) {
			continue
		}

		pos := columnPosition(col, -1)
		var val any
		switch {
		case pos >= 0 && pos < len(row):
			val = row[pos]
		case idx < len(row):
			val = row[idx]
		default:
			continue
		}

		rec[strings.TrimPrefix(name, ":")] = val
	}
	return rec
}

func hasHiddenFlag(col map[string]any) bool {
	flags, ok := col["flags"].([]any)
	if !ok {
		return false
	}
	for _, f := range flags {
		if stringify(f) == "hidden" {
			return true
		}
	}
	return false
}

// columnPosition reads a column's declared position, tolerating the JSON
// number representations the decoder may produce.
func columnPosition(col map[string]any, fallback int) int {
	v, ok := col["position"]
	if !ok {
		return fallback
	}
	switch t := v.(type) {
	case float64:
		return int(t)
	case int:
		return t
	case int64:
		return int(t)
	default:
		if n, err := strconv.Atoi(strings.TrimSpace(stringify(v))); err == nil {
			return n
		}
		return fallback
	}
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		// json.Number and friends all print cleanly via their String methods.
		if s, ok := v.(interface{ String() string }); ok {
			return s.String()
		}
		return ""
	}
}
