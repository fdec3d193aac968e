package shape

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	json "github.com/goccy/go-json"
)

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "input.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func collectStream(t *testing.T, path string) []map[string]any {
	t.Helper()
	var got []map[string]any
	err := StreamFile(context.Background(), path, nil, func(rec map[string]any) error {
		got = append(got, rec)
		return nil
	})
	if err != nil {
		t.Fatalf("StreamFile() error: %v", err)
	}
	return got
}

// TestStreamFileMatchesNormalize checks that the streaming path yields the
// exact records the eager path produces, for every shape the dispatcher can
// take: top-level arrays, wrapper objects (plain and with column metadata),
// NDJSON, and the non-streamable shapes the eager fallback covers.
func TestStreamFileMatchesNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
	}{
		{"array of objects", `[{"id": 1, "name": "a"}, {"id": 2, "name": "b"}]`},
		{"array of scalars", `["x", "y", 3]`},
		{"tabular array uniform rows", `[["a", 1], ["b", 2]]`},
		{"wrapper data", `{"count": 2, "data": [{"id": 1}, {"id": 2}]}`},
		{"wrapper tabular without metadata", `{"data": [[1, 2], [3, 4]]}`},
		{"array of objects with stray scalar", `[{"a": 1}, 5]`},
		{"wrapper objects with stray scalar", `{"data": [{"a": 1}, 5]}`},
		{"tabular array with stray scalar", `[["a", 1], "junk", ["b", 2]]`},
		{"wrapper records after other fields", `{"page": 1, "records": [{"id": 1}]}`},
		{
			"wrapper with column metadata",
			`{"meta": {"view": {"columns": [{"fieldName": "id", "position": 0}, {"fieldName": "name", "position": 1}]}}, "data": [["1", "a"], ["2", "b"]]}`,
		},
		{"ndjson", "{\"id\": 1}\n{\"id\": 2}\nbad line\n{\"id\": 3}"},
		{"single object fallback", `{"id": 1, "name": "x"}`},
		{
			"geojson fallback",
			`{"type": "FeatureCollection", "features": [{"type": "Feature", "properties": {"name": "a"}}]}`,
		},
		{"metadata only fallback", `{"meta": {"generated": true}}`},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			path := writeTemp(t, tt.in)
			got := collectStream(t, path)
			want := Normalize([]byte(tt.in), nil)

			if !reflect.DeepEqual(got, want) {
				t.Fatalf("streamed records = %#v, want eager %#v", got, want)
			}
		})
	}
}

// TestStreamFileWrappedTabularColumns pins the column names synthesized for
// wrapper arrays of rows that carry no column metadata.
func TestStreamFileWrappedTabularColumns(t *testing.T) {
	t.Parallel()

	path := writeTemp(t, `{"data": [[1, 2], [3, 4]]}`)
	got := collectStream(t, path)

	want := []map[string]any{
		{"column_0": json.Number("1"), "column_1": json.Number("2")},
		{"column_0": json.Number("3"), "column_1": json.Number("4")},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("streamed records = %#v, want %#v", got, want)
	}
}

// TestStreamFileSkipsMismatchedElements pins the rule that an array's first
// element decides the record shape and later elements of a different kind
// are dropped, on both the top-level and wrapper paths.
func TestStreamFileSkipsMismatchedElements(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want []map[string]any
	}{
		{
			"top level object array",
			`[{"a": 1}, 5]`,
			[]map[string]any{{"a": json.Number("1")}},
		},
		{
			"wrapped object array",
			`{"data": [{"a": 1}, 5]}`,
			[]map[string]any{{"a": json.Number("1")}},
		},
		{
			"tabular array",
			`[["a"], {"b": 2}, ["c"]]`,
			[]map[string]any{{"column_0": "a"}, {"column_0": "c"}},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			path := writeTemp(t, tt.in)
			got := collectStream(t, path)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("streamed records = %#v, want %#v", got, tt.want)
			}
		})
	}
}

// TestStreamFileStop verifies the early-stop sentinel halts cleanly.
func TestStreamFileStop(t *testing.T) {
	t.Parallel()

	path := writeTemp(t, `[{"id": 1}, {"id": 2}, {"id": 3}]`)

	var got []map[string]any
	err := StreamFile(context.Background(), path, nil, func(rec map[string]any) error {
		got = append(got, rec)
		if len(got) == 2 {
			return ErrStop
		}
		return nil
	})
	if err != nil {
		t.Fatalf("StreamFile() error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("emitted %d records, want 2", len(got))
	}
}

// TestStreamFileStopDuringFallback checks ErrStop also halts the eager
// fallback path without surfacing an error.
func TestStreamFileStopDuringFallback(t *testing.T) {
	t.Parallel()

	path := writeTemp(t, `{"type": "FeatureCollection", "features": [`+
		`{"type": "Feature", "properties": {"n": 1}},`+
		`{"type": "Feature", "properties": {"n": 2}},`+
		`{"type": "Feature", "properties": {"n": 3}}]}`)

	emitted := 0
	err := StreamFile(context.Background(), path, nil, func(rec map[string]any) error {
		emitted++
		if emitted == 1 {
			return ErrStop
		}
		return nil
	})
	if err != nil {
		t.Fatalf("StreamFile() error: %v", err)
	}
	if emitted != 1 {
		t.Fatalf("emitted %d records, want 1", emitted)
	}
}

func TestStreamFileEmpty(t *testing.T) {
	t.Parallel()

	path := writeTemp(t, "")

	emitted := 0
	err := StreamFile(context.Background(), path, nil, func(rec map[string]any) error {
		emitted++
		return nil
	})
	if err != nil {
		t.Fatalf("StreamFile() error: %v", err)
	}
	if emitted != 0 {
		t.Fatalf("emitted %d records from empty file, want 0", emitted)
	}
}

func TestStreamFileMissing(t *testing.T) {
	t.Parallel()

	err := StreamFile(context.Background(), filepath.Join(t.TempDir(), "nope.json"), nil, func(map[string]any) error {
		return nil
	})
	if err == nil {
		t.Fatal("StreamFile() on missing file returned nil error")
	}
}

func TestStreamFileContextCanceled(t *testing.T) {
	t.Parallel()

	path := writeTemp(t, `[{"id": 1}, {"id": 2}]`)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := StreamFile(ctx, path, nil, func(map[string]any) error { return nil })
	if err != context.Canceled {
		t.Fatalf("StreamFile() error = %v, want context.Canceled", err)
	}
}
