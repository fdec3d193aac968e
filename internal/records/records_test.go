package records

import (
	"reflect"
	"sort"
	"testing"
)

func TestFlatten(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   map[string]any
		want Record
	}{
		{
			name: "flat passthrough",
			in:   map[string]any{"a": 1, "b": "x"},
			want: Record{"a": 1, "b": "x"},
		},
		{
			name: "nested object",
			in:   map[string]any{"a": map[string]any{"b": 1, "c": map[string]any{"d": 2}}},
			want: Record{"a.b": 1, "a.c.d": 2},
		},
		{
			name: "scalar array kept",
			in:   map[string]any{"tags": []any{"x", "y"}},
			want: Record{"tags": []any{"x", "y"}},
		},
		{
			name: "empty array kept",
			in:   map[string]any{"tags": []any{}},
			want: Record{"tags": []any{}},
		},
		{
			name: "object array opaque",
			in:   map[string]any{"items": []any{map[string]any{"id": 1}}},
			want: Record{"items": `[{"id":1}]`},
		},
		{
			name: "null preserved",
			in:   map[string]any{"a": nil, "b": map[string]any{"c": nil}},
			want: Record{"a": nil, "b.c": nil},
		},
		{
			name: "empty object vanishes",
			in:   map[string]any{"a": map[string]any{}, "b": 1},
			want: Record{"b": 1},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Flatten(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("Flatten() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

// TestFlattenDepthCap builds an object nested past the recursion cap and
// checks the tail survives as opaque JSON text instead of blowing the stack.
func TestFlattenDepthCap(t *testing.T) {
	t.Parallel()

	leaf := map[string]any{"v": 1}
	root := leaf
	for i := 0; i < maxFlattenDepth+10; i++ {
		root = map[string]any{"n": root}
	}

	got := Flatten(root)
	if len(got) != 1 {
		t.Fatalf("Flatten() produced %d paths, want 1", len(got))
	}
	for k, v := range got {
		if _, ok := v.(string); !ok {
			t.Fatalf("deep value at %q = %T, want opaque JSON string", k, v)
		}
	}
}

func TestPaths(t *testing.T) {
	t.Parallel()

	r := Record{"b": 1, "a": 2, "a.c": 3}
	got := r.Paths()
	sort.Strings(got)
	want := []string{"a", "a.c", "b"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Paths() = %v, want %v", got, want)
	}
}

func TestOpaqueJSONUnmarshalable(t *testing.T) {
	t.Parallel()

	if got := opaqueJSON(func() {}); got != "{}" {
		t.Fatalf("opaqueJSON(func) = %q, want %q", got, "{}")
	}
	if got := opaqueJSON(map[string]any{"a": 1}); got != `{"a":1}` {
		t.Fatalf("opaqueJSON(map) = %q", got)
	}
}
