package inference

import (
	"reflect"
	"testing"

	json "github.com/goccy/go-json"

	"schemascan/internal/classify"
	"schemascan/internal/schema"
)

func TestAnalyzeFieldTypes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		values       []any
		wantTypes    []classify.Type
		wantNullable bool
	}{
		{
			name:         "no observations",
			values:       nil,
			wantTypes:    []classify.Type{classify.TypeUnknown},
			wantNullable: true,
		},
		{
			name:         "all null",
			values:       []any{nil, nil},
			wantTypes:    []classify.Type{classify.TypeNull},
			wantNullable: true,
		},
		{
			name:         "homogeneous integers",
			values:       []any{json.Number("1"), json.Number("2")},
			wantTypes:    []classify.Type{classify.TypeInteger},
			wantNullable: false,
		},
		{
			name:         "mixed with null",
			values:       []any{json.Number("1"), "a", nil},
			wantTypes:    []classify.Type{classify.TypeInteger, classify.TypeString},
			wantNullable: true,
		},
		{
			name:         "numeric strings and plain strings",
			values:       []any{"42", "43.5", "x"},
			wantTypes:    []classify.Type{classify.TypeNumericString, classify.TypeString},
			wantNullable: false,
		},
		{
			name:         "null plus values is nullable",
			values:       []any{nil, json.Number("1")},
			wantTypes:    []classify.Type{classify.TypeInteger},
			wantNullable: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := AnalyzeField("f", tt.values, nil)
			if !f.Type.Equal(schema.Mixed(tt.wantTypes...)) {
				t.Fatalf("Type = %v, want %v", f.Type.Types(), tt.wantTypes)
			}
			if f.Nullable != tt.wantNullable {
				t.Fatalf("Nullable = %v, want %v", f.Nullable, tt.wantNullable)
			}
		})
	}
}

func TestAnalyzeFieldArrays(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		values []any
		want   classify.Type
	}{
		{
			name:   "homogeneous string elements",
			values: []any{[]any{"a", "b"}},
			want:   classify.ArrayOf(classify.TypeString),
		},
		{
			name:   "mixed elements",
			values: []any{[]any{"a", json.Number("1")}},
			want:   classify.ArrayMixed,
		},
		{
			name: "only leading elements sampled",
			values: []any{func() []any {
				arr := make([]any, 0, arrayElemSample+1)
				for i := 0; i < arrayElemSample; i++ {
					arr = append(arr, "s")
				}
				return append(arr, json.Number("1"))
			}()},
			want: classify.ArrayOf(classify.TypeString),
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := AnalyzeField("f", tt.values, nil)
			if got := f.Type.Types(); len(got) != 1 || got[0] != tt.want {
				t.Fatalf("Type = %v, want [%v]", got, tt.want)
			}
		})
	}
}

func TestAnalyzeFieldNestedObject(t *testing.T) {
	t.Parallel()

	f := AnalyzeField("addr", []any{
		map[string]any{"city": "Oslo", "zip": json.Number("1234")},
	}, nil)

	if !f.IsNested {
		t.Fatal("IsNested = false, want true")
	}
	if got := f.Type.Types(); len(got) != 1 || got[0] != classify.TypeObject {
		t.Fatalf("Type = %v, want [object]", got)
	}
	city, ok := f.NestedFields["city"]
	if !ok {
		t.Fatalf("NestedFields missing city: %v", f.NestedFields)
	}
	if city.Name != "addr.city" {
		t.Fatalf("nested name = %q, want %q", city.Name, "addr.city")
	}
	if got := city.Type.Types(); len(got) != 1 || got[0] != classify.TypeString {
		t.Fatalf("city type = %v, want [string]", got)
	}
	zip := f.NestedFields["zip"]
	if got := zip.Type.Types(); len(got) != 1 || got[0] != classify.TypeInteger {
		t.Fatalf("zip type = %v, want [integer]", got)
	}
}

func TestAnalyzeFieldEnumGate(t *testing.T) {
	t.Parallel()

	t.Run("low cardinality kept", func(t *testing.T) {
		t.Parallel()
		values := make([]any, 40)
		for i := range values {
			values[i] = []string{"red", "green", "blue"}[i%3]
		}
		f := AnalyzeField("color", values, nil)
		want := []string{"blue", "green", "red"}
		if !reflect.DeepEqual(f.DistinctValues, want) {
			t.Fatalf("DistinctValues = %v, want %v", f.DistinctValues, want)
		}
	})

	t.Run("high cardinality suppressed", func(t *testing.T) {
		t.Parallel()
		values := make([]any, 40)
		for i := range values {
			values[i] = "v" + string(rune('a'+i%25))
		}
		f := AnalyzeField("id", values, nil)
		if f.DistinctValues != nil {
			t.Fatalf("DistinctValues = %v, want nil", f.DistinctValues)
		}
	})

	t.Run("threshold is half the non null count", func(t *testing.T) {
		t.Parallel()
		// 3 distinct over 4 observations: 3 > 4/2, suppressed.
		f := AnalyzeField("f", []any{"a", "b", "c", "a"}, nil)
		if f.DistinctValues != nil {
			t.Fatalf("DistinctValues = %v, want nil", f.DistinctValues)
		}
		// 2 distinct over 4 observations: kept.
		f = AnalyzeField("f", []any{"a", "b", "a", "b"}, nil)
		if !reflect.DeepEqual(f.DistinctValues, []string{"a", "b"}) {
			t.Fatalf("DistinctValues = %v, want [a b]", f.DistinctValues)
		}
	})

	t.Run("number and numeric string counted separately", func(t *testing.T) {
		t.Parallel()
		f := AnalyzeField("f", []any{json.Number("1"), json.Number("1"), "1", "1"}, nil)
		if !f.Type.IsMixed() {
			t.Fatalf("Type = %v, want mixed", f.Type.Types())
		}
		// Two surrogate keys, one shared display form.
		if !reflect.DeepEqual(f.DistinctValues, []string{"1"}) {
			t.Fatalf("DistinctValues = %v, want [1]", f.DistinctValues)
		}
	})
}

func TestAnalyzeFieldStats(t *testing.T) {
	t.Parallel()

	t.Run("numeric min max", func(t *testing.T) {
		t.Parallel()
		f := AnalyzeField("n", []any{json.Number("5"), json.Number("-2"), json.Number("3.5")}, nil)
		if f.MinValue == nil || *f.MinValue != -2 {
			t.Fatalf("MinValue = %v, want -2", f.MinValue)
		}
		if f.MaxValue == nil || *f.MaxValue != 5 {
			t.Fatalf("MaxValue = %v, want 5", f.MaxValue)
		}
	})

	t.Run("numeric strings feed min max", func(t *testing.T) {
		t.Parallel()
		f := AnalyzeField("n", []any{"10", " 20 "}, nil)
		if f.MinValue == nil || *f.MinValue != 10 {
			t.Fatalf("MinValue = %v, want 10", f.MinValue)
		}
		if f.MaxValue == nil || *f.MaxValue != 20 {
			t.Fatalf("MaxValue = %v, want 20", f.MaxValue)
		}
	})

	t.Run("string lengths", func(t *testing.T) {
		t.Parallel()
		f := AnalyzeField("s", []any{"ab", "abcd"}, nil)
		if f.MinLength == nil || *f.MinLength != 2 {
			t.Fatalf("MinLength = %v, want 2", f.MinLength)
		}
		if f.MaxLength == nil || *f.MaxLength != 4 {
			t.Fatalf("MaxLength = %v, want 4", f.MaxLength)
		}
		if f.AvgLength == nil || *f.AvgLength != 3 {
			t.Fatalf("AvgLength = %v, want 3", f.AvgLength)
		}
	})

	t.Run("example is first non null", func(t *testing.T) {
		t.Parallel()
		f := AnalyzeField("s", []any{nil, "first", "second"}, nil)
		if f.ExampleValue == nil || *f.ExampleValue != "first" {
			t.Fatalf("ExampleValue = %v, want first", f.ExampleValue)
		}
	})
}
