package classify

import (
	"testing"

	json "github.com/goccy/go-json"
)

//
// Value
//

// TestValue verifies classification of native (non-string) values.
func TestValue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   any
		want Type
	}{
		{"nil", nil, TypeNull},
		{"bool", true, TypeBoolean},
		{"int", 42, TypeInteger},
		{"int64", int64(-7), TypeInteger},
		{"integral float", 3.0, TypeInteger},
		{"fractional float", 3.5, TypeFloat},
		{"json number int", json.Number("42"), TypeInteger},
		{"json number float", json.Number("43.5"), TypeFloat},
		{"json number exponent", json.Number("1e3"), TypeFloat},
		{"array", []any{1, 2}, TypeArray},
		{"object", map[string]any{"a": 1}, TypeObject},
		{"unknown kind", struct{}{}, TypeUnknown},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Value(tt.in); got != tt.want {
				t.Fatalf("Value(%v) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

//
// String
//

// TestString verifies the ordered heuristic battery over string values.
// Order matters: the first matching heuristic decides, so a timestamp-shaped
// value never falls through to numeric_string even though epoch seconds
// would parse as a number.
func TestString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want Type
	}{
		{"iso date", "2024-03-15", TypeTimestamp},
		{"iso datetime z", "2024-03-15T10:30:00Z", TypeTimestamp},
		{"iso datetime offset", "2024-03-15T10:30:00+02:00", TypeTimestamp},
		{"space separated", "2024-03-15 10:30:00", TypeTimestamp},
		{"slash date", "03/15/2024", TypeTimestamp},
		{"epoch seconds", "1710498600", TypeTimestamp},
		{"epoch millis", "1710498600000", TypeTimestamp},
		{"http url", "http://example.com/x", TypeURL},
		{"https url", "https://example.com", TypeURL},
		{"email", "alice@example.com", TypeEmail},
		{"uuid hyphenated", "123e4567-e89b-12d3-a456-426614174000", TypeUUID},
		{"uuid bare", "123e4567e89b12d3a456426614174000", TypeUUID},
		{"ipv4", "192.168.1.1", TypeIPAddress},
		{"ipv4 octet out of range", "999.1.1.1", TypeString},
		{"ipv6", "2001:0db8:85a3:0000:0000:8a2e:0370:7334", TypeIPAddress},
		{"numeric int", "42", TypeNumericString},
		{"numeric float", "43.5", TypeNumericString},
		{"numeric scientific", "1.5e10", TypeNumericString},
		{"numeric padded", "  42  ", TypeNumericString},
		{"json object", `{"a": 1}`, TypeJSONString},
		{"json array", `[1, 2, 3]`, TypeJSONString},
		{"json invalid braces", "{not json}", TypeString},
		{"plain", "hello world", TypeString},
		{"empty", "", TypeString},
		{"not numeric", "x", TypeString},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := String(tt.in); got != tt.want {
				t.Fatalf("String(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

//
// ArrayOf
//

func TestArrayOf(t *testing.T) {
	t.Parallel()

	if got := ArrayOf(TypeString); got != Type("array<string>") {
		t.Fatalf("ArrayOf(string) = %q", got)
	}
	if got := ArrayOf(TypeInteger); got != Type("array<integer>") {
		t.Fatalf("ArrayOf(integer) = %q", got)
	}
}

//
// Memo
//

// TestMemoValue verifies the memoized classifier returns the same results as
// the plain path and survives non-string and oversized inputs.
func TestMemoValue(t *testing.T) {
	t.Parallel()

	m := NewMemo(8)

	inputs := []any{
		"2024-03-15", "42", "hello", nil, true, json.Number("3.5"),
		[]any{1}, map[string]any{"a": 1},
	}
	for _, in := range inputs {
		if got, want := m.Value(in), Value(in); got != want {
			t.Fatalf("Memo.Value(%v) = %q, want %q", in, got, want)
		}
	}

	// Second pass hits the cache; results must not change.
	for _, in := range inputs {
		if got, want := m.Value(in), Value(in); got != want {
			t.Fatalf("cached Memo.Value(%v) = %q, want %q", in, got, want)
		}
	}

	long := make([]byte, memoMaxKeyLen+1)
	for i := range long {
		long[i] = 'a'
	}
	if got := m.Value(string(long)); got != TypeString {
		t.Fatalf("Memo.Value(long string) = %q, want %q", got, TypeString)
	}
}
