package validate

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	json "github.com/goccy/go-json"

	"schemascan/internal/classify"
	"schemascan/internal/schema"
)

func TestTypeMatches(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		value any
		ft    schema.FieldType
		want  bool
	}{
		{"null always passes", nil, schema.Single(classify.TypeString), true},
		{"integer number", json.Number("42"), schema.Single(classify.TypeInteger), true},
		{"fractional fails integer", json.Number("4.5"), schema.Single(classify.TypeInteger), false},
		{"integer passes float", json.Number("42"), schema.Single(classify.TypeFloat), true},
		{"integral float64 passes integer", 3.0, schema.Single(classify.TypeInteger), true},
		{"string fails integer", "42", schema.Single(classify.TypeInteger), false},
		{"bool", true, schema.Single(classify.TypeBoolean), true},
		{"string passes timestamp", "2024-03-15", schema.Single(classify.TypeTimestamp), true},
		{"string passes url", "anything", schema.Single(classify.TypeURL), true},
		{"string passes numeric string", "42", schema.Single(classify.TypeNumericString), true},
		{"number fails string", json.Number("1"), schema.Single(classify.TypeString), false},
		{"object", map[string]any{"a": 1}, schema.Single(classify.TypeObject), true},
		{"array matches typed array", []any{"x"}, schema.Single(classify.ArrayOf(classify.TypeString)), true},
		{"array matches mixed array", []any{"x", 1}, schema.Single(classify.ArrayMixed), true},
		{"scalar fails array", "x", schema.Single(classify.ArrayOf(classify.TypeString)), false},
		{"mixed passes on any member", "x", schema.Mixed(classify.TypeInteger, classify.TypeString), true},
		{"mixed fails when no member matches", true, schema.Mixed(classify.TypeInteger, classify.TypeString), false},
		{"unknown is permissive", "anything", schema.Single(classify.TypeUnknown), true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := typeMatches(tt.value, tt.ft); got != tt.want {
				t.Fatalf("typeMatches(%v, %s) = %v, want %v", tt.value, tt.ft, got, tt.want)
			}
		})
	}
}

func testCatalog() schema.Catalog {
	return schema.Catalog{
		"users.json": {
			Filename:    "users.json",
			RecordCount: 2,
			Fields: map[string]*schema.Field{
				"id":   {Name: "id", Type: schema.Single(classify.TypeInteger)},
				"name": {Name: "name", Type: schema.Single(classify.TypeString), Nullable: true},
			},
		},
	}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestValidateFile(t *testing.T) {
	t.Parallel()

	v := &Validator{Catalog: testCatalog()}

	t.Run("conforming file", func(t *testing.T) {
		t.Parallel()
		path := writeFile(t, t.TempDir(), "users.json", `[{"id": 1, "name": "a"}, {"id": 2, "name": null}]`)
		res := v.ValidateFile(path)
		if res.Err != nil {
			t.Fatalf("Err = %v", res.Err)
		}
		if !res.Valid || res.ErrorCount != 0 {
			t.Fatalf("result = %+v, want valid", res)
		}
	})

	t.Run("type mismatches counted", func(t *testing.T) {
		t.Parallel()
		path := writeFile(t, t.TempDir(), "users.json", `[{"id": "oops", "name": 7}, {"id": 2}]`)
		res := v.ValidateFile(path)
		if res.Valid {
			t.Fatal("Valid = true, want false")
		}
		if res.ErrorCount != 2 {
			t.Fatalf("ErrorCount = %d, want 2: %v", res.ErrorCount, res.Errors)
		}
	})

	t.Run("unknown fields ignored", func(t *testing.T) {
		t.Parallel()
		path := writeFile(t, t.TempDir(), "users.json", `[{"id": 1, "extra": true}]`)
		res := v.ValidateFile(path)
		if !res.Valid {
			t.Fatalf("result = %+v, want valid", res)
		}
	})

	t.Run("no schema entry", func(t *testing.T) {
		t.Parallel()
		path := writeFile(t, t.TempDir(), "other.json", `[{"id": 1}]`)
		res := v.ValidateFile(path)
		if !errors.Is(res.Err, ErrNoSchema) {
			t.Fatalf("Err = %v, want ErrNoSchema", res.Err)
		}
	})

	t.Run("error messages capped but count exact", func(t *testing.T) {
		t.Parallel()
		capped := &Validator{Catalog: testCatalog(), MaxErrors: 3}
		recs := `[`
		for i := 0; i < 10; i++ {
			if i > 0 {
				recs += ","
			}
			recs += `{"id": "bad"}`
		}
		recs += `]`
		path := writeFile(t, t.TempDir(), "users.json", recs)
		res := capped.ValidateFile(path)
		if res.ErrorCount != 10 {
			t.Fatalf("ErrorCount = %d, want 10", res.ErrorCount)
		}
		if len(res.Errors) != 3 {
			t.Fatalf("recorded %d messages, want 3", len(res.Errors))
		}
	})
}

func TestValidateDir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "users.json", `[{"id": 1, "name": "a"}]`)
	writeFile(t, dir, "stray.json", `[{"x": 1}]`)

	v := &Validator{Catalog: testCatalog()}
	results, err := v.ValidateDir(context.Background(), dir)
	if err != nil {
		t.Fatalf("ValidateDir() error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if !results["users.json"].Valid {
		t.Fatalf("users.json = %+v, want valid", results["users.json"])
	}
	if !errors.Is(results["stray.json"].Err, ErrNoSchema) {
		t.Fatalf("stray.json Err = %v, want ErrNoSchema", results["stray.json"].Err)
	}
}

func TestValidateDirCanceled(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "users.json", `[{"id": 1}]`)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	v := &Validator{Catalog: testCatalog()}
	if _, err := v.ValidateDir(ctx, dir); err == nil {
		t.Fatal("ValidateDir() with canceled context returned nil error")
	}
}

func TestLoadMissingSnapshot(t *testing.T) {
	t.Parallel()

	if _, err := Load(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Fatal("Load() on missing snapshot returned nil error")
	}
}
