// Package validate re-checks data files against a previously persisted
// schema snapshot. It consumes the codec's output format and performs no
// inference of its own.
package validate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	json "github.com/goccy/go-json"

	"schemascan/internal/classify"
	"schemascan/internal/schema"
	"schemascan/internal/shape"
)

// ErrNoSchema marks a file with no entry in the loaded snapshot.
var ErrNoSchema = errors.New("validate: no schema found for file")

// defaultMaxErrors caps how many error strings one file accumulates; the
// count keeps increasing past the cap.
const defaultMaxErrors = 100

// Validator checks files against a loaded schema catalog.
type Validator struct {
	Catalog schema.Catalog

	// Log receives warnings. nil discards.
	Log shape.Logger

	// MaxErrors caps recorded error messages per file; <= 0 means the
	// default of 100.
	MaxErrors int
}

// Load builds a Validator from a persisted snapshot. A missing snapshot is a
// hard error; there is nothing to validate against.
func Load(path string) (*Validator, error) {
	cat, err := schema.Load(path)
	if err != nil {
		return nil, err
	}
	return &Validator{Catalog: cat}, nil
}

// FileResult is the validation outcome for one file.
type FileResult struct {
	Valid      bool
	ErrorCount int
	Errors     []string

	// Err is set when validation could not run at all (no schema entry).
	Err error
}

// ValidateFile checks every record of the file at path against its schema
// entry, matched by base filename. A record value passes when it matches any
// member of the field's (possibly mixed) type; fields the snapshot does not
// know are ignored.
func (v *Validator) ValidateFile(path string) FileResult {
	fileSchema, ok := v.Catalog[filepath.Base(path)]
	if !ok {
		return FileResult{Err: ErrNoSchema}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return FileResult{Err: err}
	}
	records := shape.Normalize(data, v.Log)

	maxErrors := v.MaxErrors
	if maxErrors <= 0 {
		maxErrors = defaultMaxErrors
	}

	res := FileResult{}
	for i, rec := range records {
		for field, value := range rec {
			def, ok := fileSchema.Fields[field]
			if !ok {
				continue
			}
			if typeMatches(value, def.Type) {
				continue
			}
			res.ErrorCount++
			if len(res.Errors) < maxErrors {
				res.Errors = append(res.Errors,
					fmt.Sprintf("row %d, field %q: expected %s, got %s", i, field, def.Type, describe(value)))
			}
		}
	}
	res.Valid = res.ErrorCount == 0
	return res
}

// ValidateDir validates every matching file in dir against the catalog.
func (v *Validator) ValidateDir(ctx context.Context, dir string) (map[string]FileResult, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("validate: glob: %w", err)
	}
	sort.Strings(files)

	out := make(map[string]FileResult, len(files))
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		out[filepath.Base(path)] = v.ValidateFile(path)
	}
	return out, nil
}

// typeMatches reports whether one observed value is acceptable for the
// declared field type. Null always passes (nullability was decided at
// inference time); string-flavored semantic types all accept strings, and
// numeric checks distinguish integer from float by literal shape.
func typeMatches(value any, ft schema.FieldType) bool {
	if value == nil {
		return true
	}
	for _, t := range ft.Types() {
		if memberMatches(value, t) {
			return true
		}
	}
	return false
}

func memberMatches(value any, t classify.Type) bool {
	switch t {
	case classify.TypeInteger:
		switch n := value.(type) {
		case json.Number:
			_, err := n.Int64()
			return err == nil
		case int, int64:
			return true
		case float64:
			return n == float64(int64(n))
		}
		return false
	case classify.TypeFloat:
		switch value.(type) {
		case json.Number, int, int64, float64:
			return true
		}
		return false
	case classify.TypeBoolean:
		_, ok := value.(bool)
		return ok
	case classify.TypeObject:
		_, ok := value.(map[string]any)
		return ok
	case classify.TypeNull:
		return value == nil
	case classify.TypeString, classify.TypeTimestamp, classify.TypeURL, classify.TypeEmail,
		classify.TypeUUID, classify.TypeIPAddress, classify.TypeNumericString, classify.TypeJSONString:
		_, ok := value.(string)
		return ok
	default:
		if t == classify.TypeArray || strings.HasPrefix(string(t), "array<") {
			_, ok := value.([]any)
			return ok
		}
		// Unknown and future types stay permissive.
		return true
	}
}

func describe(value any) string {
	switch t := value.(type) {
	case json.Number:
		return "number (" + t.String() + ")"
	case string:
		if len(t) > 40 {
			t = t[:37] + "..."
		}
		return fmt.Sprintf("string (%q)", t)
	case bool:
		return fmt.Sprintf("boolean (%v)", t)
	case map[string]any:
		return "object"
	case []any:
		return "array"
	default:
		return fmt.Sprintf("%T (%v)", value, value)
	}
}
