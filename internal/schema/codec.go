package schema

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	json "github.com/goccy/go-json"
)

// maxDistinctPersisted caps the distinct_values list written per field.
const maxDistinctPersisted = 100

// Marshal renders the catalog in the persisted JSON form. distinct_values
// lists are capped and sorted on the way out; the in-memory catalog is not
// touched.
func Marshal(c Catalog) ([]byte, error) {
	out := make(Catalog, len(c))
	for name, s := range c {
		out[name] = capFileSchema(s)
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("schema: marshal catalog: %w", err)
	}
	return data, nil
}

// Unmarshal parses the persisted JSON form back into a catalog.
func Unmarshal(data []byte) (Catalog, error) {
	var c Catalog
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("schema: unmarshal catalog: %w", err)
	}
	return c, nil
}

// Save writes the catalog to path, creating parent directories as needed.
func Save(path string, c Catalog) error {
	data, err := Marshal(c)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("schema: create output dir: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("schema: write %s: %w", path, err)
	}
	return nil
}

// Load reads a persisted catalog. A missing file is a hard error satisfying
// errors.Is(err, fs.ErrNotExist): no inference can substitute for a snapshot
// that was never written.
func Load(path string) (Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("schema: load %s: %w", path, err)
	}
	return Unmarshal(data)
}

func capFileSchema(s *File) *File {
	if s == nil {
		return nil
	}
	out := &File{
		Filename:           s.Filename,
		RecordCount:        s.RecordCount,
		RecordCountSampled: s.RecordCountSampled,
		Fields:             make(map[string]*Field, len(s.Fields)),
	}
	for name, f := range s.Fields {
		out.Fields[name] = capField(f)
	}
	return out
}

func capField(f *Field) *Field {
	if f == nil {
		return nil
	}
	out := *f
	if len(f.DistinctValues) > 0 {
		vals := make([]string, len(f.DistinctValues))
		copy(vals, f.DistinctValues)
		sort.Strings(vals)
		if len(vals) > maxDistinctPersisted {
			vals = vals[:maxDistinctPersisted]
		}
		out.DistinctValues = vals
	}
	if len(f.NestedFields) > 0 {
		out.NestedFields = make(map[string]*Field, len(f.NestedFields))
		for name, nf := range f.NestedFields {
			out.NestedFields[name] = capField(nf)
		}
	}
	return &out
}
