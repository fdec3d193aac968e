// Package csv implements a sink.Sink writing one CSV file per input file.
//
// Columns come from the schema's field paths, sorted, excluding the
// synthetic ".parsed." sub-paths (their source string is already a column).
// Values render according to the field's inferred type: scalars as their
// literal text, arrays and embedded objects as JSON text, absent values as
// empty cells.
package csv

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	json "github.com/goccy/go-json"

	"schemascan/internal/records"
	"schemascan/internal/schema"
	"schemascan/internal/sink"
)

type Sink struct {
	dir string
}

func init() {
	sink.Register("csv", New)
}

func New(cfg sink.Config) (sink.Sink, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("sink csv: missing output dir")
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("sink csv: create output dir: %w", err)
	}
	return &Sink{dir: cfg.Dir}, nil
}

func (s *Sink) Close() error { return nil }

// WriteFile writes <stem>.csv into the sink directory.
func (s *Sink) WriteFile(ctx context.Context, fileSchema *schema.File, recs []records.Record) error {
	if len(recs) == 0 {
		return nil
	}

	cols := columns(fileSchema)
	if len(cols) == 0 {
		return nil
	}

	stem := strings.TrimSuffix(fileSchema.Filename, filepath.Ext(fileSchema.Filename))
	path := filepath.Join(s.dir, stem+".csv")

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("sink csv: create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(cols); err != nil {
		return fmt.Errorf("sink csv: write header: %w", err)
	}

	row := make([]string, len(cols))
	for i, rec := range recs {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		for j, col := range cols {
			row[j] = renderCell(rec[col])
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("sink csv: write row %d: %w", i, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("sink csv: flush %s: %w", path, err)
	}
	return f.Close()
}

// columns derives the sorted CSV header from the schema's field paths.
func columns(fileSchema *schema.File) []string {
	names := fileSchema.FieldNames()
	out := names[:0]
	for _, name := range names {
		if strings.Contains(name, ".parsed.") {
			continue
		}
		out = append(out, name)
	}
	return out
}

func renderCell(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		if t {
			return "true"
		}
		return "false"
	case []any, map[string]any:
		data, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprintf("%v", t)
		}
		return string(data)
	default:
		return fmt.Sprintf("%v", t)
	}
}

var _ sink.Sink = (*Sink)(nil)
