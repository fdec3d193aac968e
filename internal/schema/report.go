package schema

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"
)

// WriteReport renders the catalog as a human-readable Markdown document: one
// section per file with a field table. The report is generated from the same
// in-memory schema as the JSON snapshot and is never parsed back.
func WriteReport(w io.Writer, c Catalog, now time.Time) error {
	var b strings.Builder
	b.WriteString("# JSON Schema Report\n\n")
	b.WriteString("Generated: " + now.Format("2006-01-02 15:04:05") + "\n\n---\n\n")

	files := make([]string, 0, len(c))
	for name := range c {
		files = append(files, name)
	}
	sort.Strings(files)

	for _, name := range files {
		s := c[name]
		b.WriteString("## File: " + name + "\n\n")
		count := strconv.Itoa(s.RecordCount)
		if s.RecordCountSampled {
			count += " (sampled)"
		}
		b.WriteString("- **Records Scanned:** " + count + "\n")
		b.WriteString("- **Fields Detected:** " + strconv.Itoa(len(s.Fields)) + "\n\n")
		b.WriteString("### Field Details\n\n")
		b.WriteString("| Field Name | Type | Nullable | Example Value | Statistics | Notes |\n")
		b.WriteString("|------------|------|----------|---------------|------------|-------|\n")

		for _, fieldName := range s.FieldNames() {
			f := s.Fields[fieldName]
			b.WriteString(reportRow(fieldName, f) + "\n")
		}
		b.WriteString("\n---\n\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func reportRow(name string, f *Field) string {
	nullable := "No"
	if f.Nullable {
		nullable = "Yes"
	}

	example := "<nil>"
	if f.ExampleValue != nil {
		example = *f.ExampleValue
	}
	if len(example) > 50 {
		example = example[:47] + "..."
	}
	example = strings.ReplaceAll(example, "|", "\\|")

	var stats []string
	if f.MinValue != nil && f.MaxValue != nil {
		stats = append(stats, fmt.Sprintf("min: %v, max: %v", *f.MinValue, *f.MaxValue))
	}
	if f.MinLength != nil && f.MaxLength != nil {
		if f.AvgLength != nil {
			stats = append(stats, fmt.Sprintf("len: %d-%d (avg: %.1f)", *f.MinLength, *f.MaxLength, *f.AvgLength))
		} else {
			stats = append(stats, fmt.Sprintf("len: %d-%d", *f.MinLength, *f.MaxLength))
		}
	}
	if n := len(f.DistinctValues); n > 0 && n <= 10 {
		vals := make([]string, n)
		copy(vals, f.DistinctValues)
		sort.Strings(vals)
		if n <= 5 {
			stats = append(stats, "enum: "+strings.Join(vals, ", "))
		} else {
			stats = append(stats, fmt.Sprintf("enum: %d values", n))
		}
	}
	statsStr := "-"
	if len(stats) > 0 {
		statsStr = strings.ReplaceAll(strings.Join(stats, "; "), "|", "\\|")
	}

	var notes []string
	if f.Nullable {
		notes = append(notes, "nullable")
	}
	if f.IsNested {
		notes = append(notes, "nested")
	}
	if f.Type.IsMixed() {
		notes = append(notes, "mixed types")
	}
	if n := len(f.DistinctValues); n > 0 && n <= 20 {
		notes = append(notes, "enum-like")
	}
	notesStr := "-"
	if len(notes) > 0 {
		notesStr = strings.Join(notes, ", ")
	}

	return fmt.Sprintf("| `%s` | %s | %s | `%s` | %s | %s |",
		name, f.Type.String(), nullable, example, statsStr, notesStr)
}
