package inference

import (
	"context"
	"math/rand"
	"os"
	"path/filepath"
	"strings"

	json "github.com/goccy/go-json"

	"schemascan/internal/classify"
	"schemascan/internal/records"
	"schemascan/internal/schema"
	"schemascan/internal/shape"
)

// DefaultSampleSize bounds how many records feed inference when the caller
// does not set a limit.
const DefaultSampleSize = 10000

// Sampling strategies.
const (
	StrategyFirst  = "first"
	StrategyRandom = "random"
)

// Builder infers the schema of one file. The zero value is usable: default
// sample size, "first" strategy, eager loading, no diagnostics.
type Builder struct {
	// SampleSize caps how many records are analyzed; <= 0 means
	// DefaultSampleSize.
	SampleSize int

	// Strategy is StrategyFirst or StrategyRandom. Random sampling needs the
	// full record set materialized, so it disables streaming for a file.
	Strategy string

	// Streaming keeps memory bounded on large files. Only effective with
	// StrategyFirst; inference can then stop reading early, at the price of
	// an inexact total record count.
	Streaming bool

	// Log receives warnings. nil discards.
	Log shape.Logger

	// Classifier resolves scalar types; nil uses the plain classifier.
	// Share a *classify.Memo here to amortize regex work across files.
	Classifier Classifier

	// Rand drives random sampling; nil falls back to the global source.
	Rand *rand.Rand
}

// BuildFile infers the schema for the file at path.
//
// A file that yields zero records returns (nil, nil) with a warning; parse
// strategies exhausting without records is not an error at this level. I/O
// failures return an error for the caller to isolate.
func (b *Builder) BuildFile(ctx context.Context, path string) (*schema.File, error) {
	size := b.SampleSize
	if size <= 0 {
		size = DefaultSampleSize
	}
	strategy := b.Strategy
	if strategy == "" {
		strategy = StrategyFirst
	}

	var (
		sample  []map[string]any
		total   int
		sampled bool
	)

	if b.Streaming && strategy == StrategyFirst {
		truncated := false
		err := shape.StreamFile(ctx, path, b.Log, func(rec map[string]any) error {
			sample = append(sample, rec)
			if len(sample) >= size {
				truncated = true
				return shape.ErrStop
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		total = len(sample)
		sampled = truncated
	} else {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		all := shape.Normalize(data, b.Log)
		total = len(all)
		switch {
		case total <= size:
			sample = all
		case strategy == StrategyRandom:
			sample = reservoir(all, size, b.Rand)
		default:
			sample = all[:size]
		}
	}

	if len(sample) == 0 {
		b.logf("inference: no records found in %s", path)
		return nil, nil
	}

	fields := b.analyzeRecords(sample)
	return &schema.File{
		Filename:           filepath.Base(path),
		RecordCount:        total,
		RecordCountSampled: sampled,
		Fields:             fields,
	}, nil
}

// analyzeRecords flattens each sampled record, aligns values per field path
// (absent fields count as null observations), and analyzes every path.
func (b *Builder) analyzeRecords(sample []map[string]any) map[string]*schema.Field {
	var order []string
	values := map[string][]any{}

	put := func(idx int, key string, v any) {
		col, ok := values[key]
		if !ok {
			order = append(order, key)
		}
		for len(col) < idx {
			col = append(col, nil)
		}
		values[key] = append(col, v)
	}

	for i, rec := range sample {
		flat := records.Flatten(rec)
		for key, v := range flat {
			put(i, key, v)
			if sub := expandEmbeddedJSON(key, v); sub != nil {
				for sk, sv := range sub {
					put(i, sk, sv)
				}
			}
		}
	}

	// Records processed after a field's last occurrence still count as
	// null observations.
	for key, col := range values {
		for len(col) < len(sample) {
			col = append(col, nil)
		}
		values[key] = col
	}

	fields := make(map[string]*schema.Field, len(order))
	for _, key := range order {
		fields[key] = AnalyzeField(key, values[key], b.Classifier)
	}
	return fields
}

// expandEmbeddedJSON sniffs a top-level scalar string field for embedded
// JSON and returns synthetic <field>.parsed.<key> sub-paths. The original
// string stays at its own path. Only top-level fields are sniffed; nested
// paths and serialized object arrays produced by flattening are left alone.
func expandEmbeddedJSON(key string, v any) map[string]any {
	if strings.Contains(key, ".") {
		return nil
	}
	s, ok := v.(string)
	if !ok || !classify.LooksLikeJSONString(s) {
		return nil
	}

	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var parsed any
	if err := dec.Decode(&parsed); err != nil {
		return nil
	}
	obj, ok := parsed.(map[string]any)
	if !ok {
		return nil
	}

	out := make(map[string]any, len(obj))
	for nk, nv := range obj {
		out[key+".parsed."+nk] = nv
	}
	return out
}

// reservoir takes a uniform n-element sample without shuffling the source.
func reservoir(recs []map[string]any, n int, r *rand.Rand) []map[string]any {
	out := make([]map[string]any, n)
	copy(out, recs[:n])
	intn := rand.Intn
	if r != nil {
		intn = r.Intn
	}
	for i := n; i < len(recs); i++ {
		if j := intn(i + 1); j < n {
			out[j] = recs[i]
		}
	}
	return out
}

func (b *Builder) logf(format string, v ...any) {
	if b.Log != nil {
		b.Log.Printf(format, v...)
	}
}
