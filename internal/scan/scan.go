// Package scan fans schema inference out over a directory of JSON files.
package scan

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"schemascan/internal/inference"
	"schemascan/internal/metrics"
	"schemascan/internal/schema"
	"schemascan/internal/shape"
)

// defaultWorkerCap bounds parallelism independent of core count; schema
// inference is I/O heavy and small batches gain nothing from a wide pool.
const defaultWorkerCap = 4

// Scanner runs the schema builder over every matching file in a directory.
// Files are independent units: one file's failure is logged and counted,
// never propagated to its siblings.
type Scanner struct {
	// Builder infers each file's schema. nil uses a zero-value Builder.
	Builder *inference.Builder

	// Workers caps concurrent files; <= 0 picks min(defaultWorkerCap, files).
	Workers int

	// Pattern is the filename glob within the directory; "" means "*.json".
	Pattern string

	// Log receives warnings. nil discards.
	Log shape.Logger

	// Metrics receives per-file counters and durations. nil discards.
	Metrics metrics.Backend
}

// Result is the outcome of one directory scan.
type Result struct {
	// Catalog holds one schema per successfully analyzed file. It may be a
	// strict subset of the matched files.
	Catalog schema.Catalog

	// Failed counts files that could not be analyzed.
	Failed int
}

// ScanDir analyzes every matching file in dir concurrently and returns the
// accumulated catalog. A missing directory is the only hard error; from then
// on the scan always completes, however many files fail.
func (s *Scanner) ScanDir(ctx context.Context, dir string) (Result, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return Result{}, fmt.Errorf("scan: data directory: %w", err)
	}
	if !info.IsDir() {
		return Result{}, fmt.Errorf("scan: %s is not a directory", dir)
	}

	pattern := s.Pattern
	if pattern == "" {
		pattern = "*.json"
	}
	files, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return Result{}, fmt.Errorf("scan: glob %q: %w", pattern, err)
	}
	sort.Strings(files)

	if len(files) == 0 {
		s.logf("scan: no files matching %q in %s", pattern, dir)
		return Result{Catalog: schema.Catalog{}}, nil
	}
	s.logf("scan: found %d file(s) in %s", len(files), dir)

	builder := s.Builder
	if builder == nil {
		builder = &inference.Builder{Log: s.Log}
	}
	sink := s.Metrics
	if sink == nil {
		sink = metrics.Nop{}
	}

	workers := s.Workers
	if workers <= 0 {
		workers = defaultWorkerCap
	}
	if workers > len(files) {
		workers = len(files)
	}

	var (
		mu     sync.Mutex
		result = Result{Catalog: make(schema.Catalog, len(files))}
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, path := range files {
		path := path
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			start := time.Now()
			fileSchema, err := builder.BuildFile(gctx, path)
			elapsed := time.Since(start).Seconds()

			status := "ok"
			switch {
			case err != nil:
				status = "failed"
				s.logf("scan: %s failed: %v", path, err)
			case fileSchema == nil:
				status = "failed"
			}

			sink.IncCounter(metrics.FilesTotal, 1, metrics.Labels{"status": status})
			sink.ObserveHistogram(metrics.FileDurationSeconds, elapsed, metrics.Labels{"status": status})

			mu.Lock()
			defer mu.Unlock()
			if status == "failed" {
				result.Failed++
				return nil
			}
			sink.IncCounter(metrics.RecordsTotal, float64(fileSchema.RecordCount), nil)
			result.Catalog[fileSchema.Filename] = fileSchema
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return result, err
	}
	return result, nil
}

func (s *Scanner) logf(format string, v ...any) {
	if s.Log != nil {
		s.Log.Printf(format, v...)
	}
}
