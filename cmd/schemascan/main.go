// Command schemascan scans a directory of JSON files, infers a schema per
// file, and writes the machine-readable snapshot plus an optional Markdown
// report. Results can additionally be persisted to a catalog database,
// exported as CSV, and instrumented via Datadog.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"schemascan/internal/catalog"
	"schemascan/internal/classify"
	"schemascan/internal/inference"
	"schemascan/internal/metrics"
	"schemascan/internal/metrics/datadog"
	"schemascan/internal/records"
	"schemascan/internal/scan"
	"schemascan/internal/schema"
	"schemascan/internal/shape"
	"schemascan/internal/sink"

	// Register backends with the catalog and sink factories; flags select
	// which to use.
	_ "schemascan/internal/catalog/postgres"
	_ "schemascan/internal/catalog/sqlite"
	_ "schemascan/internal/sink/csv"
)

func main() {
	var (
		dir       string
		out       string
		report    string
		sample    int
		strategy  string
		stream    bool
		workers   int
		storeKind string
		storeDSN  string
		csvDir    string
		useDD     bool
		ddTags    string
	)

	flag.StringVar(&dir, "dir", "data", "directory of JSON files to scan")
	flag.StringVar(&out, "out", "reports/schema_report.json", "schema snapshot output path")
	flag.StringVar(&report, "report", "reports/schema_report.md", "Markdown report path (empty to skip)")
	flag.IntVar(&sample, "sample", 0, "max records analyzed per file (0 uses the default)")
	flag.StringVar(&strategy, "strategy", inference.StrategyFirst, "sampling strategy: first or random")
	flag.BoolVar(&stream, "stream", false, "stream large files instead of materializing them")
	flag.IntVar(&workers, "workers", 0, "max concurrent files (0 picks a bounded default)")
	flag.StringVar(&storeKind, "store", "", "catalog backend kind: sqlite or postgres (empty to skip)")
	flag.StringVar(&storeDSN, "dsn", "", "catalog backend DSN (or SCHEMASCAN_DSN)")
	flag.StringVar(&csvDir, "csv-dir", "", "also export normalized records as CSV into this directory")
	flag.BoolVar(&useDD, "datadog", false, "submit scan metrics to Datadog")
	flag.StringVar(&ddTags, "datadog-tags", "", "extra Datadog tags, comma separated")
	flag.Parse()

	// Env files carry DSNs and Datadog credentials in dev setups; absence is
	// not an error.
	_ = godotenv.Load()

	logger := log.New(os.Stderr, "", log.LstdFlags)
	ctx := context.Background()
	runID := uuid.NewString()
	started := time.Now()

	var backend metrics.Backend = metrics.Nop{}
	if useDD {
		b, err := datadog.NewBackend(ctx, datadog.Options{
			Tags: append(datadog.ParseTagsCSV(ddTags), "run:"+runID),
		})
		if err != nil {
			logger.Printf("metrics: datadog init failed: %v; continuing without", err)
		} else {
			backend = b
			defer func() {
				if err := b.Close(); err != nil {
					logger.Printf("metrics: final flush: %v", err)
				}
			}()
		}
	}

	if strategy != inference.StrategyFirst && strategy != inference.StrategyRandom {
		fatalf("unknown -strategy %q (want first or random)", strategy)
	}

	builder := &inference.Builder{
		SampleSize: sample,
		Strategy:   strategy,
		Streaming:  stream,
		Log:        logger,
		Classifier: classify.NewMemo(0),
		Rand:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	scanner := &scan.Scanner{
		Builder: builder,
		Workers: workers,
		Log:     logger,
		Metrics: backend,
	}

	result, err := scanner.ScanDir(ctx, dir)
	if err != nil {
		fatalf("scan: %v", err)
	}
	logger.Printf("scan %s: %d schema(s), %d failed file(s)", runID, len(result.Catalog), result.Failed)

	if err := schema.Save(out, result.Catalog); err != nil {
		fatalf("save snapshot: %v", err)
	}
	logger.Printf("snapshot written to %s", out)

	if report != "" {
		if err := writeReport(report, result.Catalog); err != nil {
			fatalf("write report: %v", err)
		}
		logger.Printf("report written to %s", report)
	}

	if storeKind != "" {
		dsn := storeDSN
		if dsn == "" {
			dsn = os.Getenv("SCHEMASCAN_DSN")
		}
		if err := persistRun(ctx, storeKind, dsn, catalog.Run{
			ID:        runID,
			StartedAt: started,
			Failed:    result.Failed,
			Catalog:   result.Catalog,
		}); err != nil {
			fatalf("catalog store: %v", err)
		}
		logger.Printf("run %s persisted to %s catalog", runID, storeKind)
	}

	if csvDir != "" {
		if err := exportCSV(ctx, csvDir, dir, result.Catalog, logger); err != nil {
			fatalf("csv export: %v", err)
		}
		logger.Printf("csv export written to %s", csvDir)
	}

	if result.Failed > 0 {
		fmt.Printf("done with %d failed file(s)\n", result.Failed)
		return
	}
	fmt.Println("ok")
}

func writeReport(path string, c schema.Catalog) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := schema.WriteReport(f, c, time.Now()); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func persistRun(ctx context.Context, kind, dsn string, run catalog.Run) error {
	store, err := catalog.New(ctx, catalog.Config{Kind: kind, DSN: dsn})
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Init(ctx); err != nil {
		return err
	}
	return store.SaveRun(ctx, run)
}

// exportCSV re-reads each cataloged source file eagerly and writes its
// flattened records through the CSV sink.
func exportCSV(ctx context.Context, csvDir, dataDir string, c schema.Catalog, logger shape.Logger) error {
	s, err := sink.New(sink.Config{Kind: "csv", Dir: csvDir})
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	for filename, fileSchema := range c {
		data, err := os.ReadFile(filepath.Join(dataDir, filename))
		if err != nil {
			logger.Printf("csv: skipping %s: %v", filename, err)
			continue
		}
		raw := shape.Normalize(data, logger)
		recs := make([]records.Record, 0, len(raw))
		for _, r := range raw {
			recs = append(recs, records.Flatten(r))
		}
		if err := s.WriteFile(ctx, fileSchema, recs); err != nil {
			return err
		}
	}
	return nil
}

func fatalf(format string, v ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", v...)
	os.Exit(1)
}
