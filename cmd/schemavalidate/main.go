// Command schemavalidate checks a directory of JSON files against a schema
// snapshot produced by schemascan. It performs no inference; a missing
// snapshot is a hard failure.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"

	"github.com/joho/godotenv"

	"schemascan/internal/validate"
)

func main() {
	var (
		snapshot string
		dir      string
		maxErrs  int
	)

	flag.StringVar(&snapshot, "schema", "reports/schema_report.json", "schema snapshot path")
	flag.StringVar(&dir, "dir", "data", "directory of JSON files to validate")
	flag.IntVar(&maxErrs, "max-errors", 0, "max error messages recorded per file (0 uses the default)")
	flag.Parse()

	_ = godotenv.Load()
	logger := log.New(os.Stderr, "", log.LstdFlags)

	v, err := validate.Load(snapshot)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load snapshot: %v\n", err)
		os.Exit(1)
	}
	v.Log = logger
	v.MaxErrors = maxErrs

	results, err := v.ValidateDir(context.Background(), dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "validate: %v\n", err)
		os.Exit(1)
	}

	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	sort.Strings(names)

	failed := 0
	for _, name := range names {
		res := results[name]
		switch {
		case errors.Is(res.Err, validate.ErrNoSchema):
			fmt.Printf("%s: skipped (no schema in snapshot)\n", name)
		case res.Err != nil:
			failed++
			fmt.Printf("%s: error: %v\n", name, res.Err)
		case res.Valid:
			fmt.Printf("%s: ok\n", name)
		default:
			failed++
			fmt.Printf("%s: %d type error(s)\n", name, res.ErrorCount)
			for _, msg := range res.Errors {
				fmt.Printf("  %s\n", msg)
			}
		}
	}

	if failed > 0 {
		os.Exit(1)
	}
}
