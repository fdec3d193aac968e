// Package sqlite implements catalog.Store on SQLite via modernc.org/sqlite.
//
// Timestamps are stored as RFC3339Nano strings: SQLite has no native
// timestamp type, and TEXT affinity round-trips reliably and stays readable
// when debugging with the sqlite3 shell. File schemas are stored as the
// persisted JSON form in a TEXT column.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	_ "modernc.org/sqlite"

	"schemascan/internal/catalog"
	"schemascan/internal/schema"
)

type Store struct {
	db *sql.DB
}

func init() {
	catalog.Register("sqlite", New)
}

func New(ctx context.Context, cfg catalog.Config) (catalog.Store, error) {
	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() { _ = s.db.Close() }

// Init creates the run and file-schema tables. Idempotent.
func (s *Store) Init(ctx context.Context) error {
	for _, stmt := range ddl() {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("catalog sqlite: init: %w", err)
		}
	}
	return nil
}

// ddl returns the schema statements. Split out so tests can assert the
// statements without a live database.
func ddl() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS scan_runs (
  run_id     TEXT PRIMARY KEY,
  started_at TEXT NOT NULL,
  failed     INTEGER NOT NULL DEFAULT 0
)`,
		`CREATE TABLE IF NOT EXISTS file_schemas (
  run_id               TEXT NOT NULL,
  filename             TEXT NOT NULL,
  record_count         INTEGER NOT NULL,
  record_count_sampled INTEGER NOT NULL DEFAULT 0,
  schema_json          TEXT NOT NULL,
  PRIMARY KEY (run_id, filename)
)`,
	}
}

func (s *Store) SaveRun(ctx context.Context, run catalog.Run) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO scan_runs (run_id, started_at, failed) VALUES (?, ?, ?)`,
		run.ID, run.StartedAt.UTC().Format(time.RFC3339Nano), run.Failed)
	if err != nil {
		return fmt.Errorf("catalog sqlite: save run %s: %w", run.ID, err)
	}

	for filename, fileSchema := range run.Catalog {
		data, err := json.Marshal(fileSchema)
		if err != nil {
			return fmt.Errorf("catalog sqlite: marshal %s: %w", filename, err)
		}
		sampled := 0
		if fileSchema.RecordCountSampled {
			sampled = 1
		}
		_, err = tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO file_schemas
  (run_id, filename, record_count, record_count_sampled, schema_json)
VALUES (?, ?, ?, ?, ?)`,
			run.ID, filename, fileSchema.RecordCount, sampled, string(data))
		if err != nil {
			return fmt.Errorf("catalog sqlite: save schema %s: %w", filename, err)
		}
	}

	return tx.Commit()
}

func (s *Store) LoadRun(ctx context.Context, runID string) (catalog.Run, error) {
	run := catalog.Run{ID: runID, Catalog: schema.Catalog{}}

	var startedAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT started_at, failed FROM scan_runs WHERE run_id = ?`, runID).
		Scan(&startedAt, &run.Failed)
	if err != nil {
		return catalog.Run{}, fmt.Errorf("catalog sqlite: load run %s: %w", runID, err)
	}
	if ts, err := time.Parse(time.RFC3339Nano, startedAt); err == nil {
		run.StartedAt = ts
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT filename, schema_json FROM file_schemas WHERE run_id = ?`, runID)
	if err != nil {
		return catalog.Run{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var filename, blob string
		if err := rows.Scan(&filename, &blob); err != nil {
			return catalog.Run{}, err
		}
		var fileSchema schema.File
		if err := json.Unmarshal([]byte(blob), &fileSchema); err != nil {
			return catalog.Run{}, fmt.Errorf("catalog sqlite: unmarshal %s: %w", filename, err)
		}
		run.Catalog[filename] = &fileSchema
	}
	return run, rows.Err()
}

var _ catalog.Store = (*Store)(nil)
