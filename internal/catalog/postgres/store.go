// Package postgres implements catalog.Store on PostgreSQL via pgx.
//
// File schemas are stored in a JSONB column, so schema history stays
// queryable in SQL (field counts, type drift) without reloading snapshots.
package postgres

import (
	"context"
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/jackc/pgx/v5/pgxpool"

	"schemascan/internal/catalog"
	"schemascan/internal/schema"
)

type Store struct {
	pool *pgxpool.Pool
}

func init() {
	catalog.Register("postgres", New)
}

func New(ctx context.Context, cfg catalog.Config) (catalog.Store, error) {
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() { s.pool.Close() }

// Init creates the run and file-schema tables. Idempotent.
func (s *Store) Init(ctx context.Context) error {
	for _, stmt := range ddl() {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("catalog postgres: init: %w", err)
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
  started_at TIMESTAMPTZ NOT NULL,
  failed     INTEGER NOT NULL DEFAULT 0
)`,
		`CREATE TABLE IF NOT EXISTS file_schemas (
  run_id               TEXT NOT NULL REFERENCES scan_runs (run_id),
  filename             TEXT NOT NULL,
  record_count         BIGINT NOT NULL,
  record_count_sampled BOOLEAN NOT NULL DEFAULT FALSE,
  schema_json          JSONB NOT NULL,
  PRIMARY KEY (run_id, filename)
)`,
	}
}

func (s *Store) SaveRun(ctx context.Context, run catalog.Run) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx,
		`INSERT INTO scan_runs (run_id, started_at, failed)
VALUES ($1, $2, $3)
ON CONFLICT (run_id) DO UPDATE SET started_at = EXCLUDED.started_at, failed = EXCLUDED.failed`,
		run.ID, run.StartedAt, run.Failed)
	if err != nil {
		return fmt.Errorf("catalog postgres: save run %s: %w", run.ID, err)
	}

	for filename, fileSchema := range run.Catalog {
		data, err := json.Marshal(fileSchema)
		if err != nil {
			return fmt.Errorf("catalog postgres: marshal %s: %w", filename, err)
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO file_schemas (run_id, filename, record_count, record_count_sampled, schema_json)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (run_id, filename) DO UPDATE SET
  record_count = EXCLUDED.record_count,
  record_count_sampled = EXCLUDED.record_count_sampled,
  schema_json = EXCLUDED.schema_json`,
			run.ID, filename, fileSchema.RecordCount, fileSchema.RecordCountSampled, data)
		if err != nil {
			return fmt.Errorf("catalog postgres: save schema %s: %w", filename, err)
		}
	}

	return tx.Commit(ctx)
}

func (s *Store) LoadRun(ctx context.Context, runID string) (catalog.Run, error) {
	run := catalog.Run{ID: runID, Catalog: schema.Catalog{}}

	err := s.pool.QueryRow(ctx,
		`SELECT started_at, failed FROM scan_runs WHERE run_id = $1`, runID).
		Scan(&run.StartedAt, &run.Failed)
	if err != nil {
		return catalog.Run{}, fmt.Errorf("catalog postgres: load run %s: %w", runID, err)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT filename, schema_json FROM file_schemas WHERE run_id = $1`, runID)
	if err != nil {
		return catalog.Run{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var filename string
		var blob []byte
		if err := rows.Scan(&filename, &blob); err != nil {
			return catalog.Run{}, err
		}
		var fileSchema schema.File
		if err := json.Unmarshal(blob, &fileSchema); err != nil {
			return catalog.Run{}, fmt.Errorf("catalog postgres: unmarshal %s: %w", filename, err)
		}
		run.Catalog[filename] = &fileSchema
	}
	return run, rows.Err()
}

var _ catalog.Store = (*Store)(nil)
