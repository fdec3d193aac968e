// Package catalog persists scan results to a database so downstream jobs
// can query schema history without re-reading the source files. Backends
// register themselves by kind; the core depends only on the Store interface.
package catalog

import (
	"context"
	"fmt"
	"sync"
	"time"

	"schemascan/internal/schema"
)

// Config selects and configures a catalog backend.
//
// Kind must match a registered backend kind ("sqlite", "postgres"). DSN is
// passed through to the backend factory; validation is backend-specific.
type Config struct {
	Kind string
	DSN  string
}

// Run is one persisted scan: its identity, timing, and the resulting
// catalog.
type Run struct {
	ID        string
	StartedAt time.Time
	Failed    int
	Catalog   schema.Catalog
}

// Store persists scan runs.
//
// Implementations create their tables idempotently in Init and treat
// (run ID, filename) as the unit of storage, so re-saving a run replaces its
// file schemas rather than duplicating them.
type Store interface {
	// Close releases backend resources. Call once at shutdown.
	Close()

	// Init creates tables as needed. Idempotent.
	Init(ctx context.Context) error

	// SaveRun persists one scan run and its whole catalog.
	SaveRun(ctx context.Context, run Run) error

	// LoadRun reconstructs a previously saved run by ID.
	LoadRun(ctx context.Context, runID string) (Run, error)
}

type factory func(ctx context.Context, cfg Config) (Store, error)

var (
	mu        sync.RWMutex
	factories = map[string]factory{}
)

// Register registers a backend under a kind. Backend packages call it from
// init; importing a backend for side effects makes it available to New.
//
// Panics on empty kind, nil factory, or duplicate registration: backend
// selection must never be ambiguous.
func Register(kind string, f factory) {
	mu.Lock()
	defer mu.Unlock()

	if kind == "" {
		panic("catalog: Register called with empty kind")
	}
	if f == nil {
		panic("catalog: Register called with nil factory")
	}
	if _, exists := factories[kind]; exists {
		panic(fmt.Sprintf("catalog: factory already registered for kind=%q", kind))
	}
	factories[kind] = f
}

// New constructs a Store using the registered backend factory.
func New(ctx context.Context, cfg Config) (Store, error) {
	if cfg.Kind == "" {
		return nil, fmt.Errorf("catalog: missing kind")
	}

	mu.RLock()
	f := factories[cfg.Kind]
	mu.RUnlock()

	if f == nil {
		return nil, fmt.Errorf("catalog: unsupported kind=%s", cfg.Kind)
	}
	return f(ctx, cfg)
}
