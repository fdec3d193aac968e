// Package sink defines the pluggable output surface for normalized records.
// A sink consumes one file's (schema, flat records) pair; the scan command
// wires a sink in when tabular output is requested.
package sink

import (
	"context"
	"fmt"
	"sync"

	"schemascan/internal/records"
	"schemascan/internal/schema"
)

// Config selects and configures a sink backend.
type Config struct {
	// Kind must match a registered backend kind ("csv").
	Kind string

	// Dir is the output directory for file-per-input backends.
	Dir string
}

// Sink writes one file's normalized records.
type Sink interface {
	// WriteFile emits all flat records of one source file under its inferred
	// schema. The schema decides column order and value rendering.
	WriteFile(ctx context.Context, fileSchema *schema.File, recs []records.Record) error

	// Close flushes and releases resources. Call once.
	Close() error
}

type factory func(cfg Config) (Sink, error)

var (
	mu        sync.RWMutex
	factories = map[string]factory{}
)

// Register registers a sink backend under a kind. Called from backend init
// functions; duplicate registration panics.
func Register(kind string, f factory) {
	mu.Lock()
	defer mu.Unlock()

	if kind == "" {
		panic("sink: Register called with empty kind")
	}
	if f == nil {
		panic("sink: Register called with nil factory")
	}
	if _, exists := factories[kind]; exists {
		panic(fmt.Sprintf("sink: factory already registered for kind=%q", kind))
	}
	factories[kind] = f
}

// New constructs a Sink using the registered backend factory.
func New(cfg Config) (Sink, error) {
	if cfg.Kind == "" {
		return nil, fmt.Errorf("sink: missing kind")
	}

	mu.RLock()
	f := factories[cfg.Kind]
	mu.RUnlock()

	if f == nil {
		return nil, fmt.Errorf("sink: unsupported kind=%s", cfg.Kind)
	}
	return f(cfg)
}
