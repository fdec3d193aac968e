// Package metrics defines the minimal instrumentation surface the scanner
// emits to. Backends buffer and ship however they like; the core depends
// only on this interface.
package metrics

// Labels attach dimensions to one observation.
type Labels map[string]string

// Backend receives scan instrumentation.
//
// Implementations must tolerate concurrent callers. Flush pushes anything
// buffered; Close stops background work and performs a final Flush.
type Backend interface {
	IncCounter(name string, delta float64, labels Labels)
	ObserveHistogram(name string, value float64, labels Labels)
	Flush() error
	Close() error
}

// Metric names emitted by the directory scanner.
const (
	FilesTotal          = "scan_files_total"
	RecordsTotal        = "scan_records_total"
	FileDurationSeconds = "scan_file_duration_seconds"
)

// Nop discards everything. Useful as a default so callers never nil-check.
type Nop struct{}

func (Nop) IncCounter(string, float64, Labels)       {}
func (Nop) ObserveHistogram(string, float64, Labels) {}
func (Nop) Flush() error                             { return nil }
func (Nop) Close() error                             { return nil }

var _ Backend = Nop{}
