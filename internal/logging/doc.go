// Package logging assembles structured slog loggers and formatting helpers used
// across tunguska.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and defines the standard field keys (event, NSL, trace id, run id)
// so per-trace diagnostics can be located from a log line alone. The package
// also provides a no-op logger for tests and wiring code that cannot fail.
//
// Prefer these constructors over hand-rolled slog setup so every component
// emits records with the same shape.
package logging
