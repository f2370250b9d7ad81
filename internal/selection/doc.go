// Package selection decides which recordings make it into a prepared
// dataset.
//
// It holds the per-trace gates applied while streaming an event: composable
// trace predicates evaluated before restitution, the source-receiver
// distance gate, and the timing window validator that checks phase arrivals
// against a trace's recorded span and optionally crops it. Station
// deduplication, which reduces co-located sensors to one per physical
// station, lives here as well.
//
// Everything in this package is synchronous and free of I/O. Diagnostics are
// reported through the ProblemRecorder interface so callers decide where
// they end up.
package selection
