// Package prepare runs the per-event dataset preparation pipeline.
//
// For every requested event name the pipeline opens the event's data volume
// through the accessor registry, loads event and station metadata, streams
// displacement traces through the distance gate and the timing window
// validator, deduplicates sensors per station, and hands the curated set to
// the configured exporters. Side outputs (raw traces, problem log, quick-look
// plot, run ledger, metrics) follow each export.
//
// Events are processed sequentially. A missing data volume or empty event
// metadata skips the event. Exporter and accessor failures mark the event
// failed and the run continues; configuration errors and a missing quality
// table abort the run.
package prepare
