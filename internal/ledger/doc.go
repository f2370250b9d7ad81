// Package ledger records preparation runs and per-event outcomes in SQLite.
//
// Every `tunguska prepare` invocation opens a run, appends one row per
// requested event, and closes the run with its final status. The `runs`
// command reads the ledger back. Schema changes are embedded SQL migrations
// applied in lexical order on Open.
package ledger
