// Package preflight provides readiness checks for the filesystem inputs
// a preparation run depends on.
//
// These checks run in two contexts:
//   - The prepare command calls RunAll before the first event. If any
//     check fails, the run stops before touching any dataset directory.
//   - The CLI "tunguska check" command renders every Result as a table.
//
// Each check is gated by its config section; unused inputs are skipped.
package preflight
