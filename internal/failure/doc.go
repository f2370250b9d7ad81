// Package failure defines the error markers used across event preparation
// and the helper that classifies an error by how far its effect reaches.
//
// Wrap attaches a marker plus component/operation context so callers can
// decide with errors.Is whether to abort the run, skip the current event, or
// drop a single record and keep going.
package failure
