// Package logs reads back tunguska.log for the CLI "logs" command: the last
// N lines, optionally narrowed to one event, and a follow mode that polls
// the file for appended lines until the context is cancelled.
package logs
