package accessor

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"tunguska/internal/fileutil"
)

// Problem categories recorded by backends.
const (
	ProblemNoStation    = "nostation"
	ProblemNoChannel    = "nochannel"
	ProblemRestitution  = "restitution"
	ProblemDisplacement = "displacement_limit"
)

// Problem is one diagnostic entry.
type Problem struct {
	Category string
	TraceID  string
}

// Problems is an insertion-ordered log of per-trace diagnostics. It is not
// safe for concurrent use.
type Problems struct {
	entries []Problem
}

// Add records a problem. Implements selection.ProblemRecorder.
func (p *Problems) Add(category, traceID string) {
	p.entries = append(p.entries, Problem{Category: category, TraceID: traceID})
}

// Entries returns a copy of the log.
func (p *Problems) Entries() []Problem {
	return append([]Problem(nil), p.entries...)
}

// Count returns the number of entries in category, or all entries when
// category is empty.
func (p *Problems) Count(category string) int {
	if category == "" {
		return len(p.entries)
	}
	n := 0
	for _, e := range p.entries {
		if e.Category == category {
			n++
		}
	}
	return n
}

// Dump writes one "<category> <trace-id>" line per entry.
func (p *Problems) Dump(w io.Writer) error {
	bw := bufio.NewWriter(w)
	for _, e := range p.entries {
		if _, err := fmt.Fprintf(bw, "%s %s\n", e.Category, e.TraceID); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// DumpFile writes the log to path, creating parent directories.
func (p *Problems) DumpFile(path string) error {
	if err := fileutil.EnsureParent(path); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := p.Dump(f); err != nil {
		return fmt.Errorf("write problems %s: %w", path, err)
	}
	return f.Close()
}
