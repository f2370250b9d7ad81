package prepare

import (
	"maps"
	"slices"
	"time"

	"tunguska/internal/ledger"
)

// EventSummary reports the outcome of one event.
type EventSummary struct {
	Name      string
	Status    ledger.Status
	Stations  int
	Accepted  int
	Rejected  int
	Tally     map[string]int
	Exporters []string
	Duration  time.Duration
	Err       error
}

// Channels returns the tallied channel names in sorted order.
func (e EventSummary) Channels() []string {
	return slices.Sorted(maps.Keys(e.Tally))
}

// Summary reports a whole run.
type Summary struct {
	RunID  string
	Events []EventSummary
}

// Count returns how many events ended with status.
func (s Summary) Count(status ledger.Status) int {
	n := 0
	for _, ev := range s.Events {
		if ev.Status == status {
			n++
		}
	}
	return n
}
