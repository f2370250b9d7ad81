package ledger

import "time"

// Status values for runs and event runs.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
)

// Run is one invocation of the preparation pipeline.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt *time.Time
	ConfigPath string
	Status     Status
	Events     int
}

// EventRun is the outcome of preparing one event within a run.
type EventRun struct {
	RunID      string
	EventName  string
	Status     Status
	Stations   int
	Accepted   int
	Rejected   int
	Exporters  string
	Duration   time.Duration
	Error      string
	RecordedAt time.Time
}
