package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrRunNotFound is returned when a run id is unknown.
var ErrRunNotFound = errors.New("run not found")

// BeginRun opens a new run in the running state.
func (s *Store) BeginRun(ctx context.Context, configPath string) (Run, error) {
	run := Run{
		ID:         uuid.NewString(),
		StartedAt:  time.Now().UTC(),
		ConfigPath: configPath,
		Status:     StatusRunning,
	}
	_, err := s.exec(ctx,
		"INSERT INTO runs (id, started_at, config_path, status) VALUES (?, ?, ?, ?)",
		run.ID, formatTime(run.StartedAt), run.ConfigPath, string(run.Status))
	if err != nil {
		return Run{}, fmt.Errorf("insert run: %w", err)
	}
	return run, nil
}

// FinishRun stamps the run with its final status.
func (s *Store) FinishRun(ctx context.Context, id string, status Status) error {
	res, err := s.exec(ctx,
		"UPDATE runs SET status = ?, finished_at = ? WHERE id = ?",
		string(status), formatTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("finish run %s: %w", id, ErrRunNotFound)
	}
	return nil
}

// RecordEvent appends an event outcome to its run.
func (s *Store) RecordEvent(ctx context.Context, ev EventRun) error {
	if ev.RecordedAt.IsZero() {
		ev.RecordedAt = time.Now()
	}
	_, err := s.exec(ctx, `INSERT INTO event_runs
		(run_id, event_name, status, stations, accepted, rejected, exporters, duration_ms, error, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.RunID, ev.EventName, string(ev.Status), ev.Stations, ev.Accepted, ev.Rejected,
		ev.Exporters, ev.Duration.Milliseconds(), ev.Error, formatTime(ev.RecordedAt))
	if err != nil {
		return fmt.Errorf("record event %s: %w", ev.EventName, err)
	}
	return nil
}

// ListRuns returns the most recent runs first. limit <= 0 returns all.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT r.id, r.started_at, r.finished_at, r.config_path, r.status,
		(SELECT COUNT(1) FROM event_runs e WHERE e.run_id = r.id)
		FROM runs r ORDER BY r.rowid DESC`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			run      Run
			started  string
			finished sql.NullString
			status   string
		)
		if err := rows.Scan(&run.ID, &started, &finished, &run.ConfigPath, &status, &run.Events); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if run.StartedAt, err = parseTime(started); err != nil {
			return nil, fmt.Errorf("run %s started_at: %w", run.ID, err)
		}
		if finished.Valid {
			t, err := parseTime(finished.String)
			if err != nil {
				return nil, fmt.Errorf("run %s finished_at: %w", run.ID, err)
			}
			run.FinishedAt = &t
		}
		run.Status = Status(status)
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// EventRuns returns the events recorded for a run in insertion order.
func (s *Store) EventRuns(ctx context.Context, runID string) ([]EventRun, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT run_id, event_name, status, stations, accepted, rejected,
		exporters, duration_ms, error, recorded_at FROM event_runs WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("list event runs: %w", err)
	}
	defer rows.Close()

	var out []EventRun
	for rows.Next() {
		var (
			ev       EventRun
			status   string
			duration int64
			recorded string
		)
		if err := rows.Scan(&ev.RunID, &ev.EventName, &status, &ev.Stations, &ev.Accepted, &ev.Rejected,
			&ev.Exporters, &duration, &ev.Error, &recorded); err != nil {
			return nil, fmt.Errorf("scan event run: %w", err)
		}
		ev.Status = Status(status)
		ev.Duration = time.Duration(duration) * time.Millisecond
		if ev.RecordedAt, err = parseTime(recorded); err != nil {
			return nil, fmt.Errorf("event run %s recorded_at: %w", ev.EventName, err)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}
