// Package rapid writes prepared datasets for the rapid inversion tools: a
// station table, event info, and the displacement traces.
package rapid

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"tunguska/internal/config"
	"tunguska/internal/export"
	"tunguska/internal/logging"
	"tunguska/internal/metadata"
	"tunguska/internal/seismic"
	"tunguska/internal/selection"
	"tunguska/internal/tracefile"
)

// Name identifies the exporter in logs and the run ledger.
const Name = "rapid"

// Exporter writes rapid datasets.
type Exporter struct {
	cfg    config.Rapid
	logger *slog.Logger
}

var _ export.Exporter = (*Exporter)(nil)

// New builds a rapid exporter.
func New(cfg config.Rapid, logger *slog.Logger) *Exporter {
	return &Exporter{cfg: cfg, logger: logging.NewComponentLogger(logger, Name)}
}

// Name implements export.Exporter.
func (e *Exporter) Name() string { return Name }

// Export implements export.Exporter.
func (e *Exporter) Export(ctx context.Context, ds *export.Dataset) (export.Result, error) {
	var res export.Result
	vars := ds.Vars

	if e.cfg.DataDir != "" {
		if err := export.ResetDir(e.cfg.DataDir, vars); err != nil {
			return res, export.Wrap(Name, "reset data dir", err)
		}
	}
	if e.cfg.SkeletonDir != "" {
		if err := export.CopySkeleton(e.cfg.SkeletonDir, e.cfg.MainDir, vars); err != nil {
			return res, export.Wrap(Name, "copy skeleton", err)
		}
	}
	if e.cfg.RawTracePath != "" {
		n, err := export.SaveRawTraces(ctx, ds.Accessor, ds.StationSelector, e.cfg.RawTracePath, vars)
		if err != nil {
			return res, export.Wrap(Name, "save raw traces", err)
		}
		e.logger.Debug("raw traces saved", logging.Int("traces", n))
	}

	stations := selection.SortByDistance(ds.Stations)
	if _, err := export.WriteText(e.cfg.StationsPath, vars, StationTable(stations)); err != nil {
		return res, export.Wrap(Name, "station table", err)
	}
	res.Files++
	res.Stations = len(stations)

	if e.cfg.EventInfoPath != "" {
		path, err := config.Expand(e.cfg.EventInfoPath, vars)
		if err != nil {
			return res, export.Wrap(Name, "event info", err)
		}
		if err := metadata.WriteEvent(path, ds.Event); err != nil {
			return res, export.Wrap(Name, "event info", err)
		}
		res.Files++
	}

	var used []*seismic.Trace
	for _, st := range stations {
		for _, tr := range export.TracesOf(ds.Traces, st) {
			used = append(used, export.PrepareTrace(tr, ds.Event, e.cfg.TraceTimeZero, e.cfg.TraceFactor))
		}
	}
	paths, err := tracefile.SaveTemplate(e.cfg.DisplacementTracePath, vars, used)
	if err != nil {
		return res, export.Wrap(Name, "save displacement traces", err)
	}
	res.Files += len(paths)
	res.Traces = len(used)
	return res, nil
}

// StationTable formats stations as "NSL lat lon" rows.
func StationTable(stations []*seismic.Station) string {
	var b strings.Builder
	for _, st := range stations {
		fmt.Fprintf(&b, "%-10s %15.8e %15.8e\n", st.NSL(), st.Latitude, st.Longitude)
	}
	return b.String()
}
