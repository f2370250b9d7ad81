// Package kiwi writes prepared datasets in the layout expected by the kiwi
// inversion tools: a receivers table, one displacement trace file per
// receiver component, and reference time and source origin files.
package kiwi

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
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
const Name = "kiwi"

const referenceTimeLayout = "2006/01/02 15:04:05"

// Exporter writes kiwi datasets.
type Exporter struct {
	cfg    config.Kiwi
	logger *slog.Logger
}

var _ export.Exporter = (*Exporter)(nil)

// New builds a kiwi exporter.
func New(cfg config.Kiwi, logger *slog.Logger) *Exporter {
	return &Exporter{cfg: cfg, logger: logging.NewComponentLogger(logger, Name)}
}

// Name implements export.Exporter.
func (e *Exporter) Name() string { return Name }

type receiver struct {
	station    *seismic.Station
	components string
	traces     []*seismic.Trace
}

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

	receivers := e.receivers(ds)
	table, files, err := e.writeReceivers(receivers, ds.Event, vars)
	if err != nil {
		return res, export.Wrap(Name, "write receivers", err)
	}
	if _, err := export.WriteText(e.cfg.ReceiversPath, vars, table); err != nil {
		return res, export.Wrap(Name, "write receivers", err)
	}
	res.Files += files + 1
	res.Stations = len(receivers)
	for _, r := range receivers {
		res.Traces += len(r.traces)
	}

	if e.cfg.ReferenceTimePath != "" {
		if _, err := export.WriteText(e.cfg.ReferenceTimePath, vars, ReferenceTime(ds.Event)); err != nil {
			return res, export.Wrap(Name, "reference time", err)
		}
		res.Files++
	}
	if e.cfg.SourceOriginPath != "" {
		if _, err := export.WriteText(e.cfg.SourceOriginPath, vars, SourceOrigin(ds.Event)); err != nil {
			return res, export.Wrap(Name, "source origin", err)
		}
		res.Files++
	}
	return res, nil
}

// receivers gathers the wanted components of every station that has at
// least one, nearest station first.
func (e *Exporter) receivers(ds *export.Dataset) []receiver {
	var out []receiver
	for _, st := range selection.SortByDistance(ds.Stations) {
		var (
			traces []*seismic.Trace
			comps  strings.Builder
		)
		for _, tr := range export.TracesOf(ds.Traces, st) {
			if !slices.Contains(e.cfg.WantedComponents, tr.Channel) {
				continue
			}
			traces = append(traces, tr)
			comps.WriteString(e.cfg.ComponentMap[tr.Channel])
		}
		if len(traces) > 0 {
			out = append(out, receiver{station: st, components: comps.String(), traces: traces})
		}
	}
	return out
}

// writeReceivers renders the receivers table and writes the displacement
// traces, each station repeated nsets times with a fresh receiver index.
func (e *Exporter) writeReceivers(receivers []receiver, ev seismic.Event, vars config.Vars) (string, int, error) {
	var (
		b     strings.Builder
		files int
	)
	iref := 1
	for _, r := range receivers {
		for range e.cfg.NSets {
			b.WriteString(ReceiverLine(r.station, r.components))
			for _, tr := range r.traces {
				out := export.PrepareTrace(tr, ev, e.cfg.TraceTimeZero, e.cfg.TraceFactor)
				path, err := config.Expand(e.cfg.DisplacementTracePath, vars.
					With(config.VarIReceiver, strconv.Itoa(iref)).
					With(config.VarComponent, e.cfg.ComponentMap[tr.Channel]))
				if err != nil {
					return "", files, err
				}
				if err := tracefile.Save(path, []*seismic.Trace{out}); err != nil {
					return "", files, err
				}
				files++
			}
			iref++
		}
	}
	return b.String(), files, nil
}

// ReceiverLine formats one receivers table row. Depth is always written as
// zero.
func ReceiverLine(st *seismic.Station, components string) string {
	return fmt.Sprintf("%15.8e %15.8e %15.8e %3s %-15s\n", st.Latitude, st.Longitude, 0.0, components, st.NSL())
}

// ReferenceTime formats the reference time file: integer epoch seconds and
// the UTC date.
func ReferenceTime(ev seismic.Event) string {
	sec := int64(ev.Time)
	return fmt.Sprintf("%d %s\n", sec, seismic.EpochToTime(float64(sec)).Format(referenceTimeLayout))
}

// SourceOrigin formats the source origin file.
func SourceOrigin(ev seismic.Event) string {
	return fmt.Sprintf("%e %e 0\n", ev.Latitude, ev.Longitude)
}
