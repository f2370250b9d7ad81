package prepare

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"tunguska/internal/accessor"
	"tunguska/internal/accessor/registry"
	"tunguska/internal/badness"
	"tunguska/internal/config"
	"tunguska/internal/export"
	"tunguska/internal/failure"
	"tunguska/internal/ledger"
	"tunguska/internal/logging"
	"tunguska/internal/quicklook"
	"tunguska/internal/seismic"
	"tunguska/internal/selection"
)

// eventRun holds the per-event accumulator.
type eventRun struct {
	event     seismic.Event
	stations  map[seismic.NSL]*seismic.Station
	acc       accessor.Accessor
	validator *selection.WindowValidator
	logger    *slog.Logger

	accepted []*seismic.Trace
	tally    map[string]int
	rejected int
	reported map[seismic.NSL]bool
}

func (p *Pipeline) prepareEvent(ctx context.Context, runLogger *slog.Logger, name string) (summary EventSummary, err error) {
	start := time.Now()
	logger := runLogger.With(logging.String(logging.FieldEvent, name))
	summary = EventSummary{Name: name, Status: ledger.StatusFailed, Tally: map[string]int{}}
	defer func() {
		summary.Duration = time.Since(start)
		summary.Err = err
		if err == nil && summary.Status == ledger.StatusFailed {
			summary.Status = ledger.StatusCompleted
		}
		logger.Info("event finished",
			logging.String("status", string(summary.Status)),
			logging.Duration("elapsed", summary.Duration),
		)
	}()

	vars := config.Vars{config.VarEventName: name}
	dir, err := config.Expand(p.cfg.Accessor.DataDir, vars)
	if err != nil {
		return summary, configError("data dir", err)
	}

	acc, err := p.open(registry.Options{Dir: dir, Args: p.cfg.Accessor.Args, Logger: logger})
	if errors.Is(err, accessor.ErrVolumeNotFound) {
		logging.WarnWithContext(logger, "event data volume not found", "volume_missing",
			logging.String("dir", dir),
			logging.String(logging.FieldImpact, "event skipped"),
		)
		summary.Status = ledger.StatusSkipped
		return summary, nil
	}
	if err != nil {
		return summary, err
	}

	events, err := acc.Events(ctx)
	if err != nil {
		return summary, failure.Wrap(failure.ErrAccessor, "prepare", "events", name, err)
	}
	if len(events) == 0 {
		logging.WarnWithContext(logger, "no event information", "event_missing",
			logging.String("dir", dir),
			logging.String(logging.FieldImpact, "event skipped"),
		)
		summary.Status = ledger.StatusSkipped
		return summary, nil
	}
	ev := events[0]
	ev.Name = name

	stations, err := acc.Stations(ctx, &ev)
	if err != nil {
		return summary, failure.Wrap(failure.ErrAccessor, "prepare", "stations", name, err)
	}

	selector, err := p.selector(stations, ev, logger)
	if err != nil {
		return summary, err
	}

	run := &eventRun{
		event:    ev,
		stations: stations,
		acc:      acc,
		logger:   logger,
		tally:    map[string]int{},
		reported: map[seismic.NSL]bool{},
		validator: &selection.WindowValidator{
			Check:    p.check,
			Cut:      p.cut,
			Problems: acc.Problems(),
			Logger:   logger,
		},
	}

	opts := p.displacement
	opts.Selector = selector
	if err := acc.IterDisplacementTraces(ctx, opts, func(traces []*seismic.Trace) error {
		for _, tr := range traces {
			p.admit(run, tr)
		}
		return nil
	}); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return summary, ctxErr
		}
		return summary, failure.Wrap(failure.ErrAccessor, "prepare", "stream traces", name, err)
	}

	summary.Accepted = len(run.accepted)
	summary.Rejected = run.rejected
	summary.Tally = run.tally

	dedup := selection.DedupStations(stations)
	summary.Stations = len(dedup)
	ds := &export.Dataset{
		Event:       ev,
		Stations:    dedup,
		Traces:      run.accepted,
		Accessor:    acc,
		RawSelector: selector,
		StationSelector: selection.StationAdmissibility{
			Stations: dedup,
			Filter:   p.filter,
		},
		Vars: vars,
	}

	var errs []error
	for _, exp := range p.exporters {
		res, err := exp.Export(ctx, ds)
		if err != nil {
			logging.ErrorWithContext(logger, "dataset export failed", "export_failed",
				logging.String("exporter", exp.Name()),
				logging.Error(err),
				logging.String(logging.FieldImpact, "dataset incomplete for this event"),
			)
			errs = append(errs, err)
			continue
		}
		summary.Exporters = append(summary.Exporters, exp.Name())
		logger.Info("dataset exported",
			logging.String("exporter", exp.Name()),
			logging.Int("stations", res.Stations),
			logging.Int("traces", res.Traces),
			logging.Int("files", res.Files),
		)
	}

	for _, ch := range summary.Channels() {
		logger.Info("accepted traces", logging.String("channel", ch), logging.Int("count", summary.Tally[ch]))
	}

	if err := p.sideOutputs(ctx, ds, run, logger); err != nil {
		errs = append(errs, err)
	}
	return summary, errors.Join(errs...)
}

// selector builds the pre-restitution trace predicate.
func (p *Pipeline) selector(stations map[seismic.NSL]*seismic.Station, ev seismic.Event, logger *slog.Logger) (selection.Predicate, error) {
	parts := []selection.Predicate{selection.Always}
	if p.filter != nil {
		parts[0] = selection.StationAdmissibility{Stations: stations, Filter: p.filter}
	}
	if p.cfg.QualityEnabled() {
		table, file, err := badness.Load(p.cfg.Quality.BadnessDir, ev.Time)
		if err != nil {
			return nil, err
		}
		logger.Info("quality table loaded",
			logging.String("file", file),
			logging.Int("channels", len(table)),
		)
		parts = append(parts, selection.QualityWhitelist{Table: table, Limit: *p.cfg.Quality.BadnessLimit})
	}
	return selection.And(parts...), nil
}

// admit runs one displacement trace through the station lookup, the
// distance gate and the timing window validator.
func (p *Pipeline) admit(run *eventRun, tr *seismic.Trace) {
	st, ok := run.stations[tr.NSL()]
	if !ok {
		run.acc.Problems().Add(accessor.ProblemNoStation, tr.FullID())
		logging.WarnWithContext(run.logger, "no station information for trace", accessor.ProblemNoStation,
			logging.String(logging.FieldTraceID, tr.FullID()),
			logging.String(logging.FieldImpact, "trace excluded from dataset"),
		)
		p.reject(run, accessor.ProblemNoStation)
		return
	}

	if violation, ok := p.distance.Check(st.Distance); !ok {
		nsl := st.NSL()
		if !run.reported[nsl] {
			run.reported[nsl] = true
			logging.WarnWithContext(run.logger, "station outside distance range", "distance_rejected",
				logging.String(logging.FieldNSL, nsl.String()),
				logging.Float64("distance", violation.Distance),
				logging.Float64("limit", violation.Limit),
				logging.String("bound", string(violation.Bound)),
				logging.String("reason", violation.String()),
			)
		}
		p.reject(run, "distance")
		return
	}

	if verdict := run.validator.Validate(tr, st, run.event); !verdict.Accepted {
		p.reject(run, verdict.Problem)
		return
	}
	run.accepted = append(run.accepted, tr)
	run.tally[tr.Channel]++
}

func (p *Pipeline) reject(run *eventRun, reason string) {
	run.rejected++
	p.metrics.Rejected(reason)
}

// sideOutputs writes the global raw traces, the problem log and the
// quick-look plot.
func (p *Pipeline) sideOutputs(ctx context.Context, ds *export.Dataset, run *eventRun, logger *slog.Logger) error {
	out := p.cfg.Output
	var errs []error
	if out.RawTracePath != "" {
		n, err := export.SaveRawTraces(ctx, ds.Accessor, ds.RawSelector, out.RawTracePath, ds.Vars)
		if err != nil {
			errs = append(errs, failure.Wrap(failure.ErrExport, "prepare", "save raw traces", "", err))
		} else {
			logger.Debug("raw traces saved", logging.Int("traces", n))
		}
	}
	if out.ProblemsFile != "" {
		path, err := config.Expand(out.ProblemsFile, ds.Vars)
		if err == nil {
			err = run.acc.Problems().DumpFile(path)
		}
		if err != nil {
			errs = append(errs, failure.Wrap(failure.ErrExport, "prepare", "dump problems", "", err))
		}
	}
	if out.PlotPath != "" {
		if err := p.plot(ds, out.PlotPath); err != nil {
			logging.WarnWithContext(logger, "quick-look plot failed", "plot_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "no plot for this event"),
			)
		}
	}
	return errors.Join(errs...)
}

func (p *Pipeline) plot(ds *export.Dataset, tmpl string) error {
	if len(ds.Traces) == 0 {
		return fmt.Errorf("no accepted traces")
	}
	path, err := config.Expand(tmpl, ds.Vars)
	if err != nil {
		return err
	}
	section := quicklook.Section{
		Event:    ds.Event,
		Stations: ds.Stations,
		Traces:   ds.Traces,
		Phases:   p.phases,
	}
	return section.Save(path)
}
