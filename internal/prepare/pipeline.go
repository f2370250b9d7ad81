package prepare

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"tunguska/internal/accessor"
	"tunguska/internal/accessor/registry"
	"tunguska/internal/config"
	"tunguska/internal/export"
	"tunguska/internal/failure"
	"tunguska/internal/ledger"
	"tunguska/internal/logging"
	"tunguska/internal/metrics"
	"tunguska/internal/selection"
	"tunguska/internal/timing"
)

// Opener opens the data volume of one event.
type Opener func(opts registry.Options) (accessor.Accessor, error)

// Options carry the pipeline's collaborators. Every field is optional.
type Options struct {
	Logger  *slog.Logger
	Ledger  *ledger.Store
	Metrics *metrics.Recorder
	// Opener replaces the registry factory named by the accessor config.
	Opener Opener
	// Exporters replaces the writers built from the kiwi and rapid sections.
	Exporters  []export.Exporter
	ConfigPath string
}

// Pipeline prepares event datasets.
type Pipeline struct {
	cfg       *config.Config
	logger    *slog.Logger
	ledger    *ledger.Store
	metrics   *metrics.Recorder
	open      Opener
	exporters []export.Exporter
	cfgPath   string

	phases       []timing.Phase
	check        []timing.Func
	cut          *selection.CropWindow
	distance     selection.DistanceRange
	displacement accessor.DisplacementOptions
	filter       selection.StationFilter
}

// New resolves the accessor, timing model, distance range and exporters.
// Every error it returns is a configuration error.
func New(cfg *config.Config, opts Options) (*Pipeline, error) {
	if cfg == nil {
		return nil, configError("new", errors.New("config is required"))
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	p := &Pipeline{
		cfg:       cfg,
		logger:    logging.NewComponentLogger(logger, "prepare"),
		ledger:    opts.Ledger,
		metrics:   opts.Metrics,
		open:      opts.Opener,
		exporters: opts.Exporters,
		cfgPath:   opts.ConfigPath,
		filter:    stationFilter(cfg),
	}

	if p.open == nil {
		factory, err := registry.Lookup(cfg.Accessor.Kind)
		if err != nil {
			return nil, err
		}
		p.open = Opener(factory)
	}
	if p.exporters == nil {
		p.exporters = buildExporters(cfg, logger)
	}

	phases, err := buildPhases(cfg)
	if err != nil {
		return nil, configError("phases", err)
	}
	model, err := timing.NewModel(phases...)
	if err != nil {
		return nil, configError("phases", err)
	}
	p.phases = phases
	if p.check, p.cut, err = buildValidator(cfg, model); err != nil {
		return nil, configError("timing", err)
	}

	distance, deltat, err := buildDistance(cfg)
	if err != nil {
		return nil, configError("distance", err)
	}
	p.distance = distance
	p.displacement = displacementOptions(cfg, deltat)
	return p, nil
}

// Run prepares each named event in order. Event-scoped failures are
// collected and returned joined once every event has been attempted; a
// run-scoped failure stops immediately.
func (p *Pipeline) Run(ctx context.Context, eventNames []string) (Summary, error) {
	var summary Summary
	if p.ledger != nil {
		run, err := p.ledger.BeginRun(ctx, p.cfgPath)
		if err != nil {
			return summary, fmt.Errorf("begin run: %w", err)
		}
		summary.RunID = run.ID
	}
	logger := p.logger
	if summary.RunID != "" {
		logger = logger.With(logging.String(logging.FieldRunID, summary.RunID))
	}
	logger.Info("preparation run started", logging.Int("events", len(eventNames)))

	var errs []error
	for _, name := range eventNames {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		ev, err := p.prepareEvent(ctx, logger, name)
		summary.Events = append(summary.Events, ev)
		p.record(ctx, logger, summary.RunID, ev)
		if err == nil {
			continue
		}
		errs = append(errs, err)
		if ctx.Err() != nil || failure.ScopeOf(err) == failure.ScopeRun {
			logging.ErrorWithContext(logger, "preparation run aborted", "run_aborted",
				logging.String(logging.FieldEvent, name),
				logging.Error(err),
				logging.String(logging.FieldImpact, "remaining events not processed"),
			)
			break
		}
	}

	runErr := errors.Join(errs...)
	status := ledger.StatusCompleted
	if runErr != nil {
		status = ledger.StatusFailed
	}
	if p.ledger != nil {
		if err := p.ledger.FinishRun(context.WithoutCancel(ctx), summary.RunID, status); err != nil {
			logger.Warn("failed to finish ledger run", logging.Error(err))
		}
	}
	p.metrics.RunFinished(time.Now())
	if path := p.cfg.Output.MetricsTextfile; path != "" {
		if err := p.metrics.WriteTextfile(path); err != nil {
			logger.Warn("failed to write metrics textfile", logging.Error(err))
		}
	}
	logger.Info("preparation run finished",
		logging.String("status", string(status)),
		logging.Int("completed", summary.Count(ledger.StatusCompleted)),
		logging.Int("skipped", summary.Count(ledger.StatusSkipped)),
		logging.Int("failed", summary.Count(ledger.StatusFailed)),
	)
	return summary, runErr
}

func (p *Pipeline) record(ctx context.Context, logger *slog.Logger, runID string, ev EventSummary) {
	for _, ch := range ev.Channels() {
		p.metrics.Accepted(ch, ev.Tally[ch])
	}
	p.metrics.EventFinished(string(ev.Status), ev.Duration)
	if p.ledger == nil {
		return
	}
	entry := ledger.EventRun{
		RunID:     runID,
		EventName: ev.Name,
		Status:    ev.Status,
		Stations:  ev.Stations,
		Accepted:  ev.Accepted,
		Rejected:  ev.Rejected,
		Duration:  ev.Duration,
		Exporters: strings.Join(ev.Exporters, ","),
	}
	if ev.Err != nil {
		entry.Error = ev.Err.Error()
	}
	if err := p.ledger.RecordEvent(context.WithoutCancel(ctx), entry); err != nil {
		logger.Warn("failed to record event in ledger",
			logging.String(logging.FieldEvent, ev.Name),
			logging.Error(err),
		)
	}
}
