// Package edump reads event dumps: a directory per event holding YAML event
// and station metadata plus a traces/ subdirectory of trace files.
//
//	<dir>/event.yaml
//	<dir>/stations.yaml
//	<dir>/traces/*.trace[.zst]
package edump

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"tunguska/internal/accessor"
	"tunguska/internal/failure"
	"tunguska/internal/logging"
	"tunguska/internal/metadata"
	"tunguska/internal/restitution"
	"tunguska/internal/seismic"
	"tunguska/internal/selection"
	"tunguska/internal/tracefile"
)

// Name is the registry key of this backend.
const Name = "edump"

// Options configure file names inside the dump directory.
type Options struct {
	EventFile    string
	StationsFile string
	TraceDir     string
	Logger       *slog.Logger
}

func (o *Options) applyDefaults() {
	if o.EventFile == "" {
		o.EventFile = "event.yaml"
	}
	if o.StationsFile == "" {
		o.StationsFile = "stations.yaml"
	}
	if o.TraceDir == "" {
		o.TraceDir = "traces"
	}
	if o.Logger == nil {
		o.Logger = logging.NewNop()
	}
}

// ParseArgs decodes key=value accessor arguments. Unknown keys are rejected.
func ParseArgs(args []string) (Options, error) {
	var opts Options
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok {
			return Options{}, fmt.Errorf("edump argument %q: want key=value", arg)
		}
		switch strings.TrimSpace(key) {
		case "event_file":
			opts.EventFile = strings.TrimSpace(value)
		case "stations_file":
			opts.StationsFile = strings.TrimSpace(value)
		case "trace_dir":
			opts.TraceDir = strings.TrimSpace(value)
		default:
			return Options{}, fmt.Errorf("edump argument %q: unknown key %q", arg, key)
		}
	}
	return opts, nil
}

// Accessor serves one event dump directory.
type Accessor struct {
	dir      string
	opts     Options
	logger   *slog.Logger
	stations map[seismic.NSL]*seismic.Station
	problems accessor.Problems
}

var _ accessor.Accessor = (*Accessor)(nil)

// Open validates that dir exists. A missing directory yields an error
// matching accessor.ErrVolumeNotFound.
func Open(dir string, opts Options) (*Accessor, error) {
	opts.applyDefaults()
	info, err := os.Stat(dir)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, failure.Wrap(failure.ErrAccessor, Name, "open", dir, accessor.ErrVolumeNotFound)
	case err != nil:
		return nil, failure.Wrap(failure.ErrAccessor, Name, "open", dir, err)
	case !info.IsDir():
		return nil, failure.Wrap(failure.ErrAccessor, Name, "open", dir+" is not a directory", accessor.ErrVolumeNotFound)
	}
	return &Accessor{
		dir:    dir,
		opts:   opts,
		logger: logging.NewComponentLogger(opts.Logger, Name),
	}, nil
}

// Events returns the events described by the dump. A missing event file
// yields no events.
func (a *Accessor) Events(ctx context.Context) ([]seismic.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	events, err := metadata.ReadEvents(filepath.Join(a.dir, a.opts.EventFile))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, failure.Wrap(failure.ErrAccessor, Name, "read events", "", err)
	}
	return events, nil
}

// Stations loads the station list and, when relativeTo is set, fills in
// distance and azimuths. The result is kept for the trace iterators.
func (a *Accessor) Stations(ctx context.Context, relativeTo *seismic.Event) (map[seismic.NSL]*seismic.Station, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	list, err := metadata.ReadStations(filepath.Join(a.dir, a.opts.StationsFile))
	if err != nil {
		return nil, failure.Wrap(failure.ErrAccessor, Name, "read stations", "", err)
	}
	stations := make(map[seismic.NSL]*seismic.Station, len(list))
	for _, st := range list {
		if _, dup := stations[st.NSL()]; dup {
			a.logger.Warn("duplicate station entry ignored", logging.String(logging.FieldNSL, st.NSL().String()))
			continue
		}
		if relativeTo != nil {
			seismic.Locate(st, *relativeTo)
		}
		stations[st.NSL()] = st
	}
	a.stations = stations
	return stations, nil
}

// Problems returns the diagnostics collected while reading traces.
func (a *Accessor) Problems() *accessor.Problems {
	return &a.problems
}

// IterRawTraces yields the selected traces of each trace file in lexical
// file order.
func (a *Accessor) IterRawTraces(ctx context.Context, selector selection.Predicate, yield accessor.YieldFunc) error {
	return a.eachFile(ctx, func(raw []*seismic.Trace) error {
		group := raw[:0]
		for _, tr := range raw {
			if selector == nil || selector.Match(tr) {
				group = append(group, tr)
			}
		}
		if len(group) == 0 {
			return nil
		}
		return yield(group)
	})
}

// IterDisplacementTraces yields restituted traces grouped per trace file.
// Traces that cannot be restituted are recorded as problems and skipped.
func (a *Accessor) IterDisplacementTraces(ctx context.Context, opts accessor.DisplacementOptions, yield accessor.YieldFunc) error {
	if a.stations == nil {
		if _, err := a.Stations(ctx, nil); err != nil {
			return err
		}
	}
	restOpts := opts.Restitution()

	return a.eachFile(ctx, func(raw []*seismic.Trace) error {
		var (
			group     []*seismic.Trace
			byStation = make(map[seismic.NSL][]*seismic.Trace)
			order     []seismic.NSL
		)
		for _, tr := range raw {
			if opts.Selector != nil && !opts.Selector.Match(tr) {
				continue
			}
			disp, ok := a.restitute(tr, restOpts)
			if !ok {
				continue
			}
			group = append(group, disp)
			if _, seen := byStation[disp.NSL()]; !seen {
				order = append(order, disp.NSL())
			}
			byStation[disp.NSL()] = append(byStation[disp.NSL()], disp)
		}
		if len(opts.Rotation) > 0 {
			for _, key := range order {
				angle := a.stations[key].Backazimuth + 180
				group = append(group, restitution.Rotate(byStation[key], opts.Rotation, angle)...)
			}
		}
		if len(group) == 0 {
			return nil
		}
		return yield(group)
	})
}

func (a *Accessor) restitute(tr *seismic.Trace, opts restitution.Options) (*seismic.Trace, bool) {
	st, ok := a.stations[tr.NSL()]
	if !ok {
		a.reject(tr, accessor.ProblemNoStation, "no station metadata")
		return nil, false
	}
	ch, ok := st.Channel(tr.Channel)
	if !ok {
		a.reject(tr, accessor.ProblemNoChannel, "no channel metadata")
		return nil, false
	}
	disp, err := restitution.Restitute(tr, ch, opts)
	if err != nil {
		category := accessor.ProblemRestitution
		if errors.Is(err, restitution.ErrDisplacementLimit) {
			category = accessor.ProblemDisplacement
		}
		a.reject(tr, category, err.Error())
		return nil, false
	}
	return disp, true
}

func (a *Accessor) reject(tr *seismic.Trace, category, reason string) {
	a.problems.Add(category, tr.FullID())
	logging.WarnWithContext(a.logger, "trace skipped before validation", "restitution_"+category,
		logging.String(logging.FieldNSLC, tr.NSLC().String()),
		logging.String("reason", reason),
		logging.String(logging.FieldImpact, "trace excluded from dataset"),
	)
}

func (a *Accessor) eachFile(ctx context.Context, fn func([]*seismic.Trace) error) error {
	files, err := tracefile.Glob(filepath.Join(a.dir, a.opts.TraceDir))
	if err != nil {
		return failure.Wrap(failure.ErrAccessor, Name, "list traces", "", err)
	}
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		traces, err := tracefile.Load(file)
		if err != nil {
			return failure.Wrap(failure.ErrAccessor, Name, "read traces", filepath.Base(file), err)
		}
		if err := fn(traces); err != nil {
			return err
		}
	}
	return nil
}
