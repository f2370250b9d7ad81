// Package export holds what the kiwi and rapid dataset writers share: the
// dataset handed over by the pipeline and the file helpers both formats use.
package export

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"

	"gonum.org/v1/gonum/floats"

	"tunguska/internal/accessor"
	"tunguska/internal/config"
	"tunguska/internal/failure"
	"tunguska/internal/fileutil"
	"tunguska/internal/seismic"
	"tunguska/internal/selection"
	"tunguska/internal/tracefile"
)

// TimeZeroEvent makes exported trace times relative to the event origin.
const TimeZeroEvent = "event"

// Dataset is the curated result of one event run.
type Dataset struct {
	Event seismic.Event
	// Stations holds one sensor per (network, station).
	Stations map[seismic.NSL]*seismic.Station
	Traces   []*seismic.Trace
	Accessor accessor.Accessor
	// RawSelector picks the raw traces saved for the whole run: the station
	// filter and, when enabled, the quality whitelist.
	RawSelector selection.Predicate
	// StationSelector picks the raw traces an exporter saves next to its
	// dataset: the station filter over the deduplicated stations only.
	StationSelector selection.Predicate
	Vars            config.Vars
}

// Result summarizes what an exporter wrote.
type Result struct {
	Stations int
	Traces   int
	Files    int
}

// Exporter writes a dataset in one output format.
type Exporter interface {
	Name() string
	Export(ctx context.Context, ds *Dataset) (Result, error)
}

// Wrap tags err as an export failure of the named exporter.
func Wrap(exporter, operation string, err error) error {
	return failure.Wrap(failure.ErrExport, exporter, operation, "", err)
}

// ResetDir expands tmpl and removes the directory it names.
func ResetDir(tmpl string, vars config.Vars) error {
	dir, err := config.Expand(tmpl, vars)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("remove %s: %w", dir, err)
	}
	return nil
}

// CopySkeleton replaces the expanded main directory with a copy of skeleton.
func CopySkeleton(skeleton, mainTmpl string, vars config.Vars) error {
	src, err := config.Expand(skeleton, vars)
	if err != nil {
		return err
	}
	dst, err := config.Expand(mainTmpl, vars)
	if err != nil {
		return err
	}
	return fileutil.CopyTree(src, dst)
}

// SaveRawTraces streams the raw traces matched by selector from acc and
// writes them through the path template. It returns the number of traces.
func SaveRawTraces(ctx context.Context, acc accessor.Accessor, selector selection.Predicate, tmpl string, vars config.Vars) (int, error) {
	var raw []*seismic.Trace
	err := acc.IterRawTraces(ctx, selector, func(traces []*seismic.Trace) error {
		raw = append(raw, traces...)
		return nil
	})
	if err != nil {
		return 0, err
	}
	if _, err := tracefile.SaveTemplate(tmpl, vars, raw); err != nil {
		return 0, err
	}
	return len(raw), nil
}

// PrepareTrace returns a copy of tr shifted to the requested time zero and
// scaled by factor.
func PrepareTrace(tr *seismic.Trace, ev seismic.Event, timeZero string, factor float64) *seismic.Trace {
	out := tr.Copy()
	if timeZero == TimeZeroEvent {
		out.Shift(-ev.Time)
	}
	floats.Scale(factor, out.Samples)
	return out
}

// TracesOf returns the traces recorded by st, sorted by channel.
func TracesOf(traces []*seismic.Trace, st *seismic.Station) []*seismic.Trace {
	var out []*seismic.Trace
	for _, tr := range traces {
		if tr.NSL() == st.NSL() {
			out = append(out, tr)
		}
	}
	slices.SortStableFunc(out, func(a, b *seismic.Trace) int { return strings.Compare(a.Channel, b.Channel) })
	return out
}

// WriteText expands tmpl and atomically writes content there.
func WriteText(tmpl string, vars config.Vars, content string) (string, error) {
	path, err := config.Expand(tmpl, vars)
	if err != nil {
		return "", err
	}
	if err := fileutil.WriteFileAtomic(path, []byte(content), 0o644); err != nil {
		return "", err
	}
	return path, nil
}
