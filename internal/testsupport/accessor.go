package testsupport

import (
	"context"

	"tunguska/internal/accessor"
	"tunguska/internal/seismic"
	"tunguska/internal/selection"
)

// Accessor is an in-memory accessor.Accessor. Displacement traces are
// yielded one per group, copied, without restitution.
type Accessor struct {
	EventList    []seismic.Event
	StationList  []*seismic.Station
	Raw          []*seismic.Trace
	Displacement []*seismic.Trace

	problems accessor.Problems
}

var _ accessor.Accessor = (*Accessor)(nil)

// Events implements accessor.Accessor.
func (a *Accessor) Events(context.Context) ([]seismic.Event, error) {
	return a.EventList, nil
}

// Stations implements accessor.Accessor.
func (a *Accessor) Stations(_ context.Context, relativeTo *seismic.Event) (map[seismic.NSL]*seismic.Station, error) {
	out := make(map[seismic.NSL]*seismic.Station, len(a.StationList))
	for _, st := range a.StationList {
		if relativeTo != nil {
			seismic.Locate(st, *relativeTo)
		}
		out[st.NSL()] = st
	}
	return out, nil
}

// IterDisplacementTraces implements accessor.Accessor.
func (a *Accessor) IterDisplacementTraces(ctx context.Context, opts accessor.DisplacementOptions, yield accessor.YieldFunc) error {
	return iterate(ctx, a.Displacement, opts.Selector, yield)
}

// IterRawTraces implements accessor.Accessor.
func (a *Accessor) IterRawTraces(ctx context.Context, selector selection.Predicate, yield accessor.YieldFunc) error {
	return iterate(ctx, a.Raw, selector, yield)
}

// Problems implements accessor.Accessor.
func (a *Accessor) Problems() *accessor.Problems {
	return &a.problems
}

func iterate(ctx context.Context, traces []*seismic.Trace, selector selection.Predicate, yield accessor.YieldFunc) error {
	for _, tr := range traces {
		if err := ctx.Err(); err != nil {
			return err
		}
		if selector != nil && !selector.Match(tr) {
			continue
		}
		if err := yield([]*seismic.Trace{tr.Copy()}); err != nil {
			return err
		}
	}
	return nil
}
