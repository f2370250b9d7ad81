// Package accessor defines the capability set every raw-data backend
// provides to the preparation pipeline, plus the per-event problem log.
//
// Backends are looked up by name through the registry subpackage; the
// pipeline never constructs one directly.
package accessor

import (
	"context"
	"errors"

	"tunguska/internal/restitution"
	"tunguska/internal/seismic"
	"tunguska/internal/selection"
)

// ErrVolumeNotFound is returned by a backend whose data volume for the
// requested event does not exist.
var ErrVolumeNotFound = errors.New("data volume not found")

// YieldFunc receives one group of traces. Returning an error stops the
// iteration and is passed back to the caller.
type YieldFunc func(traces []*seismic.Trace) error

// DisplacementOptions configure the displacement trace stream.
type DisplacementOptions struct {
	FadeTime        float64
	FrequencyBand   [4]float64
	DeltaT          *float64
	Rotation        []restitution.Rotation
	MaxDisplacement *float64
	AllowedMethods  []string
	// Selector is evaluated on raw traces before restitution. Nil selects
	// everything.
	Selector selection.Predicate
	Extend   *float64
	Crop     bool
}

// Restitution returns the per-trace restitution settings.
func (o DisplacementOptions) Restitution() restitution.Options {
	return restitution.Options{
		FadeTime:        o.FadeTime,
		FrequencyBand:   o.FrequencyBand,
		DeltaT:          o.DeltaT,
		MaxDisplacement: o.MaxDisplacement,
		Methods:         o.AllowedMethods,
		PreExtend:       o.Extend,
		Crop:            o.Crop,
	}
}

// Accessor supplies event metadata, station metadata, and lazily produced
// trace groups for one event volume.
type Accessor interface {
	Events(ctx context.Context) ([]seismic.Event, error)
	// Stations returns every station keyed by NSL. When relativeTo is set the
	// station geometry (distance, azimuth, back-azimuth) is computed for it.
	Stations(ctx context.Context, relativeTo *seismic.Event) (map[seismic.NSL]*seismic.Station, error)
	IterDisplacementTraces(ctx context.Context, opts DisplacementOptions, yield YieldFunc) error
	IterRawTraces(ctx context.Context, selector selection.Predicate, yield YieldFunc) error
	Problems() *Problems
}
