package seismic

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrNoData is returned when an operation would leave a trace without samples.
var ErrNoData = errors.New("no data")

// timeEps absorbs floating point noise when mapping times to sample indices.
const timeEps = 1e-6

// Trace is an evenly sampled waveform recording of one channel.
type Trace struct {
	Network  string
	Station  string
	Location string
	Channel  string
	DeltaT   float64
	TMin     float64
	Samples  []float64
}

// TMax returns the time of the last sample.
func (t *Trace) TMax() float64 {
	if len(t.Samples) == 0 {
		return t.TMin
	}
	return t.TMin + float64(len(t.Samples)-1)*t.DeltaT
}

// NSL returns the key of the station that owns the trace.
func (t *Trace) NSL() NSL {
	return NSL{Network: t.Network, Station: t.Station, Location: t.Location}
}

// NSLC returns the channel key of the trace.
func (t *Trace) NSLC() NSLC {
	return NSLC{Network: t.Network, Station: t.Station, Location: t.Location, Channel: t.Channel}
}

// FullID identifies the recording including its time span.
func (t *Trace) FullID() string {
	return fmt.Sprintf("%s.%s.%s", t.NSLC(), formatTime(t.TMin), formatTime(t.TMax()))
}

// Copy returns a deep copy.
func (t *Trace) Copy() *Trace {
	clone := *t
	clone.Samples = append([]float64(nil), t.Samples...)
	return &clone
}

// Shift moves the trace in time by offset seconds.
func (t *Trace) Shift(offset float64) {
	t.TMin += offset
}

// Chop trims the trace in place to the samples lying within [tmin, tmax].
func (t *Trace) Chop(tmin, tmax float64) error {
	if t.DeltaT <= 0 {
		return fmt.Errorf("chop %s: invalid sample interval %g", t.NSLC(), t.DeltaT)
	}
	ibeg := int(math.Ceil((tmin-t.TMin)/t.DeltaT - timeEps))
	iend := int(math.Floor((tmax-t.TMin)/t.DeltaT + timeEps))
	if ibeg < 0 {
		ibeg = 0
	}
	if iend > len(t.Samples)-1 {
		iend = len(t.Samples) - 1
	}
	if iend < ibeg {
		return fmt.Errorf("chop %s to [%s, %s]: %w", t.NSLC(), formatTime(tmin), formatTime(tmax), ErrNoData)
	}
	t.Samples = t.Samples[ibeg : iend+1]
	t.TMin += float64(ibeg) * t.DeltaT
	return nil
}

// Overlaps reports whether the trace covers any part of [tmin, tmax].
func (t *Trace) Overlaps(tmin, tmax float64) bool {
	return t.TMin <= tmax && tmin <= t.TMax()
}

func formatTime(t float64) string {
	return EpochToTime(t).Format("2006-01-02T15:04:05.000Z")
}

// FormatTime renders epoch seconds as an ISO-8601 UTC string with milliseconds.
func FormatTime(t float64) string {
	return formatTime(t)
}

// ParseTime accepts RFC 3339 timestamps and "2006-01-02 15:04:05" UTC strings.
func ParseTime(value string) (float64, error) {
	layouts := []string{time.RFC3339Nano, "2006-01-02 15:04:05.999999999", "2006-01-02 15:04:05", "2006-01-02T15:04:05"}
	for _, layout := range layouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return TimeToEpoch(parsed), nil
		}
	}
	return 0, fmt.Errorf("parse time %q: unsupported layout", value)
}
