package restitution

import (
	"math"

	"tunguska/internal/seismic"
)

// Rotation turns a horizontal channel pair In = (north, east) into
// Out = (radial, transverse).
type Rotation struct {
	In  [2]string
	Out [2]string
}

// Rotate applies each rule to the traces of one station and returns the
// rotated traces. angle is in degrees clockwise from north, usually the
// station back-azimuth plus 180. Pairs that do not share a sample interval
// or do not overlap in time are skipped.
func Rotate(traces []*seismic.Trace, rules []Rotation, angle float64) []*seismic.Trace {
	var out []*seismic.Trace
	for _, rule := range rules {
		for _, north := range traces {
			if north.Channel != rule.In[0] {
				continue
			}
			for _, east := range traces {
				if east.Channel != rule.In[1] || east.NSL() != north.NSL() {
					continue
				}
				if r, t, ok := rotatePair(north, east, angle, rule.Out); ok {
					out = append(out, r, t)
				}
			}
		}
	}
	return out
}

func rotatePair(north, east *seismic.Trace, angle float64, names [2]string) (*seismic.Trace, *seismic.Trace, bool) {
	if math.Abs(north.DeltaT-east.DeltaT) > 1e-9*north.DeltaT {
		return nil, nil, false
	}
	tmin := math.Max(north.TMin, east.TMin)
	tmax := math.Min(north.TMax(), east.TMax())
	if tmax < tmin {
		return nil, nil, false
	}
	n := north.Copy()
	e := east.Copy()
	if n.Chop(tmin, tmax) != nil || e.Chop(tmin, tmax) != nil {
		return nil, nil, false
	}
	size := min(len(n.Samples), len(e.Samples))

	phi := angle * math.Pi / 180
	cos, sin := math.Cos(phi), math.Sin(phi)
	radial := n.Copy()
	radial.Channel = names[0]
	radial.Samples = make([]float64, size)
	transverse := n.Copy()
	transverse.Channel = names[1]
	transverse.Samples = make([]float64, size)
	for i := 0; i < size; i++ {
		radial.Samples[i] = cos*n.Samples[i] + sin*e.Samples[i]
		transverse.Samples[i] = -sin*n.Samples[i] + cos*e.Samples[i]
	}
	return radial, transverse, true
}
