// Package quicklook renders a record section of the accepted traces: each
// trace drawn at its source distance, normalized to its own peak, with the
// configured phase arrival curves on top.
package quicklook

import (
	"fmt"
	"image/color"
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"tunguska/internal/fileutil"
	"tunguska/internal/seismic"
	"tunguska/internal/timing"
)

var palette = []color.RGBA{
	{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff},
	{R: 0xd6, G: 0x27, B: 0x28, A: 0xff},
	{R: 0x2c, G: 0xa0, B: 0x2c, A: 0xff},
	{R: 0x94, G: 0x67, B: 0xbd, A: 0xff},
	{R: 0xff, G: 0x7f, B: 0x0e, A: 0xff},
}

// Section collects what goes into one plot.
type Section struct {
	Event    seismic.Event
	Stations map[seismic.NSL]*seismic.Station
	Traces   []*seismic.Trace
	Phases   []timing.Phase
}

// Plot builds the record section. Times are relative to the event origin;
// distances are in km.
func (s Section) Plot() (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s: %d traces", s.Event.Name, len(s.Traces))
	p.X.Label.Text = "Time after origin (s)"
	p.Y.Label.Text = "Distance (km)"

	channels := s.channels()
	gain := s.traceHeight()
	minDist, maxDist := math.Inf(1), math.Inf(-1)

	for _, tr := range s.Traces {
		st, ok := s.Stations[tr.NSL()]
		if !ok || len(tr.Samples) == 0 {
			continue
		}
		base := st.Distance / 1000
		minDist, maxDist = math.Min(minDist, base), math.Max(maxDist, base)

		peak := math.Max(math.Abs(floats.Max(tr.Samples)), math.Abs(floats.Min(tr.Samples)))
		scale := 0.0
		if peak > 0 {
			scale = gain / peak
		}
		pts := make(plotter.XYs, len(tr.Samples))
		for i, v := range tr.Samples {
			pts[i].X = tr.TMin - s.Event.Time + float64(i)*tr.DeltaT
			pts[i].Y = base + v*scale
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, fmt.Errorf("trace %s: %w", tr.NSLC(), err)
		}
		idx := slices.Index(channels, tr.Channel)
		line.Color = palette[idx%len(palette)]
		line.Width = vg.Points(0.5)
		p.Add(line)
	}

	for i, ph := range s.Phases {
		curve := phaseCurve(ph, minDist, maxDist, s.Event.Depth)
		if len(curve) < 2 {
			continue
		}
		line, err := plotter.NewLine(curve)
		if err != nil {
			return nil, fmt.Errorf("phase %s: %w", ph.Name(), err)
		}
		line.Color = color.Gray{Y: uint8(40 * (i % 4))}
		line.Width = vg.Points(1)
		line.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
		p.Add(line)
		p.Legend.Add(ph.Name(), line)
	}
	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	return p, nil
}

// Save renders the plot to path; the format follows the file extension.
func (s Section) Save(path string) error {
	p, err := s.Plot()
	if err != nil {
		return err
	}
	if err := fileutil.EnsureParent(path); err != nil {
		return err
	}
	return p.Save(10*vg.Inch, 12*vg.Inch, path)
}

func (s Section) channels() []string {
	var out []string
	for _, tr := range s.Traces {
		if !slices.Contains(out, tr.Channel) {
			out = append(out, tr.Channel)
		}
	}
	slices.Sort(out)
	return out
}

// traceHeight is half the mean spacing between distinct station distances.
func (s Section) traceHeight() float64 {
	var dists []float64
	for _, tr := range s.Traces {
		if st, ok := s.Stations[tr.NSL()]; ok {
			dists = append(dists, st.Distance/1000)
		}
	}
	slices.Sort(dists)
	dists = slices.Compact(dists)
	if len(dists) < 2 {
		return 1
	}
	return (dists[len(dists)-1] - dists[0]) / float64(len(dists)-1) / 2
}

func phaseCurve(ph timing.Phase, minDist, maxDist, depth float64) plotter.XYs {
	if math.IsInf(minDist, 0) || maxDist < minDist {
		return nil
	}
	const steps = 50
	var pts plotter.XYs
	for i := 0; i <= steps; i++ {
		d := minDist + (maxDist-minDist)*float64(i)/steps
		tt, ok := ph.Arrival(d*1000, depth)
		if !ok {
			continue
		}
		pts = append(pts, plotter.XY{X: tt, Y: d})
	}
	return pts
}
