package testsupport

import (
	"math"
	"path/filepath"
	"testing"

	"tunguska/internal/metadata"
	"tunguska/internal/seismic"
	"tunguska/internal/tracefile"
)

// OriginTime is the origin time of events produced by NewEvent.
const OriginTime = 1262304000.0

// NewEvent returns an event at (0, 0) with 10 km depth.
func NewEvent(name string) seismic.Event {
	return seismic.Event{Name: name, Time: OriginTime, Depth: 10000, Magnitude: 5.5}
}

// StationAt places a station on the equator at distance meters east of the
// origin, with displacement channels of unit gain.
func StationAt(network, station, location string, distance float64, channels ...string) *seismic.Station {
	if len(channels) == 0 {
		channels = []string{"BHZ"}
	}
	st := &seismic.Station{
		Network:   network,
		Station:   station,
		Location:  location,
		Longitude: distance / seismic.EarthRadius * 180 / math.Pi,
	}
	for _, ch := range channels {
		st.Channels = append(st.Channels, seismic.Channel{Name: ch, Gain: 1, Response: "displacement"})
	}
	return st
}

// SineTrace returns n one-second samples of a 0.05 Hz sine starting at tmin.
func SineTrace(st *seismic.Station, channel string, tmin float64, n int) *seismic.Trace {
	tr := &seismic.Trace{
		Network:  st.Network,
		Station:  st.Station,
		Location: st.Location,
		Channel:  channel,
		DeltaT:   1,
		TMin:     tmin,
		Samples:  make([]float64, n),
	}
	for i := range tr.Samples {
		tr.Samples[i] = math.Sin(2 * math.Pi * 0.05 * float64(i))
	}
	return tr
}

// WriteDump lays out an event dump in dir: event.yaml, stations.yaml and one
// trace file per station under traces/.
func WriteDump(t testing.TB, dir string, ev seismic.Event, stations []*seismic.Station, traces []*seismic.Trace) {
	t.Helper()

	if err := metadata.WriteEvent(filepath.Join(dir, "event.yaml"), ev); err != nil {
		t.Fatalf("write event: %v", err)
	}
	if err := metadata.WriteStations(filepath.Join(dir, "stations.yaml"), stations); err != nil {
		t.Fatalf("write stations: %v", err)
	}
	tmpl := filepath.Join(dir, "traces", "${network}.${station}.${location}.trace")
	if _, err := tracefile.SaveTemplate(tmpl, nil, traces); err != nil {
		t.Fatalf("write traces: %v", err)
	}
}
