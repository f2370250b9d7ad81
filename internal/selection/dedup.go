package selection

import (
	"slices"

	"tunguska/internal/seismic"
)

// DedupStations keeps one sensor per (network, station): the one whose
// location code sorts first. The result does not depend on map iteration
// order.
func DedupStations(stations map[seismic.NSL]*seismic.Station) map[seismic.NSL]*seismic.Station {
	sorted := make([]*seismic.Station, 0, len(stations))
	for _, st := range stations {
		sorted = append(sorted, st)
	}
	slices.SortFunc(sorted, func(a, b *seismic.Station) int { return a.NSL().Compare(b.NSL()) })

	have := make(map[seismic.NS]struct{}, len(sorted))
	out := make(map[seismic.NSL]*seismic.Station, len(sorted))
	for _, st := range sorted {
		key := st.NSL()
		if _, seen := have[key.NS()]; seen {
			continue
		}
		have[key.NS()] = struct{}{}
		out[key] = st
	}
	return out
}

// SortByDistance returns the stations ordered by increasing distance, with
// NSL as a tiebreak.
func SortByDistance(stations map[seismic.NSL]*seismic.Station) []*seismic.Station {
	out := make([]*seismic.Station, 0, len(stations))
	for _, st := range stations {
		out = append(out, st)
	}
	slices.SortFunc(out, func(a, b *seismic.Station) int {
		switch {
		case a.Distance < b.Distance:
			return -1
		case a.Distance > b.Distance:
			return 1
		default:
			return a.NSL().Compare(b.NSL())
		}
	})
	return out
}
