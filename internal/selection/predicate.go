package selection

import (
	"path"
	"slices"
	"strings"

	"tunguska/internal/badness"
	"tunguska/internal/seismic"
)

// Predicate is a boolean filter over traces.
type Predicate interface {
	Match(*seismic.Trace) bool
}

// PredicateFunc adapts a function to Predicate.
type PredicateFunc func(*seismic.Trace) bool

// Match implements Predicate.
func (f PredicateFunc) Match(tr *seismic.Trace) bool { return f(tr) }

// Always accepts every trace.
var Always Predicate = PredicateFunc(func(*seismic.Trace) bool { return true })

type allOf []Predicate

func (ps allOf) Match(tr *seismic.Trace) bool {
	for _, p := range ps {
		if !p.Match(tr) {
			return false
		}
	}
	return true
}

type anyOf []Predicate

func (ps anyOf) Match(tr *seismic.Trace) bool {
	for _, p := range ps {
		if p.Match(tr) {
			return true
		}
	}
	return false
}

// And accepts a trace only if every predicate does. Nil entries are ignored;
// an empty list accepts everything.
func And(ps ...Predicate) Predicate {
	return allOf(compact(ps))
}

// Or accepts a trace if any predicate does. Nil entries are ignored; an
// empty list rejects everything.
func Or(ps ...Predicate) Predicate {
	return anyOf(compact(ps))
}

func compact(ps []Predicate) []Predicate {
	return slices.DeleteFunc(slices.Clone(ps), func(p Predicate) bool { return p == nil })
}

// StationFilter decides whether a station may contribute traces.
type StationFilter interface {
	Admit(*seismic.Station) bool
}

// StationAdmissibility matches traces whose owning station is known and
// admitted by Filter. A nil Filter admits every known station.
type StationAdmissibility struct {
	Stations map[seismic.NSL]*seismic.Station
	Filter   StationFilter
}

// Match implements Predicate.
func (s StationAdmissibility) Match(tr *seismic.Trace) bool {
	st, ok := s.Stations[tr.NSL()]
	if !ok {
		return false
	}
	if s.Filter == nil {
		return true
	}
	return s.Filter.Admit(st)
}

// QualityWhitelist matches traces whose channel has a badness score no
// greater than Limit. Channels missing from the table are rejected.
type QualityWhitelist struct {
	Table badness.Table
	Limit float64
}

// Match implements Predicate.
func (q QualityWhitelist) Match(tr *seismic.Trace) bool {
	score, ok := q.Table.Score(tr.NSLC())
	return ok && score <= q.Limit
}

// NSLPatternFilter admits stations by network and NET.STA.LOC glob patterns.
// Empty Networks and Include admit everything not excluded.
type NSLPatternFilter struct {
	Networks []string
	Include  []string
	Exclude  []string
}

// Admit implements StationFilter.
func (f NSLPatternFilter) Admit(st *seismic.Station) bool {
	if len(f.Networks) > 0 && !slices.Contains(f.Networks, st.Network) {
		return false
	}
	code := st.NSL().String()
	if matchAny(f.Exclude, code) {
		return false
	}
	if len(f.Include) > 0 && !matchAny(f.Include, code) {
		return false
	}
	return true
}

// Empty reports whether the filter has no rules at all.
func (f NSLPatternFilter) Empty() bool {
	return len(f.Networks) == 0 && len(f.Include) == 0 && len(f.Exclude) == 0
}

func matchAny(patterns []string, code string) bool {
	for _, pattern := range patterns {
		if ok, err := path.Match(strings.TrimSpace(pattern), code); err == nil && ok {
			return true
		}
	}
	return false
}
