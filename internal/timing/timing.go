package timing

import (
	"bufio"
	"errors"
	"fmt"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/interp"
)

// Func computes a time offset from event origin for a receiver at distance
// (m) from a source at depth (m).
type Func interface {
	Arrival(distance, depth float64) (float64, bool)
}

// FuncOf adapts a plain function to Func.
type FuncOf func(distance, depth float64) (float64, bool)

// Arrival implements Func.
func (f FuncOf) Arrival(distance, depth float64) (float64, bool) {
	return f(distance, depth)
}

// Phase is a named travel-time curve.
type Phase interface {
	Func
	Name() string
}

// VelocityPhase predicts arrivals along a straight ray at constant velocity.
type VelocityPhase struct {
	PhaseName   string
	Velocity    float64
	MinDistance *float64
	MaxDistance *float64
}

// Name implements Phase.
func (p VelocityPhase) Name() string { return p.PhaseName }

// Arrival implements Func.
func (p VelocityPhase) Arrival(distance, depth float64) (float64, bool) {
	if p.Velocity <= 0 {
		return 0, false
	}
	if p.MinDistance != nil && distance < *p.MinDistance {
		return 0, false
	}
	if p.MaxDistance != nil && distance > *p.MaxDistance {
		return 0, false
	}
	return math.Hypot(distance, depth) / p.Velocity, true
}

// TablePhase interpolates a distance/time curve linearly. Outside the
// tabulated distance range the phase does not exist.
type TablePhase struct {
	PhaseName string
	curve     interp.PiecewiseLinear
	minDist   float64
	maxDist   float64
}

// NewTablePhase builds a tabulated phase from distances (m) and travel times (s).
func NewTablePhase(name string, distances, times []float64) (*TablePhase, error) {
	if len(distances) != len(times) {
		return nil, fmt.Errorf("phase %s: %d distances but %d times", name, len(distances), len(times))
	}
	if len(distances) < 2 {
		return nil, fmt.Errorf("phase %s: need at least two table rows", name)
	}
	if !slices.IsSorted(distances) {
		return nil, fmt.Errorf("phase %s: table distances must increase", name)
	}
	p := &TablePhase{PhaseName: name, minDist: distances[0], maxDist: distances[len(distances)-1]}
	if err := p.curve.Fit(distances, times); err != nil {
		return nil, fmt.Errorf("phase %s: fit table: %w", name, err)
	}
	return p, nil
}

// LoadTablePhase reads "distance_km time_s" rows. Blank lines and lines
// starting with '#' are ignored. Depth is not part of the table.
func LoadTablePhase(name, path string) (*TablePhase, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("phase %s: open table: %w", name, err)
	}
	defer f.Close()

	var distances, times []float64
	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		toks := strings.Fields(text)
		if len(toks) != 2 {
			return nil, fmt.Errorf("phase %s: %s:%d: want 2 columns", name, path, line)
		}
		km, err := strconv.ParseFloat(toks[0], 64)
		if err != nil {
			return nil, fmt.Errorf("phase %s: %s:%d: %w", name, path, line, err)
		}
		tt, err := strconv.ParseFloat(toks[1], 64)
		if err != nil {
			return nil, fmt.Errorf("phase %s: %s:%d: %w", name, path, line, err)
		}
		distances = append(distances, km*1000)
		times = append(times, tt)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("phase %s: read table: %w", name, err)
	}
	return NewTablePhase(name, distances, times)
}

// Name implements Phase.
func (p *TablePhase) Name() string { return p.PhaseName }

// Arrival implements Func.
func (p *TablePhase) Arrival(distance, _ float64) (float64, bool) {
	if distance < p.minDist || distance > p.maxDist {
		return 0, false
	}
	return p.curve.Predict(distance), true
}

// Model is a set of named phases that expressions can refer to.
type Model struct {
	phases map[string]Phase
}

// NewModel indexes phases by name. Duplicate names are rejected.
func NewModel(phases ...Phase) (*Model, error) {
	m := &Model{phases: make(map[string]Phase, len(phases))}
	for _, p := range phases {
		name := strings.TrimSpace(p.Name())
		if name == "" {
			return nil, errors.New("phase name must not be empty")
		}
		if _, dup := m.phases[name]; dup {
			return nil, fmt.Errorf("phase %s defined twice", name)
		}
		m.phases[name] = p
	}
	return m, nil
}

// Phase looks up a phase by name.
func (m *Model) Phase(name string) (Phase, bool) {
	p, ok := m.phases[name]
	return p, ok
}
