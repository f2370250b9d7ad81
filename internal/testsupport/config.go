package testsupport

import (
	"path/filepath"
	"testing"

	"tunguska/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// The accessor reads event dumps from <base>/edump/${event_name}; restitution
// uses a short fade and keeps displacement channels only.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.LedgerPath = filepath.Join(base, "logs", "ledger.db")
	cfgVal.Accessor.DataDir = filepath.Join(base, "edump", "${event_name}")
	cfgVal.Restitution.FadeTime = 10
	cfgVal.Restitution.FrequencyBand = []float64{0.001, 0.002, 0.2, 0.4}
	cfgVal.Restitution.Methods = []string{"displacement"}

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// BaseDir returns the temp directory a config built by NewConfig lives in.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.LogDir)
}

// WithDistance sets an explicit distance range in meters.
func WithDistance(minDist, maxDist float64) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Distance.MinDist = &minDist
		b.cfg.Distance.MaxDist = &maxDist
	}
}

// WithVelocityPhase adds a constant-velocity phase.
func WithVelocityPhase(name string, velocity float64) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Timing.Phases = append(b.cfg.Timing.Phases, config.Phase{Name: name, Velocity: velocity})
	}
}

// WithCheckSpan sets the timing expressions every trace must cover.
func WithCheckSpan(exprs ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Timing.CheckSpan = exprs
	}
}

// WithCutSpan sets the crop window expressions.
func WithCutSpan(start, end string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Timing.CutSpan = []string{start, end}
	}
}

// WithKiwi enables the kiwi exporter writing below <base>/kiwi/${event_name}.
func WithKiwi() ConfigOption {
	return func(b *configBuilder) {
		root := filepath.Join(b.baseDir, "kiwi", "${event_name}")
		b.cfg.Kiwi.Enabled = true
		b.cfg.Kiwi.MainDir = root
		b.cfg.Kiwi.DataDir = filepath.Join(root, "data")
		b.cfg.Kiwi.EventInfoPath = filepath.Join(root, "data", "event.yaml")
		b.cfg.Kiwi.ReceiversPath = filepath.Join(root, "data", "receivers.table")
		b.cfg.Kiwi.DisplacementTracePath = filepath.Join(root, "data", "reference-${ireceiver}-${component}.trace")
		b.cfg.Kiwi.ReferenceTimePath = filepath.Join(root, "data", "reference-time.txt")
		b.cfg.Kiwi.SourceOriginPath = filepath.Join(root, "data", "source-origin.txt")
	}
}

// WithRapid enables the rapid exporter writing below <base>/rapid/${event_name}.
func WithRapid() ConfigOption {
	return func(b *configBuilder) {
		root := filepath.Join(b.baseDir, "rapid", "${event_name}")
		b.cfg.Rapid.Enabled = true
		b.cfg.Rapid.MainDir = root
		b.cfg.Rapid.DataDir = filepath.Join(root, "data")
		b.cfg.Rapid.StationsPath = filepath.Join(root, "data", "stations.table")
		b.cfg.Rapid.EventInfoPath = filepath.Join(root, "data", "event.yaml")
		b.cfg.Rapid.DisplacementTracePath = filepath.Join(root, "data", "displacement.trace")
	}
}

// WithProblemsFile writes the problem log below <base>/problems.
func WithProblemsFile() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Output.ProblemsFile = filepath.Join(b.baseDir, "problems", "${event_name}.txt")
	}
}

// With applies an arbitrary mutation.
func With(fn func(*config.Config)) ConfigOption {
	return func(b *configBuilder) {
		fn(b.cfg)
	}
}
