package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains run-level directories.
type Paths struct {
	LogDir     string `toml:"log_dir"`
	LedgerPath string `toml:"ledger_path"`
}

// Accessor selects the raw-data backend by registered name.
type Accessor struct {
	Kind    string   `toml:"kind" validate:"required"`
	DataDir string   `toml:"data_dir"`
	Args    []string `toml:"args"`
}

// RotationRule rotates a horizontal channel pair (north, east) into
// (radial, transverse) using the station back-azimuth.
type RotationRule struct {
	In  []string `toml:"in" validate:"len=2,dive,required"`
	Out []string `toml:"out" validate:"len=2,dive,required"`
}

// Restitution controls conversion of raw counts into displacement.
type Restitution struct {
	FadeTime          float64        `toml:"fade_time" validate:"gte=0"`
	FrequencyBand     []float64      `toml:"frequency_band" validate:"len=4,dive,gte=0"`
	Methods           []string       `toml:"methods" validate:"min=1,dive,oneof=displacement velocity"`
	DeltaT            *float64       `toml:"deltat" validate:"omitempty,gt=0"`
	PreExtend         *float64       `toml:"pre_extend" validate:"omitempty,gte=0"`
	Crop              *bool          `toml:"crop"`
	DisplacementLimit *float64       `toml:"displacement_limit" validate:"omitempty,gt=0"`
	Rotation          []RotationRule `toml:"rotation" validate:"dive"`
}

// GFDB describes the Green's function database whose extent bounds the
// usable source-receiver distances.
type GFDB struct {
	Path   string  `toml:"path"`
	Margin float64 `toml:"margin" validate:"gte=0"`
}

// Distance is an explicit distance range used when no GFDB is configured.
type Distance struct {
	MinDist *float64 `toml:"min_dist" validate:"omitempty,gte=0"`
	MaxDist *float64 `toml:"max_dist" validate:"omitempty,gte=0"`
}

// Phase defines a named travel-time curve: either a constant velocity or a
// distance/time table file.
type Phase struct {
	Name     string   `toml:"name" validate:"required"`
	Velocity float64  `toml:"velocity" validate:"gte=0"`
	MinDist  *float64 `toml:"min_dist" validate:"omitempty,gte=0"`
	MaxDist  *float64 `toml:"max_dist" validate:"omitempty,gte=0"`
	Table    string   `toml:"table"`
}

// Timing lists phases and the windows every trace must cover.
type Timing struct {
	Phases    []Phase  `toml:"phase" validate:"dive"`
	CheckSpan []string `toml:"check_span"`
	CutSpan   []string `toml:"cut_span"`
}

// Quality configures the badness whitelist.
type Quality struct {
	BadnessDir   string   `toml:"badness_dir"`
	BadnessLimit *float64 `toml:"badness_limit"`
}

// Stations configures the station-level admission filter.
type Stations struct {
	Networks []string `toml:"networks"`
	Include  []string `toml:"include"`
	Exclude  []string `toml:"exclude"`
}

// Output contains per-event side outputs.
type Output struct {
	RawTracePath    string `toml:"raw_trace_path"`
	ProblemsFile    string `toml:"problems_file"`
	MetricsTextfile string `toml:"metrics_textfile"`
	PlotPath        string `toml:"plot_path"`
}

// Kiwi configures the kiwi dataset exporter.
type Kiwi struct {
	Enabled               bool              `toml:"enabled"`
	MainDir               string            `toml:"main_dir"`
	DataDir               string            `toml:"data_dir"`
	SkeletonDir           string            `toml:"skeleton_dir"`
	RawTracePath          string            `toml:"raw_trace_path"`
	EventInfoPath         string            `toml:"event_info_path"`
	ReceiversPath         string            `toml:"receivers_path"`
	DisplacementTracePath string            `toml:"displacement_trace_path"`
	ReferenceTimePath     string            `toml:"reference_time_path"`
	SourceOriginPath      string            `toml:"source_origin_path"`
	NSets                 int               `toml:"nsets" validate:"gte=1"`
	TraceTimeZero         string            `toml:"trace_time_zero" validate:"oneof=event absolute"`
	TraceFactor           float64           `toml:"trace_factor"`
	WantedComponents      []string          `toml:"wanted_components"`
	ComponentMap          map[string]string `toml:"component_map"`
}

// Rapid configures the rapid dataset exporter.
type Rapid struct {
	Enabled               bool    `toml:"enabled"`
	MainDir               string  `toml:"main_dir"`
	DataDir               string  `toml:"data_dir"`
	SkeletonDir           string  `toml:"skeleton_dir"`
	RawTracePath          string  `toml:"raw_trace_path"`
	StationsPath          string  `toml:"stations_path"`
	EventInfoPath         string  `toml:"event_info_path"`
	DisplacementTracePath string  `toml:"displacement_trace_path"`
	TraceTimeZero         string  `toml:"trace_time_zero" validate:"oneof=event absolute"`
	TraceFactor           float64 `toml:"trace_factor"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format" validate:"oneof=console json"`
	Level  string `toml:"level" validate:"oneof=debug info warn error"`
}

// Config encapsulates all configuration values for tunguska.
//
// Configuration sections by subsystem:
//   - Paths: log directory and run ledger location
//   - Accessor: raw data backend and its data directory
//   - Restitution: fade, frequency band, resampling, rotation, limits
//   - GFDB / Distance: usable source-receiver distance range
//   - Timing: phase model, check windows, and crop window
//   - Quality: badness whitelist
//   - Stations: station admission filter
//   - Output: raw traces, problems, metrics, and plot side outputs
//   - Kiwi / Rapid: dataset exporters
//   - Logging: log format and level
type Config struct {
	Paths       Paths       `toml:"paths"`
	Accessor    Accessor    `toml:"accessor"`
	Restitution Restitution `toml:"restitution"`
	GFDB        GFDB        `toml:"gfdb"`
	Distance    Distance    `toml:"distance"`
	Timing      Timing      `toml:"timing"`
	Quality     Quality     `toml:"quality"`
	Stations    Stations    `toml:"stations"`
	Output      Output      `toml:"output"`
	Kiwi        Kiwi        `toml:"kiwi"`
	Rapid       Rapid       `toml:"rapid"`
	Logging     Logging     `toml:"logging"`
}

// envOverrides are read from TUNGUSKA_* environment variables.
type envOverrides struct {
	LogLevel  string `envconfig:"LOG_LEVEL"`
	LogFormat string `envconfig:"LOG_FORMAT"`
	LogDir    string `envconfig:"LOG_DIR"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/tunguska/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(filepath.Dir(resolvedPath)); err != nil {
		return nil, "", false, err
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

// applyEnv loads dir/.env when present (never overriding variables already
// set) and then applies TUNGUSKA_* overrides.
func (c *Config) applyEnv(dir string) error {
	dotenv := filepath.Join(dir, ".env")
	if _, err := os.Stat(dotenv); err == nil {
		if err := godotenv.Load(dotenv); err != nil {
			return fmt.Errorf("load %s: %w", dotenv, err)
		}
	}

	var env envOverrides
	if err := envconfig.Process("tunguska", &env); err != nil {
		return fmt.Errorf("process environment: %w", err)
	}
	if env.LogLevel != "" {
		c.Logging.Level = env.LogLevel
	}
	if env.LogFormat != "" {
		c.Logging.Format = env.LogFormat
	}
	if env.LogDir != "" {
		c.Paths.LogDir = env.LogDir
	}
	return nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("tunguska.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories a preparation run writes to
// before any event is processed.
func (c *Config) EnsureDirectories() error {
	if err := os.MkdirAll(c.Paths.LogDir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", c.Paths.LogDir, err)
	}
	if dir := filepath.Dir(c.Paths.LedgerPath); strings.TrimSpace(c.Paths.LedgerPath) != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create ledger directory %q: %w", dir, err)
		}
	}
	return nil
}

// LockPath returns the file used to serialize concurrent prepare runs.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.LogDir, "tunguska.lock")
}

// CropEnabled reports whether restitution should cut off the fade and
// pre-extension segments. Defaults to true.
func (c *Config) CropEnabled() bool {
	return c.Restitution.Crop == nil || *c.Restitution.Crop
}

// QualityEnabled reports whether the badness whitelist is configured.
func (c *Config) QualityEnabled() bool {
	return c.Quality.BadnessDir != "" && c.Quality.BadnessLimit != nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
