package config

import (
	"fmt"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeInputs(); err != nil {
		return err
	}
	if err := c.normalizeExporters(); err != nil {
		return err
	}
	c.normalizeTiming()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LedgerPath) == "" {
		c.Paths.LedgerPath = filepath.Join(c.Paths.LogDir, defaultLedgerFile)
	}
	if c.Paths.LedgerPath, err = expandPath(c.Paths.LedgerPath); err != nil {
		return fmt.Errorf("paths.ledger_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeInputs() error {
	c.Accessor.Kind = strings.ToLower(strings.TrimSpace(c.Accessor.Kind))
	return expandAll(map[string]*string{
		"accessor.data_dir":       &c.Accessor.DataDir,
		"gfdb.path":               &c.GFDB.Path,
		"quality.badness_dir":     &c.Quality.BadnessDir,
		"output.raw_trace_path":   &c.Output.RawTracePath,
		"output.problems_file":    &c.Output.ProblemsFile,
		"output.metrics_textfile": &c.Output.MetricsTextfile,
		"output.plot_path":        &c.Output.PlotPath,
	})
}

func (c *Config) normalizeExporters() error {
	c.Kiwi.TraceTimeZero = strings.ToLower(strings.TrimSpace(c.Kiwi.TraceTimeZero))
	if c.Kiwi.TraceTimeZero == "" {
		c.Kiwi.TraceTimeZero = defaultTraceTimeZero
	}
	c.Rapid.TraceTimeZero = strings.ToLower(strings.TrimSpace(c.Rapid.TraceTimeZero))
	if c.Rapid.TraceTimeZero == "" {
		c.Rapid.TraceTimeZero = defaultTraceTimeZero
	}
	if c.Kiwi.TraceFactor == 0 {
		c.Kiwi.TraceFactor = defaultTraceFactor
	}
	if c.Rapid.TraceFactor == 0 {
		c.Rapid.TraceFactor = defaultTraceFactor
	}
	if c.Kiwi.NSets == 0 {
		c.Kiwi.NSets = defaultNSets
	}

	if err := expandAll(map[string]*string{
		"kiwi.main_dir":                &c.Kiwi.MainDir,
		"kiwi.data_dir":                &c.Kiwi.DataDir,
		"kiwi.skeleton_dir":            &c.Kiwi.SkeletonDir,
		"kiwi.raw_trace_path":          &c.Kiwi.RawTracePath,
		"kiwi.event_info_path":         &c.Kiwi.EventInfoPath,
		"kiwi.receivers_path":          &c.Kiwi.ReceiversPath,
		"kiwi.displacement_trace_path": &c.Kiwi.DisplacementTracePath,
		"kiwi.reference_time_path":     &c.Kiwi.ReferenceTimePath,
		"kiwi.source_origin_path":      &c.Kiwi.SourceOriginPath,
	}); err != nil {
		return err
	}
	return expandAll(map[string]*string{
		"rapid.main_dir":                &c.Rapid.MainDir,
		"rapid.data_dir":                &c.Rapid.DataDir,
		"rapid.skeleton_dir":            &c.Rapid.SkeletonDir,
		"rapid.raw_trace_path":          &c.Rapid.RawTracePath,
		"rapid.stations_path":           &c.Rapid.StationsPath,
		"rapid.event_info_path":         &c.Rapid.EventInfoPath,
		"rapid.displacement_trace_path": &c.Rapid.DisplacementTracePath,
	})
}

func (c *Config) normalizeTiming() {
	for i := range c.Timing.Phases {
		c.Timing.Phases[i].Name = strings.TrimSpace(c.Timing.Phases[i].Name)
		if table := strings.TrimSpace(c.Timing.Phases[i].Table); table != "" {
			if expanded, err := expandPath(table); err == nil {
				c.Timing.Phases[i].Table = expanded
			}
		}
	}
	c.Timing.CheckSpan = trimAll(c.Timing.CheckSpan)
	c.Timing.CutSpan = trimAll(c.Timing.CutSpan)
	c.Stations.Networks = trimAll(c.Stations.Networks)
	c.Stations.Include = trimAll(c.Stations.Include)
	c.Stations.Exclude = trimAll(c.Stations.Exclude)
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	switch c.Logging.Level {
	case "":
		c.Logging.Level = defaultLogLevel
	case "warning":
		c.Logging.Level = "warn"
	}
}

func expandAll(fields map[string]*string) error {
	for key, field := range fields {
		trimmed := strings.TrimSpace(*field)
		if trimmed == "" {
			*field = ""
			continue
		}
		expanded, err := expandPath(trimmed)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*field = expanded
	}
	return nil
}

func trimAll(values []string) []string {
	out := values[:0]
	for _, v := range values {
		if t := strings.TrimSpace(v); t != "" {
			out = append(out, t)
		}
	}
	return out
}
