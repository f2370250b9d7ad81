package preflight

import (
	"fmt"
	"strings"

	"tunguska/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	// Log directory (always checked)
	results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))

	if root := StaticPrefix(cfg.Accessor.DataDir); root != "" {
		results = append(results, CheckReadableDir("Accessor data root", root))
	}

	if cfg.QualityEnabled() {
		results = append(results, CheckReadableDir("Badness directory", cfg.Quality.BadnessDir))
	}

	if cfg.GFDB.Path != "" {
		results = append(results, CheckReadableFile("GFDB descriptor", cfg.GFDB.Path))
	}

	for _, phase := range cfg.Timing.Phases {
		if phase.Table == "" {
			continue
		}
		results = append(results, CheckReadableFile(fmt.Sprintf("Phase %s table", phase.Name), phase.Table))
	}

	if cfg.Kiwi.Enabled && cfg.Kiwi.SkeletonDir != "" {
		results = append(results, CheckReadableDir("Kiwi skeleton", cfg.Kiwi.SkeletonDir))
	}
	if cfg.Rapid.Enabled && cfg.Rapid.SkeletonDir != "" {
		results = append(results, CheckReadableDir("Rapid skeleton", cfg.Rapid.SkeletonDir))
	}

	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}

// StaticPrefix returns the directory portion of a path template that
// precedes its first ${...} placeholder.
func StaticPrefix(tmpl string) string {
	tmpl = strings.TrimSpace(tmpl)
	idx := strings.Index(tmpl, "${")
	if idx < 0 {
		return tmpl
	}
	prefix := tmpl[:idx]
	if cut := strings.LastIndex(prefix, "/"); cut >= 0 {
		return prefix[:cut+1]
	}
	return ""
}
