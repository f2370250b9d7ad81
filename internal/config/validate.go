package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"

	"tunguska/internal/failure"
)

var structValidator = validator.New(validator.WithRequiredStructEnabled())

// Validate ensures the configuration is usable. Failures carry the
// failure.ErrConfiguration marker.
func (c *Config) Validate() error {
	checks := []func() error{
		c.validateStruct,
		c.validateRestitution,
		c.validateDistance,
		c.validateTiming,
		c.validateQuality,
		c.validateKiwi,
		c.validateRapid,
		c.validateTemplates,
	}
	for _, check := range checks {
		if err := check(); err != nil {
			return failure.Wrap(failure.ErrConfiguration, "config", "validate", "", err)
		}
	}
	return nil
}

func (c *Config) validateStruct() error {
	err := structValidator.Struct(c)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, describeFieldError(fe))
	}
	return errors.New(strings.Join(msgs, "; "))
}

func describeFieldError(fe validator.FieldError) string {
	field := fe.Namespace()
	field = strings.TrimPrefix(field, "Config.")
	switch fe.Tag() {
	case "required":
		return field + " must be set"
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %v", field, fe.Param(), fe.Value())
	case "len":
		return fmt.Sprintf("%s must have exactly %s entries", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s must have at least %s entries", field, fe.Param())
	case "gt", "gte":
		return fmt.Sprintf("%s must be %s %s, got %v", field, comparison(fe.Tag()), fe.Param(), fe.Value())
	default:
		return fmt.Sprintf("%s failed %q check", field, fe.Tag())
	}
}

func comparison(tag string) string {
	if tag == "gt" {
		return ">"
	}
	return ">="
}

func (c *Config) validateRestitution() error {
	band := c.Restitution.FrequencyBand
	for i := 1; i < len(band); i++ {
		if band[i] < band[i-1] {
			return errors.New("restitution.frequency_band corners must be non-decreasing")
		}
	}
	if band[1] <= band[0] || band[3] <= band[2] {
		return errors.New("restitution.frequency_band taper slopes must have nonzero width")
	}
	return nil
}

func (c *Config) validateDistance() error {
	hasRange := c.Distance.MinDist != nil || c.Distance.MaxDist != nil
	if c.GFDB.Path != "" && hasRange {
		return errors.New("gfdb.path and distance.min_dist/max_dist are mutually exclusive")
	}
	if c.Distance.MinDist != nil && c.Distance.MaxDist != nil && *c.Distance.MinDist > *c.Distance.MaxDist {
		return errors.New("distance.min_dist must not exceed distance.max_dist")
	}
	return nil
}

func (c *Config) validateTiming() error {
	seen := make(map[string]struct{}, len(c.Timing.Phases))
	for _, ph := range c.Timing.Phases {
		if _, dup := seen[ph.Name]; dup {
			return fmt.Errorf("timing.phase %q defined twice", ph.Name)
		}
		seen[ph.Name] = struct{}{}
		hasVelocity := ph.Velocity > 0
		hasTable := strings.TrimSpace(ph.Table) != ""
		if hasVelocity == hasTable {
			return fmt.Errorf("timing.phase %q needs exactly one of velocity or table", ph.Name)
		}
		if ph.MinDist != nil && ph.MaxDist != nil && *ph.MinDist > *ph.MaxDist {
			return fmt.Errorf("timing.phase %q min_dist exceeds max_dist", ph.Name)
		}
	}
	if n := len(c.Timing.CutSpan); n != 0 && n != 2 {
		return fmt.Errorf("timing.cut_span must have 0 or 2 entries, got %d", n)
	}
	return nil
}

func (c *Config) validateQuality() error {
	hasDir := c.Quality.BadnessDir != ""
	hasLimit := c.Quality.BadnessLimit != nil
	if hasDir != hasLimit {
		return errors.New("quality.badness_dir and quality.badness_limit must be set together")
	}
	return nil
}

func (c *Config) validateKiwi() error {
	if !c.Kiwi.Enabled {
		return nil
	}
	required := map[string]string{
		"kiwi.main_dir":                c.Kiwi.MainDir,
		"kiwi.data_dir":                c.Kiwi.DataDir,
		"kiwi.receivers_path":          c.Kiwi.ReceiversPath,
		"kiwi.displacement_trace_path": c.Kiwi.DisplacementTracePath,
	}
	if err := requireAll(required); err != nil {
		return err
	}
	if len(c.Kiwi.WantedComponents) == 0 {
		return errors.New("kiwi.wanted_components must not be empty")
	}
	for _, comp := range c.Kiwi.WantedComponents {
		if _, ok := c.Kiwi.ComponentMap[comp]; !ok {
			return fmt.Errorf("kiwi.component_map has no entry for wanted component %q", comp)
		}
	}
	return nil
}

func (c *Config) validateRapid() error {
	if !c.Rapid.Enabled {
		return nil
	}
	return requireAll(map[string]string{
		"rapid.main_dir":                c.Rapid.MainDir,
		"rapid.data_dir":                c.Rapid.DataDir,
		"rapid.stations_path":           c.Rapid.StationsPath,
		"rapid.displacement_trace_path": c.Rapid.DisplacementTracePath,
	})
}

func (c *Config) validateTemplates() error {
	templates := map[string]string{
		"accessor.data_dir":             c.Accessor.DataDir,
		"output.raw_trace_path":         c.Output.RawTracePath,
		"output.problems_file":          c.Output.ProblemsFile,
		"output.metrics_textfile":       c.Output.MetricsTextfile,
		"output.plot_path":              c.Output.PlotPath,
		"kiwi.main_dir":                 c.Kiwi.MainDir,
		"kiwi.data_dir":                 c.Kiwi.DataDir,
		"kiwi.raw_trace_path":           c.Kiwi.RawTracePath,
		"kiwi.event_info_path":          c.Kiwi.EventInfoPath,
		"kiwi.receivers_path":           c.Kiwi.ReceiversPath,
		"kiwi.displacement_trace_path":  c.Kiwi.DisplacementTracePath,
		"kiwi.reference_time_path":      c.Kiwi.ReferenceTimePath,
		"kiwi.source_origin_path":       c.Kiwi.SourceOriginPath,
		"rapid.main_dir":                c.Rapid.MainDir,
		"rapid.data_dir":                c.Rapid.DataDir,
		"rapid.raw_trace_path":          c.Rapid.RawTracePath,
		"rapid.stations_path":           c.Rapid.StationsPath,
		"rapid.event_info_path":         c.Rapid.EventInfoPath,
		"rapid.displacement_trace_path": c.Rapid.DisplacementTracePath,
	}
	for key, tmpl := range templates {
		if err := CheckTemplate(tmpl); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	}
	return nil
}

func requireAll(fields map[string]string) error {
	var missing []string
	for key, value := range fields {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	slices.Sort(missing)
	return fmt.Errorf("%s must be set", strings.Join(missing, ", "))
}
