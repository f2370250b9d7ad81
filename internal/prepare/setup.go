package prepare

import (
	"fmt"
	"log/slog"

	"tunguska/internal/accessor"
	"tunguska/internal/config"
	"tunguska/internal/export"
	"tunguska/internal/export/kiwi"
	"tunguska/internal/export/rapid"
	"tunguska/internal/failure"
	"tunguska/internal/restitution"
	"tunguska/internal/selection"
	"tunguska/internal/timing"
)

func configError(operation string, err error) error {
	return failure.Wrap(failure.ErrConfiguration, "prepare", operation, "", err)
}

// buildPhases turns the configured phase list into timing phases.
func buildPhases(cfg *config.Config) ([]timing.Phase, error) {
	phases := make([]timing.Phase, 0, len(cfg.Timing.Phases))
	for _, ph := range cfg.Timing.Phases {
		if ph.Table != "" {
			tp, err := timing.LoadTablePhase(ph.Name, ph.Table)
			if err != nil {
				return nil, err
			}
			phases = append(phases, tp)
			continue
		}
		phases = append(phases, timing.VelocityPhase{
			PhaseName:   ph.Name,
			Velocity:    ph.Velocity,
			MinDistance: ph.MinDist,
			MaxDistance: ph.MaxDist,
		})
	}
	return phases, nil
}

// buildValidator compiles the check and cut spans against model.
func buildValidator(cfg *config.Config, model *timing.Model) ([]timing.Func, *selection.CropWindow, error) {
	check, err := model.ParseAll(cfg.Timing.CheckSpan)
	if err != nil {
		return nil, nil, fmt.Errorf("check_span: %w", err)
	}
	if len(cfg.Timing.CutSpan) == 0 {
		return check, nil, nil
	}
	cut, err := model.ParseAll(cfg.Timing.CutSpan)
	if err != nil {
		return nil, nil, fmt.Errorf("cut_span: %w", err)
	}
	if len(cut) != 2 {
		return nil, nil, fmt.Errorf("cut_span: want start and end, got %d entries", len(cut))
	}
	return check, &selection.CropWindow{Start: cut[0], End: cut[1]}, nil
}

// buildDistance resolves the distance gate and the default sampling interval.
func buildDistance(cfg *config.Config) (selection.DistanceRange, *float64, error) {
	if cfg.GFDB.Path == "" {
		return selection.DistanceRange{Min: cfg.Distance.MinDist, Max: cfg.Distance.MaxDist}, nil, nil
	}
	db, err := LoadGFDB(cfg.GFDB.Path)
	if err != nil {
		return selection.DistanceRange{}, nil, err
	}
	dt := db.DT
	return db.Range(cfg.GFDB.Margin), &dt, nil
}

func displacementOptions(cfg *config.Config, defaultDeltaT *float64) accessor.DisplacementOptions {
	r := cfg.Restitution
	opts := accessor.DisplacementOptions{
		FadeTime:        r.FadeTime,
		DeltaT:          r.DeltaT,
		MaxDisplacement: r.DisplacementLimit,
		AllowedMethods:  r.Methods,
		Extend:          r.PreExtend,
		Crop:            cfg.CropEnabled(),
	}
	copy(opts.FrequencyBand[:], r.FrequencyBand)
	if opts.DeltaT == nil {
		opts.DeltaT = defaultDeltaT
	}
	for _, rule := range r.Rotation {
		var rot restitution.Rotation
		copy(rot.In[:], rule.In)
		copy(rot.Out[:], rule.Out)
		opts.Rotation = append(opts.Rotation, rot)
	}
	return opts
}

// buildExporters returns the enabled dataset writers, kiwi first.
func buildExporters(cfg *config.Config, logger *slog.Logger) []export.Exporter {
	var out []export.Exporter
	if cfg.Kiwi.Enabled {
		out = append(out, kiwi.New(cfg.Kiwi, logger))
	}
	if cfg.Rapid.Enabled {
		out = append(out, rapid.New(cfg.Rapid, logger))
	}
	return out
}

func stationFilter(cfg *config.Config) selection.StationFilter {
	f := selection.NSLPatternFilter{
		Networks: cfg.Stations.Networks,
		Include:  cfg.Stations.Include,
		Exclude:  cfg.Stations.Exclude,
	}
	if f.Empty() {
		return nil
	}
	return f
}
