package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"tunguska/internal/badness"
	"tunguska/internal/seismic"
)

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	time.DateTime,
	time.DateOnly,
}

// parseQueryTime accepts RFC 3339, "YYYY-MM-DD[ HH:MM:SS]" in UTC, or
// epoch seconds.
func parseQueryTime(value string) (float64, error) {
	value = strings.TrimSpace(value)
	if epoch, err := strconv.ParseFloat(value, 64); err == nil {
		return epoch, nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return seismic.TimeToEpoch(t), nil
		}
	}
	return 0, fmt.Errorf("unrecognized time %q", value)
}

func newBadnessCommand(ctx *commandContext) *cobra.Command {
	var dirFlag string

	cmd := &cobra.Command{
		Use:   "badness TIME",
		Short: "Show which badness file the quality whitelist would use at TIME",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			query, err := parseQueryTime(args[0])
			if err != nil {
				return err
			}
			dir := strings.TrimSpace(dirFlag)
			if dir == "" {
				dir = cfg.Quality.BadnessDir
			}
			if dir == "" {
				return errors.New("no badness directory configured (set quality.badness_dir or pass --dir)")
			}

			intervals, err := badness.Intervals(dir)
			if err != nil {
				return err
			}
			selected, ok := badness.Nearest(intervals, query)
			if !ok {
				return fmt.Errorf("no badness files in %s", dir)
			}

			rows := make([][]string, 0, len(intervals))
			for _, iv := range intervals {
				marker := ""
				if iv.Name == selected.Name {
					marker = "*"
				}
				rows = append(rows, []string{
					marker,
					iv.Name,
					formatEpoch(iv.Begin),
					formatEpoch(iv.End),
					strconv.FormatFloat(iv.Distance(query), 'f', 0, 64),
				})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(
				[]string{"", "File", "Begin", "End", "Distance (s)"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
			))
			fmt.Fprintf(out, "Selected: %s\n", selected.Name)
			return nil
		},
	}

	cmd.Flags().StringVar(&dirFlag, "dir", "", "Badness directory (defaults to quality.badness_dir)")
	return cmd
}

func formatEpoch(epoch float64) string {
	return seismic.EpochToTime(epoch).UTC().Format(time.DateTime)
}
