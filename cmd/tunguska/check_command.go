package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"tunguska/internal/preflight"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check that configured inputs and output directories are usable",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			results := preflight.RunAll(cfg)
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderPreflight(results, shouldColorize(out)))

			if failed := preflight.Failed(results); len(failed) > 0 {
				return fmt.Errorf("%d preflight check(s) failed", len(failed))
			}
			return nil
		},
	}
}

func renderPreflight(results []preflight.Result, colorize bool) string {
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		status := "passed"
		if !r.Passed {
			status = "failed"
		}
		rows = append(rows, []string{r.Name, colorStatus(status, colorize), r.Detail})
	}
	return renderTable([]string{"Check", "Status", "Detail"}, rows, nil)
}
