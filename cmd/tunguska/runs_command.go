package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"tunguska/internal/ledger"
)

func newRunsCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs [RUN_ID]",
		Short: "List recorded preparation runs, or the events of one run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := ledger.Open(cmd.Context(), cfg.Paths.LedgerPath)
			if err != nil {
				return fmt.Errorf("open ledger: %w", err)
			}
			defer store.Close()

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			if len(args) == 1 {
				events, err := store.EventRuns(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if len(events) == 0 {
					fmt.Fprintf(out, "No events recorded for run %s\n", args[0])
					return nil
				}
				fmt.Fprintln(out, renderEventRuns(events, colorize))
				return nil
			}

			runs, err := store.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded")
				return nil
			}
			fmt.Fprintln(out, renderRuns(runs, colorize))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to list (0 for all)")
	return cmd
}

func renderRuns(runs []ledger.Run, colorize bool) string {
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		finished := "-"
		if run.FinishedAt != nil {
			finished = run.FinishedAt.Local().Format(time.DateTime)
		}
		rows = append(rows, []string{
			run.ID,
			colorStatus(string(run.Status), colorize),
			run.StartedAt.Local().Format(time.DateTime),
			finished,
			strconv.Itoa(run.Events),
		})
	}
	return renderTable(
		[]string{"Run", "Status", "Started", "Finished", "Events"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
	)
}

func renderEventRuns(events []ledger.EventRun, colorize bool) string {
	rows := make([][]string, 0, len(events))
	for _, ev := range events {
		rows = append(rows, []string{
			ev.EventName,
			colorStatus(string(ev.Status), colorize),
			strconv.Itoa(ev.Stations),
			strconv.Itoa(ev.Accepted),
			strconv.Itoa(ev.Rejected),
			ev.Exporters,
			ev.Duration.String(),
			ev.Error,
		})
	}
	return renderTable(
		[]string{"Event", "Status", "Stations", "Accepted", "Rejected", "Exporters", "Elapsed", "Error"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft, alignRight, alignLeft},
	)
}
