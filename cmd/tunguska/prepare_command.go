package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"tunguska/internal/ledger"
	"tunguska/internal/logging"
	"tunguska/internal/metrics"
	"tunguska/internal/preflight"
	"tunguska/internal/prepare"
)

func newPrepareCommand(ctx *commandContext) *cobra.Command {
	var skipPreflight bool

	cmd := &cobra.Command{
		Use:   "prepare EVENT...",
		Short: "Prepare kiwi/rapid datasets for the named events",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			if !skipPreflight {
				if failed := preflight.Failed(preflight.RunAll(cfg)); len(failed) > 0 {
					msgs := make([]string, 0, len(failed))
					for _, r := range failed {
						msgs = append(msgs, fmt.Sprintf("%s: %s", r.Name, r.Detail))
					}
					return fmt.Errorf("preflight failed:\n  %s", strings.Join(msgs, "\n  "))
				}
			}

			lock, err := prepare.AcquireLock(cfg.LockPath())
			if err != nil {
				return err
			}
			defer func() {
				if err := lock.Release(); err != nil {
					logger.Warn("failed to release run lock", logging.Error(err))
				}
			}()

			store, err := ledger.Open(cmd.Context(), cfg.Paths.LedgerPath)
			if err != nil {
				return fmt.Errorf("open ledger: %w", err)
			}
			defer store.Close()

			pipeline, err := prepare.New(cfg, prepare.Options{
				Logger:     logger,
				Ledger:     store,
				Metrics:    metrics.New(),
				ConfigPath: ctx.configPath,
			})
			if err != nil {
				return err
			}

			summary, runErr := pipeline.Run(cmd.Context(), args)
			out := cmd.OutOrStdout()
			if len(summary.Events) > 0 {
				fmt.Fprintln(out, renderSummary(summary, shouldColorize(out)))
			}
			if summary.RunID != "" {
				fmt.Fprintf(out, "Run %s\n", summary.RunID)
			}
			if runErr != nil {
				return fmt.Errorf("prepare: %w", runErr)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&skipPreflight, "skip-preflight", false, "Skip filesystem checks before the run")
	return cmd
}

func renderSummary(summary prepare.Summary, colorize bool) string {
	rows := make([][]string, 0, len(summary.Events))
	for _, ev := range summary.Events {
		rows = append(rows, []string{
			ev.Name,
			colorStatus(string(ev.Status), colorize),
			strconv.Itoa(ev.Stations),
			strconv.Itoa(ev.Accepted),
			strconv.Itoa(ev.Rejected),
			strings.Join(ev.Exporters, ","),
			ev.Duration.Round(time.Millisecond).String(),
		})
	}
	return renderTable(
		[]string{"Event", "Status", "Stations", "Accepted", "Rejected", "Exporters", "Elapsed"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft, alignRight},
	)
}
