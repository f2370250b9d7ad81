package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"tunguska/internal/accessor/registry"
	"tunguska/internal/config"
	"tunguska/internal/selection"
)

func newStationsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stations EVENT",
		Short: "List the stations of an event with distance and back-azimuth",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			dir, err := config.Expand(cfg.Accessor.DataDir, config.Vars{config.VarEventName: args[0]})
			if err != nil {
				return err
			}
			acc, err := registry.Open(cfg.Accessor.Kind, registry.Options{Dir: dir, Args: cfg.Accessor.Args, Logger: logger})
			if err != nil {
				return err
			}
			events, err := acc.Events(cmd.Context())
			if err != nil {
				return err
			}
			if len(events) == 0 {
				return errors.New("no event information in " + dir)
			}
			ev := events[0]
			stations, err := acc.Stations(cmd.Context(), &ev)
			if err != nil {
				return err
			}
			kept := selection.DedupStations(stations)

			rows := make([][]string, 0, len(stations))
			for _, st := range selection.SortByDistance(stations) {
				channels := make([]string, 0, len(st.Channels))
				for _, ch := range st.Channels {
					channels = append(channels, ch.Name)
				}
				_, isKept := kept[st.NSL()]
				rows = append(rows, []string{
					st.NSL().String(),
					strconv.FormatFloat(st.Latitude, 'f', 4, 64),
					strconv.FormatFloat(st.Longitude, 'f', 4, 64),
					strconv.FormatFloat(st.Distance/1000, 'f', 1, 64),
					strconv.FormatFloat(st.Backazimuth, 'f', 1, 64),
					strings.Join(channels, ","),
					yesNo(isKept),
				})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(
				[]string{"Station", "Lat", "Lon", "Distance (km)", "Back-azimuth", "Channels", "Kept"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight, alignLeft, alignLeft},
			))
			fmt.Fprintf(out, "%d stations, %d after deduplication\n", len(stations), len(kept))
			return nil
		},
	}
}
