package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	busStopsOffline     bool
	busStopsConcurrency int
)

var busStopsCmd = &cobra.Command{
	Use:   "busstops",
	Short: "Fetch bus stops from OneMap and DataMall and write bus_stops.csv",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if cmd.Flags().Changed("concurrency") {
			cfg.Fetch.Concurrency = busStopsConcurrency
		}
		if !busStopsOffline {
			if err := requireAccountKey(); err != nil {
				return err
			}
		}

		env, err := initPipeline(ctx, busStopsOffline)
		if err != nil {
			return err
		}
		defer env.Close()

		res, err := env.Pipeline.BusStops(ctx, busStopsOffline)
		if err != nil {
			return err
		}
		return printResults(cmd.OutOrStdout(), res)
	},
}

func init() {
	busStopsCmd.Flags().BoolVar(&busStopsOffline, "offline", false, "reload the last bus stop snapshot instead of querying OneMap and DataMall")
	busStopsCmd.Flags().IntVar(&busStopsConcurrency, "concurrency", 1, "number of code prefixes fetched in parallel (overrides fetch.concurrency)")
	rootCmd.AddCommand(busStopsCmd)
}
