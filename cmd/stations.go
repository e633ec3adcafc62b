package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var stationsOffline bool

var stationsCmd = &cobra.Command{
	Use:   "stations",
	Short: "Fetch MRT/LRT stations from OneMap and write mrt_lrt.csv",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx, stationsOffline)
		if err != nil {
			return err
		}
		defer env.Close()

		res, err := env.Pipeline.Stations(ctx, stationsOffline)
		if err != nil {
			return err
		}
		return printResults(cmd.OutOrStdout(), res)
	},
}

func init() {
	stationsCmd.Flags().BoolVar(&stationsOffline, "offline", false, "reload the last station snapshot instead of querying OneMap")
	rootCmd.AddCommand(stationsCmd)
}
