package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var combineFormats []string

var combineCmd = &cobra.Command{
	Use:   "combine",
	Short: "Merge bus_stops.csv and mrt_lrt.csv into combined.csv",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		formats, err := resolveFormats(combineFormats)
		if err != nil {
			return err
		}

		env, err := initPipeline(ctx, true)
		if err != nil {
			return err
		}
		defer env.Close()

		res, err := env.Pipeline.Combine(ctx, formats)
		if err != nil {
			return err
		}
		return printResults(cmd.OutOrStdout(), res)
	},
}

func init() {
	combineCmd.Flags().StringSliceVar(&combineFormats, "format", nil, "extra export formats: geojson, shp, xlsx (overrides output.formats)")
	rootCmd.AddCommand(combineCmd)
}
