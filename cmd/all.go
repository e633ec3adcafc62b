package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sgtransit/stops-cli/internal/pipeline"
)

var (
	allOffline bool
	allFormats []string
)

var allCmd = &cobra.Command{
	Use:   "all",
	Short: "Run stations, busstops, and combine in order",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		formats, err := resolveFormats(allFormats)
		if err != nil {
			return err
		}
		if !allOffline {
			if err := requireAccountKey(); err != nil {
				return err
			}
		}

		env, err := initPipeline(ctx, allOffline)
		if err != nil {
			return err
		}
		defer env.Close()

		results, err := env.Pipeline.RunAll(ctx, pipeline.Options{
			Offline: allOffline,
			Formats: formats,
		})
		if printErr := printResults(cmd.OutOrStdout(), results...); printErr != nil && err == nil {
			err = printErr
		}
		return err
	},
}

func init() {
	allCmd.Flags().BoolVar(&allOffline, "offline", false, "reload snapshots instead of querying OneMap and DataMall")
	allCmd.Flags().StringSliceVar(&allFormats, "format", nil, "extra export formats: geojson, shp, xlsx (overrides output.formats)")
	rootCmd.AddCommand(allCmd)
}
