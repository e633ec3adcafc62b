package main

import (
	"os"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sgtransit/stops-cli/internal/config"
)

var (
	cfg   *config.Config
	runID string
)

var rootCmd = &cobra.Command{
	Use:   "stops-cli",
	Short: "Build Singapore bus stop and MRT/LRT station tables",
	Long:  "Pulls bus stops and rail stations from OneMap and LTA DataMall, projects SVY21 to WGS84, and writes bus_stops.csv, mrt_lrt.csv, and combined.csv.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return eris.Wrap(err, "init logger")
		}

		runID = uuid.NewString()
		zap.ReplaceGlobals(zap.L().With(zap.String("run_id", runID)))

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
