package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration with credentials masked",
	RunE: func(cmd *cobra.Command, _ []string) error {
		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		if err := enc.Encode(cfg.Redacted()); err != nil {
			return eris.Wrap(err, "encode config")
		}
		if err := enc.Close(); err != nil {
			return eris.Wrap(err, "encode config")
		}
		return cfg.Validate()
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
}
