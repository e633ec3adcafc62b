package main

import (
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and prune the HTTP response cache",
}

// -- cache stats --

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show response cache size and age",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		stats, err := st.Stats(ctx)
		if err != nil {
			return eris.Wrap(err, "cache stats")
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "path:    %s\n", cfg.Fetch.CachePath())
		fmt.Fprintf(out, "entries: %d\n", stats.Entries)
		fmt.Fprintf(out, "bytes:   %d\n", stats.Bytes)
		if stats.Entries > 0 {
			fmt.Fprintf(out, "oldest:  %s\n", stats.Oldest.Format(time.RFC3339))
			fmt.Fprintf(out, "newest:  %s\n", stats.Newest.Format(time.RFC3339))
		}
		return nil
	},
}

// -- cache clear --

var cacheClearOlderThan time.Duration

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete cached responses",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		var n int
		if cacheClearOlderThan > 0 {
			n, err = st.DeleteResponsesBefore(ctx, time.Now().Add(-cacheClearOlderThan))
		} else {
			n, err = st.ClearResponses(ctx)
		}
		if err != nil {
			return eris.Wrap(err, "cache clear")
		}

		zap.L().Info("cache cleared",
			zap.Int("deleted", n),
			zap.Duration("older_than", cacheClearOlderThan),
		)
		fmt.Fprintf(cmd.OutOrStdout(), "deleted %d cached responses\n", n)
		return nil
	},
}

func init() {
	cacheClearCmd.Flags().DurationVar(&cacheClearOlderThan, "older-than", 0, "only delete entries fetched before now minus this duration (e.g. 72h)")

	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}
