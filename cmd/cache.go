package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the response cache",
}

var cachePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete expired cache entries",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "cache")
		if err != nil {
			return err
		}
		defer env.Close()

		n, err := env.Cache.DeleteExpired(ctx)
		if err != nil {
			return eris.Wrap(err, "cache prune")
		}

		zap.L().Info("pruned cache", zap.String("driver", cfg.Cache.Driver), zap.Int("deleted", n))
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d expired entries\n", n)
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cachePruneCmd)
	rootCmd.AddCommand(cacheCmd)
}
