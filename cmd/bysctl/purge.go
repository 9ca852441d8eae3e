package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"before_you_sign/internal/app/di"
	"before_you_sign/internal/platform/config"
	"before_you_sign/internal/platform/logging"
)

func purgeCachesCmd(configPath *string) *cobra.Command {
	var (
		olderThan time.Duration
		ownOnly   bool
	)

	cmd := &cobra.Command{
		Use:   "purge-caches",
		Short: "Delete cached documents left on the model API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			logging.Setup("bysctl", "warn")

			client, err := di.NewGeminiClient(cmd.Context(), cfg, nil)
			if err != nil {
				return err
			}

			purger := client.Purger()
			if ownOnly {
				purger = client.OwnCachePurger()
			}
			n, err := purger.Purge(cmd.Context(), olderThan)
			if err != nil {
				return fmt.Errorf("deleted %d before failing: %w", n, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), purgeMessage(n))
			return nil
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 0, "Only delete caches created before this long ago (0 deletes all)")
	cmd.Flags().BoolVar(&ownOnly, "own-only", false, "Only delete caches created by this service")
	return cmd
}

func purgeMessage(n int) string {
	if n == 0 {
		return "No caches"
	}
	return fmt.Sprintf("Deleted %d", n)
}
