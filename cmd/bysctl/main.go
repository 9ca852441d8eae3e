// Package main は運用・検証用のコマンドラインツール bysctl です。
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"before_you_sign/internal/platform/config"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:          "bysctl",
		Short:        "Command line tools for Before You Sign",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "Config file path (YAML)")

	cmd.AddCommand(
		assessCmd(&configPath),
		purgeCachesCmd(&configPath),
		tokenCmd(&configPath),
	)
	return cmd
}
