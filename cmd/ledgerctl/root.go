package main

import (
	"os"

	"github.com/ArowuTest/loyalty-ledger/internal/config"
	"github.com/spf13/cobra"
	"golang.org/x/exp/slog"
)

var verbose bool

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "ledgerctl",
		Short:         "Loyalty ledger operator tool",
		Long:          "ledgerctl mints integration tokens and replays order exports into the loyalty ledger. Settings come from the same config.yaml and environment as the API.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		},
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")

	rootCmd.AddCommand(newTokenCmd(config.Load))
	rootCmd.AddCommand(newReplayCmd(config.Load))
	return rootCmd
}
