// Package main implements pulsectl, the operator CLI for the pulse service.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/okian/pulse/pkg/logger"
)

var (
	// logLevel overrides the configured verbosity for CLI runs
	logLevel string
	// version information
	version = "dev"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "pulsectl",
	Short: "Operator CLI for the pulse feedback service",
	Long: `pulsectl manages a pulse deployment: schema migrations, team seeding,
theme dictionary checks and end-to-end round simulations.`,
	Version:       version,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if err := logger.Init(logger.WithOutput(cmd.ErrOrStderr()), logger.WithFormat(logger.FormatText)); err != nil {
			return err
		}
		return logger.SetLevelString(logLevel)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(themesCmd)
	rootCmd.AddCommand(simulateCmd)
}
