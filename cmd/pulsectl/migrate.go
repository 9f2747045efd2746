package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/okian/pulse/internal/adapters/repository/postgres"
	"github.com/okian/pulse/internal/config"
	"github.com/okian/pulse/pkg/logger"
)

// migrateTarget is the version to roll back to; zero rolls back one step
var migrateTarget int64

func init() {
	migrateDownCmd.Flags().Int64Var(&migrateTarget, "to", 0, "roll back to this version (default: one step)")
	migrateCmd.AddCommand(migrateUpCmd, migrateStatusCmd, migrateDownCmd)
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the postgres schema",
	Long: `Apply or roll back the embedded schema migrations.

The database is taken from PULSE_DATABASE_URL or the file named by PULSE_CONFIG.

Examples:
  # Apply pending migrations
  PULSE_DATABASE_URL=postgres://pulse@localhost/pulse pulsectl migrate up

  # Show applied and pending migrations
  pulsectl migrate status

  # Roll back to version 1
  pulsectl migrate down --to 1`,
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply pending migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		m, err := newMigrator(cmd)
		if err != nil {
			return err
		}
		if err := m.Up(cmd.Context()); err != nil {
			return err
		}
		return printVersion(cmd, m)
	},
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show migration status",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		m, err := newMigrator(cmd)
		if err != nil {
			return err
		}
		if err := m.Status(cmd.Context()); err != nil {
			return err
		}
		return printVersion(cmd, m)
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		m, err := newMigrator(cmd)
		if err != nil {
			return err
		}
		if err := m.Down(cmd.Context(), migrateTarget); err != nil {
			return err
		}
		return printVersion(cmd, m)
	},
}

func newMigrator(cmd *cobra.Command) (postgres.Migrator, error) {
	cfg, err := config.Load(cmd.Context())
	if err != nil {
		return postgres.Migrator{}, err
	}
	if cfg.DatabaseURL == "" {
		return postgres.Migrator{}, fmt.Errorf("%w: database_url is not set", config.ErrInvalidConfig)
	}
	return postgres.NewMigrator(cfg.DatabaseURL, logger.Named("migrate"))
}

func printVersion(cmd *cobra.Command, m postgres.Migrator) error {
	v, err := m.Version(cmd.Context())
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "schema version: %d\n", v)
	return err
}
