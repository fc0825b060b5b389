package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dejobratic/ordersync/internal/database"
)

func newDBCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Database schema management",
	}

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply every pending migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := setup(cmd)
			if err != nil {
				return err
			}
			if err := database.RunMigrations(cfg.Database.URL, cfg.Database.MigrationsPath); err != nil {
				return err
			}
			logger.InfoContext(cmd.Context(), "migrations applied", "path", cfg.Database.MigrationsPath)
			return nil
		},
	}

	down := &cobra.Command{
		Use:   "down",
		Short: "Revert the most recent migrations",
		Long: `Revert the most recent migrations.
WARNING: reverting the sync tables deletes every sync record and its history.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			steps, _ := cmd.Flags().GetInt("steps")
			if steps <= 0 {
				return fmt.Errorf("--steps must be positive")
			}
			cfg, logger, err := setup(cmd)
			if err != nil {
				return err
			}
			if err := database.RollbackMigrations(cfg.Database.URL, cfg.Database.MigrationsPath, steps); err != nil {
				return err
			}
			logger.WarnContext(cmd.Context(), "migrations reverted", "steps", steps)
			return nil
		},
	}
	down.Flags().Int("steps", 1, "Number of migrations to revert")

	version := &cobra.Command{
		Use:   "version",
		Short: "Show the current schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := setup(cmd)
			if err != nil {
				return err
			}
			v, dirty, ok, err := database.MigrationVersion(cfg.Database.URL, cfg.Database.MigrationsPath)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"version": v,
				"dirty":   dirty,
				"applied": ok,
			})
		},
	}

	cmd.AddCommand(up, down, version)
	return cmd
}
