package main

import (
	"github.com/spf13/cobra"

	"github.com/dtroode/studyvault-server/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}
		if err := requirePostgres(cfg, "migrate"); err != nil {
			return err
		}
		if err := database.Migrate(cmd.Context(), cfg.Database.DSN); err != nil {
			return err
		}
		log.Info("migrations applied")
		return nil
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back the most recent migration",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}
		if err := requirePostgres(cfg, "migrate"); err != nil {
			return err
		}
		if err := database.Rollback(cmd.Context(), cfg.Database.DSN); err != nil {
			return err
		}
		log.Info("migration rolled back")
		return nil
	},
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show applied and pending migrations",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		if err := requirePostgres(cfg, "migrate"); err != nil {
			return err
		}
		return database.Status(cmd.Context(), cfg.Database.DSN)
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateStatusCmd)
}
