package cmd

import (
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/templui/goaltrack/internal/db"
)

func MigrateCmd() *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database schema migrations",
	}

	migrateCmd.AddCommand(
		migrateSubcommand("up", "Apply all pending migrations", db.RunMigrations),
		migrateSubcommand("down", "Roll back the latest migration", db.MigrateDown),
		migrateSubcommand("status", "Show applied and pending migrations", db.MigrationStatus),
	)

	return migrateCmd
}

func migrateSubcommand(use, short string, run func(*sql.DB, string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()

			database, err := db.Init(cfg.DBDriver, cfg.DBConnection)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer database.Close()

			return run(database.DB, cfg.DBDriver)
		},
	}
}
