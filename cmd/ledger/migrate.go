package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ledger/internal/cli"
	"ledger/internal/config"
	"ledger/internal/storage"
)

func newMigrateCmd() *cobra.Command {
	var dbPath string

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cli.LoadEnvFile()
			if dbPath == "" {
				dbPath = config.Load().SQLiteDBPath
			}
		},
	}
	migrateCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database path (default $SQLITE_DB_PATH)")

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all up migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := storage.RunMigrations(dbPath); err != nil {
				return fmt.Errorf("migrate up failed: %w", err)
			}
			return printVersion(cmd, dbPath)
		},
	})
	migrateCmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Print the applied schema version",
		RunE: func(cmd *cobra.Command, args []string) error {
			return printVersion(cmd, dbPath)
		},
	})
	return migrateCmd
}

func printVersion(cmd *cobra.Command, dbPath string) error {
	version, dirty, err := storage.MigrationVersion(dbPath)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "schema version %d (dirty=%t) at %s\n", version, dirty, dbPath)
	return nil
}
