package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"emianalyzer/internal/storage"
)

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateDownCmd)
	migrateCmd.AddCommand(migrateVersionCmd)
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the SQLite schema",
	Long:  `Apply or roll back the embedded SQLite migrations at SQLITE_DB_PATH.`,
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMigrate(cmd, storage.Up)
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back the most recent migration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMigrate(cmd, storage.Down)
	},
}

var migrateVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the current schema version",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		version, dirty, err := storage.SchemaVersion(appConfig.SQLiteDBPath)
		if err != nil {
			return err
		}
		state := "clean"
		if dirty {
			state = "dirty"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "schema version %d (%s)\n", version, state)
		return nil
	},
}

func runMigrate(cmd *cobra.Command, dir storage.Direction) error {
	if err := storage.Migrate(appConfig.SQLiteDBPath, dir); err != nil {
		return err
	}
	appLogger.Info("Migrations applied", "direction", dir, "path", appConfig.SQLiteDBPath)
	return nil
}
