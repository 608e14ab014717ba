package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"cashbook/internal/storage"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long: `Apply every pending schema migration to the configured SQL backend.

The default categories are seeded by the first migration, so running this
command on an existing database is always safe.`,
		RunE: runMigrate,
	}
	cmd.Flags().Bool("status", false, "Show the applied schema version without changing anything")
	return cmd
}

// migrationTarget resolves the dialect and DSN of the configured backend.
func migrationTarget() (storage.Dialect, string, error) {
	switch cfg.DataBackend {
	case "sqlite":
		if err := os.MkdirAll(filepath.Dir(cfg.SQLiteDBPath), 0o755); err != nil {
			return "", "", fmt.Errorf("create db directory: %w", err)
		}
		return storage.DialectSQLite, cfg.SQLiteDBPath, nil
	case "postgres":
		return storage.DialectPostgres, cfg.DatabaseURL, nil
	default:
		return "", "", fmt.Errorf("backend %q has no schema to migrate", cfg.DataBackend)
	}
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	status, _ := cmd.Flags().GetBool("status")

	dialect, dsn, err := migrationTarget()
	if err != nil {
		return err
	}

	if !status {
		logger.Info("Running database migrations", "dialect", dialect)
		if err := storage.RunMigrations(dialect, dsn); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	version, dirty, err := storage.MigrationVersion(dialect, dsn)
	if err != nil {
		return fmt.Errorf("read migration version: %w", err)
	}
	state := "clean"
	if dirty {
		state = "dirty"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s schema version %d (%s)\n", headerStyle.Render(string(dialect)), version, state)
	return nil
}
