package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yourusername/todo-api/pkg/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply or roll back SQL migrations",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	Args:  cobra.NoArgs,
	RunE: withMigrator(func(e *env, m *migrate.Migrate, args []string) error {
		err := m.Up()
		if errors.Is(err, migrate.ErrNoChange) {
			e.log.Info("no new migrations to apply")
			return nil
		}
		if err != nil {
			return fmt.Errorf("migrate up: %w", err)
		}
		return logVersion(e, m)
	}),
}

var migrateDownCmd = &cobra.Command{
	Use:   "down [steps]",
	Short: "Roll back migrations (one step by default)",
	Args:  cobra.MaximumNArgs(1),
	RunE: withMigrator(func(e *env, m *migrate.Migrate, args []string) error {
		steps := 1
		if len(args) == 1 {
			n, err := strconv.Atoi(args[0])
			if err != nil || n < 1 {
				return fmt.Errorf("steps must be a positive integer, got %q", args[0])
			}
			steps = n
		}
		err := m.Steps(-steps)
		if errors.Is(err, migrate.ErrNoChange) {
			e.log.Info("nothing to roll back")
			return nil
		}
		if err != nil {
			return fmt.Errorf("migrate down: %w", err)
		}
		return logVersion(e, m)
	}),
}

var migrateForceCmd = &cobra.Command{
	Use:   "force <version>",
	Short: "Set the migration version without running migrations and clear the dirty flag",
	Args:  cobra.ExactArgs(1),
	RunE: withMigrator(func(e *env, m *migrate.Migrate, args []string) error {
		v, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("version must be an integer, got %q", args[0])
		}
		if err := m.Force(v); err != nil {
			return fmt.Errorf("migrate force: %w", err)
		}
		return logVersion(e, m)
	}),
}

var migrateVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the current migration version",
	Args:  cobra.NoArgs,
	RunE: withMigrator(func(e *env, m *migrate.Migrate, args []string) error {
		return logVersion(e, m)
	}),
}

func init() {
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateForceCmd, migrateVersionCmd)
}

func withMigrator(fn func(e *env, m *migrate.Migrate, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		e, err := openEnv()
		if err != nil {
			return err
		}
		defer e.Close()

		m, err := database.NewMigrator(e.db, e.cfg.Database.MigrationsPath)
		if err != nil {
			return err
		}
		return fn(e, m, args)
	}
}

func logVersion(e *env, m *migrate.Migrate) error {
	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		e.log.Info("database has no migrations applied")
		return nil
	}
	if err != nil {
		return fmt.Errorf("read migration version: %w", err)
	}
	e.log.Info("migration version", zap.Uint("version", version), zap.Bool("dirty", dirty))
	return nil
}
