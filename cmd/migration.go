package cmd

import (
	"errors"
	"fmt"

	"trading-dashboard/config"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/spf13/cobra"
)

func runMigrations(cfg *config.Config, direction string) error {
	m, err := migrate.New(cfg.DB.MigrationsPath, cfg.DB.MigrateURL())
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}
	defer func() {
		srcErr, dbErr := m.Close()
		if srcErr != nil {
			fmt.Printf("Migration source error on close: %v\n", srcErr)
		}
		if dbErr != nil {
			fmt.Printf("Migration database error on close: %v\n", dbErr)
		}
	}()

	var migrationErr error
	switch direction {
	case "up":
		migrationErr = m.Up()
	case "down":
		migrationErr = m.Steps(-1)
	default:
		return fmt.Errorf("unknown migration direction %q", direction)
	}

	if migrationErr != nil && !errors.Is(migrationErr, migrate.ErrNoChange) {
		return fmt.Errorf("migration %s failed: %w", direction, migrationErr)
	}
	return nil
}

func migrationCommand(direction string) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		if err := runMigrations(cfg, direction); err != nil {
			return err
		}
		if direction == "up" {
			fmt.Println("Applied migrations successfully.")
		} else {
			fmt.Println("Reverted last migration successfully.")
		}
		return nil
	}
}

var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all available database migrations",
	RunE:  migrationCommand("up"),
}

var downCmd = &cobra.Command{
	Use:   "down",
	Short: "Revert the last database migration",
	RunE:  migrationCommand("down"),
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the relational schema",
}

func init() {
	migrateCmd.AddCommand(upCmd)
	migrateCmd.AddCommand(downCmd)
}
