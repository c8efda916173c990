package main

import (
	"fmt"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/spf13/cobra"
)

func newMigrateCmd() *cobra.Command {
	var migrationsDir string

	cmd := &cobra.Command{
		Use:       "migrate [up|down|version]",
		Short:     "Apply database migrations",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"up", "down", "version"},
		RunE: func(cmd *cobra.Command, args []string) error {
			action := "up"
			if len(args) > 0 {
				action = args[0]
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			absDir, err := filepath.Abs(migrationsDir)
			if err != nil {
				return fmt.Errorf("resolve path for %s: %w", migrationsDir, err)
			}

			m, err := migrate.New("file://"+filepath.ToSlash(absDir), cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("create migrate instance: %w", err)
			}
			defer m.Close()

			out := cmd.OutOrStdout()
			switch action {
			case "up":
				if err := m.Up(); err != nil && err != migrate.ErrNoChange {
					return err
				}
				fmt.Fprintln(out, "migrations applied")
			case "down":
				if err := m.Down(); err != nil && err != migrate.ErrNoChange {
					return err
				}
				fmt.Fprintln(out, "migrations reverted")
			case "version":
				version, dirty, err := m.Version()
				if err != nil {
					if err == migrate.ErrNilVersion {
						fmt.Fprintln(out, "no migration applied")
						return nil
					}
					return err
				}
				fmt.Fprintf(out, "version=%d dirty=%t\n", version, dirty)
			default:
				return fmt.Errorf("unknown action %q", action)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&migrationsDir, "dir", "migrations", "Directory containing migration files")
	return cmd
}
