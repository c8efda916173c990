package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/joho/godotenv/autoload"
	"github.com/spf13/cobra"

	"github.com/bluecatalog/directory-api/internal/config"
)

var configFile string

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd := newRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "directoryctl: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "directoryctl",
		Short: "Company directory administration CLI",
		Long: `directoryctl runs directory maintenance tasks from the shell: bulk-importing
company records from CSV exports and applying database migrations.`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Optional YAML config file overriding environment values")
	cmd.AddCommand(
		newImportCmd(),
		newMigrateCmd(),
	)
	return cmd
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if configFile != "" {
		if err := cfg.ApplyFile(configFile); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}
