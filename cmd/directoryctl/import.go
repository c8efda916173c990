package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bluecatalog/directory-api/internal/database"
	"github.com/bluecatalog/directory-api/internal/entity"
	"github.com/bluecatalog/directory-api/internal/repository"
	"github.com/bluecatalog/directory-api/internal/service"
)

// readOnlyRecordStore lets a dry run exercise the full import pipeline while
// discarding writes.
type readOnlyRecordStore struct {
	repository.RecordRepository
}

func (s readOnlyRecordStore) BulkInsert(ctx context.Context, records []entity.CompanyRecord) (int, error) {
	return len(records), nil
}

func newImportCmd() *cobra.Command {
	var prefix string
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Import company records from a CSV export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if prefix != "" {
				cfg.RecordIDPrefix = prefix
			}

			file, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open csv file: %w", err)
			}
			defer file.Close()

			pool, err := database.Connect(ctx, cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer pool.Close()

			var repo repository.RecordRepository = repository.NewPGXRecordRepository(pool)
			if dryRun {
				repo = readOnlyRecordStore{RecordRepository: repo}
			}

			contacts := service.NewContactNormalizer(cfg.DefaultPhoneRegion)
			imports := service.NewImportService(repo, contacts, cfg.RecordIDPrefix)

			summary, err := imports.Import(ctx, file)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "processed: %d\nskipped:   %d\n", summary.Processed, summary.Skipped)
			for _, w := range summary.Warnings {
				fmt.Fprintf(out, "warning: row %d: %s\n", w.Row, w.Reason)
			}
			if dryRun {
				fmt.Fprintln(out, "dry run, nothing written")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&prefix, "prefix", "", "Record id prefix (defaults to RECORD_ID_PREFIX)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Parse and validate without writing records")
	return cmd
}
