// Package cli implements the pdfctl command.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"pdfstore/internal/app"
	"pdfstore/internal/config"
	"pdfstore/internal/database"
	"pdfstore/internal/database/migration"
	"pdfstore/internal/logging"
	"pdfstore/internal/service"
)

var Version = "dev"

// Replaced in tests.
var (
	loadConfig = config.Load

	buildIngester = func(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger) (service.IngestService, func() error, error) {
		c, err := app.Build(ctx, cfg, logger, nil)
		if err != nil {
			return nil, nil, err
		}
		return c.Ingest, c.Close, nil
	}

	runMigrations = func(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger) error {
		db, err := database.NewPostgres(ctx, cfg.Database)
		if err != nil {
			return err
		}
		defer db.Close()
		return migration.EnsureMigrated(ctx, db, logger, cfg.Database.Host)
	}
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "pdfctl",
		Short:         "Operate a pdfstore deployment from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newIngestCmd(), newMigrateCmd(), newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "pdfctl %s\n", Version)
		},
	}
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the pdfs table if it does not exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			logger, err := commandLogger(cmd, cfg)
			if err != nil {
				return err
			}
			defer logger.Sync()
			return runMigrations(cmd.Context(), cfg, logger)
		},
	}
}

// commandLogger logs to stderr so stdout carries only command output.
func commandLogger(cmd *cobra.Command, cfg *config.AppConfig) (*zap.Logger, error) {
	return logging.New(cfg.LogLevel, cmd.ErrOrStderr(), logging.Location(cfg.Timezone))
}

// Execute runs pdfctl with the process arguments.
func Execute(ctx context.Context) error {
	root := newRootCmd()
	err := root.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(root.ErrOrStderr(), "Error:", err)
	}
	return err
}
