package migration

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"
)

type migrationStep struct {
	Name string
	SQL  string
}

var steps = []migrationStep{
	{
		Name: "create_extension_uuid_ossp",
		SQL:  `CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
	},
	{
		Name: "create_table_pdfs",
		SQL: `CREATE TABLE IF NOT EXISTS pdfs (
  id           UUID        PRIMARY KEY DEFAULT uuid_generate_v4(),
  file_name    TEXT        NOT NULL CHECK (file_name <> ''),
  title        TEXT,
  author       TEXT,
  comments     TEXT,
  pages        INTEGER     NOT NULL DEFAULT 0 CHECK (pages >= 0),
  thumbnail    TEXT,
  content_hash TEXT,
  created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_index_pdfs_created_at",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_pdfs_created_at ON pdfs (created_at);`,
	},
}

// EnsureMigrated checks whether the 'pdfs' table exists and runs the schema steps if it doesn't.
func EnsureMigrated(ctx context.Context, db *sql.DB, logger *zap.Logger, dbHost string) error {
	start := time.Now()
	log := logger.With(zap.String("component", "database"), zap.String("db_host", dbHost))

	log.Info("db_migration_check", zap.String("status", "starting"))

	var exists bool
	query := "SELECT to_regclass('public.pdfs') IS NOT NULL"
	if err := db.QueryRowContext(ctx, query).Scan(&exists); err != nil {
		log.Error("db_migration_failed",
			zap.String("status", "error"),
			zap.Error(err),
			zap.Duration("duration_ms", time.Since(start)),
		)
		return fmt.Errorf("failed to check sentinel table: %w", err)
	}

	if exists {
		log.Info("db_migration_skip",
			zap.String("status", "success"),
			zap.Duration("duration_ms", time.Since(start)),
		)
		return nil
	}

	log.Info("db_migration_start", zap.String("status", "in_progress"))

	for _, step := range steps {
		stepStart := time.Now()
		if _, err := db.ExecContext(ctx, step.SQL); err != nil {
			log.Error("db_migration_failed",
				zap.String("status", "error"),
				zap.String("migration_step", step.Name),
				zap.Error(err),
				zap.Duration("duration_ms", time.Since(start)),
				zap.Duration("step_duration_ms", time.Since(stepStart)),
			)
			return fmt.Errorf("migration step %s failed: %w", step.Name, err)
		}

		log.Info("db_migration_step",
			zap.String("status", "success"),
			zap.String("migration_step", step.Name),
			zap.Duration("step_duration_ms", time.Since(stepStart)),
		)
	}

	log.Info("db_migration_success",
		zap.String("status", "success"),
		zap.Duration("duration_ms", time.Since(start)),
	)
	return nil
}
