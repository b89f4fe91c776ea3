// Package app assembles the ingestion pipeline from configuration. It is shared
// by the HTTP server and the pdfctl command.
package app

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"pdfstore/internal/config"
	"pdfstore/internal/database"
	"pdfstore/internal/database/migration"
	"pdfstore/internal/metrics"
	"pdfstore/internal/pdf"
	"pdfstore/internal/repository/postgres"
	"pdfstore/internal/service"
	"pdfstore/internal/storage"
)

// Components are the wired dependencies of a running pdfstore process.
type Components struct {
	DB     *sql.DB
	Store  storage.Storage
	Ingest service.IngestService
}

// Build validates cfg, connects to the database, applies the schema and wires
// the ingestion service. reg may be nil to skip metrics.
func Build(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger, reg prometheus.Registerer) (*Components, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	store, err := storage.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := migration.EnsureMigrated(ctx, db, logger, cfg.Database.Host); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	var m *metrics.IngestMetrics
	if reg != nil {
		if m, err = metrics.NewIngestMetrics(reg); err != nil {
			db.Close()
			return nil, fmt.Errorf("register ingest metrics: %w", err)
		}
	}

	svc := service.NewIngestService(pdf.NewRenderer(), postgres.NewPdfPostgres(db), store, logger, m)
	return &Components{DB: db, Store: store, Ingest: svc}, nil
}

// Close releases the database pool.
func (c *Components) Close() error {
	return c.DB.Close()
}
