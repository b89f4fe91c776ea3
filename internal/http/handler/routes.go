package handler

import (
	"database/sql"

	"github.com/gofiber/fiber/v2"

	"pdfstore/internal/service"
)

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
func RegisterRoutes(app *fiber.App, db *sql.DB, ingestSvc service.IngestService) {
	app.Get("/health", HealthCheck(db))
	app.Get("/healthz", LivenessProbe())

	v1 := app.Group("/api/v1")
	v1.Post("/pdfs", UploadPdfs(ingestSvc))
}
