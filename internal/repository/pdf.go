package repository

import (
	"context"

	"pdfstore/internal/model"
)

// PdfRepository persists PDF metadata records. No business logic here.
type PdfRepository interface {
	// Create inserts a new record. Any ID on the input is ignored: the database
	// generates a fresh identifier, returned on the stored record.
	Create(ctx context.Context, rec *model.PdfRecord) (*model.PdfRecord, error)
}
