package postgres

import (
	"context"
	"database/sql"

	"pdfstore/internal/model"
	"pdfstore/internal/repository"
)

// PdfPostgres is a PostgreSQL implementation of repository.PdfRepository.
// Each Create is a single INSERT ... RETURNING statement, so concurrent saves
// from different ingestion tasks never observe or overwrite each other's rows.
type PdfPostgres struct {
	db *sql.DB
}

// NewPdfPostgres creates a new PdfPostgres repository.
func NewPdfPostgres(db *sql.DB) *PdfPostgres {
	return &PdfPostgres{db: db}
}

var _ repository.PdfRepository = (*PdfPostgres)(nil)

// Create inserts a metadata row and returns it with the generated id and timestamp.
func (r *PdfPostgres) Create(ctx context.Context, rec *model.PdfRecord) (*model.PdfRecord, error) {
	const q = `
		INSERT INTO pdfs (file_name, title, author, comments, pages, thumbnail, content_hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, file_name, title, author, comments, pages, thumbnail, content_hash, created_at
	`
	row := r.db.QueryRowContext(ctx, q,
		rec.FileName,
		nullString(rec.Title),
		nullString(rec.Author),
		nullString(rec.Comments),
		rec.Pages,
		nullString(rec.Thumbnail),
		nullString(rec.ContentHash),
	)

	var (
		out                                      model.PdfRecord
		title, author, comments, thumb, contentH sql.NullString
	)
	if err := row.Scan(
		&out.ID,
		&out.FileName,
		&title,
		&author,
		&comments,
		&out.Pages,
		&thumb,
		&contentH,
		&out.CreatedAt,
	); err != nil {
		return nil, err
	}
	out.Title = stringPtr(title)
	out.Author = stringPtr(author)
	out.Comments = stringPtr(comments)
	out.Thumbnail = stringPtr(thumb)
	out.ContentHash = stringPtr(contentH)
	return &out, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
