package model

import "time"

// PdfRecord is the stored metadata of one uploaded PDF.
// ID is assigned by the metadata store and never changes afterwards.
// Optional fields are nil when absent.
type PdfRecord struct {
	ID          string    `json:"id"`
	FileName    string    `json:"file_name"`
	Title       *string   `json:"title,omitempty"`
	Author      *string   `json:"author,omitempty"`
	Comments    *string   `json:"comments,omitempty"`
	Pages       int       `json:"pages"`
	Thumbnail   *string   `json:"thumbnail,omitempty"`
	ContentHash *string   `json:"content_hash,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Metadata is the caller-supplied override shared by every file of one upload batch.
type Metadata struct {
	Title    *string `json:"title,omitempty"`
	Author   *string `json:"author,omitempty"`
	Comments *string `json:"comments,omitempty"`
}
