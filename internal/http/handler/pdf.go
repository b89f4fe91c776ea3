package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"strings"

	"github.com/gofiber/fiber/v2"

	"pdfstore/internal/model"
	"pdfstore/internal/service"
)

const (
	filesField    = "files"
	metadataField = "metaData"
)

var errBlankField = errors.New("must not be blank")

// uploadResponse lists one result per uploaded file, in upload order.
type uploadResponse struct {
	Results []service.Outcome `json:"results"`
}

// metadataPayload is the optional JSON metadata shared by every file of an upload.
type metadataPayload struct {
	Title    *string `json:"title"`
	Author   *string `json:"author"`
	Comments *string `json:"comments"`
}

// UploadPdfs ingests every file of a multipart upload.
//
// @Summary Upload PDFs
// @Description Stores one or more PDFs. Each file is parsed, gets a metadata record and a
// @Description page-one thumbnail, and is written to storage. Files succeed or fail independently.
// @Tags pdfs
// @Accept multipart/form-data
// @Produce json
// @Param files formData file true "PDF files (repeat the field for several files)"
// @Param metaData formData string false "JSON object with optional title, author and comments"
// @Success 201 {object} uploadResponse
// @Failure 400 {object} errorPayload
// @Failure 500 {object} errorPayload
// @Router /api/v1/pdfs [post]
func UploadPdfs(svc service.IngestService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		form, err := c.MultipartForm()
		if err != nil || len(form.File[filesField]) == 0 {
			return writeError(c, fiber.StatusBadRequest, "FILES_REQUIRED", "at least one file is required")
		}

		meta, err := metadataFromForm(form)
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_METADATA", err.Error())
		}

		headers := form.File[filesField]
		files := make([]service.UploadFile, 0, len(headers))
		for _, fh := range headers {
			data, err := readPart(fh)
			if err != nil {
				return writeError(c, fiber.StatusBadRequest, "FILE_READ_ERROR", "cannot read uploaded file")
			}
			files = append(files, service.UploadFile{Name: fh.Filename, Data: data})
		}

		results, err := svc.Ingest(c.UserContext(), files, meta)
		if err != nil {
			if errors.Is(err, service.ErrNoFiles) || errors.Is(err, service.ErrFileNameRequired) {
				return writeError(c, fiber.StatusBadRequest, "FILES_REQUIRED", "every file needs a name")
			}
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.Status(fiber.StatusCreated).JSON(uploadResponse{Results: results})
	}
}

// metadataFromForm reads the optional metadata, sent either as a plain form
// value or as a JSON file part.
func metadataFromForm(form *multipart.Form) (*model.Metadata, error) {
	var raw []byte
	if v := form.Value[metadataField]; len(v) > 0 {
		raw = []byte(v[0])
	} else if fhs := form.File[metadataField]; len(fhs) > 0 {
		b, err := readPart(fhs[0])
		if err != nil {
			return nil, fmt.Errorf("cannot read %s", metadataField)
		}
		raw = b
	}
	if len(strings.TrimSpace(string(raw))) == 0 {
		return nil, nil
	}
	return parseMetadata(raw)
}

func parseMetadata(raw []byte) (*model.Metadata, error) {
	var p metadataPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("%s is not a valid JSON object", metadataField)
	}
	for name, v := range map[string]*string{"title": p.Title, "author": p.Author, "comments": p.Comments} {
		if v != nil && strings.TrimSpace(*v) == "" {
			return nil, fmt.Errorf("%s %w", name, errBlankField)
		}
	}
	return &model.Metadata{Title: p.Title, Author: p.Author, Comments: p.Comments}, nil
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
