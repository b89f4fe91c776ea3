package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"pdfstore/internal/model"
	"pdfstore/internal/service"
	serviceMocks "pdfstore/internal/service/mocks"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestHealthCheck(t *testing.T) {
	db, dbMock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	app := fiber.New()
	app.Get("/health", HealthCheck(db))

	t.Run("healthy", func(t *testing.T) {
		dbMock.ExpectPing().WillReturnError(nil)

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body map[string]string
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "healthy", body["status"])
	})

	t.Run("unhealthy", func(t *testing.T) {
		dbMock.ExpectPing().WillReturnError(errors.New("db error"))

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

		var body errorPayload
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "SERVICE_UNAVAILABLE", body.Error.Code)
	})
}

func TestLivenessProbe(t *testing.T) {
	app := fiber.New()
	app.Get("/healthz", LivenessProbe())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	resp, _ := app.Test(req)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func multipartBody(t *testing.T, files map[string][]byte, order []string, meta string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for _, name := range order {
		part, err := writer.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = part.Write(files[name])
		require.NoError(t, err)
	}
	if meta != "" {
		require.NoError(t, writer.WriteField("metaData", meta))
	}
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func TestUploadPdfs(t *testing.T) {
	mockSvc := new(serviceMocks.MockIngestService)
	app := fiber.New()
	app.Post("/api/v1/pdfs", UploadPdfs(mockSvc))

	t.Run("success", func(t *testing.T) {
		body, ct := multipartBody(t, map[string][]byte{
			"a.pdf": []byte("%PDF-1.4 a"),
			"b.pdf": []byte("%PDF-1.4 b"),
		}, []string{"a.pdf", "b.pdf"}, `{"title":"Board pack","comments":"for review"}`)

		id := uuid.New().String()
		outcomes := []service.Outcome{
			{Index: 0, FileName: "a.pdf", Status: service.StatusStored, RecordID: id, StoredAs: id + ".pdf", Pages: 2},
			{Index: 1, FileName: "b.pdf", Status: service.StatusParseFailed, Error: "pdf parse failed"},
		}
		mockSvc.On("Ingest", mock.Anything,
			mock.MatchedBy(func(files []service.UploadFile) bool {
				return len(files) == 2 &&
					files[0].Name == "a.pdf" && string(files[0].Data) == "%PDF-1.4 a" &&
					files[1].Name == "b.pdf"
			}),
			mock.MatchedBy(func(meta *model.Metadata) bool {
				return meta != nil && *meta.Title == "Board pack" && meta.Author == nil && *meta.Comments == "for review"
			}),
		).Return(outcomes, nil).Once()

		req := httptest.NewRequest(http.MethodPost, "/api/v1/pdfs", body)
		req.Header.Set("Content-Type", ct)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusCreated, resp.StatusCode)

		var result uploadResponse
		json.NewDecoder(resp.Body).Decode(&result)
		require.Len(t, result.Results, 2)
		assert.Equal(t, service.StatusStored, result.Results[0].Status)
		assert.Equal(t, id+".pdf", result.Results[0].StoredAs)
		assert.Equal(t, service.StatusParseFailed, result.Results[1].Status)
		mockSvc.AssertExpectations(t)
	})

	t.Run("without metadata", func(t *testing.T) {
		body, ct := multipartBody(t, map[string][]byte{"a.pdf": []byte("x")}, []string{"a.pdf"}, "")

		mockSvc.On("Ingest", mock.Anything, mock.Anything, (*model.Metadata)(nil)).
			Return([]service.Outcome{{FileName: "a.pdf", Status: service.StatusStored}}, nil).Once()

		req := httptest.NewRequest(http.MethodPost, "/api/v1/pdfs", body)
		req.Header.Set("Content-Type", ct)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusCreated, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})

	t.Run("no files", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/pdfs", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "FILES_REQUIRED", res.Error.Code)
	})

	t.Run("blank metadata field", func(t *testing.T) {
		body, ct := multipartBody(t, map[string][]byte{"a.pdf": []byte("x")}, []string{"a.pdf"}, `{"author":"  "}`)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/pdfs", body)
		req.Header.Set("Content-Type", ct)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "INVALID_METADATA", res.Error.Code)
		assert.Contains(t, res.Error.Message, "author")
	})

	t.Run("malformed metadata", func(t *testing.T) {
		body, ct := multipartBody(t, map[string][]byte{"a.pdf": []byte("x")}, []string{"a.pdf"}, `{"title":`)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/pdfs", body)
		req.Header.Set("Content-Type", ct)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "INVALID_METADATA", res.Error.Code)
	})

	t.Run("service error", func(t *testing.T) {
		body, ct := multipartBody(t, map[string][]byte{"a.pdf": []byte("x")}, []string{"a.pdf"}, "")

		mockSvc.On("Ingest", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("pool failed")).Once()

		req := httptest.NewRequest(http.MethodPost, "/api/v1/pdfs", body)
		req.Header.Set("Content-Type", ct)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "INTERNAL_ERROR", res.Error.Code)
		mockSvc.AssertExpectations(t)
	})
}

func TestParseMetadata(t *testing.T) {
	meta, err := parseMetadata([]byte(`{"title":"T","author":"A","comments":"C","extra":1}`))
	require.NoError(t, err)
	assert.Equal(t, "T", *meta.Title)
	assert.Equal(t, "A", *meta.Author)
	assert.Equal(t, "C", *meta.Comments)

	meta, err = parseMetadata([]byte(`{}`))
	require.NoError(t, err)
	assert.Nil(t, meta.Title)

	_, err = parseMetadata([]byte(`{"comments":""}`))
	assert.ErrorIs(t, err, errBlankField)

	_, err = parseMetadata([]byte(`["title"]`))
	assert.Error(t, err)
}

func TestRouting(t *testing.T) {
	app := fiber.New(fiber.Config{
		ErrorHandler: ErrorHandler(),
	})

	mockSvc := new(serviceMocks.MockIngestService)
	RegisterRoutes(app, nil, mockSvc)

	t.Run("not found route", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/non-existent", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "NOT_FOUND", res.Error.Code)
	})

	t.Run("method not allowed", func(t *testing.T) {
		// Health endpoint only allows GET
		req := httptest.NewRequest(http.MethodPost, "/health", nil)
		resp, _ := app.Test(req)

		// Fiber returns 405 by default if route exists but method doesn't match
		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "METHOD_NOT_ALLOWED", res.Error.Code)
	})
}

func TestErrorHandler_PayloadTooLarge(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler()})
	app.Post("/api/v1/pdfs", func(c *fiber.Ctx) error {
		return fiber.ErrRequestEntityTooLarge
	})

	resp, _ := app.Test(httptest.NewRequest(http.MethodPost, "/api/v1/pdfs", nil))

	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
	var res errorPayload
	json.NewDecoder(resp.Body).Decode(&res)
	assert.Equal(t, "PAYLOAD_TOO_LARGE", res.Error.Code)
}
