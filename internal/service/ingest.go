package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"pdfstore/internal/metrics"
	"pdfstore/internal/model"
	"pdfstore/internal/pdf"
	"pdfstore/internal/repository"
	"pdfstore/internal/storage"
)

var (
	ErrNoFiles          = errors.New("at least one file is required")
	ErrFileNameRequired = errors.New("file name is required")
	ErrParse            = pdf.ErrParse
	ErrRender           = pdf.ErrRender
	ErrPersist          = errors.New("persist metadata")
	ErrIO               = errors.New("write file")
	ErrSubmit           = errors.New("submit task")
	ErrNoOutcome        = errors.New("task finished without an outcome")
)

const (
	pdfSuffix          = ".pdf"
	pdfContentType     = "application/pdf"
	fallbackName       = "upload.pdf"
	poolReleaseTimeout = 5 * time.Second
)

// UploadFile is one raw file of an upload batch.
type UploadFile struct {
	Name string
	Data []byte
}

// DocumentParser turns raw bytes into a parsed PDF document.
type DocumentParser interface {
	Parse(data []byte) (pdf.Document, error)
}

// IngestService stores batches of uploaded PDFs.
type IngestService interface {
	// Ingest parses, persists and writes every file of the batch in parallel and
	// returns one Outcome per file, in input order. Failures of individual files
	// never abort the batch; the returned error covers invalid input only.
	// meta, when non-nil, applies to every file of the batch.
	Ingest(ctx context.Context, files []UploadFile, meta *model.Metadata) ([]Outcome, error)
}

type taskPool interface {
	Invoke(args any) error
	ReleaseTimeout(timeout time.Duration) error
}

type ingestService struct {
	parser  DocumentParser
	repo    repository.PdfRepository
	store   storage.Storage
	logger  *zap.Logger
	metrics *metrics.IngestMetrics
	tracer  trace.Tracer

	poolSize int
	newPool  func(size int, fn func(any)) (taskPool, error)
}

// NewIngestService constructs an IngestService. m may be nil.
func NewIngestService(
	parser DocumentParser,
	repo repository.PdfRepository,
	store storage.Storage,
	logger *zap.Logger,
	m *metrics.IngestMetrics,
) IngestService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ingestService{
		parser:   parser,
		repo:     repo,
		store:    store,
		logger:   logger.With(zap.String("component", "ingest")),
		metrics:  m,
		tracer:   otel.Tracer("pdfstore/internal/service"),
		poolSize: runtime.NumCPU(),
		newPool:  newAntsPool,
	}
}

func newAntsPool(size int, fn func(any)) (taskPool, error) {
	pool, err := ants.NewPoolWithFunc(size, fn, ants.WithDisablePurge(true))
	if err != nil {
		return nil, err
	}
	return pool, nil
}

type fileTask struct {
	ctx   context.Context
	index int
	file  UploadFile
	meta  *model.Metadata
}

func (s *ingestService) Ingest(ctx context.Context, files []UploadFile, meta *model.Metadata) ([]Outcome, error) {
	if len(files) == 0 {
		return nil, ErrNoFiles
	}
	for i, f := range files {
		if strings.TrimSpace(f.Name) == "" {
			return nil, fmt.Errorf("file %d: %w", i, ErrFileNameRequired)
		}
	}

	// Once accepted, a batch runs to completion even if the caller goes away.
	ctx = context.WithoutCancel(ctx)
	ctx, span := s.tracer.Start(ctx, "pdf.ingest_batch",
		trace.WithAttributes(attribute.Int("pdf.batch_size", len(files))))
	defer span.End()
	s.metrics.ObserveBatch(len(files))

	outcomes := make([]Outcome, len(files))
	var wg sync.WaitGroup

	pool, err := s.newPool(s.poolSize, func(arg any) {
		defer wg.Done()
		t, ok := arg.(*fileTask)
		if !ok {
			s.logger.Error("ingest_pool_bad_task", zap.String("type", fmt.Sprintf("%T", arg)))
			return
		}
		outcomes[t.index] = s.runTask(t)
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("create worker pool: %w", err)
	}
	defer func() {
		if err := pool.ReleaseTimeout(poolReleaseTimeout); err != nil {
			s.logger.Warn("ingest_pool_release_timeout", zap.Error(err))
		}
	}()

	for i, f := range files {
		wg.Add(1)
		t := &fileTask{ctx: ctx, index: i, file: f, meta: meta}
		if err := pool.Invoke(t); err != nil {
			wg.Done()
			outcomes[i] = rejectedOutcome(i, f.Name, err)
			s.report(ctx, outcomes[i])
		}
	}
	wg.Wait()

	// Every input gets an outcome, even if its task never ran.
	for i := range outcomes {
		if outcomes[i].Status == "" {
			outcomes[i] = Outcome{Index: i, FileName: files[i].Name}
			outcomes[i].fail(StatusFailed, ErrNoOutcome)
			s.report(ctx, outcomes[i])
		}
	}

	stored := 0
	for _, o := range outcomes {
		if o.Succeeded() {
			stored++
		}
	}
	span.SetAttributes(attribute.Int("pdf.stored", stored))
	s.logger.Info("ingest_batch_done",
		zap.Int("files", len(files)),
		zap.Int("stored", stored),
		zap.Int("failed", len(files)-stored),
	)
	return outcomes, nil
}

// runTask executes parse, render, persist and write for one file. It never panics.
func (s *ingestService) runTask(t *fileTask) (out Outcome) {
	out = Outcome{Index: t.index, FileName: t.file.Name}

	ctx, span := s.tracer.Start(t.ctx, "pdf.ingest_file", trace.WithAttributes(
		attribute.Int("pdf.index", t.index),
		attribute.String("pdf.file_name", t.file.Name),
		attribute.Int("pdf.size_bytes", len(t.file.Data)),
	))
	defer func() {
		if p := recover(); p != nil {
			out.fail(StatusFailed, fmt.Errorf("task panic: %v", p))
		}
		if out.Err != nil {
			span.RecordError(out.Err)
			span.SetStatus(codes.Error, string(out.Status))
		}
		span.SetAttributes(attribute.String("pdf.status", string(out.Status)))
		span.End()
		s.report(ctx, out)
	}()

	rec, err := s.inspect(t, &out)
	if err != nil {
		out.fail(StatusParseFailed, err)
		return out
	}

	key := fallbackKey(t.file.Name)
	start := time.Now()
	stored, err := s.repo.Create(ctx, rec)
	if err == nil && (stored == nil || stored.ID == "") {
		err = errors.New("store returned no identifier")
	}
	s.metrics.ObserveStage("persist", start, err)
	if err != nil {
		out.degrade(fmt.Errorf("%w: %w", ErrPersist, err))
	} else {
		out.RecordID = stored.ID
		key = stored.ID + pdfSuffix
	}

	start = time.Now()
	_, err = s.store.Put(ctx, key, bytes.NewReader(t.file.Data), storage.PutObjectOptions{
		Size:        int64(len(t.file.Data)),
		ContentType: pdfContentType,
		Metadata:    map[string]string{"original-filename": t.file.Name},
	})
	s.metrics.ObserveStage("write", start, err)
	if err != nil {
		out.fail(StatusWriteFailed, fmt.Errorf("%w %s: %w", ErrIO, key, err))
		return out
	}

	out.StoredAs = key
	if out.RecordID != "" {
		out.Status = StatusStored
	} else {
		out.Status = StatusStoredWithoutRecord
	}
	return out
}

// inspect parses the file and builds its metadata record. The parsed document
// is closed before returning, whatever the result.
func (s *ingestService) inspect(t *fileTask, out *Outcome) (*model.PdfRecord, error) {
	start := time.Now()
	doc, err := s.parser.Parse(t.file.Data)
	s.metrics.ObserveStage("parse", start, err)
	if err != nil {
		if !errors.Is(err, ErrParse) {
			err = fmt.Errorf("%w: %w", ErrParse, err)
		}
		return nil, err
	}
	defer func() {
		if err := doc.Close(); err != nil {
			s.logger.Warn("pdf_close_failed", zap.String("file_name", t.file.Name), zap.Error(err))
		}
	}()

	info := doc.Info()
	out.Pages = info.Pages
	rec := &model.PdfRecord{
		FileName: t.file.Name,
		Title:    info.Title,
		Author:   info.Author,
		Pages:    info.Pages,
	}
	applyMetadata(rec, t.meta)

	start = time.Now()
	thumb, err := doc.Thumbnail()
	s.metrics.ObserveStage("render", start, err)
	if err != nil {
		if !errors.Is(err, ErrRender) {
			err = fmt.Errorf("%w: %w", ErrRender, err)
		}
		out.ThumbnailSkipped = true
		out.degrade(err)
	} else {
		rec.Thumbnail = &thumb
	}
	return rec, nil
}

// applyMetadata lays the batch-wide override over the embedded document info.
// Comments only ever come from the override.
func applyMetadata(rec *model.PdfRecord, meta *model.Metadata) {
	if meta == nil {
		return
	}
	if meta.Title != nil {
		rec.Title = meta.Title
	}
	if meta.Author != nil {
		rec.Author = meta.Author
	}
	rec.Comments = meta.Comments
}

// fallbackKey is the storage name used when no record id exists: the base of the
// uploaded name, so a client-supplied path cannot leave the storage root.
func fallbackKey(name string) string {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	switch base {
	case "", ".", "..", "/":
		return fallbackName
	}
	return base
}

func (s *ingestService) report(ctx context.Context, o Outcome) {
	s.metrics.ObserveOutcome(string(o.Status))

	fields := []zap.Field{
		zap.Int("index", o.Index),
		zap.String("file_name", o.FileName),
		zap.String("status", string(o.Status)),
	}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		fields = append(fields, zap.String("trace_id", sc.TraceID().String()))
	}
	if o.RecordID != "" {
		fields = append(fields, zap.String("record_id", o.RecordID))
	}
	if o.StoredAs != "" {
		fields = append(fields, zap.String("stored_as", o.StoredAs))
	}
	if len(o.Warnings) > 0 {
		fields = append(fields, zap.Strings("warnings", o.Warnings))
	}

	switch {
	case o.Err != nil:
		s.logger.Error("pdf_ingest_failed", append(fields, zap.Error(o.Err))...)
	case len(o.Warnings) > 0:
		s.logger.Warn("pdf_ingest_degraded", fields...)
	default:
		s.logger.Info("pdf_ingested", fields...)
	}
}
