// Package pdf parses uploaded PDF bytes, reads their document information and
// renders a low-resolution JPEG thumbnail of the first page.
package pdf

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"strings"
	"sync"

	"github.com/gen2brain/go-fitz"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	pdfmodel "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

var (
	// ErrParse marks input that is empty or not a well-formed PDF.
	ErrParse = errors.New("pdf parse failed")
	// ErrRender marks a document that parsed but could not be turned into a thumbnail.
	ErrRender = errors.New("pdf thumbnail render failed")
	// ErrClosed is returned when a closed document is rendered.
	ErrClosed = errors.New("pdf document closed")
)

const (
	// nativeDPI is the PDF user-space resolution (1 unit = 1/72 inch).
	nativeDPI = 72.0
	// ThumbnailScale is the fixed factor applied to page one's native size.
	ThumbnailScale = 0.25
	jpegQuality    = 75
)

func init() {
	// Keep pdfcpu from creating a per-user config directory on the server.
	pdfmodel.ConfigPath = "disable"
}

var encodeJPEG = func(w io.Writer, img image.Image) error {
	return jpeg.Encode(w, img, &jpeg.Options{Quality: jpegQuality})
}

// Info is the document information extracted from a parsed PDF.
// Title and Author are nil when the document carries no (or blank) values.
type Info struct {
	Title  *string
	Author *string
	Pages  int
}

// Document is a parsed PDF. Close must be called once the caller is done with it.
type Document interface {
	Info() Info
	// Thumbnail renders page one at ThumbnailScale and returns it as base64 JPEG.
	Thumbnail() (string, error)
	Close() error
}

// Renderer parses PDF bytes into Documents. It holds no per-document state and
// is safe for concurrent use.
type Renderer struct {
	conf *pdfmodel.Configuration
	dpi  float64
}

// NewRenderer returns a Renderer using relaxed validation, which accepts the
// minor spec violations common in real-world PDFs.
func NewRenderer() *Renderer {
	conf := pdfmodel.NewDefaultConfiguration()
	conf.ValidationMode = pdfmodel.ValidationRelaxed
	return &Renderer{conf: conf, dpi: nativeDPI * ThumbnailScale}
}

// Parse reads and validates data. The returned Document keeps a reference to data
// for rendering; callers must not modify it until the Document is closed.
func (r *Renderer) Parse(data []byte) (doc Document, err error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrParse)
	}
	// pdfcpu panics on some malformed cross-reference tables.
	defer func() {
		if p := recover(); p != nil {
			doc, err = nil, fmt.Errorf("%w: %v", ErrParse, p)
		}
	}()

	ctx, err := api.ReadContext(bytes.NewReader(data), r.conf)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	if err := api.ValidateContext(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}

	return &document{
		data: data,
		dpi:  r.dpi,
		info: Info{
			Title:  optional(ctx.Title),
			Author: optional(ctx.Author),
			Pages:  ctx.PageCount,
		},
	}, nil
}

type document struct {
	data []byte
	dpi  float64
	info Info

	mu     sync.Mutex
	raster *fitz.Document
	closed bool
}

func (d *document) Info() Info { return d.info }

func (d *document) Thumbnail() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return "", ErrClosed
	}
	if d.info.Pages == 0 {
		return "", fmt.Errorf("%w: document has no pages", ErrRender)
	}
	if d.raster == nil {
		raster, err := fitz.NewFromMemory(d.data)
		if err != nil {
			return "", fmt.Errorf("%w: open rasterizer: %v", ErrRender, err)
		}
		d.raster = raster
	}

	img, err := d.raster.ImageDPI(0, d.dpi)
	if err != nil {
		return "", fmt.Errorf("%w: rasterize page 1: %v", ErrRender, err)
	}

	var buf bytes.Buffer
	if err := encodeJPEG(&buf, img); err != nil {
		return "", fmt.Errorf("%w: encode jpeg: %v", ErrRender, err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

func (d *document) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true
	if d.raster == nil {
		return nil
	}
	err := d.raster.Close()
	d.raster = nil
	return err
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
