// Package normalize decodes validated uploads into engine-ready bitmaps.
//
// Raster uploads (JPEG/PNG/WEBP) decode to exactly one page. PDF uploads
// rasterize to one page per PDF page, in page order, at a configurable DPI.
// Pages are canonicalized as encoded PNG so any recognition engine can
// consume them without caring about the original upload format.
package normalize

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"log/slog"

	"golang.org/x/image/webp"

	"github.com/hazyhaar/ocrpipe/validate"
)

// Page is one decoded, engine-ready bitmap derived from an upload.
// Owned by the normalizer until handed to an engine; discarded with the
// request.
type Page struct {
	Index  int
	Width  int
	Height int
	PNG    []byte
}

// Config configures the normalizer.
type Config struct {
	// DPI is the PDF rasterization resolution (default: 300).
	// Higher improves recognition accuracy at the cost of latency and memory.
	DPI int

	// PDFTool is the rasterizer binary (default: "pdftoppm").
	PDFTool string

	// Logger for debug messages.
	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.DPI <= 0 {
		c.DPI = 300
	}
	if c.PDFTool == "" {
		c.PDFTool = "pdftoppm"
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Normalizer turns validated uploads into pages.
type Normalizer struct {
	cfg    Config
	logger *slog.Logger
}

// New creates a Normalizer with the given configuration.
func New(cfg Config) *Normalizer {
	cfg.defaults()
	return &Normalizer{cfg: cfg, logger: cfg.Logger}
}

// Pages decodes the upload into its normalized pages. The upload must have
// passed validate.Check; feeding unvalidated bytes here gives DecodeError,
// not a validation error.
func (n *Normalizer) Pages(ctx context.Context, u *validate.Upload) ([]Page, error) {
	ct := validate.CanonicalType(u.ContentType)

	if ct == validate.TypePDF {
		return n.rasterizePDF(ctx, u.Data)
	}
	page, err := decodeRaster(ct, u.Data)
	if err != nil {
		return nil, err
	}
	return []Page{page}, nil
}

// decodeRaster decodes a single raster image into page 0.
func decodeRaster(ct string, data []byte) (Page, error) {
	var (
		img image.Image
		err error
	)
	switch ct {
	case validate.TypeJPEG:
		img, err = jpeg.Decode(bytes.NewReader(data))
	case validate.TypePNG:
		// Already in canonical encoding; only the header needs decoding.
		cfg, cfgErr := png.DecodeConfig(bytes.NewReader(data))
		if cfgErr != nil {
			return Page{}, &DecodeError{Page: 0, Reason: fmt.Sprintf("decode PNG: %v", cfgErr)}
		}
		return Page{Index: 0, Width: cfg.Width, Height: cfg.Height, PNG: data}, nil
	case validate.TypeWEBP:
		img, err = webp.Decode(bytes.NewReader(data))
	default:
		return Page{}, &DecodeError{Page: 0, Reason: fmt.Sprintf("no decoder for %s", ct)}
	}
	if err != nil {
		return Page{}, &DecodeError{Page: 0, Reason: fmt.Sprintf("decode %s: %v", ct, err)}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return Page{}, &DecodeError{Page: 0, Reason: fmt.Sprintf("encode canonical PNG: %v", err)}
	}
	b := img.Bounds()
	return Page{Index: 0, Width: b.Dx(), Height: b.Dy(), PNG: buf.Bytes()}, nil
}
