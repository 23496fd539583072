// Package pipeline orchestrates a request through validation, normalization,
// recognition and language detection, and owns the error taxonomy the API
// layer maps to HTTP statuses.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/hazyhaar/ocrpipe/kit"
	"github.com/hazyhaar/ocrpipe/langid"
	"github.com/hazyhaar/ocrpipe/normalize"
	"github.com/hazyhaar/ocrpipe/pdftext"
	"github.com/hazyhaar/ocrpipe/recognize"
	"github.com/hazyhaar/ocrpipe/validate"
)

// Source values for ExtractResult.
const (
	SourceOCR     = "ocr"
	SourcePDFText = "pdf-text"
)

// Config wires the pipeline stages together.
type Config struct {
	// Limits applied during validation (default: validate.DefaultLimits).
	Limits validate.Limits

	// DPI for PDF rasterization (default: 300).
	DPI int

	// PageTimeout bounds recognition of a single page (default: 30s).
	PageTimeout time.Duration

	// Parallelism is the number of pages recognized concurrently.
	Parallelism int

	// TopK bounds returned language candidates (default: 2).
	TopK int

	// MinTextLen for language detection (default: 8).
	MinTextLen int

	// PDFTextConfidence is reported when a PDF's embedded text layer is
	// used instead of recognition (default: 0.95).
	PDFTextConfidence float64

	// Logger for stage progress.
	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.Limits.MaxFileSize == 0 && c.Limits.MaxPDFPages == 0 {
		c.Limits = validate.DefaultLimits()
	}
	if c.DPI <= 0 {
		c.DPI = 300
	}
	if c.PageTimeout <= 0 {
		c.PageTimeout = 30 * time.Second
	}
	if c.TopK <= 0 {
		c.TopK = 2
	}
	if c.MinTextLen <= 0 {
		c.MinTextLen = 8
	}
	if c.PDFTextConfidence <= 0 {
		c.PDFTextConfidence = 0.95
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// ExtractResult is the outcome of text extraction.
type ExtractResult struct {
	Text       string
	Confidence float64
	Partial    bool
	Pages      int
	Elapsed    time.Duration
	Source     string
}

// DetectResult is the outcome of language detection.
type DetectResult struct {
	Candidates []langid.Candidate
	Primary    langid.Candidate
	Elapsed    time.Duration
}

// Pipeline runs uploads through the processing stages.
type Pipeline struct {
	cfg        Config
	normalizer *normalize.Normalizer
	extractor  *recognize.Extractor
	detector   *langid.Detector
	logger     *slog.Logger
}

// New builds a Pipeline around the given recognition engine.
func New(engine recognize.Engine, cfg Config) *Pipeline {
	cfg.defaults()
	return &Pipeline{
		cfg: cfg,
		normalizer: normalize.New(normalize.Config{
			DPI:    cfg.DPI,
			Logger: cfg.Logger,
		}),
		extractor: recognize.New(engine, recognize.Config{
			PageTimeout: cfg.PageTimeout,
			Parallelism: cfg.Parallelism,
			Logger:      cfg.Logger,
		}),
		detector: langid.New(langid.Config{
			TopK:       cfg.TopK,
			MinTextLen: cfg.MinTextLen,
		}),
		logger: cfg.Logger,
	}
}

// ExtractText validates the upload, normalizes it to pages and recognizes
// text. PDFs carrying a usable embedded text layer skip rasterization and
// recognition entirely; their result reports Source as "pdf-text".
func (p *Pipeline) ExtractText(ctx context.Context, u *validate.Upload) (*ExtractResult, error) {
	start := time.Now()

	if err := validate.Check(u, p.cfg.Limits); err != nil {
		return nil, err
	}

	if validate.CanonicalType(u.ContentType) == validate.TypePDF {
		if res := p.tryPDFText(u); res != nil {
			res.Elapsed = time.Since(start)
			return res, nil
		}
	}

	pages, err := p.normalizer.Pages(ctx, u)
	if err != nil {
		return nil, err
	}
	p.logger.Debug("normalized upload",
		"request_id", kit.GetRequestID(ctx),
		"media_type", u.ContentType,
		"pages", len(pages))

	rec, err := p.extractor.Extract(ctx, pages)
	if err != nil {
		return nil, err
	}

	return &ExtractResult{
		Text:       rec.Text,
		Confidence: rec.Confidence,
		Partial:    rec.Partial,
		Pages:      rec.Pages,
		Elapsed:    time.Since(start),
		Source:     SourceOCR,
	}, nil
}

// tryPDFText returns a result from the PDF's embedded text layer, or nil
// when the layer is absent or too poor and recognition should run instead.
func (p *Pipeline) tryPDFText(u *validate.Upload) *ExtractResult {
	res, err := pdftext.Extract(u.Data)
	if err != nil {
		p.logger.Debug("pdf text layer unreadable, falling back to recognition", "error", err)
		return nil
	}
	if res.Text == "" || res.Quality.NeedsOCR() {
		p.logger.Debug("pdf text layer insufficient, falling back to recognition",
			"chars_per_page", res.Quality.CharsPerPage,
			"printable_ratio", res.Quality.PrintableRatio,
			"has_images", res.Quality.HasImageStreams)
		return nil
	}
	return &ExtractResult{
		Text:       joinPages(res.PageTexts),
		Confidence: p.cfg.PDFTextConfidence,
		Pages:      res.Quality.PageCount,
		Source:     SourcePDFText,
	}
}

// DetectLanguage validates the upload, extracts its text and identifies the
// languages present.
func (p *Pipeline) DetectLanguage(ctx context.Context, u *validate.Upload) (*DetectResult, error) {
	start := time.Now()

	extracted, err := p.ExtractText(ctx, u)
	if err != nil {
		return nil, err
	}

	res, err := p.detector.Detect(extracted.Text)
	if err != nil {
		return nil, err
	}

	return &DetectResult{
		Candidates: res.Candidates,
		Primary:    res.Primary,
		Elapsed:    time.Since(start),
	}, nil
}

func joinPages(pageTexts []string) string {
	if len(pageTexts) == 0 {
		return ""
	}
	out := pageTexts[0]
	for _, t := range pageTexts[1:] {
		out += recognize.PageSeparator + t
	}
	return out
}
