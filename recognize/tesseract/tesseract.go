// Package tesseract backs recognize.Engine with the gosseract client.
// Requires the Tesseract C libraries and at least one language pack on the
// host. Each page gets a fresh client; gosseract clients are not safe for
// concurrent reuse.
package tesseract

import (
	"context"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"github.com/hazyhaar/ocrpipe/normalize"
	"github.com/hazyhaar/ocrpipe/recognize"
)

// Engine recognizes pages with Tesseract.
type Engine struct {
	languages     []string
	dpi           int
	clientFactory func() *gosseract.Client
}

// Option configures the engine.
type Option func(*Engine)

// WithLanguages sets the Tesseract language packs to load (default: eng).
func WithLanguages(langs ...string) Option {
	return func(e *Engine) { e.languages = langs }
}

// WithDPI tells Tesseract the source resolution of incoming bitmaps, which
// should match the rasterization DPI.
func WithDPI(dpi int) Option {
	return func(e *Engine) { e.dpi = dpi }
}

// New constructs a Tesseract-backed engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		languages:     []string{"eng"},
		clientFactory: gosseract.NewClient,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

func (e *Engine) Name() string { return "tesseract" }

// Recognize performs OCR on a single page bitmap.
func (e *Engine) Recognize(ctx context.Context, page normalize.Page) (recognize.PageResult, error) {
	if err := ctx.Err(); err != nil {
		return recognize.PageResult{}, err
	}

	c := e.clientFactory()
	defer c.Close()

	if err := c.SetImageFromBytes(page.PNG); err != nil {
		return recognize.PageResult{}, &recognize.UnavailableError{
			Engine: e.Name(), Reason: "set image", Err: err,
		}
	}
	if len(e.languages) > 0 {
		if err := c.SetLanguage(e.languages...); err != nil {
			return recognize.PageResult{}, &recognize.UnavailableError{
				Engine: e.Name(), Reason: "set languages", Err: err,
			}
		}
	}
	if e.dpi > 0 {
		if err := c.SetVariable(gosseract.SettableVariable("user_defined_dpi"), fmt.Sprint(e.dpi)); err != nil {
			return recognize.PageResult{}, fmt.Errorf("set dpi: %w", err)
		}
	}

	text, err := c.Text()
	if err != nil {
		return recognize.PageResult{}, &recognize.UnavailableError{
			Engine: e.Name(), Reason: "recognize text", Err: err,
		}
	}

	return recognize.PageResult{
		Text:       strings.TrimSpace(text),
		Confidence: wordConfidence(c),
	}, nil
}

// wordConfidence averages Tesseract's per-word confidences, scaled to [0,1].
// A page with no detected words reports zero confidence.
func wordConfidence(c *gosseract.Client) float64 {
	boxes, err := c.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil || len(boxes) == 0 {
		return 0
	}
	var sum float64
	for _, b := range boxes {
		sum += b.Confidence / 100.0
	}
	return sum / float64(len(boxes))
}
