package tesseract

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"testing"

	"github.com/hazyhaar/ocrpipe/normalize"
	"github.com/hazyhaar/ocrpipe/recognize"
)

func TestOptions(t *testing.T) {
	e := New(WithLanguages("eng", "fra"), WithDPI(300))
	if e.Name() != "tesseract" {
		t.Errorf("Name = %q", e.Name())
	}
	if len(e.languages) != 2 || e.languages[1] != "fra" {
		t.Errorf("languages = %v", e.languages)
	}
	if e.dpi != 300 {
		t.Errorf("dpi = %d", e.dpi)
	}
}

// TestRecognizeBlankPage exercises the full gosseract round trip on a blank
// bitmap. Skips when the Tesseract runtime or language data is missing.
func TestRecognizeBlankPage(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 120, 120))
	for i := range img.Pix {
		img.Pix[i] = 0xFF
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}

	e := New(WithDPI(72))
	res, err := e.Recognize(context.Background(), normalize.Page{Index: 0, Width: 120, Height: 120, PNG: buf.Bytes()})
	if err != nil {
		var ue *recognize.UnavailableError
		if errors.As(err, &ue) {
			t.Skipf("tesseract runtime unavailable: %v", err)
		}
		t.Fatal(err)
	}
	if res.Text != "" {
		t.Errorf("blank page produced text %q", res.Text)
	}
}

func TestRecognizeCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	e := New()
	if _, err := e.Recognize(ctx, normalize.Page{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
