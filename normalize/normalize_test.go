package normalize

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"os/exec"
	"testing"

	"github.com/hazyhaar/ocrpipe/internal/testpdf"
	"github.com/hazyhaar/ocrpipe/internal/testwebp"
	"github.com/hazyhaar/ocrpipe/validate"
)

// ensureRasterizer skips the test when pdftoppm is not installed.
func ensureRasterizer(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("pdftoppm"); err != nil {
		t.Skip("pdftoppm not installed in PATH")
	}
}

func encodeImage(t *testing.T, enc func(io.Writer, image.Image) error, w, h int) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, w, h))
	var buf bytes.Buffer
	if err := enc(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestPagesDecodesJPEG(t *testing.T) {
	data := encodeImage(t, func(w io.Writer, img image.Image) error {
		return jpeg.Encode(w, img, nil)
	}, 40, 30)

	n := New(Config{})
	pages, err := n.Pages(context.Background(), &validate.Upload{Data: data, ContentType: "image/jpeg"})
	if err != nil {
		t.Fatal(err)
	}
	if len(pages) != 1 {
		t.Fatalf("expected 1 page, got %d", len(pages))
	}
	p := pages[0]
	if p.Index != 0 || p.Width != 40 || p.Height != 30 {
		t.Errorf("page = %d %dx%d, want 0 40x30", p.Index, p.Width, p.Height)
	}
	// Canonical encoding must be PNG regardless of the upload format.
	if _, err := png.DecodeConfig(bytes.NewReader(p.PNG)); err != nil {
		t.Errorf("page payload is not PNG: %v", err)
	}
}

func TestPagesDecodesWEBP(t *testing.T) {
	n := New(Config{})
	pages, err := n.Pages(context.Background(), &validate.Upload{Data: testwebp.Bytes(), ContentType: "image/webp"})
	if err != nil {
		t.Fatal(err)
	}
	if len(pages) != 1 {
		t.Fatalf("expected 1 page, got %d", len(pages))
	}
	p := pages[0]
	if p.Width != testwebp.Width || p.Height != testwebp.Height {
		t.Errorf("page = %dx%d, want %dx%d", p.Width, p.Height, testwebp.Width, testwebp.Height)
	}
	if _, err := png.DecodeConfig(bytes.NewReader(p.PNG)); err != nil {
		t.Errorf("page payload is not PNG: %v", err)
	}
}

func TestPagesKeepsPNGBytes(t *testing.T) {
	data := encodeImage(t, png.Encode, 16, 16)

	n := New(Config{})
	pages, err := n.Pages(context.Background(), &validate.Upload{Data: data, ContentType: "image/png"})
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(pages[0].PNG, data) {
		t.Error("PNG upload should pass through without re-encoding")
	}
}

func TestPagesCorruptImage(t *testing.T) {
	data := encodeImage(t, png.Encode, 16, 16)
	data = data[:20] // cut inside IHDR

	n := New(Config{})
	_, err := n.Pages(context.Background(), &validate.Upload{Data: data, ContentType: "image/png"})
	var de *DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("expected DecodeError, got %v", err)
	}
}

func TestPagesRasterizesPDFInOrder(t *testing.T) {
	ensureRasterizer(t)

	data := testpdf.Build("first page", "second page", "third page")
	n := New(Config{DPI: 72})
	pages, err := n.Pages(context.Background(), &validate.Upload{Data: data, ContentType: "application/pdf"})
	if err != nil {
		t.Fatal(err)
	}
	if len(pages) != 3 {
		t.Fatalf("expected 3 pages, got %d", len(pages))
	}
	for i, p := range pages {
		if p.Index != i {
			t.Errorf("page %d has index %d", i, p.Index)
		}
		if p.Width <= 0 || p.Height <= 0 {
			t.Errorf("page %d has degenerate dimensions %dx%d", i, p.Width, p.Height)
		}
		if _, err := png.DecodeConfig(bytes.NewReader(p.PNG)); err != nil {
			t.Errorf("page %d payload is not PNG: %v", i, err)
		}
	}
}

func TestPagesCorruptPDF(t *testing.T) {
	ensureRasterizer(t)

	data := testpdf.Build("hello")
	data = data[:len(data)-40] // drop the xref trailer

	n := New(Config{DPI: 72})
	_, err := n.Pages(context.Background(), &validate.Upload{Data: data, ContentType: "application/pdf"})
	var de *DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("expected DecodeError, got %v", err)
	}
}

func TestPagesMissingRasterizer(t *testing.T) {
	n := New(Config{PDFTool: "definitely-not-a-real-binary"})
	_, err := n.Pages(context.Background(), &validate.Upload{Data: testpdf.Build("x"), ContentType: "application/pdf"})
	var ue *UnavailableError
	if !errors.As(err, &ue) {
		t.Fatalf("expected UnavailableError, got %v", err)
	}
}
