// Package validate performs all pre-decode checks on uploaded files: declared
// media type against the accept list, size ceiling, magic-signature sniffing,
// and structural validation for PDFs. Every check runs before a single byte
// is handed to a decoder.
package validate

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Accepted media types. image/jpg is folded into image/jpeg.
const (
	TypeJPEG = "image/jpeg"
	TypePNG  = "image/png"
	TypeWEBP = "image/webp"
	TypePDF  = "application/pdf"
)

// minFileSize guards against uploads too small to carry any valid header.
const minFileSize = 10

// Upload is one client-supplied file. Request-scoped: created when the
// request body is read, discarded when the response is written.
type Upload struct {
	Data        []byte
	ContentType string
	Filename    string
}

// Size returns the upload size in bytes.
func (u *Upload) Size() int64 { return int64(len(u.Data)) }

// Limits bounds what the validator accepts.
type Limits struct {
	// MaxFileSize is the upload size ceiling in bytes (default: 10 MB).
	MaxFileSize int64

	// MaxPDFPages caps the page count of PDF uploads to bound rasterization
	// memory (default: 100).
	MaxPDFPages int
}

// DefaultLimits returns the standard limits.
func DefaultLimits() Limits {
	return Limits{
		MaxFileSize: 10 * 1024 * 1024,
		MaxPDFPages: 100,
	}
}

func (l *Limits) defaults() {
	if l.MaxFileSize <= 0 {
		l.MaxFileSize = 10 * 1024 * 1024
	}
	if l.MaxPDFPages <= 0 {
		l.MaxPDFPages = 100
	}
}

var allowed = map[string]bool{
	TypeJPEG: true,
	TypePNG:  true,
	TypeWEBP: true,
	TypePDF:  true,
}

// AcceptedTypes returns the accept list in stable order.
func AcceptedTypes() []string {
	return []string{TypeJPEG, TypePNG, TypeWEBP, TypePDF}
}

// CanonicalType folds aliases (image/jpg) and strips parameters from a
// declared content type.
func CanonicalType(ct string) string {
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	ct = strings.ToLower(strings.TrimSpace(ct))
	if ct == "image/jpg" {
		return TypeJPEG
	}
	return ct
}

// Check runs all pre-decode checks on the upload, in order: declared type,
// size, content sniffing, magic signature, then PDF structure for PDFs.
// Returns a typed error on the first failed check.
func Check(u *Upload, lim Limits) error {
	lim.defaults()

	if len(u.Data) == 0 {
		return &InvalidContentError{Reason: "empty file content"}
	}
	if len(u.Data) < minFileSize {
		return &InvalidContentError{Reason: "file too small to be valid"}
	}

	ct := CanonicalType(u.ContentType)
	if !allowed[ct] {
		return &UnsupportedTypeError{ContentType: CanonicalType(u.ContentType)}
	}
	if u.Size() > lim.MaxFileSize {
		return &TooLargeError{Size: u.Size(), Limit: lim.MaxFileSize}
	}

	// Content sniffing: the bytes must agree with the declared type. A
	// mismatch is reported as the sniffed type so the caller sees what was
	// actually uploaded.
	sniffed := mimetype.Detect(u.Data)
	if !sniffed.Is(ct) {
		return &UnsupportedTypeError{ContentType: CanonicalType(sniffed.String())}
	}

	switch ct {
	case TypePDF:
		return checkPDF(u.Data, lim)
	case TypeJPEG:
		return checkJPEG(u.Data)
	case TypePNG:
		return checkPNG(u.Data)
	case TypeWEBP:
		return checkWEBP(u.Data)
	}
	return nil
}

// checkPDF validates the PDF header and structure via pdfcpu, and enforces
// the page-count ceiling before any rasterization work is scheduled.
func checkPDF(data []byte, lim Limits) error {
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		return &InvalidContentError{Reason: "invalid PDF: missing PDF header"}
	}

	conf := model.NewDefaultConfiguration()
	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), conf)
	if err != nil {
		return &InvalidContentError{Reason: fmt.Sprintf("corrupted PDF: %v", err)}
	}
	if ctx.PageCount == 0 {
		return &InvalidContentError{Reason: "invalid PDF: no pages found"}
	}
	if ctx.PageCount > lim.MaxPDFPages {
		return &InvalidContentError{
			Reason: fmt.Sprintf("PDF has too many pages: %d (limit %d)", ctx.PageCount, lim.MaxPDFPages),
		}
	}
	return nil
}

func checkJPEG(data []byte) error {
	if !bytes.HasPrefix(data, []byte{0xff, 0xd8, 0xff}) || !bytes.HasSuffix(data, []byte{0xff, 0xd9}) {
		return &InvalidContentError{Reason: "invalid JPEG: incorrect file signature"}
	}
	return nil
}

var pngSignature = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

func checkPNG(data []byte) error {
	if !bytes.HasPrefix(data, pngSignature) {
		return &InvalidContentError{Reason: "invalid PNG: incorrect file signature"}
	}
	// Minimum size for signature + IHDR + IEND.
	if len(data) < 33 {
		return &InvalidContentError{Reason: "invalid PNG: file too small"}
	}
	return nil
}

func checkWEBP(data []byte) error {
	if !bytes.HasPrefix(data, []byte("RIFF")) || len(data) < 12 || !bytes.Equal(data[8:12], []byte("WEBP")) {
		return &InvalidContentError{Reason: "invalid WebP: incorrect file signature"}
	}
	return nil
}
