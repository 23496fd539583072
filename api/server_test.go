package api

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/jpeg"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/ocrpipe/dbopen"
	"github.com/hazyhaar/ocrpipe/journal"
	"github.com/hazyhaar/ocrpipe/normalize"
	"github.com/hazyhaar/ocrpipe/pipeline"
	"github.com/hazyhaar/ocrpipe/recognize"
)

type stubEngine struct {
	text string
	conf float64
}

func (e *stubEngine) Name() string { return "stub" }

func (e *stubEngine) Recognize(_ context.Context, _ normalize.Page) (recognize.PageResult, error) {
	return recognize.PageResult{Text: e.text, Confidence: e.conf}, nil
}

func newTestServer(t *testing.T, eng recognize.Engine) (*Server, *journal.Store) {
	t.Helper()
	jrnl := journal.NewStore(dbopen.OpenMemory(t))
	if err := jrnl.Init(); err != nil {
		t.Fatal(err)
	}
	pipe := pipeline.New(eng, pipeline.Config{})
	return NewServer(pipe, jrnl, 10<<20, nil), jrnl
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, 48, 48))); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// multipartUpload builds a multipart body with a single "file" part carrying
// an explicit content type.
func multipartUpload(t *testing.T, filename, contentType string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	h := textproto.MIMEHeader{}
	h.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatal(err)
	}
	mw.Close()
	return &body, mw.FormDataContentType()
}

func doUpload(t *testing.T, srv *Server, path, filename, contentType string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	body, ct := multipartUpload(t, filename, contentType, data)
	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func TestExtractTextEndpoint(t *testing.T) {
	srv, jrnl := newTestServer(t, &stubEngine{text: "invoice total 42 EUR", conf: 0.91})

	rec := doUpload(t, srv, "/extract-text", "scan.png", "image/png", pngBytes(t))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Success         bool    `json:"success"`
		ExtractedText   string  `json:"extracted_text"`
		ConfidenceScore float64 `json:"confidence_score"`
		ProcessingTime  float64 `json:"processing_time"`
		Partial         bool    `json:"partial"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Success || resp.ExtractedText != "invoice total 42 EUR" {
		t.Errorf("resp = %+v", resp)
	}
	if resp.ConfidenceScore != 0.91 {
		t.Errorf("confidence_score = %v", resp.ConfidenceScore)
	}
	if resp.Partial {
		t.Error("partial should be false")
	}

	if err := jrnl.Close(); err != nil {
		t.Fatal(err)
	}
	entries, err := jrnl.Recent(1)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Outcome != "ok" || entries[0].Op != "extract-text" {
		t.Errorf("journal entries = %+v", entries)
	}
	if !strings.HasPrefix(entries[0].RequestID, "req_") {
		t.Errorf("RequestID = %q, want req_ prefix", entries[0].RequestID)
	}
}

func TestExtractTextAcceptsJPEG(t *testing.T) {
	srv, _ := newTestServer(t, &stubEngine{text: "it works on my machine", conf: 0.83})

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, image.NewGray(image.Rect(0, 0, 48, 48)), nil); err != nil {
		t.Fatal(err)
	}
	rec := doUpload(t, srv, "/extract-text", "it_works_on_my_machine.jpg", "image/jpeg", buf.Bytes())
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Success         bool    `json:"success"`
		ExtractedText   string  `json:"extracted_text"`
		ConfidenceScore float64 `json:"confidence_score"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Success || resp.ExtractedText == "" {
		t.Errorf("resp = %+v", resp)
	}
	if resp.ConfidenceScore < 0 || resp.ConfidenceScore > 1 {
		t.Errorf("confidence_score = %v, want [0,1]", resp.ConfidenceScore)
	}
}

func TestExtractTextRejectsTextFile(t *testing.T) {
	srv, _ := newTestServer(t, &stubEngine{})

	rec := doUpload(t, srv, "/extract-text", "notes.txt", "text/plain", []byte("just some words"))
	if rec.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("status = %d, want 415", rec.Code)
	}

	var resp struct {
		Detail string `json:"detail"`
		Kind   string `json:"kind"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(resp.Detail, "text/plain") {
		t.Errorf("detail %q should name the rejected type", resp.Detail)
	}
	if resp.Kind != string(pipeline.KindUnsupportedMediaType) {
		t.Errorf("kind = %q", resp.Kind)
	}
}

func TestExtractTextBodyOverTransportCap(t *testing.T) {
	// A body larger than the middleware cap never reaches validation; it
	// must still surface as 413, not as a decode failure.
	pipe := pipeline.New(&stubEngine{}, pipeline.Config{})
	srv := NewServer(pipe, nil, 1024, nil)

	data := bytes.Repeat([]byte{0xab}, 2<<20)
	rec := doUpload(t, srv, "/extract-text", "big.png", "image/png", data)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want 413", rec.Code)
	}

	var resp struct {
		Kind string `json:"kind"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Kind != string(pipeline.KindOversizedFile) {
		t.Errorf("kind = %q, want %q", resp.Kind, pipeline.KindOversizedFile)
	}
}

func TestExtractTextMissingFileField(t *testing.T) {
	srv, _ := newTestServer(t, &stubEngine{})

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	mw.WriteField("note", "no file here")
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/extract-text", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
}

func TestDetectLanguageEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, &stubEngine{
		text: "The quick brown fox jumps over the lazy dog while the band plays on.",
		conf: 0.9,
	})

	rec := doUpload(t, srv, "/detect-language", "scan.png", "image/png", pngBytes(t))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Success           bool `json:"success"`
		DetectedLanguages []struct {
			Language       string  `json:"language"`
			Code           string  `json:"language_code"`
			TextPercentage float64 `json:"text_percentage"`
		} `json:"detected_languages"`
		// primary_language is the plain language name, not an object.
		Primary string `json:"primary_language"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Success || resp.Primary != "English" {
		t.Errorf("resp = %+v", resp)
	}
	if len(resp.DetectedLanguages) == 0 {
		t.Error("no detected_languages")
	}
	if resp.DetectedLanguages[0].Code != "en" {
		t.Errorf("top candidate language_code = %q, want en", resp.DetectedLanguages[0].Code)
	}
}

func TestRequestIDHeader(t *testing.T) {
	srv, jrnl := newTestServer(t, &stubEngine{text: "some recognized words", conf: 0.8})
	router := srv.Router()

	// A well-formed client UUID is honored and echoed.
	clientID := "0198c6a2-7c3e-7db1-93c8-0a5e4f1b2d3c"
	body, ct := multipartUpload(t, "scan.png", "image/png", pngBytes(t))
	req := httptest.NewRequest(http.MethodPost, "/extract-text", body)
	req.Header.Set("Content-Type", ct)
	req.Header.Set("X-Request-ID", clientID)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("X-Request-ID"); got != clientID {
		t.Errorf("X-Request-ID = %q, want %q", got, clientID)
	}

	// A malformed value is replaced with a generated ID.
	body, ct = multipartUpload(t, "scan.png", "image/png", pngBytes(t))
	req = httptest.NewRequest(http.MethodPost, "/extract-text", body)
	req.Header.Set("Content-Type", ct)
	req.Header.Set("X-Request-ID", "not-a-uuid")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Request-ID"); !strings.HasPrefix(got, "req_") {
		t.Errorf("X-Request-ID = %q, want generated req_ ID", got)
	}

	if err := jrnl.Close(); err != nil {
		t.Fatal(err)
	}
	entries, err := jrnl.Recent(2)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("len(entries) = %d, want 2", len(entries))
	}
	// Oldest of the two is the client-identified request.
	if entries[1].RequestID != clientID {
		t.Errorf("journal RequestID = %q, want %q", entries[1].RequestID, clientID)
	}
}

func TestHealthAndRoot(t *testing.T) {
	srv, _ := newTestServer(t, &stubEngine{})
	router := srv.Router()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("health status = %d", rec.Code)
	}
	var health struct {
		Status    string `json:"status"`
		Timestamp string `json:"timestamp"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &health); err != nil {
		t.Fatal(err)
	}
	if health.Status != "healthy" || health.Timestamp == "" {
		t.Errorf("health = %+v", health)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("root status = %d", rec.Code)
	}
	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("missing security headers, X-Content-Type-Options = %q", got)
	}
}

func TestConfigDefaultsValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestConfigValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero max_file_mb", func(c *Config) { c.MaxFileMB = 0 }},
		{"zero max_pdf_pages", func(c *Config) { c.MaxPDFPages = 0 }},
		{"dpi too low", func(c *Config) { c.RasterDPI = 10 }},
		{"bad log level", func(c *Config) { c.LogLevel = "verbose" }},
		{"confidence over 1", func(c *Config) { c.PDFTextConfidence = 1.5 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
