// Package api exposes the OCR pipeline over HTTP: multipart upload
// endpoints for text extraction and language detection, plus liveness
// routes. Every request gets an ID and a journal record.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hazyhaar/ocrpipe/idgen"
	"github.com/hazyhaar/ocrpipe/journal"
	"github.com/hazyhaar/ocrpipe/kit"
	"github.com/hazyhaar/ocrpipe/pipeline"
	"github.com/hazyhaar/ocrpipe/shield"
	"github.com/hazyhaar/ocrpipe/validate"
)

// Server handles the HTTP surface of the service.
type Server struct {
	pipe    *pipeline.Pipeline
	journal *journal.Store
	newID   idgen.Generator
	maxBody int64
	logger  *slog.Logger
}

// NewServer wires the pipeline and journal into an HTTP server. The journal
// may be nil; requests are then not recorded.
func NewServer(pipe *pipeline.Pipeline, jrnl *journal.Store, maxBody int64, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		pipe:    pipe,
		journal: jrnl,
		newID:   idgen.Prefixed("req_", idgen.Default),
		maxBody: maxBody,
		logger:  logger,
	}
}

// Router builds the chi router with the standard middleware stack.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	for _, mw := range shield.DefaultAPIStack(s.maxBody + 1<<20) {
		r.Use(mw)
	}

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)
	r.Post("/extract-text", s.handleExtractText)
	r.Post("/detect-language", s.handleDetectLanguage)

	return r
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "OCR text extraction service",
		"status":  "running",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleExtractText(w http.ResponseWriter, r *http.Request) {
	reqID, r := s.identify(w, r)
	start := time.Now()

	u, err := s.readUpload(r)
	if err != nil {
		s.fail(w, r, reqID, "extract-text", nil, start, err)
		return
	}

	res, err := s.pipe.ExtractText(r.Context(), u)
	if err != nil {
		s.fail(w, r, reqID, "extract-text", u, start, err)
		return
	}

	s.record(&journal.Entry{
		RequestID:  reqID,
		Op:         "extract-text",
		MediaType:  u.ContentType,
		SizeBytes:  u.Size(),
		Outcome:    "ok",
		Partial:    res.Partial,
		DurationMs: time.Since(start).Milliseconds(),
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"success":          true,
		"extracted_text":   res.Text,
		"confidence_score": res.Confidence,
		"processing_time":  res.Elapsed.Seconds(),
		"partial":          res.Partial,
		"pages":            res.Pages,
		"source":           res.Source,
	})
}

func (s *Server) handleDetectLanguage(w http.ResponseWriter, r *http.Request) {
	reqID, r := s.identify(w, r)
	start := time.Now()

	u, err := s.readUpload(r)
	if err != nil {
		s.fail(w, r, reqID, "detect-language", nil, start, err)
		return
	}

	res, err := s.pipe.DetectLanguage(r.Context(), u)
	if err != nil {
		s.fail(w, r, reqID, "detect-language", u, start, err)
		return
	}

	s.record(&journal.Entry{
		RequestID:  reqID,
		Op:         "detect-language",
		MediaType:  u.ContentType,
		SizeBytes:  u.Size(),
		Outcome:    "ok",
		DurationMs: time.Since(start).Milliseconds(),
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"success":            true,
		"detected_languages": res.Candidates,
		"primary_language":   res.Primary.Language,
		"processing_time":    res.Elapsed.Seconds(),
	})
}

// identify assigns the request its ID: a client-supplied X-Request-ID is
// honored when it is a well-formed UUID, anything else gets a generated one.
// The ID is echoed in the response header and carried in the context for
// downstream logging.
func (s *Server) identify(w http.ResponseWriter, r *http.Request) (string, *http.Request) {
	reqID := ""
	if v := r.Header.Get("X-Request-ID"); v != "" {
		if id, err := idgen.Parse(v); err == nil {
			reqID = id
		}
	}
	if reqID == "" {
		reqID = s.newID()
	}
	w.Header().Set("X-Request-ID", reqID)
	return reqID, r.WithContext(kit.WithRequestID(r.Context(), reqID))
}

// readUpload pulls the "file" part out of a multipart form. The declared
// part content type travels with the bytes; validation decides whether to
// trust it.
func (s *Server) readUpload(r *http.Request) (*validate.Upload, error) {
	file, header, err := r.FormFile("file")
	if err != nil {
		if tle := asTooLarge(r, err); tle != nil {
			return nil, tle
		}
		return nil, &validate.InvalidContentError{Reason: fmt.Sprintf("missing file field: %v", err)}
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		if tle := asTooLarge(r, err); tle != nil {
			return nil, tle
		}
		return nil, &validate.InvalidContentError{Reason: fmt.Sprintf("read upload: %v", err)}
	}

	ct := header.Header.Get("Content-Type")
	return &validate.Upload{Data: data, ContentType: ct, Filename: header.Filename}, nil
}

// asTooLarge converts a transport body-cap hit into the validator's size
// error so it surfaces as 413, not as a decode failure.
func asTooLarge(r *http.Request, err error) *validate.TooLargeError {
	var mbe *http.MaxBytesError
	if !errors.As(err, &mbe) {
		return nil
	}
	return &validate.TooLargeError{Size: r.ContentLength, Limit: mbe.Limit}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, reqID, op string, u *validate.Upload, start time.Time, err error) {
	kind := pipeline.Classify(err)
	status := kind.HTTPStatus()

	logger := shield.GetLogger(r.Context())
	logger.Warn("request failed",
		"request_id", kit.GetRequestID(r.Context()),
		"op", op,
		"kind", string(kind),
		"status", status,
		"transport", kit.GetTransport(r.Context()),
		"error", err)

	entry := &journal.Entry{
		RequestID:  reqID,
		Op:         op,
		Outcome:    "error",
		ErrorKind:  string(kind),
		DurationMs: time.Since(start).Milliseconds(),
	}
	if u != nil {
		entry.MediaType = u.ContentType
		entry.SizeBytes = u.Size()
	}
	s.record(entry)

	writeJSON(w, status, map[string]any{
		"detail": err.Error(),
		"kind":   string(kind),
	})
}

func (s *Server) record(e *journal.Entry) {
	if s.journal == nil {
		return
	}
	s.journal.RecordAsync(e)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
