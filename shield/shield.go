// Package shield provides reusable HTTP security middleware for the OCR
// service: security headers, request body caps, request tracing, and HEAD
// method handling.
//
// Usage:
//
//	r := chi.NewRouter()
//	for _, mw := range shield.DefaultAPIStack(maxBody) {
//	    r.Use(mw)
//	}
package shield

import "net/http"

type contextKey string

// LoggerKey is the context key for the per-request structured logger.
const LoggerKey contextKey = "shield_logger"

// DefaultAPIStack returns the standard middleware stack for the upload API.
// Middleware is ordered: HeadToGet → SecurityHeaders → MaxBody → TraceID.
// maxBody caps every request body; uploads larger than the cap are cut off
// at the transport before any handler work.
func DefaultAPIStack(maxBody int64) []func(http.Handler) http.Handler {
	return []func(http.Handler) http.Handler{
		HeadToGet,
		SecurityHeaders(DefaultHeaders()),
		MaxBody(maxBody),
		TraceID,
	}
}
