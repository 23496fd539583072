package pipeline

import (
	"errors"
	"net/http"

	"github.com/hazyhaar/ocrpipe/langid"
	"github.com/hazyhaar/ocrpipe/normalize"
	"github.com/hazyhaar/ocrpipe/recognize"
	"github.com/hazyhaar/ocrpipe/validate"
)

// Kind names a failure class. Kinds are stable strings used in responses
// and in the request journal.
type Kind string

const (
	KindUnsupportedMediaType Kind = "unsupported-media-type"
	KindOversizedFile        Kind = "oversized-file"
	KindDecodeFailure        Kind = "decode-failure"
	KindEngineUnavailable    Kind = "engine-unavailable"
	KindEngineTimeout        Kind = "engine-timeout"
	KindInsufficientText     Kind = "insufficient-text"
	KindInternal             Kind = "internal"
)

// Classify maps any pipeline error to its Kind. Unrecognized errors are
// KindInternal.
func Classify(err error) Kind {
	var (
		unsupported  *validate.UnsupportedTypeError
		tooLarge     *validate.TooLargeError
		invalid      *validate.InvalidContentError
		decode       *normalize.DecodeError
		toolMissing  *normalize.UnavailableError
		engineDown   *recognize.UnavailableError
		timeout      *recognize.TimeoutError
		insufficient *langid.InsufficientTextError
	)
	switch {
	case errors.As(err, &unsupported):
		return KindUnsupportedMediaType
	case errors.As(err, &tooLarge):
		return KindOversizedFile
	case errors.As(err, &invalid), errors.As(err, &decode):
		return KindDecodeFailure
	case errors.As(err, &toolMissing), errors.As(err, &engineDown):
		return KindEngineUnavailable
	case errors.As(err, &timeout):
		return KindEngineTimeout
	case errors.As(err, &insufficient):
		return KindInsufficientText
	default:
		return KindInternal
	}
}

// HTTPStatus maps a Kind to its response status code.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindUnsupportedMediaType:
		return http.StatusUnsupportedMediaType
	case KindOversizedFile:
		return http.StatusRequestEntityTooLarge
	case KindDecodeFailure, KindInsufficientText:
		return http.StatusUnprocessableEntity
	case KindEngineUnavailable:
		return http.StatusServiceUnavailable
	case KindEngineTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
