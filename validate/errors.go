package validate

import "fmt"

// UnsupportedTypeError reports a media type outside the accept list,
// naming the rejected type.
type UnsupportedTypeError struct {
	ContentType string
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("unsupported media type: %s", e.ContentType)
}

// TooLargeError reports an upload over the size ceiling, naming both the
// limit and the actual size.
type TooLargeError struct {
	Size  int64
	Limit int64
}

func (e *TooLargeError) Error() string {
	return fmt.Sprintf("file too large: %d bytes (max %d)", e.Size, e.Limit)
}

// InvalidContentError reports content that fails a structural or signature
// check before decoding.
type InvalidContentError struct {
	Reason string
}

func (e *InvalidContentError) Error() string { return e.Reason }
