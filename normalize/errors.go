package normalize

import "fmt"

// DecodeError reports corrupt or truncated input, naming the page index
// where decoding failed when known (-1 otherwise).
type DecodeError struct {
	Page   int
	Reason string
}

func (e *DecodeError) Error() string {
	if e.Page >= 0 {
		return fmt.Sprintf("decode failed at page %d: %s", e.Page, e.Reason)
	}
	return fmt.Sprintf("decode failed: %s", e.Reason)
}

// UnavailableError reports a missing external rasterization tool.
type UnavailableError struct {
	Tool string
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("%s not available on this host", e.Tool)
}
