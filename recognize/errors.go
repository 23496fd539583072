package recognize

import (
	"fmt"
	"time"
)

// TimeoutError reports a page abandoned at its recognition deadline.
type TimeoutError struct {
	Page     int
	Deadline time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("recognition of page %d exceeded %s", e.Page, e.Deadline)
}

// UnavailableError reports an engine that could not produce any output,
// typically a missing runtime or language pack.
type UnavailableError struct {
	Engine string
	Reason string
	Err    error
}

func (e *UnavailableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("engine %s unavailable: %s: %v", e.Engine, e.Reason, e.Err)
	}
	return fmt.Sprintf("engine %s unavailable: %s", e.Engine, e.Reason)
}

func (e *UnavailableError) Unwrap() error { return e.Err }
