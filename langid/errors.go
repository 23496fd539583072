package langid

import "fmt"

// InsufficientTextError reports input too short for reliable detection.
type InsufficientTextError struct {
	Chars int
	Min   int
}

func (e *InsufficientTextError) Error() string {
	return fmt.Sprintf("insufficient text for language detection: %d chars (min %d)", e.Chars, e.Min)
}
