package sensor

import (
	"errors"
	"fmt"
)

var (
	// ErrNotRecord marks a line that lacks the inclusion marker or carries the
	// exclusion marker. It is skipped silently.
	ErrNotRecord = errors.New("not a heatmon record")
	// ErrMalformedRecord marks a record whose device and temperature lists
	// cannot be paired.
	ErrMalformedRecord = errors.New("malformed record")
	// ErrMalformedTimestamp marks a record whose date prefix is unparseable
	// or out of range.
	ErrMalformedTimestamp = errors.New("malformed timestamp")
	// ErrLineTooLong marks a line cut short by the reader's line limit.
	ErrLineTooLong = errors.New("line too long")
)

// LineError attaches the 1-based input line number to a parse failure.
type LineError struct {
	Line int
	Err  error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *LineError) Unwrap() error {
	return e.Err
}

// Reason returns a short label for the failure class, used for counters.
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotRecord):
		return "not_record"
	case errors.Is(err, ErrMalformedRecord):
		return "malformed_record"
	case errors.Is(err, ErrMalformedTimestamp):
		return "malformed_timestamp"
	case errors.Is(err, ErrLineTooLong):
		return "too_long"
	default:
		return "other"
	}
}
