package extract

import (
	"errors"
	"fmt"
)

// Extraction failure kinds. Match with errors.Is.
var (
	ErrUnreadable        = errors.New("document unreadable")
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrEmpty             = errors.New("document empty")
)

// ErrFieldCount marks a row whose field count differs from the header row.
var ErrFieldCount = errors.New("field count differs from header")

// Error is a whole-document extraction failure.
type Error struct {
	Kind   error
	Format Format
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("extract %s: %v: %v", e.Format, e.Kind, e.Err)
	}
	return fmt.Sprintf("extract %s: %v", e.Format, e.Kind)
}

// Is matches the failure kind.
func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind error, format Format, err error) *Error {
	return &Error{Kind: kind, Format: format, Err: err}
}
