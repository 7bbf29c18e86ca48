package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/hyperjump/gradsys/internal/extract"
	"github.com/hyperjump/gradsys/internal/models"
	"github.com/hyperjump/gradsys/internal/parser"
)

// Error is a total failure of one run. State is always StateAborted; From is the last
// state the run reached before aborting.
type Error struct {
	State State
	From  State
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("pipeline aborted after %s: %v", e.From, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Cancelled reports whether err is a run stopped by context cancellation or deadline.
func Cancelled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// transcriptError maps a failure to the transcript-level finding recorded on the
// partial transcript.
func transcriptError(err error) models.ValidationError {
	code := models.CodeUnreadable
	switch {
	case errors.Is(err, extract.ErrEmpty), errors.Is(err, parser.ErrNoRows):
		code = models.CodeEmptyTranscript
	case errors.Is(err, extract.ErrUnsupportedFormat):
		code = models.CodeUnsupportedFormat
	}
	return models.NewTranscriptError(code, err.Error())
}
