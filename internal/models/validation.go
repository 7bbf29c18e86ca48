package models

import "fmt"

// ErrorCode identifies the kind of a validation finding.
type ErrorCode string

const (
	CodeFieldCoercion      ErrorCode = "FieldCoercion"
	CodeUnknownGrade       ErrorCode = "UnknownGrade"
	CodeDuplicateCourse    ErrorCode = "DuplicateCourse"
	CodeCreditsOutOfRange  ErrorCode = "CreditsOutOfRange"
	CodeTermOrderViolation ErrorCode = "TermOrderViolation"
	CodeMalformedRow       ErrorCode = "MalformedRow"
	CodeLowConfidenceRow   ErrorCode = "LowConfidenceRow"
	CodeEmptyTranscript    ErrorCode = "EmptyTranscript"
	CodeUnreadable         ErrorCode = "Unreadable"
	CodeUnsupportedFormat  ErrorCode = "UnsupportedFormat"
)

// Severity classifies a finding as blocking or informational.
type Severity string

const (
	SeverityFatal   Severity = "fatal"
	SeverityWarning Severity = "warning"
)

// Severity returns the class of the code. Unknown codes are fatal.
func (c ErrorCode) Severity() Severity {
	switch c {
	case CodeTermOrderViolation, CodeMalformedRow, CodeLowConfidenceRow:
		return SeverityWarning
	default:
		return SeverityFatal
	}
}

// ValidationError is a single finding. A nil RowIndex marks a transcript-level finding;
// otherwise it indexes TranscriptData.Rows.
type ValidationError struct {
	RowIndex *int      `json:"row_index"`
	Code     ErrorCode `json:"code"`
	Field    string    `json:"field,omitempty"`
	Message  string    `json:"message"`
	Severity Severity  `json:"severity"`
}

// NewRowError returns a finding scoped to the record at index.
func NewRowError(index int, code ErrorCode, field, message string) ValidationError {
	i := index
	return ValidationError{RowIndex: &i, Code: code, Field: field, Message: message, Severity: code.Severity()}
}

// NewTranscriptError returns a transcript-level finding.
func NewTranscriptError(code ErrorCode, message string) ValidationError {
	return ValidationError{Code: code, Message: message, Severity: code.Severity()}
}

// Fatal reports whether the finding blocks processing.
func (e ValidationError) Fatal() bool {
	return e.Code.Severity() == SeverityFatal
}

func (e ValidationError) Error() string {
	if e.RowIndex == nil {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("row %d: %s: %s", *e.RowIndex, e.Code, e.Message)
}

// HasFatal reports whether any finding in errs is fatal.
func HasFatal(errs []ValidationError) bool {
	for _, e := range errs {
		if e.Fatal() {
			return true
		}
	}
	return false
}
