// Package models defines core data structures for transcripts, course records, and validation findings.
package models

import (
	"github.com/shopspring/decimal"
)

// Grade is a parsed grade cell. Exactly one of Symbol or Numeric is set when the
// grade resolved against the scale; both are empty when it did not.
type Grade struct {
	Raw     string           `json:"raw"`
	Symbol  string           `json:"symbol,omitempty"`
	Numeric *decimal.Decimal `json:"numeric,omitempty"`
}

// IsZero reports whether the grade carries neither a symbol nor a numeric value.
func (g Grade) IsZero() bool {
	return g.Symbol == "" && g.Numeric == nil
}

// String returns the normalized symbol, the numeric value, or the raw text, in that order.
func (g Grade) String() string {
	switch {
	case g.Symbol != "":
		return g.Symbol
	case g.Numeric != nil:
		return g.Numeric.String()
	default:
		return g.Raw
	}
}

// CourseRecord is one course line of a transcript. Records are values and are not
// modified after parsing; corrections go through a new parse.
type CourseRecord struct {
	CourseCode string          `json:"course_code"`
	CourseName string          `json:"course_name,omitempty"`
	Credits    decimal.Decimal `json:"credits"`
	Grade      Grade           `json:"grade"`
	Term       string          `json:"term,omitempty"`
}
