package grading

import (
	"github.com/hyperjump/gradsys/internal/models"
	"github.com/shopspring/decimal"
)

// Policy gates graduation eligibility on the derived aggregates.
type Policy struct {
	MinGPA  decimal.Decimal
	MinECTS int
}

// Eligible reports whether t is processable and meets the GPA and credit minimums.
func (p Policy) Eligible(t *models.TranscriptData) bool {
	if t == nil || !t.IsValidForProcessing {
		return false
	}
	return t.ParsedGPA.GreaterThanOrEqual(p.MinGPA) && t.ParsedECTS >= p.MinECTS
}
