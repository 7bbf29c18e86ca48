package config

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/hyperjump/gradsys/internal/grading"
	"github.com/hyperjump/gradsys/internal/parser"
	"github.com/hyperjump/gradsys/internal/validate"
)

// BuildScale returns the configured grade scale.
func (g GradingConfig) BuildScale() (*grading.Scale, error) {
	return grading.NewScale(g.Scale, g.PassSymbols, g.PassThreshold)
}

// BuildBounds returns the configured per-course credit bounds.
func (g GradingConfig) BuildBounds() (validate.Bounds, error) {
	return validate.NewBounds(g.MinCredits, g.MaxCredits)
}

// Policy returns the configured graduation policy.
func (g GradingConfig) Policy() grading.Policy {
	return grading.Policy{MinGPA: decimal.NewFromFloat(g.MinGPA), MinECTS: g.MinECTS}
}

// BuildSchema returns the configured column schema.
func (s SchemaConfig) BuildSchema() (*parser.Schema, error) {
	if len(s.Fields) == 0 {
		return parser.DefaultSchema(), nil
	}
	schema, err := parser.NewSchema(s.Fields)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return schema, nil
}
