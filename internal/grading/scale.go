// Package grading holds the institution grade scale, GPA/credit aggregation, and the
// graduation eligibility policy.
package grading

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/hyperjump/gradsys/internal/models"
	"github.com/shopspring/decimal"
)

// Scale maps normalized grade symbols to grade points. A Scale is built once at
// start-up and is safe for concurrent use because nothing mutates it afterwards.
type Scale struct {
	points        map[string]decimal.Decimal
	passSymbols   map[string]struct{}
	passThreshold decimal.Decimal
	minPoint      decimal.Decimal
	maxPoint      decimal.Decimal
}

// NewScale builds a scale. points must not be empty; passSymbols are symbols that
// earn credit without carrying grade points (e.g. "P", "S").
func NewScale(points map[string]float64, passSymbols []string, passThreshold float64) (*Scale, error) {
	if len(points) == 0 {
		return nil, fmt.Errorf("grade scale: no symbols defined")
	}
	s := &Scale{
		points:        make(map[string]decimal.Decimal, len(points)),
		passSymbols:   make(map[string]struct{}, len(passSymbols)),
		passThreshold: decimal.NewFromFloat(passThreshold),
	}
	first := true
	for sym, p := range points {
		key := NormalizeSymbol(sym)
		if key == "" {
			return nil, fmt.Errorf("grade scale: empty symbol")
		}
		if p < 0 {
			return nil, fmt.Errorf("grade scale: negative points for %q", sym)
		}
		if _, dup := s.points[key]; dup {
			return nil, fmt.Errorf("grade scale: symbol %q defined twice", key)
		}
		d := decimal.NewFromFloat(p)
		s.points[key] = d
		if first || d.LessThan(s.minPoint) {
			s.minPoint = d
		}
		if first || d.GreaterThan(s.maxPoint) {
			s.maxPoint = d
		}
		first = false
	}
	for _, sym := range passSymbols {
		key := NormalizeSymbol(sym)
		if _, clash := s.points[key]; clash {
			return nil, fmt.Errorf("grade scale: pass symbol %q also has points", key)
		}
		s.passSymbols[key] = struct{}{}
	}
	return s, nil
}

// DefaultPoints is the 4.0 letter scale used when no scale is configured.
func DefaultPoints() map[string]float64 {
	return map[string]float64{
		"A+": 4.0, "A": 4.0, "A-": 3.7,
		"B+": 3.3, "B": 3.0, "B-": 2.7,
		"C+": 2.3, "C": 2.0, "C-": 1.7,
		"D+": 1.3, "D": 1.0, "D-": 0.7,
		"F": 0,
	}
}

// DefaultScale returns the default letter scale with P and S as pass symbols and D as the lowest pass.
func DefaultScale() *Scale {
	s, err := NewScale(DefaultPoints(), []string{"P", "S"}, 1.0)
	if err != nil {
		panic(err)
	}
	return s
}

// NormalizeSymbol upper-cases a grade symbol and strips all whitespace, so " b + " becomes "B+".
func NormalizeSymbol(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}

// ParseGrade resolves raw text against the scale. A symbol known to the scale (including
// pass symbols) or a number within the scale's point range resolves; anything else returns ok=false.
func (s *Scale) ParseGrade(raw string) (models.Grade, bool) {
	g := models.Grade{Raw: strings.TrimSpace(raw)}
	key := NormalizeSymbol(raw)
	if key == "" {
		return g, false
	}
	if _, ok := s.points[key]; ok {
		g.Symbol = key
		return g, true
	}
	if _, ok := s.passSymbols[key]; ok {
		g.Symbol = key
		return g, true
	}
	if d, err := decimal.NewFromString(strings.ReplaceAll(key, ",", ".")); err == nil {
		if d.LessThan(s.minPoint) || d.GreaterThan(s.maxPoint) {
			return g, false
		}
		g.Numeric = &d
		return g, true
	}
	return g, false
}

// Points returns the grade points for g. Pass symbols and unresolved grades have no points.
func (s *Scale) Points(g models.Grade) (decimal.Decimal, bool) {
	if g.Numeric != nil {
		return *g.Numeric, true
	}
	p, ok := s.points[g.Symbol]
	return p, ok
}

// Passed reports whether g earns credit: points at or above the pass threshold, or a pass symbol.
func (s *Scale) Passed(g models.Grade) bool {
	if p, ok := s.Points(g); ok {
		return p.GreaterThanOrEqual(s.passThreshold)
	}
	_, ok := s.passSymbols[g.Symbol]
	return ok
}

// Symbols returns the point-bearing symbols sorted by descending points, then name.
func (s *Scale) Symbols() []string {
	out := make([]string, 0, len(s.points))
	for k := range s.points {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool {
		pi, pj := s.points[out[i]], s.points[out[j]]
		if !pi.Equal(pj) {
			return pi.GreaterThan(pj)
		}
		return out[i] < out[j]
	})
	return out
}

// PassThreshold returns the minimum points that earn credit.
func (s *Scale) PassThreshold() decimal.Decimal {
	return s.passThreshold
}
