// Package parser maps extracted rows onto typed course records using a field schema.
package parser

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// FieldType is the coercion applied to a cell.
type FieldType string

const (
	// TypeString trims and collapses whitespace.
	TypeString FieldType = "string"
	// TypeCode is a string that is also upper-cased.
	TypeCode FieldType = "code"
	// TypeDecimal accepts "3", "3.5" and "3,5".
	TypeDecimal FieldType = "decimal"
	// TypeGrade resolves against the grade scale.
	TypeGrade FieldType = "grade"
)

// Record fields a schema can bind.
const (
	FieldCourseCode = "course_code"
	FieldCourseName = "course_name"
	FieldCredits    = "credits"
	FieldGrade      = "grade"
	FieldTerm       = "term"
	FieldStudent    = "student_user_id"
)

var allowedTypes = map[string][]FieldType{
	FieldCourseCode: {TypeCode, TypeString},
	FieldCourseName: {TypeString},
	FieldCredits:    {TypeDecimal},
	FieldGrade:      {TypeGrade},
	FieldTerm:       {TypeCode, TypeString},
	FieldStudent:    {TypeString},
}

var mandatoryFields = []string{FieldCourseCode, FieldCredits, FieldGrade}

// FieldSpec describes one column: which record field it fills, the header texts that
// identify it, its coercion, and what happens when the cell is empty.
type FieldSpec struct {
	Name     string    `yaml:"name"`
	Aliases  []string  `yaml:"aliases"`
	Type     FieldType `yaml:"type"`
	Required bool      `yaml:"required"`
	Default  string    `yaml:"default"`
}

// Schema is an ordered, validated set of field specs. Order matters when a file has
// no recognizable header: columns are then taken positionally.
type Schema struct {
	fields []FieldSpec
	alias  map[string]int
}

// NewSchema validates specs and builds a schema.
func NewSchema(specs []FieldSpec) (*Schema, error) {
	s := &Schema{alias: make(map[string]int)}
	seen := make(map[string]bool)
	for _, spec := range specs {
		allowed, ok := allowedTypes[spec.Name]
		if !ok {
			return nil, fmt.Errorf("schema: unknown field %q", spec.Name)
		}
		if seen[spec.Name] {
			return nil, fmt.Errorf("schema: field %q defined twice", spec.Name)
		}
		seen[spec.Name] = true
		if spec.Type == "" {
			spec.Type = allowed[0]
		}
		if !typeAllowed(spec.Type, allowed) {
			return nil, fmt.Errorf("schema: field %q cannot have type %q", spec.Name, spec.Type)
		}
		if spec.Type == TypeDecimal && spec.Default != "" {
			if _, err := parseDecimal(spec.Default); err != nil {
				return nil, fmt.Errorf("schema: field %q default: %w", spec.Name, err)
			}
		}
		idx := len(s.fields)
		for _, a := range append([]string{spec.Name}, spec.Aliases...) {
			key := normalizeHeader(a)
			if key == "" {
				continue
			}
			if other, dup := s.alias[key]; dup && other != idx {
				return nil, fmt.Errorf("schema: alias %q used by %q and %q", a, s.fields[other].Name, spec.Name)
			}
			s.alias[key] = idx
		}
		s.fields = append(s.fields, spec)
	}
	for _, name := range mandatoryFields {
		if !seen[name] {
			return nil, fmt.Errorf("schema: field %q is required", name)
		}
	}
	return s, nil
}

// DefaultFieldSpecs returns the specs behind DefaultSchema. The optional name and student
// come last so that headerless files read code, credits, grade, term.
func DefaultFieldSpecs() []FieldSpec {
	return []FieldSpec{
		{Name: FieldCourseCode, Type: TypeCode, Required: true,
			Aliases: []string{"code", "course", "course code", "course no", "course id", "ders kodu"}},
		{Name: FieldCredits, Type: TypeDecimal, Required: true, Default: "0",
			Aliases: []string{"credit", "cr", "ects", "units", "kredi", "akts"}},
		{Name: FieldGrade, Type: TypeGrade, Required: true,
			Aliases: []string{"letter grade", "mark", "harf notu", "not"}},
		{Name: FieldTerm, Type: TypeString,
			Aliases: []string{"semester", "period", "session", "dönem", "yarıyıl"}},
		{Name: FieldCourseName, Type: TypeString,
			Aliases: []string{"name", "course name", "title", "course title", "ders adı"}},
		{Name: FieldStudent, Type: TypeString,
			Aliases: []string{"student", "student id", "student no", "student number", "öğrenci no"}},
	}
}

// DefaultSchema returns the schema used when none is configured.
func DefaultSchema() *Schema {
	s, err := NewSchema(DefaultFieldSpecs())
	if err != nil {
		panic(err)
	}
	return s
}

// Fields returns the specs in schema order.
func (s *Schema) Fields() []FieldSpec {
	return append([]FieldSpec(nil), s.fields...)
}

func (s *Schema) lookup(header string) (int, bool) {
	i, ok := s.alias[normalizeHeader(header)]
	return i, ok
}

func typeAllowed(t FieldType, allowed []FieldType) bool {
	for _, a := range allowed {
		if a == t {
			return true
		}
	}
	return false
}

// normalizeHeader lower-cases and keeps letters and digits only, so "Course Code" and
// "course_code" compare equal.
func normalizeHeader(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func parseDecimal(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if !strings.Contains(s, ".") && strings.Count(s, ",") == 1 {
		s = strings.Replace(s, ",", ".", 1)
	}
	return decimal.NewFromString(s)
}
