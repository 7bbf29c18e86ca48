package parser

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hyperjump/gradsys/internal/extract"
	"github.com/hyperjump/gradsys/internal/grading"
	"github.com/hyperjump/gradsys/internal/models"
)

// ErrNoRows is returned when the input holds no course rows at all.
var ErrNoRows = errors.New("transcript has no course rows")

// Parser coerces raw rows into course records. It keeps no per-call state.
type Parser struct {
	schema *Schema
	scale  *grading.Scale
}

// New returns a parser for schema resolving grades against scale.
func New(schema *Schema, scale *grading.Scale) *Parser {
	return &Parser{schema: schema, scale: scale}
}

// Parse turns rows into records, one record per data row in input order. A row that
// fails coercion still yields a (partial) record plus row-scoped findings whose
// RowIndex is the record's index. Only input without any data row is an error.
//
// The header is the first row whose cells name every required field without a default; rows above it are
// preamble and copies of it further down (page headers) are skipped. Without a header,
// columns are taken in schema order and every row is data.
func (p *Parser) Parse(rows []extract.RawRow) ([]models.CourseRecord, []models.ValidationError, error) {
	if len(rows) == 0 {
		return nil, nil, ErrNoRows
	}
	columns, headerAt := p.findHeader(rows)
	var headerKey string
	start := 0
	if headerAt >= 0 {
		headerKey = rowKey(rows[headerAt])
		start = headerAt + 1
	}

	var (
		records []models.CourseRecord
		errs    []models.ValidationError
	)
	for _, row := range rows[start:] {
		if headerAt >= 0 && rowKey(row) == headerKey {
			continue
		}
		idx := len(records)
		if row.Err != nil {
			errs = append(errs, models.NewRowError(idx, models.CodeMalformedRow, "",
				fmt.Sprintf("line %d: %v", row.Line, row.Err)))
		}
		if row.Confidence == extract.ConfidenceLow {
			errs = append(errs, models.NewRowError(idx, models.CodeLowConfidenceRow, "",
				fmt.Sprintf("line %d on page %d may have been split into columns incorrectly", row.Line, row.Page)))
		}
		rec, rowErrs := p.parseRow(idx, row, columns)
		records = append(records, rec)
		errs = append(errs, rowErrs...)
	}
	if len(records) == 0 {
		return nil, nil, ErrNoRows
	}
	return records, errs, nil
}

// findHeader returns the column of every schema field (-1 when absent) and the index of
// the header row, or -1 for positional mapping.
func (p *Parser) findHeader(rows []extract.RawRow) ([]int, int) {
	fields := p.schema.fields
	for ri, row := range rows {
		columns := make([]int, len(fields))
		for i := range columns {
			columns[i] = -1
		}
		matched := 0
		for ci, cellText := range row.Fields {
			fi, ok := p.schema.lookup(cellText)
			if !ok || columns[fi] >= 0 {
				continue
			}
			columns[fi] = ci
			matched++
		}
		if matched == 0 {
			continue
		}
		complete := true
		for fi, spec := range fields {
			if spec.Required && spec.Default == "" && columns[fi] < 0 {
				complete = false
				break
			}
		}
		if complete {
			return columns, ri
		}
	}
	columns := make([]int, len(fields))
	for i := range columns {
		columns[i] = i
	}
	return columns, -1
}

func (p *Parser) parseRow(idx int, row extract.RawRow, columns []int) (models.CourseRecord, []models.ValidationError) {
	var (
		rec  models.CourseRecord
		errs []models.ValidationError
	)
	for fi, spec := range p.schema.fields {
		value := ""
		if c := columns[fi]; c >= 0 && c < len(row.Fields) {
			value = collapseSpace(row.Fields[c])
		}
		if value == "" {
			value = spec.Default
		}
		if value == "" {
			if spec.Required {
				errs = append(errs, models.NewRowError(idx, models.CodeFieldCoercion, spec.Name,
					fmt.Sprintf("missing required field %s", spec.Name)))
			}
			continue
		}
		switch spec.Type {
		case TypeDecimal:
			d, err := parseDecimal(value)
			if err != nil {
				errs = append(errs, models.NewRowError(idx, models.CodeFieldCoercion, spec.Name,
					fmt.Sprintf("%s: cannot read %q as a number", spec.Name, value)))
				continue
			}
			rec.Credits = d
		case TypeGrade:
			g, ok := p.scale.ParseGrade(value)
			rec.Grade = g
			if !ok {
				errs = append(errs, models.NewRowError(idx, models.CodeUnknownGrade, spec.Name,
					fmt.Sprintf("grade %q is not on the grade scale", value)))
			}
		case TypeCode:
			setText(&rec, spec.Name, strings.ToUpper(value))
		default:
			setText(&rec, spec.Name, value)
		}
	}
	return rec, errs
}

func setText(rec *models.CourseRecord, field, value string) {
	switch field {
	case FieldCourseCode:
		rec.CourseCode = value
	case FieldCourseName:
		rec.CourseName = value
	case FieldTerm:
		rec.Term = value
	}
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func rowKey(row extract.RawRow) string {
	parts := make([]string, len(row.Fields))
	for i, f := range row.Fields {
		parts[i] = normalizeHeader(f)
	}
	return strings.Join(parts, "\x1f")
}
