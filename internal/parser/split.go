package parser

import (
	"errors"

	"github.com/hyperjump/gradsys/internal/extract"
)

// ErrNoStudentColumn is returned by Split when the file has no header naming a student
// column.
var ErrNoStudentColumn = errors.New("transcript has no student column")

// Group is the rows of one student. Rows starts with the file's header so that the
// group parses on its own.
type Group struct {
	StudentUserID string
	Rows          []extract.RawRow
}

// Split partitions a multi-student file by its student column, in order of first
// appearance. Rows with an empty student cell go to fallback's group. Preamble and
// repeated header rows are dropped.
func (p *Parser) Split(rows []extract.RawRow, fallback string) ([]Group, error) {
	if len(rows) == 0 {
		return nil, ErrNoRows
	}
	student := -1
	for fi, spec := range p.schema.fields {
		if spec.Name == FieldStudent {
			student = fi
		}
	}
	if student < 0 {
		return nil, ErrNoStudentColumn
	}
	columns, headerAt := p.findHeader(rows)
	if headerAt < 0 || columns[student] < 0 {
		return nil, ErrNoStudentColumn
	}
	header := rows[headerAt]
	headerKey := rowKey(header)
	col := columns[student]

	var groups []Group
	at := make(map[string]int)
	for _, row := range rows[headerAt+1:] {
		if rowKey(row) == headerKey {
			continue
		}
		id := fallback
		if col < len(row.Fields) {
			if v := collapseSpace(row.Fields[col]); v != "" {
				id = v
			}
		}
		gi, ok := at[id]
		if !ok {
			gi = len(groups)
			at[id] = gi
			groups = append(groups, Group{StudentUserID: id, Rows: []extract.RawRow{header}})
		}
		groups[gi].Rows = append(groups[gi].Rows, row)
	}
	if len(groups) == 0 {
		return nil, ErrNoRows
	}
	return groups, nil
}
