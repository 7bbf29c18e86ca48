package extract

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// extractCSV reads RFC 4180 records (double-quote quoting, "" escapes). The first record
// is the reference width; later records of another width are kept and marked with
// ErrFieldCount. A malformed record mid-file is kept as an empty marked row; a malformed
// first record means the stream is not CSV at all.
func extractCSV(content []byte) ([]RawRow, error) {
	text, ok := decodeText(content)
	if !ok {
		return nil, newError(ErrUnreadable, FormatCSV, errors.New("binary content"))
	}
	if strings.TrimSpace(text) == "" {
		return nil, newError(ErrEmpty, FormatCSV, nil)
	}
	r := csv.NewReader(strings.NewReader(text))
	r.FieldsPerRecord = -1

	var rows []RawRow
	width := -1
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if !errors.As(err, &pe) {
				return nil, newError(ErrUnreadable, FormatCSV, err)
			}
			if width < 0 {
				return nil, newError(ErrUnreadable, FormatCSV, err)
			}
			rows = append(rows, RawRow{Line: pe.StartLine, Confidence: ConfidenceExact, Err: err})
			continue
		}
		if blankRecord(record) {
			continue
		}
		line, _ := r.FieldPos(0)
		row := RawRow{Line: line, Fields: trimFields(record), Confidence: ConfidenceExact}
		if width < 0 {
			width = len(record)
		} else if len(record) != width {
			row.Err = fmt.Errorf("%w: got %d, want %d", ErrFieldCount, len(record), width)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func blankRecord(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

func trimFields(fields []string) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = strings.TrimSpace(f)
	}
	return out
}
