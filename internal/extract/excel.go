package extract

import (
	"bytes"

	"github.com/xuri/excelize/v2"
)

// extractExcel reads the first sheet that has any rows. excelize drops trailing empty
// cells, so rows are padded to the header width before comparing widths.
func extractExcel(content []byte) ([]RawRow, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, newError(ErrUnreadable, FormatXLSX, err)
	}
	defer f.Close()

	for _, sheet := range f.GetSheetList() {
		grid, err := f.GetRows(sheet)
		if err != nil {
			return nil, newError(ErrUnreadable, FormatXLSX, err)
		}
		var rows []RawRow
		width := -1
		for i, cells := range grid {
			if blankRecord(cells) {
				continue
			}
			row := RawRow{Line: i + 1, Fields: trimFields(cells), Confidence: ConfidenceExact}
			if width < 0 {
				width = len(cells)
			} else if len(cells) < width {
				row.Fields = append(row.Fields, make([]string, width-len(cells))...)
			} else if len(cells) > width {
				row.Err = ErrFieldCount
			}
			rows = append(rows, row)
		}
		if len(rows) > 0 {
			return rows, nil
		}
	}
	return nil, newError(ErrEmpty, FormatXLSX, nil)
}
