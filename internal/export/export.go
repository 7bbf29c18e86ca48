// Package export writes graduate lists for registrar offices. Only aggregate fields
// leave the system; course rows are never exported.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/hyperjump/gradsys/internal/models"
)

// Format is an export file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatPDF  Format = "pdf"
)

// ParseFormat accepts "csv", "xlsx" or "pdf" in any case.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatCSV, "":
		return FormatCSV, nil
	case FormatXLSX:
		return FormatXLSX, nil
	case FormatPDF:
		return FormatPDF, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", s)
	}
}

// ContentType returns the MIME type of f.
func (f Format) ContentType() string {
	switch f {
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatPDF:
		return "application/pdf"
	default:
		return "text/csv"
	}
}

// Filename returns a download name for an export made at t.
func (f Format) Filename(t time.Time) string {
	return fmt.Sprintf("graduates-%s.%s", t.UTC().Format("20060102"), f)
}

var header = []string{"Transcript ID", "Student User ID", "GPA", "ECTS", "Processed At"}

func record(t *models.TranscriptData) []string {
	processed := ""
	if t.ProcessedAt != nil {
		processed = t.ProcessedAt.UTC().Format(time.RFC3339)
	}
	return []string{t.ID, t.StudentUserID, t.ParsedGPA.StringFixed(2), strconv.Itoa(t.ParsedECTS), processed}
}

// Write writes transcripts to w in format f.
func Write(w io.Writer, f Format, transcripts []*models.TranscriptData) error {
	switch f {
	case FormatCSV:
		return WriteCSV(w, transcripts)
	case FormatXLSX:
		return WriteXLSX(w, transcripts)
	case FormatPDF:
		return WritePDF(w, transcripts, time.Now())
	default:
		return fmt.Errorf("unsupported export format %q", f)
	}
}

// WriteCSV writes one header row and one row per transcript.
func WriteCSV(w io.Writer, transcripts []*models.TranscriptData) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, t := range transcripts {
		if err := cw.Write(record(t)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

const sheet = "Graduates"

// WriteXLSX writes a workbook with a single Graduates sheet. GPA and ECTS are numeric cells.
func WriteXLSX(w io.Writer, transcripts []*models.TranscriptData) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("xlsx sheet: %w", err)
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("xlsx header: %w", err)
	}
	for i, t := range transcripts {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		rec := record(t)
		row := []interface{}{rec[0], rec[1], t.ParsedGPA.Round(2).InexactFloat64(), t.ParsedECTS, rec[4]}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("xlsx row %d: %w", i+2, err)
		}
	}

	_ = f.SetColWidth(sheet, "A", "B", 38) // ids
	_ = f.SetColWidth(sheet, "C", "D", 10)
	_ = f.SetColWidth(sheet, "E", "E", 22)

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("xlsx write: %w", err)
	}
	return nil
}
