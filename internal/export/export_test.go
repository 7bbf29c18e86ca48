package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/hyperjump/gradsys/internal/models"
)

func graduates() []*models.TranscriptData {
	at := time.Date(2026, 6, 1, 9, 30, 0, 0, time.UTC)
	return []*models.TranscriptData{
		{ID: "t1", StudentUserID: "s1", ParsedGPA: decimal.RequireFromString("3.5"), ParsedECTS: 240, ProcessedAt: &at,
			Rows: []models.CourseRecord{{CourseCode: "CS101"}}},
		{ID: "t2", StudentUserID: "s2", ParsedGPA: decimal.RequireFromString("2.125"), ParsedECTS: 250},
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"csv", FormatCSV, false},
		{"", FormatCSV, false},
		{"XLSX", FormatXLSX, false},
		{"pdf", FormatPDF, false},
		{"odt", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, FormatCSV, graduates()); err != nil {
		t.Fatal(err)
	}
	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(records))
	}
	want := []string{"t1", "s1", "3.50", "240", "2026-06-01T09:30:00Z"}
	if strings.Join(records[1], ",") != strings.Join(want, ",") {
		t.Errorf("row 1 = %v, want %v", records[1], want)
	}
	if records[2][2] != "2.13" && records[2][2] != "2.12" {
		t.Errorf("gpa should have two decimals: %q", records[2][2])
	}
	if records[2][4] != "" {
		t.Errorf("unprocessed transcript should have empty timestamp: %q", records[2][4])
	}
	for _, rec := range records {
		for _, field := range rec {
			if field == "CS101" {
				t.Error("course rows must not be exported")
			}
		}
	}
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, FormatXLSX, graduates()); err != nil {
		t.Fatal(err)
	}
	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(sheet)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if rows[0][0] != "Transcript ID" || rows[1][0] != "t1" || rows[2][1] != "s2" {
		t.Errorf("unexpected rows %v", rows)
	}
	if rows[1][2] != "3.5" || rows[1][3] != "240" {
		t.Errorf("numeric cells: %v", rows[1])
	}
}

func TestFormatHelpers(t *testing.T) {
	at := time.Date(2026, 10, 19, 23, 0, 0, 0, time.UTC)
	if got := FormatXLSX.Filename(at); got != "graduates-20261019.xlsx" {
		t.Errorf("Filename = %q", got)
	}
	if FormatCSV.ContentType() != "text/csv" {
		t.Errorf("ContentType = %q", FormatCSV.ContentType())
	}
}

func TestWritePDF(t *testing.T) {
	defer func(c bool) { pdfCompress = c }(pdfCompress)
	pdfCompress = false

	var buf bytes.Buffer
	if err := Write(&buf, FormatPDF, graduates()); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "%PDF-") {
		t.Fatalf("missing pdf header: %q", out[:min(len(out), 16)])
	}
	for _, want := range []string{"(t1)", "(s1)", "(3.50)", "(240)", "(t2)", "(s2)", "(250)", "(Processed At)"} {
		if n := strings.Count(out, want); n != 1 {
			t.Errorf("%s appears %d times, want 1", want, n)
		}
	}
	if !strings.Contains(out, "2 transcripts") {
		t.Error("summary line missing")
	}
	if strings.Contains(out, "CS101") {
		t.Error("course rows must not be exported")
	}
	if FormatPDF.ContentType() != "application/pdf" {
		t.Errorf("content type = %q", FormatPDF.ContentType())
	}
}

func TestWritePDF_repeatsHeaderPerPage(t *testing.T) {
	defer func(c bool) { pdfCompress = c }(pdfCompress)
	pdfCompress = false

	many := make([]*models.TranscriptData, 60)
	for i := range many {
		many[i] = &models.TranscriptData{ID: fmt.Sprintf("t%02d", i), StudentUserID: "s", ParsedGPA: decimal.RequireFromString("3")}
	}
	var buf bytes.Buffer
	if err := WritePDF(&buf, many, time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for i := range many {
		if !strings.Contains(out, fmt.Sprintf("(t%02d)", i)) {
			t.Fatalf("row t%02d missing", i)
		}
	}
	if n := strings.Count(out, "(Transcript ID)"); n < 2 {
		t.Errorf("header printed %d times, want one per page", n)
	}
}

func TestWritePDF_empty(t *testing.T) {
	defer func(c bool) { pdfCompress = c }(pdfCompress)
	pdfCompress = false

	var buf bytes.Buffer
	if err := WritePDF(&buf, nil, time.Now()); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "No eligible graduates.") {
		t.Error("empty report should say so")
	}
}
