package export

import (
	"fmt"
	"io"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/hyperjump/gradsys/internal/models"
)

// pdfCompress is switched off in tests so that page content can be inspected.
var pdfCompress = true

// column widths in mm, matching header.
var pdfWidths = []float64{62, 52, 16, 16, 44}

const pdfLineHeight = 7.0

// WritePDF writes an A4 report with one table row per transcript. The header row is
// repeated on every page.
func WritePDF(w io.Writer, transcripts []*models.TranscriptData, generated time.Time) error {
	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetCompression(pdfCompress)
	doc.SetTitle("Eligible graduates", false)
	doc.SetCreationDate(generated)
	doc.SetAutoPageBreak(true, 15)
	tr := doc.UnicodeTranslatorFromDescriptor("")

	tableHeader := func() {
		doc.SetFont("Helvetica", "B", 9)
		doc.SetFillColor(230, 230, 230)
		for i, h := range header {
			doc.CellFormat(pdfWidths[i], pdfLineHeight, h, "1", 0, "L", true, 0, "")
		}
		doc.Ln(-1)
		doc.SetFont("Helvetica", "", 9)
	}
	doc.SetHeaderFunc(func() {
		if doc.PageNo() == 1 {
			doc.SetFont("Helvetica", "B", 14)
			doc.CellFormat(0, 10, "Eligible graduates", "", 1, "L", false, 0, "")
			doc.SetFont("Helvetica", "", 9)
			doc.CellFormat(0, 6, fmt.Sprintf("Generated %s, %d transcripts",
				generated.UTC().Format("2006-01-02 15:04 MST"), len(transcripts)), "", 1, "L", false, 0, "")
			doc.Ln(2)
		}
		tableHeader()
	})

	doc.AddPage()
	for _, t := range transcripts {
		rec := record(t)
		for i, v := range rec {
			align := "L"
			if i == 2 || i == 3 {
				align = "R"
			}
			doc.CellFormat(pdfWidths[i], pdfLineHeight, tr(v), "1", 0, align, false, 0, "")
		}
		doc.Ln(-1)
	}
	if len(transcripts) == 0 {
		doc.CellFormat(0, pdfLineHeight, "No eligible graduates.", "", 1, "L", false, 0, "")
	}

	if err := doc.Output(w); err != nil {
		return fmt.Errorf("pdf write: %w", err)
	}
	return nil
}
