// Package pdftest builds small uncompressed PDFs for extraction tests.
package pdftest

import (
	"bytes"
	"fmt"
	"strings"
)

// Column and line geometry of generated pages, in PDF points.
const (
	Left       = 72
	ColumnStep = 150
	Top        = 700
	LineStep   = 20
)

// Build returns a PDF with one page per element of pages. Each page is a list of lines
// and each line a list of cells; cell i of a line starts at Left + i*ColumnStep. Text is
// set in 10pt Courier.
func Build(pages ...[][]string) []byte {
	var buf bytes.Buffer
	var offsets []int
	obj := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}

	buf.WriteString("%PDF-1.4\n")
	kids := make([]string, len(pages))
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", 4+2*i)
	}
	obj("<< /Type /Catalog /Pages 2 0 R >>")
	obj(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages)))
	obj("<< /Type /Font /Subtype /Type1 /BaseFont /Courier /Encoding /WinAnsiEncoding >>")
	for i, lines := range pages {
		obj(fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] "+
			"/Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", 5+2*i))
		var content strings.Builder
		content.WriteString("BT\n/F1 10 Tf\n")
		for l, cells := range lines {
			for c, text := range cells {
				fmt.Fprintf(&content, "1 0 0 1 %d %d Tm\n(%s) Tj\n", Left+ColumnStep*c, Top-LineStep*l, escape(text))
			}
		}
		content.WriteString("ET")
		obj(fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", content.Len(), content.String()))
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(offsets)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)
	return buf.Bytes()
}

var escaper = strings.NewReplacer(`\`, `\\`, "(", `\(`, ")", `\)`)

func escape(s string) string { return escaper.Replace(s) }
