package extract

import (
	"bytes"
	"context"
	"fmt"

	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"
)

// extractPDF reads positioned text page by page and groups it into row candidates.
// Cancellation is checked before every page, and progress is reported after each one.
// The PDF reader panics on some malformed inputs; that is reported as ErrUnreadable.
func (e *Extractor) extractPDF(ctx context.Context, content []byte, progress ProgressFunc) (rows []RawRow, err error) {
	if len(bytes.TrimSpace(content)) == 0 {
		return nil, newError(ErrEmpty, FormatPDF, nil)
	}
	defer func() {
		if r := recover(); r != nil {
			rows = nil
			err = newError(ErrUnreadable, FormatPDF, fmt.Errorf("reader panic: %v", r))
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, newError(ErrUnreadable, FormatPDF, err)
	}
	numPages := r.NumPage()
	if numPages == 0 {
		return nil, newError(ErrEmpty, FormatPDF, nil)
	}

	var lines []layoutLine
	for i := 0; i < numPages; i++ {
		if err := ctx.Err(); err != nil {
			e.logger.Debug("pdf extraction cancelled", zap.Int("page", i+1), zap.Int("pages", numPages))
			return nil, err
		}
		page := r.Page(i + 1)
		if !page.V.IsNull() {
			textRows, err := page.GetTextByRow()
			if err != nil {
				return nil, newError(ErrUnreadable, FormatPDF, fmt.Errorf("page %d: %w", i+1, err))
			}
			for _, tr := range textRows {
				line := layoutLine{Page: i + 1, Y: float64(tr.Position)}
				for _, t := range tr.Content {
					line.Fragments = append(line.Fragments, fragment{X: t.X, W: t.W, FontSize: t.FontSize, S: t.S})
				}
				lines = append(lines, line)
			}
		}
		progress(float64(i+1) / float64(numPages))
	}
	return buildRows(lines, e.layout), nil
}
