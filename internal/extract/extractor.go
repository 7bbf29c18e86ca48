// Package extract turns raw transcript files (CSV, PDF, XLSX) into ordered rows of text fields.
// It knows nothing about courses or grades.
package extract

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// Format is a supported input format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatPDF  Format = "pdf"
	FormatXLSX Format = "xlsx"
)

// ParseFormat accepts a format name, a file extension (with or without dot) or a MIME type.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")) {
	case "csv", "text/csv", "application/csv":
		return FormatCSV, nil
	case "pdf", "application/pdf":
		return FormatPDF, nil
	case "xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":
		return FormatXLSX, nil
	default:
		return "", newError(ErrUnsupportedFormat, Format(s), nil)
	}
}

// FormatFromFilename returns the format implied by the file extension.
func FormatFromFilename(name string) (Format, error) {
	return ParseFormat(filepath.Ext(name))
}

// Confidence says how much a row's field split can be trusted.
type Confidence string

const (
	// ConfidenceExact rows come from a structured format (CSV, XLSX).
	ConfidenceExact Confidence = "exact"
	// ConfidenceHigh rows were recovered from layout and align with the dominant column grid.
	ConfidenceHigh Confidence = "high"
	// ConfidenceLow rows were recovered from layout but do not align with the grid.
	ConfidenceLow Confidence = "low"
)

// RawRow is one row candidate. Err is set when the row is suspect (e.g. ErrFieldCount)
// but was kept so the user can see and correct it.
type RawRow struct {
	Line       int
	Page       int
	Fields     []string
	Confidence Confidence
	Err        error
}

// ProgressFunc receives fractional progress in [0, 1].
type ProgressFunc func(fraction float64)

// Extractor extracts rows from transcript documents. It holds no per-call state and
// may be shared between goroutines.
type Extractor struct {
	layout LayoutOptions
	logger *zap.Logger
}

// ExtractorOption configures an Extractor.
type ExtractorOption func(*Extractor)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) ExtractorOption {
	return func(e *Extractor) { e.logger = l }
}

// WithLayout overrides the PDF column heuristic settings.
func WithLayout(opts LayoutOptions) ExtractorOption {
	return func(e *Extractor) { e.layout = opts.withDefaults() }
}

// NewExtractor returns a new Extractor.
func NewExtractor(opts ...ExtractorOption) *Extractor {
	e := &Extractor{layout: DefaultLayoutOptions(), logger: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExtractFile reads the file at path and extracts rows using the format implied by its extension.
func (e *Extractor) ExtractFile(ctx context.Context, path string, progress ProgressFunc) ([]RawRow, error) {
	format, err := FormatFromFilename(path)
	if err != nil {
		return nil, err
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return e.Extract(ctx, content, format, progress)
}

// Extract decodes content as format. progress may be nil. PDF extraction reports after
// every page and stops with ctx.Err() when ctx is cancelled between pages; the other
// formats report once on completion.
func (e *Extractor) Extract(ctx context.Context, content []byte, format Format, progress ProgressFunc) ([]RawRow, error) {
	if progress == nil {
		progress = func(float64) {}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var (
		rows []RawRow
		err  error
	)
	switch format {
	case FormatCSV:
		rows, err = extractCSV(content)
	case FormatPDF:
		rows, err = e.extractPDF(ctx, content, progress)
	case FormatXLSX:
		rows, err = extractExcel(content)
	default:
		return nil, newError(ErrUnsupportedFormat, format, nil)
	}
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, newError(ErrEmpty, format, nil)
	}
	if format != FormatPDF {
		progress(1)
	}
	e.logger.Debug("extracted rows", zap.String("format", string(format)), zap.Int("rows", len(rows)))
	return rows, nil
}
