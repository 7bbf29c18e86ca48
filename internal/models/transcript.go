package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TranscriptData is the result of one pipeline run over an uploaded transcript.
// ParsedGPA and ParsedECTS are derived by the aggregator and never set by callers.
// Once returned by the pipeline the value belongs to the caller and must not be
// mutated; any correction re-runs the pipeline.
type TranscriptData struct {
	ID                   string            `json:"id"`
	StudentUserID        string            `json:"student_user_id"`
	ContentID            string            `json:"content_id,omitempty"`
	Format               string            `json:"format"`
	Rows                 []CourseRecord    `json:"rows"`
	ParsedGPA            decimal.Decimal   `json:"parsed_gpa"`
	ParsedECTS           int               `json:"parsed_ects"`
	IsValidForProcessing bool              `json:"is_valid_for_processing"`
	ValidationErrors     []ValidationError `json:"validation_errors"`
	Eligible             bool              `json:"eligible"`
	ProcessedAt          *time.Time        `json:"processed_at,omitempty"`
	CreatedAt            time.Time         `json:"created_at"`
	UpdatedAt            time.Time         `json:"updated_at"`
}

// FatalErrors returns the blocking findings in order.
func (t *TranscriptData) FatalErrors() []ValidationError {
	var out []ValidationError
	for _, e := range t.ValidationErrors {
		if e.Fatal() {
			out = append(out, e)
		}
	}
	return out
}

// Clone returns a deep copy so that stores and clients never share slices with the caller.
func (t *TranscriptData) Clone() *TranscriptData {
	if t == nil {
		return nil
	}
	c := *t
	c.Rows = append([]CourseRecord(nil), t.Rows...)
	for i := range c.Rows {
		if n := c.Rows[i].Grade.Numeric; n != nil {
			v := *n
			c.Rows[i].Grade.Numeric = &v
		}
	}
	c.ValidationErrors = make([]ValidationError, len(t.ValidationErrors))
	for i, e := range t.ValidationErrors {
		if e.RowIndex != nil {
			idx := *e.RowIndex
			e.RowIndex = &idx
		}
		c.ValidationErrors[i] = e
	}
	if t.ProcessedAt != nil {
		p := *t.ProcessedAt
		c.ProcessedAt = &p
	}
	return &c
}

// Stats summarizes the stored transcripts for the dashboard.
type Stats struct {
	Transcripts int64 `json:"transcripts"`
	Valid       int64 `json:"valid"`
	Eligible    int64 `json:"eligible"`
	// DiskBytes is the on-disk size of the database and course index.
	DiskBytes int64 `json:"disk_bytes"`
}
