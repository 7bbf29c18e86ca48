// Package cli formats transcripts and progress for the gradsys command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"text/tabwriter"

	"github.com/hyperjump/gradsys/internal/extract"
	"github.com/hyperjump/gradsys/internal/models"
	"github.com/hyperjump/gradsys/pkg/utils"
)

// OutputFormat is the format for transcript output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is indented JSON for machine consumption.
	OutputJSON OutputFormat = "json"
	// OutputCompact is one JSON document per line.
	OutputCompact OutputFormat = "compact"
)

// ParseOutputFormat accepts text, json or compact. Empty means text.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return OutputText, nil
	case OutputText, OutputJSON, OutputCompact:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want text, json or compact)", s)
	}
}

const (
	nameWidth    = 32
	messageWidth = 72
)

// WriteTranscript writes one transcript to w in the given format.
func WriteTranscript(w io.Writer, t *models.TranscriptData, format OutputFormat) error {
	switch format {
	case OutputJSON, OutputCompact:
		return writeJSON(w, t, format)
	default:
		writeTranscriptText(w, t)
		return nil
	}
}

func writeTranscriptText(w io.Writer, t *models.TranscriptData) {
	if t.ID != "" {
		fmt.Fprintf(w, "Transcript: %s\n", t.ID)
	}
	if t.StudentUserID != "" {
		fmt.Fprintf(w, "Student:    %s\n", t.StudentUserID)
	}
	fmt.Fprintf(w, "Format:     %s\n", t.Format)
	status := "valid"
	if !t.IsValidForProcessing {
		status = "invalid"
	}
	fmt.Fprintf(w, "Status:     %s\n", status)
	if t.IsValidForProcessing {
		fmt.Fprintf(w, "GPA:        %s\n", t.ParsedGPA.StringFixed(2))
		fmt.Fprintf(w, "ECTS:       %d\n", t.ParsedECTS)
	}
	if t.ProcessedAt != nil {
		fmt.Fprintf(w, "Eligible:   %v (processed %s)\n", t.Eligible, t.ProcessedAt.Format("2006-01-02 15:04"))
	}

	if len(t.Rows) > 0 {
		fmt.Fprintf(w, "\nCourses (%d)\n", len(t.Rows))
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "#\tCODE\tNAME\tCREDITS\tGRADE\tTERM")
		for i, r := range t.Rows {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
				i, r.CourseCode, utils.Truncate(r.CourseName, nameWidth), r.Credits.String(), r.Grade.String(), r.Term)
		}
		tw.Flush()
	}

	if len(t.ValidationErrors) > 0 {
		fmt.Fprintf(w, "\nFindings (%d)\n", len(t.ValidationErrors))
		for _, e := range t.ValidationErrors {
			where := "transcript"
			if e.RowIndex != nil {
				where = fmt.Sprintf("row %d", *e.RowIndex)
			}
			fmt.Fprintf(w, "  [%s] %s %s: %s\n", e.Severity, where, e.Code, utils.Truncate(e.Message, messageWidth))
		}
	}
}

// WriteTranscripts writes a list of transcripts. Text output is a summary table.
func WriteTranscripts(w io.Writer, list []*models.TranscriptData, format OutputFormat) error {
	switch format {
	case OutputJSON:
		if list == nil {
			list = []*models.TranscriptData{}
		}
		return writeJSON(w, list, format)
	case OutputCompact:
		for _, t := range list {
			if err := writeJSON(w, t, format); err != nil {
				return err
			}
		}
		return nil
	}
	if len(list) == 0 {
		fmt.Fprintln(w, "No transcripts.")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTUDENT\tFORMAT\tVALID\tGPA\tECTS\tELIGIBLE")
	for _, t := range list {
		gpa := "-"
		if t.IsValidForProcessing {
			gpa = t.ParsedGPA.StringFixed(2)
		}
		eligible := "-"
		if t.ProcessedAt != nil {
			eligible = fmt.Sprint(t.Eligible)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%v\t%s\t%d\t%s\n",
			t.ID, t.StudentUserID, t.Format, t.IsValidForProcessing, gpa, t.ParsedECTS, eligible)
	}
	return tw.Flush()
}

// WriteStats writes dashboard counts.
func WriteStats(w io.Writer, st models.Stats, format OutputFormat) error {
	if format != OutputText {
		return writeJSON(w, st, format)
	}
	fmt.Fprintf(w, "Transcripts: %d\n", st.Transcripts)
	fmt.Fprintf(w, "Valid:       %d\n", st.Valid)
	fmt.Fprintf(w, "Eligible:    %d\n", st.Eligible)
	if st.DiskBytes > 0 {
		fmt.Fprintf(w, "Disk usage:  %s\n", FormatBytes(st.DiskBytes))
	}
	return nil
}

func writeJSON(w io.Writer, v interface{}, format OutputFormat) error {
	enc := json.NewEncoder(w)
	if format == OutputJSON {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}

// FormatBytes returns n in human-readable units.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

// ProgressPrinter returns a progress callback that redraws "label: NN%" on w. Repeated
// fractions are not redrawn and the line is ended once the fraction reaches 1.
func ProgressPrinter(w io.Writer, label string) extract.ProgressFunc {
	var mu sync.Mutex
	last := -1
	return func(fraction float64) {
		pct := int(fraction * 100)
		if pct < 0 {
			pct = 0
		}
		if pct > 100 {
			pct = 100
		}
		mu.Lock()
		defer mu.Unlock()
		if pct == last {
			return
		}
		last = pct
		fmt.Fprintf(w, "\r%s: %3d%%", label, pct)
		if pct == 100 {
			fmt.Fprintln(w)
		}
	}
}
