// Package courseindex finds stored transcripts by the courses they contain.
package courseindex

import (
	"context"
	"strings"

	"github.com/hyperjump/gradsys/internal/models"
)

// Query selects transcripts. Course matches a course code exactly (case and spacing
// ignored); Name matches words of the course name. Empty fields are ignored, and a
// query with both set requires both.
type Query struct {
	Course string
	Name   string
	// Fuzzy tolerates typos in Name within Fuzziness edits (default 1).
	Fuzzy     bool
	Fuzziness int
}

// Empty reports whether q selects nothing.
func (q Query) Empty() bool {
	return strings.TrimSpace(q.Course) == "" && strings.TrimSpace(q.Name) == ""
}

// Hit is a matching transcript.
type Hit struct {
	TranscriptID string  `json:"transcript_id"`
	Score        float64 `json:"score"`
}

// Index defines course search operations.
type Index interface {
	Index(ctx context.Context, t *models.TranscriptData) error
	Search(ctx context.Context, q Query, limit int) ([]Hit, error)
	Delete(ctx context.Context, id string) error
	// DocCount returns the number of indexed transcripts.
	DocCount() (uint64, error)
	Close() error
}

// NormalizeCode upper-cases a course code and drops whitespace, so "cs 101" and "CS101"
// index to the same term.
func NormalizeCode(code string) string {
	return strings.Join(strings.Fields(strings.ToUpper(code)), "")
}
