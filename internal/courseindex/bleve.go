package courseindex

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	blevequery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/hyperjump/gradsys/internal/models"
)

const defaultFuzziness = 1

// document is what gets indexed per transcript.
type document struct {
	StudentUserID string   `json:"student_user_id"`
	Courses       []string `json:"courses"`
	Names         []string `json:"names"`
	Terms         []string `json:"terms"`
}

// BleveIndex implements Index using Bleve.
type BleveIndex struct {
	index bleve.Index
}

func newMapping() *mapping.IndexMappingImpl {
	im := bleve.NewIndexMapping()
	docMapping := bleve.NewDocumentMapping()

	// Codes and terms are indexed verbatim after NormalizeCode.
	codeField := bleve.NewKeywordFieldMapping()
	docMapping.AddFieldMappingsAt("courses", codeField)
	docMapping.AddFieldMappingsAt("terms", codeField)
	docMapping.AddFieldMappingsAt("student_user_id", codeField)

	// Standard analyzer: lower-case and tokenize without stemming.
	nameField := bleve.NewTextFieldMapping()
	nameField.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt("names", nameField)

	im.AddDocumentMapping("transcript", docMapping)
	im.DefaultType = "transcript"
	im.DefaultMapping = docMapping
	return im
}

// NewBleveIndex creates or opens a Bleve index at path. An empty path gives an
// in-memory index. If the mapping changes, remove the index directory; the server
// re-indexes stored transcripts on start.
func NewBleveIndex(path string) (*BleveIndex, error) {
	im := newMapping()
	if path == "" {
		index, err := bleve.NewMemOnly(im)
		if err != nil {
			return nil, fmt.Errorf("failed to create in-memory Bleve index: %w", err)
		}
		return &BleveIndex{index: index}, nil
	}

	if _, err := os.Stat(path); err == nil {
		index, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open Bleve index: %w", openErr)
		}
		return &BleveIndex{index: index}, nil
	}

	index, err := bleve.New(path, im)
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &BleveIndex{index: index}, nil
}

// Index adds or replaces the courses of t, keyed by transcript ID.
func (b *BleveIndex) Index(ctx context.Context, t *models.TranscriptData) error {
	if t.ID == "" {
		return fmt.Errorf("course index: transcript has no ID")
	}
	doc := document{StudentUserID: t.StudentUserID}
	seen := make(map[string]bool)
	for _, r := range t.Rows {
		if code := NormalizeCode(r.CourseCode); code != "" && !seen[code] {
			seen[code] = true
			doc.Courses = append(doc.Courses, code)
		}
		if r.CourseName != "" {
			doc.Names = append(doc.Names, r.CourseName)
		}
		if term := NormalizeCode(r.Term); term != "" && !seen["\x00"+term] {
			seen["\x00"+term] = true
			doc.Terms = append(doc.Terms, term)
		}
	}
	return b.index.Index(t.ID, doc)
}

// Search returns up to limit transcripts matching q, best match first.
func (b *BleveIndex) Search(ctx context.Context, q Query, limit int) ([]Hit, error) {
	if q.Empty() {
		return nil, nil
	}
	var parts []blevequery.Query
	if code := NormalizeCode(q.Course); code != "" {
		tq := bleve.NewTermQuery(code)
		tq.SetField("courses")
		parts = append(parts, tq)
	}
	if name := strings.TrimSpace(q.Name); name != "" {
		parts = append(parts, buildNameQuery(name, q))
	}
	var query blevequery.Query = parts[0]
	if len(parts) > 1 {
		query = bleve.NewConjunctionQuery(parts...)
	}

	req := bleve.NewSearchRequest(query)
	req.Size = limit
	results, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("Bleve search failed: %w", err)
	}
	out := make([]Hit, len(results.Hits))
	for i, hit := range results.Hits {
		out[i] = Hit{TranscriptID: hit.ID, Score: hit.Score}
	}
	return out, nil
}

// buildNameQuery matches course-name words. With Fuzzy, each word becomes a FuzzyQuery
// and any of them may match.
func buildNameQuery(name string, q Query) blevequery.Query {
	if !q.Fuzzy {
		mq := bleve.NewMatchQuery(name)
		mq.SetField("names")
		return mq
	}
	fuzziness := q.Fuzziness
	if fuzziness <= 0 {
		fuzziness = defaultFuzziness
	}
	words := strings.Fields(strings.ToLower(name))
	queries := make([]blevequery.Query, 0, len(words))
	for _, w := range words {
		fq := bleve.NewFuzzyQuery(w)
		fq.SetFuzziness(fuzziness)
		fq.SetField("names")
		queries = append(queries, fq)
	}
	if len(queries) == 1 {
		return queries[0]
	}
	return bleve.NewDisjunctionQuery(queries...)
}

// Delete removes a transcript from the index.
func (b *BleveIndex) Delete(ctx context.Context, id string) error {
	return b.index.Delete(id)
}

// DocCount returns the total number of transcripts in the index.
func (b *BleveIndex) DocCount() (uint64, error) {
	return b.index.DocCount()
}

// Close closes the Bleve index.
func (b *BleveIndex) Close() error {
	return b.index.Close()
}
