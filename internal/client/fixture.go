package client

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/hyperjump/gradsys/internal/courseindex"
	"github.com/hyperjump/gradsys/internal/export"
	"github.com/hyperjump/gradsys/internal/fileid"
	"github.com/hyperjump/gradsys/internal/models"
	"github.com/hyperjump/gradsys/internal/storage"
)

// fixtureFile is the YAML layout of a fixture.
type fixtureFile struct {
	Transcripts []fixtureTranscript `yaml:"transcripts"`
	// Parsed is returned by ParseTranscript and copied by UploadTranscript.
	Parsed *fixtureTranscript `yaml:"parsed"`
}

type fixtureTranscript struct {
	ID            string          `yaml:"id"`
	StudentUserID string          `yaml:"student_user_id"`
	Format        string          `yaml:"format"`
	GPA           string          `yaml:"gpa"`
	ECTS          int             `yaml:"ects"`
	Valid         bool            `yaml:"valid"`
	Eligible      bool            `yaml:"eligible"`
	Courses       []fixtureCourse `yaml:"courses"`
	Errors        []fixtureError  `yaml:"errors"`
}

type fixtureCourse struct {
	Code    string `yaml:"code"`
	Name    string `yaml:"name"`
	Credits string `yaml:"credits"`
	Grade   string `yaml:"grade"`
	Term    string `yaml:"term"`
}

type fixtureError struct {
	Row     *int   `yaml:"row"`
	Code    string `yaml:"code"`
	Field   string `yaml:"field"`
	Message string `yaml:"message"`
}

func (f fixtureTranscript) toModel(now time.Time) (*models.TranscriptData, error) {
	t := &models.TranscriptData{
		ID:                   f.ID,
		StudentUserID:        f.StudentUserID,
		Format:               f.Format,
		ParsedECTS:           f.ECTS,
		IsValidForProcessing: f.Valid,
		Eligible:             f.Eligible,
		ValidationErrors:     []models.ValidationError{},
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if f.GPA != "" {
		gpa, err := decimal.NewFromString(f.GPA)
		if err != nil {
			return nil, fmt.Errorf("transcript %s: gpa: %w", f.ID, err)
		}
		t.ParsedGPA = gpa
	}
	for i, c := range f.Courses {
		credits := decimal.Zero
		if c.Credits != "" {
			d, err := decimal.NewFromString(c.Credits)
			if err != nil {
				return nil, fmt.Errorf("transcript %s: course %d credits: %w", f.ID, i, err)
			}
			credits = d
		}
		t.Rows = append(t.Rows, models.CourseRecord{
			CourseCode: c.Code,
			CourseName: c.Name,
			Credits:    credits,
			Grade:      fixtureGrade(c.Grade),
			Term:       c.Term,
		})
	}
	for _, e := range f.Errors {
		code := models.ErrorCode(e.Code)
		if e.Row != nil {
			t.ValidationErrors = append(t.ValidationErrors, models.NewRowError(*e.Row, code, e.Field, e.Message))
		} else {
			t.ValidationErrors = append(t.ValidationErrors, models.NewTranscriptError(code, e.Message))
		}
	}
	if t.Eligible {
		p := now
		t.ProcessedAt = &p
	}
	return t, nil
}

func fixtureGrade(raw string) models.Grade {
	g := models.Grade{Raw: raw}
	if d, err := decimal.NewFromString(strings.TrimSpace(raw)); err == nil {
		g.Numeric = &d
		return g
	}
	g.Symbol = strings.ToUpper(strings.TrimSpace(raw))
	return g
}

// FixtureClient serves Service calls from a YAML fixture held in memory. Uploads,
// deletes and process calls change the in-memory copy only.
type FixtureClient struct {
	mu          sync.Mutex
	transcripts []*models.TranscriptData
	parsed      *models.TranscriptData
	now         func() time.Time
}

// LoadFixture reads a fixture file.
func LoadFixture(path string) (*FixtureClient, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture: %w", err)
	}
	return ParseFixture(data)
}

// ParseFixture builds a fixture client from YAML.
func ParseFixture(data []byte) (*FixtureClient, error) {
	var f fixtureFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse fixture: %w", err)
	}
	c := &FixtureClient{now: time.Now}
	now := c.now().UTC()
	seen := make(map[string]bool)
	for _, ft := range f.Transcripts {
		if ft.ID == "" {
			return nil, fmt.Errorf("fixture transcript for %q has no id", ft.StudentUserID)
		}
		if seen[ft.ID] {
			return nil, fmt.Errorf("fixture transcript %s listed twice", ft.ID)
		}
		seen[ft.ID] = true
		t, err := ft.toModel(now)
		if err != nil {
			return nil, err
		}
		c.transcripts = append(c.transcripts, t)
	}
	if f.Parsed != nil {
		t, err := f.Parsed.toModel(now)
		if err != nil {
			return nil, err
		}
		c.parsed = t
	}
	return c, nil
}

func (c *FixtureClient) Health(context.Context) error { return nil }

func (c *FixtureClient) ParseTranscript(_ context.Context, filename string, content []byte) (*models.TranscriptData, error) {
	return c.template(filename, "", content)
}

func (c *FixtureClient) template(filename, studentUserID string, content []byte) (*models.TranscriptData, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.parsed == nil {
		return nil, fmt.Errorf("fixture has no parsed transcript")
	}
	t := c.parsed.Clone()
	t.StudentUserID = studentUserID
	t.ContentID = fileid.ContentID(content)
	if ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), "."); ext != "" {
		t.Format = ext
	}
	return t, nil
}

func (c *FixtureClient) UploadTranscript(ctx context.Context, filename, studentUserID string, content []byte) (*models.TranscriptData, bool, error) {
	if strings.TrimSpace(studentUserID) == "" {
		return nil, false, fmt.Errorf("student_user_id is required")
	}
	contentID := fileid.ContentID(content)
	c.mu.Lock()
	for _, t := range c.transcripts {
		if t.StudentUserID == studentUserID && t.ContentID == contentID {
			c.mu.Unlock()
			return t.Clone(), false, nil
		}
	}
	c.mu.Unlock()

	t, err := c.template(filename, studentUserID, content)
	if err != nil {
		return nil, false, err
	}
	now := c.now().UTC()
	t.ID = uuid.New().String()
	t.Eligible = false
	t.ProcessedAt = nil
	t.CreatedAt, t.UpdatedAt = now, now
	c.mu.Lock()
	c.transcripts = append(c.transcripts, t)
	c.mu.Unlock()
	return t.Clone(), true, nil
}

func (c *FixtureClient) ListTranscripts(_ context.Context, opts ListOptions) ([]*models.TranscriptData, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []*models.TranscriptData
	for _, t := range c.transcripts {
		if opts.StudentUserID != "" && t.StudentUserID != opts.StudentUserID {
			continue
		}
		if opts.EligibleOnly && !t.Eligible {
			continue
		}
		out = append(out, t.Clone())
	}
	if opts.EligibleOnly {
		sort.SliceStable(out, func(i, j int) bool { return out[i].ParsedGPA.GreaterThan(out[j].ParsedGPA) })
	}
	return page(out, opts.Offset, opts.Limit), nil
}

func (c *FixtureClient) GetTranscript(_ context.Context, id string) (*models.TranscriptData, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.indexOf(id)
	if i < 0 {
		return nil, fmt.Errorf("transcript %s: %w", id, storage.ErrNotFound)
	}
	return c.transcripts[i].Clone(), nil
}

func (c *FixtureClient) DeleteTranscript(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.indexOf(id)
	if i < 0 {
		return fmt.Errorf("transcript %s: %w", id, storage.ErrNotFound)
	}
	c.transcripts = append(c.transcripts[:i], c.transcripts[i+1:]...)
	return nil
}

// ProcessTranscript stamps ProcessedAt. Fixtures carry no policy, so valid transcripts
// keep the eligible flag written in the fixture.
func (c *FixtureClient) ProcessTranscript(_ context.Context, id string) (*models.TranscriptData, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.indexOf(id)
	if i < 0 {
		return nil, fmt.Errorf("transcript %s: %w", id, storage.ErrNotFound)
	}
	t := c.transcripts[i]
	now := c.now().UTC()
	t.Eligible = t.Eligible && t.IsValidForProcessing
	t.ProcessedAt = &now
	t.UpdatedAt = now
	return t.Clone(), nil
}

func (c *FixtureClient) EligibleGraduates(ctx context.Context, offset, limit int) ([]*models.TranscriptData, error) {
	return c.ListTranscripts(ctx, ListOptions{EligibleOnly: true, Offset: offset, Limit: limit})
}

func (c *FixtureClient) ExportGraduates(ctx context.Context, format export.Format, w io.Writer) error {
	graduates, err := c.EligibleGraduates(ctx, 0, 0)
	if err != nil {
		return err
	}
	return export.Write(w, format, graduates)
}

// SearchCourses matches course codes exactly and names by case-insensitive substring.
func (c *FixtureClient) SearchCourses(_ context.Context, q courseindex.Query, limit int) ([]*models.TranscriptData, error) {
	if q.Empty() {
		return nil, nil
	}
	code := courseindex.NormalizeCode(q.Course)
	name := strings.ToLower(strings.TrimSpace(q.Name))
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []*models.TranscriptData
	for _, t := range c.transcripts {
		if fixtureMatches(t, code, name) {
			out = append(out, t.Clone())
		}
	}
	return page(out, 0, limit), nil
}

func fixtureMatches(t *models.TranscriptData, code, name string) bool {
	codeOK, nameOK := code == "", name == ""
	for _, r := range t.Rows {
		if code != "" && courseindex.NormalizeCode(r.CourseCode) == code {
			codeOK = true
		}
		if name != "" && strings.Contains(strings.ToLower(r.CourseName), name) {
			nameOK = true
		}
	}
	return codeOK && nameOK
}

func (c *FixtureClient) Stats(context.Context) (models.Stats, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var st models.Stats
	for _, t := range c.transcripts {
		st.Transcripts++
		if t.IsValidForProcessing {
			st.Valid++
		}
		if t.Eligible {
			st.Eligible++
		}
	}
	return st, nil
}

func (c *FixtureClient) indexOf(id string) int {
	for i, t := range c.transcripts {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func page(ts []*models.TranscriptData, offset, limit int) []*models.TranscriptData {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(ts) {
		return nil
	}
	ts = ts[offset:]
	if limit > 0 && limit < len(ts) {
		ts = ts[:limit]
	}
	return ts
}
