// Package registrar ties the transcript pipeline to storage, the course index and the
// graduation eligibility policy.
package registrar

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hyperjump/gradsys/internal/courseindex"
	"github.com/hyperjump/gradsys/internal/extract"
	"github.com/hyperjump/gradsys/internal/fileid"
	"github.com/hyperjump/gradsys/internal/grading"
	"github.com/hyperjump/gradsys/internal/models"
	"github.com/hyperjump/gradsys/internal/pipeline"
	"github.com/hyperjump/gradsys/internal/storage"
	"github.com/hyperjump/gradsys/pkg/utils"
	"go.uber.org/zap"
)

// ErrMissingStudent is returned when an upload names no student.
var ErrMissingStudent = errors.New("student_user_id is required")

// Registrar parses, stores and evaluates transcripts.
type Registrar struct {
	pipeline *pipeline.Pipeline
	storage  storage.Storage
	index    courseindex.Index
	policy   grading.Policy
	logger   *zap.Logger
	now      func() time.Time
	// reported by Stats
	dbPath    string
	indexPath string
}

// Option configures a Registrar.
type Option func(*Registrar)

// WithLogger sets a logger for debug output (transcript stored, deleted, etc.).
func WithLogger(l *zap.Logger) Option {
	return func(r *Registrar) { r.logger = l }
}

// WithDiskPaths sets the database file and index directory reported by Stats.
func WithDiskPaths(dbPath, indexPath string) Option {
	return func(r *Registrar) { r.dbPath, r.indexPath = dbPath, indexPath }
}

// WithClock overrides time.Now for processed timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Registrar) { r.now = now }
}

// New returns a registrar over the given components.
func New(p *pipeline.Pipeline, store storage.Storage, index courseindex.Index, policy grading.Policy, opts ...Option) *Registrar {
	r := &Registrar{
		pipeline: p,
		storage:  store,
		index:    index,
		policy:   policy,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = utils.OrNop(r.logger)
	return r
}

// Upload is one transcript submitted for a student.
type Upload struct {
	Content       []byte
	Format        extract.Format
	StudentUserID string
	OnProgress    extract.ProgressFunc
}

// Parse runs the pipeline without storing anything.
func (r *Registrar) Parse(ctx context.Context, u Upload) (*models.TranscriptData, error) {
	return r.pipeline.Run(ctx, pipeline.Input{
		Content:       u.Content,
		Format:        u.Format,
		StudentUserID: u.StudentUserID,
		OnProgress:    u.OnProgress,
	})
}

// Submit parses u and stores the finalized transcript. Re-uploading the same bytes for
// the same student returns the stored transcript with created false. Aborted runs are
// not stored; the partial transcript and the *pipeline.Error are returned instead.
func (r *Registrar) Submit(ctx context.Context, u Upload) (t *models.TranscriptData, created bool, err error) {
	if strings.TrimSpace(u.StudentUserID) == "" {
		return nil, false, ErrMissingStudent
	}
	existing, err := r.storage.FindByContent(ctx, u.StudentUserID, fileid.ContentID(u.Content))
	if err == nil {
		r.logger.Debug("registrar transcript already stored",
			zap.String("transcript_id", existing.ID), zap.String("student_user_id", u.StudentUserID))
		return existing, false, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, false, fmt.Errorf("failed to look up transcript: %w", err)
	}

	t, err = r.Parse(ctx, u)
	if err != nil {
		return t, false, err
	}
	if err := r.store(ctx, t); err != nil {
		return nil, false, err
	}
	return t, true, nil
}

// SubmitBulk stores one transcript per student found in a multi-student file. The
// file's student column decides ownership; rows without a student belong to
// u.StudentUserID. Transcripts already stored for the same bytes and student are
// returned with Created false. Nothing is stored when any row lacks a student.
func (r *Registrar) SubmitBulk(ctx context.Context, u Upload) ([]Submitted, error) {
	ts, err := r.pipeline.RunBulk(ctx, pipeline.Input{
		Content:       u.Content,
		Format:        u.Format,
		StudentUserID: strings.TrimSpace(u.StudentUserID),
		OnProgress:    u.OnProgress,
	})
	if err != nil {
		return nil, err
	}
	for _, t := range ts {
		if t.StudentUserID == "" {
			return nil, ErrMissingStudent
		}
	}

	out := make([]Submitted, 0, len(ts))
	for _, t := range ts {
		existing, err := r.storage.FindByContent(ctx, t.StudentUserID, t.ContentID)
		if err == nil {
			out = append(out, Submitted{Transcript: existing})
			continue
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return out, fmt.Errorf("failed to look up transcript: %w", err)
		}
		if err := r.store(ctx, t); err != nil {
			return out, err
		}
		out = append(out, Submitted{Transcript: t, Created: true})
	}
	r.logger.Debug("registrar bulk upload stored", zap.Int("transcripts", len(out)))
	return out, nil
}

// Submitted is one transcript of a bulk upload.
type Submitted struct {
	Transcript *models.TranscriptData `json:"transcript"`
	Created    bool                   `json:"created"`
}

func (r *Registrar) store(ctx context.Context, t *models.TranscriptData) error {
	if err := r.storage.CreateTranscript(ctx, t); err != nil {
		return fmt.Errorf("failed to store transcript: %w", err)
	}
	if err := r.index.Index(ctx, t); err != nil {
		// Undo the insert so a retry indexes the transcript instead of finding it stored.
		if delErr := r.storage.DeleteTranscript(context.WithoutCancel(ctx), t.ID); delErr != nil {
			r.logger.Warn("registrar failed to remove unindexed transcript",
				zap.String("transcript_id", t.ID), zap.Error(delErr))
		}
		return fmt.Errorf("failed to index courses: %w", err)
	}
	r.logger.Debug("registrar transcript stored",
		zap.String("transcript_id", t.ID),
		zap.String("student_user_id", t.StudentUserID),
		zap.Bool("valid", t.IsValidForProcessing))
	return nil
}

// Process re-evaluates graduation eligibility of a stored transcript and records the outcome.
func (r *Registrar) Process(ctx context.Context, id string) (*models.TranscriptData, error) {
	t, err := r.storage.GetTranscript(ctx, id)
	if err != nil {
		return nil, err
	}
	now := r.now().UTC()
	t.Eligible = r.policy.Eligible(t)
	t.ProcessedAt = &now
	if err := r.storage.UpdateTranscript(ctx, t); err != nil {
		return nil, fmt.Errorf("failed to update transcript: %w", err)
	}
	r.logger.Debug("registrar transcript processed",
		zap.String("transcript_id", t.ID), zap.Bool("eligible", t.Eligible))
	return t, nil
}

// SubmitFile reads path and submits it for studentUserID. When allowedExts is non-empty
// the extension must be listed (case-insensitive, with or without dot).
func (r *Registrar) SubmitFile(ctx context.Context, path, studentUserID string, allowedExts []string) (*models.TranscriptData, bool, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if len(allowedExts) > 0 && !extensionAllowed(ext, allowedExts) {
		return nil, false, fmt.Errorf("extension %q not in allowed list", ext)
	}
	format, err := extract.FormatFromFilename(path)
	if err != nil {
		return nil, false, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, false, fmt.Errorf("stat file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, false, fmt.Errorf("not a regular file: %s", path)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, false, fmt.Errorf("read file: %w", err)
	}
	return r.Submit(ctx, Upload{Content: content, Format: format, StudentUserID: studentUserID})
}

func extensionAllowed(ext string, allowed []string) bool {
	extNorm := strings.ToLower(strings.TrimPrefix(ext, "."))
	for _, a := range allowed {
		if strings.ToLower(strings.TrimPrefix(a, ".")) == extNorm {
			return true
		}
	}
	return false
}

// Get returns a stored transcript.
func (r *Registrar) Get(ctx context.Context, id string) (*models.TranscriptData, error) {
	return r.storage.GetTranscript(ctx, id)
}

// List returns stored transcripts, newest first.
func (r *Registrar) List(ctx context.Context, filter storage.ListFilter, offset, limit int) ([]*models.TranscriptData, error) {
	return r.storage.ListTranscripts(ctx, filter, offset, limit)
}

// Eligible returns processed transcripts that met the graduation policy, best GPA first.
func (r *Registrar) Eligible(ctx context.Context, offset, limit int) ([]*models.TranscriptData, error) {
	return r.storage.ListTranscripts(ctx, storage.ListFilter{EligibleOnly: true}, offset, limit)
}

// Delete removes a transcript from the course index and storage.
func (r *Registrar) Delete(ctx context.Context, id string) error {
	r.logger.Debug("registrar deleting transcript", zap.String("transcript_id", id))
	if err := r.index.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete from course index: %w", err)
	}
	if err := r.storage.DeleteTranscript(ctx, id); err != nil {
		return err
	}
	return nil
}

// SearchCourses returns stored transcripts matching q, best match first. Index hits
// whose transcript has since been deleted are skipped.
func (r *Registrar) SearchCourses(ctx context.Context, q courseindex.Query, limit int) ([]*models.TranscriptData, error) {
	hits, err := r.index.Search(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	out := make([]*models.TranscriptData, 0, len(hits))
	for _, h := range hits {
		t, err := r.storage.GetTranscript(ctx, h.TranscriptID)
		if err != nil {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

// Stats returns transcript counts and disk usage.
func (r *Registrar) Stats(ctx context.Context) (models.Stats, error) {
	st, err := r.storage.Stats(ctx)
	if err != nil {
		return st, err
	}
	dbBytes, err := storage.DatabaseUsageBytes(r.dbPath)
	if err != nil {
		return st, err
	}
	indexBytes, err := storage.DiskUsageBytes(r.indexPath)
	if err != nil {
		return st, err
	}
	st.DiskBytes = dbBytes + indexBytes
	return st, nil
}

const reindexPage = 200

// Reindex rebuilds the course index from storage when the index holds fewer transcripts
// than the store, e.g. after the index directory was removed. Returns the number indexed.
func (r *Registrar) Reindex(ctx context.Context) (int, error) {
	st, err := r.storage.Stats(ctx)
	if err != nil {
		return 0, err
	}
	have, err := r.index.DocCount()
	if err != nil {
		return 0, err
	}
	if int64(have) >= st.Transcripts {
		return 0, nil
	}
	n := 0
	for offset := 0; ; offset += reindexPage {
		page, err := r.storage.ListTranscripts(ctx, storage.ListFilter{}, offset, reindexPage)
		if err != nil {
			return n, err
		}
		for _, t := range page {
			if err := r.index.Index(ctx, t); err != nil {
				return n, fmt.Errorf("failed to index %s: %w", t.ID, err)
			}
			n++
		}
		if len(page) < reindexPage {
			break
		}
	}
	return n, nil
}
