package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/hyperjump/gradsys/internal/models"
)

// SQLiteStorage implements Storage using SQLite. Course rows and findings are stored
// as JSON next to the aggregate columns, which stay queryable.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS transcripts (
		id TEXT PRIMARY KEY,
		student_user_id TEXT NOT NULL,
		content_id TEXT NOT NULL,
		format TEXT NOT NULL,
		rows TEXT NOT NULL,
		parsed_gpa TEXT NOT NULL,
		parsed_ects INTEGER NOT NULL,
		is_valid INTEGER NOT NULL,
		validation_errors TEXT NOT NULL,
		eligible INTEGER NOT NULL DEFAULT 0,
		processed_at TIMESTAMP,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_transcripts_student ON transcripts(student_user_id);
	CREATE INDEX IF NOT EXISTS idx_transcripts_content ON transcripts(student_user_id, content_id);
	CREATE INDEX IF NOT EXISTS idx_transcripts_eligible ON transcripts(eligible);
	CREATE INDEX IF NOT EXISTS idx_transcripts_created_at ON transcripts(created_at);
	`
	_, err := db.Exec(schema)
	return err
}

const transcriptColumns = `id, student_user_id, content_id, format, rows, parsed_gpa, parsed_ects,
	is_valid, validation_errors, eligible, processed_at, created_at, updated_at`

// CreateTranscript inserts a transcript.
func (s *SQLiteStorage) CreateTranscript(ctx context.Context, t *models.TranscriptData) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	rowsJSON, errsJSON, err := marshalBody(t)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO transcripts (`+transcriptColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.StudentUserID, t.ContentID, t.Format, rowsJSON, t.ParsedGPA.String(), t.ParsedECTS,
		t.IsValidForProcessing, errsJSON, t.Eligible, nullTime(t.ProcessedAt), t.CreatedAt, t.UpdatedAt,
	)
	return err
}

// GetTranscript returns a transcript by ID.
func (s *SQLiteStorage) GetTranscript(ctx context.Context, id string) (*models.TranscriptData, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+transcriptColumns+` FROM transcripts WHERE id = ?`, id)
	t, err := scanTranscript(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return t, err
}

// FindByContent returns the newest transcript with contentID uploaded for studentUserID.
func (s *SQLiteStorage) FindByContent(ctx context.Context, studentUserID, contentID string) (*models.TranscriptData, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+transcriptColumns+` FROM transcripts
		 WHERE student_user_id = ? AND content_id = ?
		 ORDER BY created_at DESC LIMIT 1`, studentUserID, contentID)
	t, err := scanTranscript(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: content %s", ErrNotFound, contentID)
	}
	return t, err
}

// UpdateTranscript stores the eligibility outcome of an existing transcript. The parsed
// body is immutable; a corrected transcript is a new upload.
func (s *SQLiteStorage) UpdateTranscript(ctx context.Context, t *models.TranscriptData) error {
	t.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx,
		`UPDATE transcripts SET eligible = ?, processed_at = ?, updated_at = ?
		 WHERE id = ?`,
		t.Eligible, nullTime(t.ProcessedAt), t.UpdatedAt, t.ID,
	)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, t.ID)
	}
	return nil
}

// DeleteTranscript removes a transcript by ID.
func (s *SQLiteStorage) DeleteTranscript(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM transcripts WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// ListTranscripts returns transcripts with offset and limit, newest first. Eligible-only
// listings are ordered by GPA instead. A limit <= 0 returns every match.
func (s *SQLiteStorage) ListTranscripts(ctx context.Context, filter ListFilter, offset, limit int) ([]*models.TranscriptData, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter.StudentUserID != "" {
		where = append(where, "student_user_id = ?")
		args = append(args, filter.StudentUserID)
	}
	order := "created_at DESC"
	if filter.EligibleOnly {
		where = append(where, "eligible = 1")
		order = "CAST(parsed_gpa AS REAL) DESC, created_at"
	}
	query := `SELECT ` + transcriptColumns + ` FROM transcripts`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	if limit <= 0 {
		limit = -1
	}
	query += " ORDER BY " + order + " LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.TranscriptData
	for rows.Next() {
		t, err := scanTranscript(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Stats returns transcript counts.
func (s *SQLiteStorage) Stats(ctx context.Context) (models.Stats, error) {
	var st models.Stats
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(is_valid), 0), COALESCE(SUM(eligible), 0) FROM transcripts`,
	).Scan(&st.Transcripts, &st.Valid, &st.Eligible)
	return st, err
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanTranscript(sc scanner) (*models.TranscriptData, error) {
	var (
		t         models.TranscriptData
		rowsJSON  string
		errsJSON  string
		gpa       string
		processed sql.NullTime
	)
	err := sc.Scan(&t.ID, &t.StudentUserID, &t.ContentID, &t.Format, &rowsJSON, &gpa, &t.ParsedECTS,
		&t.IsValidForProcessing, &errsJSON, &t.Eligible, &processed, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if t.ParsedGPA, err = decimal.NewFromString(gpa); err != nil {
		return nil, fmt.Errorf("transcript %s: parsed_gpa: %w", t.ID, err)
	}
	if err := json.Unmarshal([]byte(rowsJSON), &t.Rows); err != nil {
		return nil, fmt.Errorf("transcript %s: failed to unmarshal rows: %w", t.ID, err)
	}
	if err := json.Unmarshal([]byte(errsJSON), &t.ValidationErrors); err != nil {
		return nil, fmt.Errorf("transcript %s: failed to unmarshal validation errors: %w", t.ID, err)
	}
	if processed.Valid {
		p := processed.Time
		t.ProcessedAt = &p
	}
	return &t, nil
}

func marshalBody(t *models.TranscriptData) (string, string, error) {
	rows := t.Rows
	if rows == nil {
		rows = []models.CourseRecord{}
	}
	rowsJSON, err := json.Marshal(rows)
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal rows: %w", err)
	}
	findings := t.ValidationErrors
	if findings == nil {
		findings = []models.ValidationError{}
	}
	errsJSON, err := json.Marshal(findings)
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal validation errors: %w", err)
	}
	return string(rowsJSON), string(errsJSON), nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
