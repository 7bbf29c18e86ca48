// Package client reaches transcript data for the CLI: over the HTTP API of a running
// server, or from a YAML fixture when no server is available.
package client

import (
	"context"
	"fmt"
	"io"

	"github.com/hyperjump/gradsys/internal/config"
	"github.com/hyperjump/gradsys/internal/courseindex"
	"github.com/hyperjump/gradsys/internal/export"
	"github.com/hyperjump/gradsys/internal/models"
	"github.com/hyperjump/gradsys/internal/registrar"
)

// Service is the set of transcript operations the CLI uses.
type Service interface {
	Health(ctx context.Context) error
	// ParseTranscript runs the pipeline on content without storing it. The format is
	// taken from filename's extension.
	ParseTranscript(ctx context.Context, filename string, content []byte) (*models.TranscriptData, error)
	// UploadTranscript parses and stores content for a student. created is false when
	// the same content was already stored for that student.
	UploadTranscript(ctx context.Context, filename, studentUserID string, content []byte) (t *models.TranscriptData, created bool, err error)
	ListTranscripts(ctx context.Context, opts ListOptions) ([]*models.TranscriptData, error)
	GetTranscript(ctx context.Context, id string) (*models.TranscriptData, error)
	DeleteTranscript(ctx context.Context, id string) error
	ProcessTranscript(ctx context.Context, id string) (*models.TranscriptData, error)
	EligibleGraduates(ctx context.Context, offset, limit int) ([]*models.TranscriptData, error)
	ExportGraduates(ctx context.Context, format export.Format, w io.Writer) error
	SearchCourses(ctx context.Context, q courseindex.Query, limit int) ([]*models.TranscriptData, error)
	Stats(ctx context.Context) (models.Stats, error)
}

// BulkUploader is implemented by services that can store a multi-student file. The
// fixture client cannot, since it never parses content.
type BulkUploader interface {
	// UploadBulk stores one transcript per student named in content's student column.
	// Rows without a student belong to studentUserID.
	UploadBulk(ctx context.Context, filename, studentUserID string, content []byte) ([]registrar.Submitted, error)
}

var (
	_ BulkUploader = (*HTTPClient)(nil)
	_ BulkUploader = (*LocalClient)(nil)
	_ Service      = (*HTTPClient)(nil)
	_ Service = (*FixtureClient)(nil)
	_ Service = (*LocalClient)(nil)
)

// ListOptions filters ListTranscripts.
type ListOptions struct {
	StudentUserID string
	EligibleOnly  bool
	Offset        int
	Limit         int
}

// New returns the client selected by cfg.Mode.
func New(cfg config.ClientConfig) (Service, error) {
	switch cfg.Mode {
	case config.ClientModeLive, "":
		return NewHTTPClient(cfg.ServerURL, cfg.Timeout), nil
	case config.ClientModeFixture:
		return LoadFixture(cfg.FixturePath)
	default:
		return nil, fmt.Errorf("unknown client mode %q", cfg.Mode)
	}
}
