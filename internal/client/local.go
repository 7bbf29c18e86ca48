package client

import (
	"context"
	"io"

	"github.com/hyperjump/gradsys/internal/courseindex"
	"github.com/hyperjump/gradsys/internal/export"
	"github.com/hyperjump/gradsys/internal/extract"
	"github.com/hyperjump/gradsys/internal/models"
	"github.com/hyperjump/gradsys/internal/registrar"
	"github.com/hyperjump/gradsys/internal/storage"
)

// LocalClient serves Service calls from a registrar in this process. It opens the
// database directly, so it cannot run while a server holds the same files.
type LocalClient struct {
	reg *registrar.Registrar
}

// NewLocalClient wraps reg.
func NewLocalClient(reg *registrar.Registrar) *LocalClient {
	return &LocalClient{reg: reg}
}

func (c *LocalClient) Health(context.Context) error { return nil }

func (c *LocalClient) ParseTranscript(ctx context.Context, filename string, content []byte) (*models.TranscriptData, error) {
	format, err := extract.FormatFromFilename(filename)
	if err != nil {
		return nil, err
	}
	return c.reg.Parse(ctx, registrar.Upload{Content: content, Format: format})
}

func (c *LocalClient) UploadTranscript(ctx context.Context, filename, studentUserID string, content []byte) (*models.TranscriptData, bool, error) {
	format, err := extract.FormatFromFilename(filename)
	if err != nil {
		return nil, false, err
	}
	return c.reg.Submit(ctx, registrar.Upload{Content: content, Format: format, StudentUserID: studentUserID})
}

func (c *LocalClient) UploadBulk(ctx context.Context, filename, studentUserID string, content []byte) ([]registrar.Submitted, error) {
	format, err := extract.FormatFromFilename(filename)
	if err != nil {
		return nil, err
	}
	return c.reg.SubmitBulk(ctx, registrar.Upload{Content: content, Format: format, StudentUserID: studentUserID})
}

func (c *LocalClient) ListTranscripts(ctx context.Context, opts ListOptions) ([]*models.TranscriptData, error) {
	filter := storage.ListFilter{StudentUserID: opts.StudentUserID, EligibleOnly: opts.EligibleOnly}
	return c.reg.List(ctx, filter, opts.Offset, opts.Limit)
}

func (c *LocalClient) GetTranscript(ctx context.Context, id string) (*models.TranscriptData, error) {
	return c.reg.Get(ctx, id)
}

func (c *LocalClient) DeleteTranscript(ctx context.Context, id string) error {
	return c.reg.Delete(ctx, id)
}

func (c *LocalClient) ProcessTranscript(ctx context.Context, id string) (*models.TranscriptData, error) {
	return c.reg.Process(ctx, id)
}

func (c *LocalClient) EligibleGraduates(ctx context.Context, offset, limit int) ([]*models.TranscriptData, error) {
	return c.reg.Eligible(ctx, offset, limit)
}

func (c *LocalClient) ExportGraduates(ctx context.Context, format export.Format, w io.Writer) error {
	list, err := c.reg.Eligible(ctx, 0, 0)
	if err != nil {
		return err
	}
	return export.Write(w, format, list)
}

func (c *LocalClient) SearchCourses(ctx context.Context, q courseindex.Query, limit int) ([]*models.TranscriptData, error) {
	return c.reg.SearchCourses(ctx, q, limit)
}

func (c *LocalClient) Stats(ctx context.Context) (models.Stats, error) {
	return c.reg.Stats(ctx)
}
