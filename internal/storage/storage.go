// Package storage persists finalized transcripts.
package storage

import (
	"context"
	"errors"

	"github.com/hyperjump/gradsys/internal/models"
)

// ErrNotFound is returned when no transcript has the requested ID.
var ErrNotFound = errors.New("transcript not found")

// ListFilter narrows ListTranscripts. Zero value lists everything.
type ListFilter struct {
	StudentUserID string
	EligibleOnly  bool
}

// Storage defines transcript persistence operations. Implementations store copies:
// callers keep ownership of the values they pass in and receive fresh values back.
type Storage interface {
	// CreateTranscript assigns an ID (when empty) and timestamps, then stores t.
	CreateTranscript(ctx context.Context, t *models.TranscriptData) error
	GetTranscript(ctx context.Context, id string) (*models.TranscriptData, error)
	// FindByContent returns the transcript a student already uploaded with the same content.
	FindByContent(ctx context.Context, studentUserID, contentID string) (*models.TranscriptData, error)
	// UpdateTranscript replaces the stored eligibility outcome of t.
	UpdateTranscript(ctx context.Context, t *models.TranscriptData) error
	DeleteTranscript(ctx context.Context, id string) error
	ListTranscripts(ctx context.Context, filter ListFilter, offset, limit int) ([]*models.TranscriptData, error)

	// Stats
	Stats(ctx context.Context) (models.Stats, error)

	Close() error
}
