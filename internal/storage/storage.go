// Package storage persists ingested documents and their chunks.
package storage

import (
	"context"
	"errors"

	"github.com/hyperjump/musubi/internal/models"
)

// ErrNotFound is returned when a document or chunk does not exist.
var ErrNotFound = errors.New("not found")

// Storage defines document and chunk persistence operations.
type Storage interface {
	// PutDocument stores doc and replaces all of its chunks atomically.
	PutDocument(ctx context.Context, doc *models.Document, chunks []*models.DocumentChunk) error
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	// DeleteDocument removes the document and its chunks; a missing document is ErrNotFound.
	DeleteDocument(ctx context.Context, id string) error
	ListDocuments(ctx context.Context, offset, limit int) ([]*models.Document, error)

	// GetChunks returns the chunks with the given IDs keyed by ID; unknown IDs are absent.
	GetChunks(ctx context.Context, ids []string) (map[string]*models.DocumentChunk, error)
	GetChunksByDocumentID(ctx context.Context, docID string) ([]*models.DocumentChunk, error)

	CountDocuments(ctx context.Context) (int64, error)
	CountChunks(ctx context.Context) (int64, error)

	Close() error
}
