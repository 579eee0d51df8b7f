// Package models defines the data structures shared by ingestion, retrieval and routing.
package models

import "time"

// Document is an ingested source document. Content is the extracted plain text.
type Document struct {
	ID        string                 `json:"id" db:"id"`
	Title     string                 `json:"title" db:"title"`
	Content   string                 `json:"content" db:"content"`
	Metadata  map[string]interface{} `json:"metadata" db:"metadata"`
	CreatedAt time.Time              `json:"created_at" db:"created_at"`
	UpdatedAt time.Time              `json:"updated_at" db:"updated_at"`
}

// Source returns the document's provenance identifier: the source path when the
// document came from a file, otherwise its title, otherwise its ID.
func (d *Document) Source() string {
	if d.Metadata != nil {
		if s, ok := d.Metadata[MetaSource].(string); ok && s != "" {
			return s
		}
	}
	if d.Title != "" {
		return d.Title
	}
	return d.ID
}

// Kind returns the document type recorded at ingestion ("pdf", "csv", "txt", ...).
func (d *Document) Kind() string {
	if d.Metadata != nil {
		if s, ok := d.Metadata[MetaType].(string); ok {
			return s
		}
	}
	return ""
}

// DocumentChunk is a passage-sized slice of a document, the unit of semantic indexing.
type DocumentChunk struct {
	ID         string    `json:"id" db:"id"`
	DocumentID string    `json:"document_id" db:"document_id"`
	Content    string    `json:"content" db:"content"`
	ChunkIndex int       `json:"chunk_index" db:"chunk_index"`
	Position   int       `json:"position" db:"position"`
	Embedding  []float32 `json:"-" db:"-"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// DocumentInput is the input for creating or replacing a document.
type DocumentInput struct {
	ID       string                 `json:"id,omitempty"`
	Title    string                 `json:"title,omitempty"`
	Content  string                 `json:"content" validate:"required"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// Metadata keys written by the indexer and surfaced on passages.
const (
	MetaSource   = "source"
	MetaType     = "type"
	MetaPosition = "position"
	MetaScore    = "score"
)
