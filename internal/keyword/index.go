// Package keyword provides BM25 keyword search over indexed chunks.
package keyword

import "context"

// Entry is the searchable text of one chunk.
type Entry struct {
	DocumentID string `json:"document_id"`
	Title      string `json:"title"`
	Content    string `json:"content"`
}

// SearchOptions are optional search parameters. Nil means defaults.
type SearchOptions struct {
	// TitleBoost multiplies the score of title matches; values <= 1 disable the separate title clause.
	TitleBoost float64
	// Fuzziness is the maximum edit distance per term (0 disables fuzzy matching).
	Fuzziness int
}

// KeywordIndex defines keyword search operations keyed by chunk ID.
type KeywordIndex interface {
	Index(ctx context.Context, id string, entry Entry) error
	Search(ctx context.Context, query string, limit int, opts *SearchOptions) ([]*KeywordResult, error)
	Delete(ctx context.Context, ids ...string) error
	// DeleteDocument removes every chunk belonging to docID.
	DeleteDocument(ctx context.Context, docID string) error
	DocCount() (uint64, error)
	Close() error
}

// KeywordResult is a single keyword search hit.
type KeywordResult struct {
	ID    string
	Score float64
}
