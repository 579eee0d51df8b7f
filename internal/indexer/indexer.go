// Package indexer ingests documents into storage, the keyword index and the vector index.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/musubi/internal/config"
	"github.com/hyperjump/musubi/internal/embedding"
	"github.com/hyperjump/musubi/internal/extract"
	"github.com/hyperjump/musubi/internal/fileid"
	"github.com/hyperjump/musubi/internal/keyword"
	"github.com/hyperjump/musubi/internal/models"
	"github.com/hyperjump/musubi/internal/storage"
	"github.com/hyperjump/musubi/internal/vector"
)

// ErrSkipped is returned by IndexFile for files whose extension is not allowed.
var ErrSkipped = errors.New("file skipped")

// Indexer indexes documents into storage, keyword index, and vector index.
// Writes are serialized so the watcher and the API can index concurrently.
type Indexer struct {
	storage      storage.Storage
	embedder     embedding.Embedder
	vectorIndex  vector.VectorIndex
	keywordIndex keyword.KeywordIndex
	chunker      *Chunker
	extractor    *extract.Extractor
	vectorPath   string
	logger       *zap.Logger // optional; when set, logs debug events

	mu sync.Mutex
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithLogger sets a logger for debug output (file indexed, document deleted, etc.).
func WithLogger(l *zap.Logger) IndexerOption {
	return func(idx *Indexer) { idx.logger = l }
}

// WithVectorPath makes Save persist the vector index to path.
func WithVectorPath(path string) IndexerOption {
	return func(idx *Indexer) { idx.vectorPath = path }
}

// NewIndexer creates an indexer with the given dependencies.
// extractor may be nil; when nil, IndexFile treats all files as plain text.
func NewIndexer(
	storage storage.Storage,
	embedder embedding.Embedder,
	vectorIndex vector.VectorIndex,
	keywordIndex keyword.KeywordIndex,
	cfg *config.RetrievalConfig,
	extractor *extract.Extractor,
	opts ...IndexerOption,
) *Indexer {
	idx := &Indexer{
		storage:      storage,
		embedder:     embedder,
		vectorIndex:  vectorIndex,
		keywordIndex: keywordIndex,
		chunker:      NewChunker(cfg.ChunkSize, cfg.ChunkOverlap),
		extractor:    extractor,
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// IndexDocument stores and indexes a document given directly (API input).
// A missing ID gets a new UUID; an existing ID is replaced.
func (idx *Indexer) IndexDocument(ctx context.Context, input *models.DocumentInput) (*models.Document, error) {
	if strings.TrimSpace(input.Content) == "" {
		return nil, fmt.Errorf("%w: document content is empty", models.ErrInvalidInput)
	}
	id := input.ID
	if id == "" {
		id = uuid.New().String()
	}
	doc := &models.Document{
		ID:       id,
		Title:    input.Title,
		Metadata: input.Metadata,
	}
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if err := idx.index(ctx, doc, []extract.Section{{Text: input.Content}}); err != nil {
		return nil, err
	}
	return doc, nil
}

// index chunks and embeds the sections of doc, then replaces any previous
// version of doc in storage and both indices. Callers hold idx.mu.
func (idx *Indexer) index(ctx context.Context, doc *models.Document, sections []extract.Section) error {
	var (
		chunks []*models.DocumentChunk
		texts  []string
		parts  []string
	)
	for _, sec := range sections {
		text := Preprocess(sec.Text)
		if text == "" {
			continue
		}
		parts = append(parts, text)
		for _, window := range idx.chunker.Split(text) {
			n := len(chunks)
			chunks = append(chunks, &models.DocumentChunk{
				ID:         fileid.ChunkID(doc.ID, n),
				DocumentID: doc.ID,
				Content:    window,
				ChunkIndex: n,
				Position:   sec.Position,
			})
			texts = append(texts, window)
		}
	}
	if len(chunks) == 0 {
		return fmt.Errorf("%w: document %s has no text", models.ErrInvalidInput, doc.ID)
	}
	doc.Content = strings.Join(parts, "\n\n")

	embeddings, err := idx.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("failed to generate embeddings: %w", err)
	}

	if err := idx.removeFromIndices(ctx, doc.ID); err != nil {
		return err
	}
	if err := idx.storage.PutDocument(ctx, doc, chunks); err != nil {
		return fmt.Errorf("failed to store document: %w", err)
	}
	ids := make([]string, len(chunks))
	for i, ch := range chunks {
		ids[i] = ch.ID
	}
	if err := idx.vectorIndex.Add(ctx, ids, embeddings); err != nil {
		return fmt.Errorf("failed to index vectors: %w", err)
	}
	for _, ch := range chunks {
		entry := keyword.Entry{DocumentID: doc.ID, Title: doc.Title, Content: ch.Content}
		if err := idx.keywordIndex.Index(ctx, ch.ID, entry); err != nil {
			return fmt.Errorf("failed to index keywords: %w", err)
		}
	}
	if idx.logger != nil {
		idx.logger.Debug("indexer document indexed",
			zap.String("doc_id", doc.ID), zap.Int("chunks", len(chunks)))
	}
	return nil
}

const (
	metaKeySourceMtime = "source_mtime"
	metaKeySourceSize  = "source_size"
)

// IndexFile reads a file from path and indexes it. The document ID is derived from the
// absolute path so re-indexing updates the same document. If allowedExts is non-empty, the
// file's extension must be in the list (case-insensitive), otherwise ErrSkipped is returned.
// Unchanged files (same mtime and size) are not re-indexed; the boolean reports whether
// the file was indexed.
func (idx *Indexer) IndexFile(ctx context.Context, path string, allowedExts []string) (bool, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false, fmt.Errorf("absolute path: %w", err)
	}
	ext := strings.ToLower(filepath.Ext(absPath))
	if len(allowedExts) > 0 && !extensionAllowed(ext, allowedExts) {
		return false, fmt.Errorf("%w: extension %q not in allowed list", ErrSkipped, ext)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return false, fmt.Errorf("stat file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return false, fmt.Errorf("not a regular file: %s", absPath)
	}

	docID := fileid.FileDocID(absPath)
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.unchanged(ctx, absPath, docID, info) {
		if idx.logger != nil {
			idx.logger.Debug("indexer skipping unchanged file", zap.String("path", absPath))
		}
		return false, nil
	}

	result, err := idx.extractContent(absPath)
	if err != nil {
		return false, fmt.Errorf("extract content: %w", err)
	}
	doc := &models.Document{
		ID:    docID,
		Title: filepath.Base(absPath),
		Metadata: map[string]interface{}{
			models.MetaSource:  absPath,
			models.MetaType:    result.Kind,
			metaKeySourceMtime: strconv.FormatInt(info.ModTime().UnixNano(), 10),
			metaKeySourceSize:  strconv.FormatInt(info.Size(), 10),
		},
	}
	if err := idx.index(ctx, doc, result.Sections); err != nil {
		return false, err
	}
	if idx.logger != nil {
		idx.logger.Debug("indexer file indexed", zap.String("path", absPath), zap.String("doc_id", docID))
	}
	return true, nil
}

// unchanged reports whether the file is already indexed with the same mtime and size.
func (idx *Indexer) unchanged(ctx context.Context, absPath, docID string, info os.FileInfo) bool {
	doc, err := idx.storage.GetDocument(ctx, docID)
	if err != nil || doc.Metadata == nil {
		return false
	}
	if doc.Metadata[models.MetaSource] != absPath {
		return false
	}
	// Stored as strings: UnixNano exceeds float64 precision after a JSON round trip.
	return metadataInt64(doc.Metadata, metaKeySourceMtime) == info.ModTime().UnixNano() &&
		metadataInt64(doc.Metadata, metaKeySourceSize) == info.Size()
}

func metadataInt64(m map[string]interface{}, key string) int64 {
	switch n := m[key].(type) {
	case string:
		x, _ := strconv.ParseInt(n, 10, 64)
		return x
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	default:
		return 0
	}
}

// IndexDirectory walks dir recursively and indexes each regular file whose extension
// is in allowedExts (all files when empty). A file that fails does not stop the walk;
// the returned error joins every failure. n counts the files actually (re-)indexed.
func (idx *Indexer) IndexDirectory(ctx context.Context, dir string, allowedExts []string) (n int, err error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return 0, fmt.Errorf("absolute path: %w", err)
	}
	info, err := os.Stat(absDir)
	if err != nil {
		return 0, fmt.Errorf("stat directory: %w", err)
	}
	if !info.IsDir() {
		return 0, fmt.Errorf("not a directory: %s", absDir)
	}
	var errs []error
	walkErr := filepath.WalkDir(absDir, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if len(allowedExts) > 0 && !extensionAllowed(ext, allowedExts) {
			return nil
		}
		// Resolve symlinks so we only index regular files
		finfo, statErr := os.Stat(path)
		if statErr != nil || !finfo.Mode().IsRegular() {
			return nil
		}
		indexed, indexErr := idx.IndexFile(ctx, path, allowedExts)
		if indexErr != nil {
			if idx.logger != nil {
				idx.logger.Warn("indexer failed to index file", zap.String("path", path), zap.Error(indexErr))
			}
			errs = append(errs, fmt.Errorf("%s: %w", path, indexErr))
			return nil
		}
		if indexed {
			n++
		}
		return nil
	})
	if walkErr != nil {
		errs = append(errs, walkErr)
	}
	return n, errors.Join(errs...)
}

func (idx *Indexer) extractContent(path string) (*extract.Result, error) {
	if idx.extractor != nil {
		return idx.extractor.Extract(path)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	kind := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if kind == "" {
		kind = "txt"
	}
	return &extract.Result{Kind: kind, Sections: []extract.Section{{Text: string(content)}}}, nil
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

// DeleteDocument removes a document from all indices and storage.
// A missing document is storage.ErrNotFound.
func (idx *Indexer) DeleteDocument(ctx context.Context, id string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.logger != nil {
		idx.logger.Debug("indexer deleting document", zap.String("id", id))
	}
	if err := idx.removeFromIndices(ctx, id); err != nil {
		return err
	}
	if err := idx.storage.DeleteDocument(ctx, id); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}

// DeleteFile removes the document indexed from path, if any.
func (idx *Indexer) DeleteFile(ctx context.Context, path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("absolute path: %w", err)
	}
	err = idx.DeleteDocument(ctx, fileid.FileDocID(absPath))
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	return err
}

func (idx *Indexer) removeFromIndices(ctx context.Context, docID string) error {
	if err := idx.keywordIndex.DeleteDocument(ctx, docID); err != nil {
		return fmt.Errorf("failed to delete from keyword index: %w", err)
	}
	chunks, err := idx.storage.GetChunksByDocumentID(ctx, docID)
	if err != nil {
		return fmt.Errorf("failed to get chunks: %w", err)
	}
	if len(chunks) == 0 {
		return nil
	}
	ids := make([]string, len(chunks))
	for i, ch := range chunks {
		ids[i] = ch.ID
	}
	if err := idx.vectorIndex.Remove(ctx, ids); err != nil {
		return fmt.Errorf("failed to delete from vector index: %w", err)
	}
	return nil
}

// Save persists the vector index when a path was configured with WithVectorPath.
func (idx *Indexer) Save() error {
	if idx.vectorPath == "" {
		return nil
	}
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if err := idx.vectorIndex.Save(idx.vectorPath); err != nil {
		return fmt.Errorf("failed to save vector index: %w", err)
	}
	return nil
}
