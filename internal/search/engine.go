// Package search retrieves the passages most relevant to a question by fusing
// keyword and semantic chunk scores.
package search

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hyperjump/musubi/internal/config"
	"github.com/hyperjump/musubi/internal/embedding"
	"github.com/hyperjump/musubi/internal/keyword"
	"github.com/hyperjump/musubi/internal/models"
	"github.com/hyperjump/musubi/internal/storage"
	"github.com/hyperjump/musubi/internal/vector"
)

// MetaDocumentID is the passage metadata key holding the owning document ID.
const MetaDocumentID = "document_id"

// Engine runs hybrid (keyword + semantic) retrieval over indexed chunks.
type Engine struct {
	storage      storage.Storage
	embedder     embedding.Embedder
	vectorIndex  vector.VectorIndex
	keywordIndex keyword.KeywordIndex
	config       *config.RetrievalConfig
	logger       *zap.Logger // optional; when set, logs debug events
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// NewEngine creates a retrieval engine with the given dependencies.
func NewEngine(
	storage storage.Storage,
	embedder embedding.Embedder,
	vectorIndex vector.VectorIndex,
	keywordIndex keyword.KeywordIndex,
	cfg *config.RetrievalConfig,
	opts ...Option,
) *Engine {
	e := &Engine{
		storage:      storage,
		embedder:     embedder,
		vectorIndex:  vectorIndex,
		keywordIndex: keywordIndex,
		config:       cfg,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Retrieve returns up to k passages for question, best first. A non-positive k
// uses the configured top_k. An index with no matches yields an empty slice.
func (e *Engine) Retrieve(ctx context.Context, question string, k int) ([]models.Passage, error) {
	if k <= 0 {
		k = e.config.TopK
	}
	question = strings.TrimSpace(question)
	if question == "" || k <= 0 {
		return []models.Passage{}, nil
	}

	candidates := e.config.TopKCandidates
	if candidates < k {
		candidates = k
	}

	var (
		keywordResults  []*keyword.KeywordResult
		semanticResults []*vector.VectorResult
	)
	g, gctx := errgroup.WithContext(ctx)
	if e.config.KeywordWeight > 0 {
		g.Go(func() error {
			results, err := e.keywordIndex.Search(gctx, question, candidates, &keyword.SearchOptions{
				TitleBoost: e.config.KeywordTitleBoost,
				Fuzziness:  e.config.Fuzziness,
			})
			if err != nil {
				return fmt.Errorf("keyword search failed: %w", err)
			}
			keywordResults = results
			return nil
		})
	}
	if e.config.SemanticWeight > 0 {
		g.Go(func() error {
			queryEmbedding, err := e.embedder.Embed(gctx, question)
			if err != nil {
				return fmt.Errorf("embedding failed: %w", err)
			}
			results, err := e.vectorIndex.Search(gctx, queryEmbedding, candidates)
			if err != nil {
				return fmt.Errorf("vector search failed: %w", err)
			}
			semanticResults = results
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	fused := Fuse(
		NormalizeKeywordScores(keywordResults),
		NormalizeSemanticScores(semanticResults),
		e.config.KeywordWeight,
		e.config.SemanticWeight,
	)
	if e.logger != nil {
		e.logger.Debug("retrieval candidates",
			zap.Int("keyword", len(keywordResults)),
			zap.Int("semantic", len(semanticResults)),
			zap.Int("fused", len(fused)))
	}
	if len(fused) == 0 {
		return []models.Passage{}, nil
	}

	ids := make([]string, len(fused))
	for i, r := range fused {
		ids[i] = r.ChunkID
	}
	chunks, err := e.storage.GetChunks(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load chunks: %w", err)
	}

	docs := make(map[string]*models.Document)
	passages := make([]models.Passage, 0, k)
	for _, r := range fused {
		if len(passages) == k {
			break
		}
		chunk, ok := chunks[r.ChunkID]
		if !ok {
			// stale index entry
			continue
		}
		doc, ok := docs[chunk.DocumentID]
		if !ok {
			doc, err = e.storage.GetDocument(ctx, chunk.DocumentID)
			if err != nil {
				if e.logger != nil {
					e.logger.Debug("skipping chunk of missing document",
						zap.String("chunk_id", chunk.ID), zap.Error(err))
				}
				continue
			}
			docs[chunk.DocumentID] = doc
		}
		passages = append(passages, newPassage(doc, chunk, r.Score))
	}
	return passages, nil
}

func newPassage(doc *models.Document, chunk *models.DocumentChunk, score float64) models.Passage {
	meta := map[string]interface{}{
		models.MetaSource:   doc.Source(),
		models.MetaPosition: chunk.Position,
		models.MetaScore:    score,
		MetaDocumentID:      doc.ID,
	}
	if kind := doc.Kind(); kind != "" {
		meta[models.MetaType] = kind
	}
	return models.Passage{Text: chunk.Content, Metadata: meta}
}
