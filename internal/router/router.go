// Package router answers questions by routing them to vector-only or hybrid
// (vector plus graph) retrieval and delegating the answer to a generator.
package router

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hyperjump/musubi/internal/classifier"
	"github.com/hyperjump/musubi/internal/generation"
	"github.com/hyperjump/musubi/internal/graphctx"
	"github.com/hyperjump/musubi/internal/metrics"
	"github.com/hyperjump/musubi/internal/models"
)

// DefaultTopK is the number of passages retrieved per question.
const DefaultTopK = 3

// VectorRetriever returns the k passages most relevant to a question.
type VectorRetriever interface {
	Retrieve(ctx context.Context, question string, k int) ([]models.Passage, error)
}

// GraphExtractor returns the graph context relevant to a question.
type GraphExtractor interface {
	Extract(ctx context.Context, question string) ([]models.GraphContextItem, error)
}

// Router is stateless across calls; its collaborators are injected once and shared.
type Router struct {
	extractor GraphExtractor
	generator generation.Generator
	topK      int
	metrics   *metrics.Metrics
	logger    *zap.Logger // optional; when set, logs debug events
}

// Option configures a Router.
type Option func(*Router)

// WithTopK sets the number of passages retrieved per question.
func WithTopK(k int) Option {
	return func(r *Router) {
		if k > 0 {
			r.topK = k
		}
	}
}

// WithMetrics records question, stage and failure metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Router) { r.metrics = m }
}

// WithLogger sets a logger for debug output (strategy, stage timings).
func WithLogger(l *zap.Logger) Option {
	return func(r *Router) { r.logger = l }
}

// New creates a router.
func New(extractor GraphExtractor, generator generation.Generator, opts ...Option) *Router {
	r := &Router{extractor: extractor, generator: generator, topK: DefaultTopK}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Answer classifies question (unless force is set), runs the chosen strategy
// against retriever and returns the generated answer with its sources.
func (r *Router) Answer(ctx context.Context, question string, retriever VectorRetriever, force *models.Strategy) (*models.HybridQueryResult, error) {
	if strings.TrimSpace(question) == "" {
		r.metrics.ObserveFailure("invalid_input")
		return nil, fmt.Errorf("%w: question is empty", models.ErrInvalidInput)
	}
	if retriever == nil {
		return nil, fmt.Errorf("%w: no vector retriever", models.ErrInvalidInput)
	}

	strategy, err := r.strategyFor(question, force)
	if err != nil {
		r.metrics.ObserveFailure("invalid_input")
		return nil, err
	}

	var result *models.HybridQueryResult
	if strategy == models.StrategyMultiHop {
		result, err = r.answerHybrid(ctx, question, retriever)
	} else {
		result, err = r.answerSimple(ctx, question, retriever)
	}
	if err != nil {
		r.metrics.ObserveFailure(failureKind(err))
		return nil, err
	}

	result.ID = uuid.New().String()
	result.Question = question
	result.Strategy = strategy
	r.metrics.ObserveQuestion(string(strategy))
	r.metrics.AddGraphItems(len(result.Sources.GraphContext))
	if r.logger != nil {
		r.logger.Debug("question answered",
			zap.String("id", result.ID),
			zap.String("strategy", string(strategy)),
			zap.Int("vector_docs", len(result.Sources.VectorDocs)),
			zap.Int("graph_items", len(result.Sources.GraphContext)))
	}
	return result, nil
}

func (r *Router) strategyFor(question string, force *models.Strategy) (models.Strategy, error) {
	if force != nil {
		return models.ParseStrategy(string(*force))
	}
	start := time.Now()
	s := classifier.Classify(question)
	r.metrics.ObserveStage("classify", time.Since(start))
	return s, nil
}

func (r *Router) retrieve(ctx context.Context, question string, retriever VectorRetriever) ([]models.Passage, error) {
	start := time.Now()
	docs, err := retriever.Retrieve(ctx, question, r.topK)
	r.metrics.ObserveStage("vector", time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrRetrieval, err)
	}
	if docs == nil {
		docs = []models.Passage{}
	}
	return docs, nil
}

func (r *Router) generate(ctx context.Context, template string, vars map[string]string) (string, error) {
	start := time.Now()
	answer, err := r.generator.Generate(ctx, template, vars)
	r.metrics.ObserveStage("generate", time.Since(start))
	if err != nil {
		return "", fmt.Errorf("%w: %w", models.ErrGeneration, err)
	}
	return answer, nil
}

func (r *Router) answerSimple(ctx context.Context, question string, retriever VectorRetriever) (*models.HybridQueryResult, error) {
	docs, err := r.retrieve(ctx, question, retriever)
	if err != nil {
		return nil, err
	}
	answer, err := r.generate(ctx, SimplePrompt, map[string]string{
		"context":  JoinPassages(docs),
		"question": question,
	})
	if err != nil {
		return nil, err
	}
	return &models.HybridQueryResult{
		Answer:  answer,
		Sources: models.Sources{VectorDocs: docs},
	}, nil
}

// answerHybrid runs graph extraction and vector retrieval concurrently; both
// are started and either failure fails the question.
func (r *Router) answerHybrid(ctx context.Context, question string, retriever VectorRetriever) (*models.HybridQueryResult, error) {
	var (
		docs  []models.Passage
		items []models.GraphContextItem
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		docs, err = r.retrieve(gctx, question, retriever)
		return err
	})
	g.Go(func() error {
		start := time.Now()
		var err error
		items, err = r.extractor.Extract(gctx, question)
		r.metrics.ObserveStage("graph", time.Since(start))
		if err != nil && !errors.Is(err, models.ErrGraphQuery) {
			err = fmt.Errorf("%w: %w", models.ErrGraphQuery, err)
		}
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if items == nil {
		items = []models.GraphContextItem{}
	}

	graphContext := graphctx.Format(items)
	if graphContext == "" {
		graphContext = NoGraphContext
	}
	answer, err := r.generate(ctx, HybridPrompt, map[string]string{
		"vector_context": JoinPassages(docs),
		"graph_context":  graphContext,
		"question":       question,
	})
	if err != nil {
		return nil, err
	}
	return &models.HybridQueryResult{
		Answer:  answer,
		Sources: models.Sources{VectorDocs: docs, GraphContext: items},
	}, nil
}

// ExplainRouting returns the classifier verdict for question with its rationale.
func (r *Router) ExplainRouting(question string) (models.RoutingExplanation, error) {
	if strings.TrimSpace(question) == "" {
		return models.RoutingExplanation{}, fmt.Errorf("%w: question is empty", models.ErrInvalidInput)
	}
	s := classifier.Classify(question)
	return models.RoutingExplanation{
		Question:  question,
		Strategy:  s,
		Rationale: Rationale(s),
	}, nil
}

// JoinPassages concatenates passage texts separated by a blank line.
func JoinPassages(docs []models.Passage) string {
	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Text
	}
	return strings.Join(texts, "\n\n")
}

func failureKind(err error) string {
	switch {
	case errors.Is(err, models.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, models.ErrGraphQuery):
		return "graph"
	case errors.Is(err, models.ErrRetrieval):
		return "retrieval"
	case errors.Is(err, models.ErrGeneration):
		return "generation"
	default:
		return "other"
	}
}
