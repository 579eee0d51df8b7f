// Package server provides the HTTP API for Musubi.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/hyperjump/musubi/internal/config"
	"github.com/hyperjump/musubi/internal/graph"
	"github.com/hyperjump/musubi/internal/metrics"
	"github.com/hyperjump/musubi/internal/models"
	"github.com/hyperjump/musubi/internal/router"
	"github.com/hyperjump/musubi/internal/storage"
	"github.com/hyperjump/musubi/internal/vector"
)

// QuestionAnswerer routes and answers questions.
type QuestionAnswerer interface {
	Answer(ctx context.Context, question string, retriever router.VectorRetriever, force *models.Strategy) (*models.HybridQueryResult, error)
	ExplainRouting(question string) (models.RoutingExplanation, error)
}

// DocumentIndexer adds and removes documents from the local index.
type DocumentIndexer interface {
	IndexDocument(ctx context.Context, input *models.DocumentInput) (*models.Document, error)
	DeleteDocument(ctx context.Context, id string) error
}

// GraphLoader reloads the graph from its data directory.
type GraphLoader interface {
	Load(ctx context.Context) (*graph.LoadReport, error)
}

// GraphStats counts graph nodes and relationships.
type GraphStats interface {
	Stats(ctx context.Context) (*graph.Stats, error)
}

// Server is the HTTP server for the Musubi API.
type Server struct {
	answerer    QuestionAnswerer
	retriever   router.VectorRetriever
	indexer     DocumentIndexer
	storage     storage.Storage
	vectorIndex vector.VectorIndex
	graphLoader GraphLoader
	graphStats  GraphStats
	metrics     *metrics.Metrics
	paths       *config.StorageConfig
	config      *config.ServerConfig
	logger      *zap.Logger
	validate    *validator.Validate
	server      *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithGraph enables graph reload and graph statistics.
func WithGraph(loader GraphLoader, stats GraphStats) Option {
	return func(s *Server) {
		s.graphLoader = loader
		s.graphStats = stats
	}
}

// WithVectorIndex reports the vector index size in status.
func WithVectorIndex(v vector.VectorIndex) Option {
	return func(s *Server) { s.vectorIndex = v }
}

// WithMetrics serves m on /metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithStoragePaths reports the disk usage of the configured paths in status.
func WithStoragePaths(paths *config.StorageConfig) Option {
	return func(s *Server) { s.paths = paths }
}

// NewServer creates a server with the given dependencies.
func NewServer(
	answerer QuestionAnswerer,
	retriever router.VectorRetriever,
	idx DocumentIndexer,
	storage storage.Storage,
	cfg *config.ServerConfig,
	logger *zap.Logger,
	opts ...Option,
) *Server {
	s := &Server{
		answerer:  answerer,
		retriever: retriever,
		indexer:   idx,
		storage:   storage,
		config:    cfg,
		logger:    logger,
		validate:  validator.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the API routes.
func (s *Server) Handler() http.Handler {
	timeout := s.config.WriteTimeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(timeout))
	r.Use(middleware.Compress(5))

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/ask", s.handleAsk)
		r.Post("/explain", s.handleExplain)
		r.Get("/examples", s.handleExamples)
		r.Post("/documents", s.handleIndexDocument)
		r.Get("/documents/{id}", s.handleGetDocument)
		r.Delete("/documents/{id}", s.handleDeleteDocument)
		r.Post("/graph/reload", s.handleGraphReload)
		r.Get("/status", s.handleStatus)
	})
	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
