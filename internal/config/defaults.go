package config

import (
	"time"

	"github.com/hyperjump/musubi/internal/extract"
)

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 2 * time.Minute
	}

	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = ".musubi/db/documents.db"
	}
	if cfg.Storage.BleveIndexPath == "" {
		cfg.Storage.BleveIndexPath = ".musubi/indices/bleve"
	}
	if cfg.Storage.VectorIndexPath == "" {
		cfg.Storage.VectorIndexPath = ".musubi/indices/vectors.bin"
	}

	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = EmbeddingHash
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 384
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 256
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}

	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 3
	}
	if cfg.Retrieval.ChunkSize == 0 {
		cfg.Retrieval.ChunkSize = 200
	}
	if cfg.Retrieval.ChunkOverlap == 0 {
		cfg.Retrieval.ChunkOverlap = 40
	}
	if cfg.Retrieval.TopKCandidates == 0 {
		cfg.Retrieval.TopKCandidates = 50
	}
	if cfg.Retrieval.KeywordWeight == 0 && cfg.Retrieval.SemanticWeight == 0 {
		cfg.Retrieval.KeywordWeight = 0.4
		cfg.Retrieval.SemanticWeight = 0.6
	}
	if cfg.Retrieval.KeywordTitleBoost == 0 {
		cfg.Retrieval.KeywordTitleBoost = 2.0
	}

	if cfg.Graph.Backend == "" {
		cfg.Graph.Backend = GraphSQLite
	}
	if cfg.Graph.DatabasePath == "" {
		cfg.Graph.DatabasePath = ".musubi/db/graph.db"
	}
	if cfg.Graph.DataDir == "" {
		cfg.Graph.DataDir = "./data"
	}
	if cfg.Graph.URI == "" {
		cfg.Graph.URI = "neo4j://localhost:7687"
	}
	if cfg.Graph.Username == "" {
		cfg.Graph.Username = "neo4j"
	}
	if cfg.Graph.Database == "" {
		cfg.Graph.Database = "neo4j"
	}

	if cfg.Generation.Provider == "" {
		cfg.Generation.Provider = GenerationEcho
	}
	if cfg.Generation.Model == "" {
		cfg.Generation.Model = "mistral-small-latest"
	}
	if cfg.Generation.Timeout == 0 {
		cfg.Generation.Timeout = 60 * time.Second
	}

	if cfg.Watch.Extensions == nil {
		cfg.Watch.Extensions = append([]string(nil), extract.SupportedExtensions...)
	}
	if len(cfg.Watch.Directories) > 0 && cfg.Watch.Recursive == nil {
		t := true
		cfg.Watch.Recursive = &t
	}
}
