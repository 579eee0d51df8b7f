// Package config loads musubi settings from YAML, a .env file and the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug      bool             `yaml:"debug"`
	Server     ServerConfig     `yaml:"server"`
	Storage    StorageConfig    `yaml:"storage"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Retrieval  RetrievalConfig  `yaml:"retrieval"`
	Graph      GraphConfig      `yaml:"graph"`
	Generation GenerationConfig `yaml:"generation"`
	Watch      WatchConfig      `yaml:"watch"`
}

// WatchConfig holds directory watch settings.
type WatchConfig struct {
	Directories []string `yaml:"directories"`
	Extensions  []string `yaml:"extensions"`
	Recursive   *bool    `yaml:"recursive"`
	// GraphData enables reloading the graph when files in graph.data_dir change.
	GraphData bool `yaml:"graph_data"`
}

// RecursiveOrDefault returns whether to watch recursively; defaults to true when unset.
func (w *WatchConfig) RecursiveOrDefault() bool {
	if w.Recursive != nil {
		return *w.Recursive
	}
	return true
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// StorageConfig holds paths for the document database and indices.
type StorageConfig struct {
	DatabasePath    string `yaml:"database_path"`
	BleveIndexPath  string `yaml:"bleve_index_path"`
	VectorIndexPath string `yaml:"vector_index_path"`
}

// Embedding providers.
const (
	EmbeddingHash = "hash"
	EmbeddingONNX = "onnx"
)

// EmbeddingConfig selects and configures the embedder.
type EmbeddingConfig struct {
	Provider    string `yaml:"provider"`
	ModelPath   string `yaml:"model_path"`
	LibraryPath string `yaml:"library_path"`
	Dimensions  int    `yaml:"dimensions"`
	MaxTokens   int    `yaml:"max_tokens"`
	CacheSize   int    `yaml:"cache_size"`
}

// RetrievalConfig holds passage retrieval and chunking settings.
type RetrievalConfig struct {
	TopK              int     `yaml:"top_k"`
	ChunkSize         int     `yaml:"chunk_size"`
	ChunkOverlap      int     `yaml:"chunk_overlap"`
	TopKCandidates    int     `yaml:"top_k_candidates"`
	KeywordWeight     float64 `yaml:"keyword_weight"`
	SemanticWeight    float64 `yaml:"semantic_weight"`
	KeywordTitleBoost float64 `yaml:"keyword_title_boost"`
	Fuzziness         int     `yaml:"fuzziness"`
}

// Graph backends.
const (
	GraphSQLite = "sqlite"
	GraphNeo4j  = "neo4j"
)

// GraphConfig selects the graph backend and where its data comes from.
type GraphConfig struct {
	Backend      string `yaml:"backend"`
	DatabasePath string `yaml:"database_path"`
	DataDir      string `yaml:"data_dir"`
	URI          string `yaml:"uri"`
	Username     string `yaml:"username"`
	Password     string `yaml:"password"`
	Database     string `yaml:"database"`
}

// Generation providers.
const (
	GenerationMistral = "mistral"
	GenerationEcho    = "echo"
)

// GenerationConfig configures the answer generator.
type GenerationConfig struct {
	Provider     string        `yaml:"provider"`
	APIKey       string        `yaml:"api_key"`
	Model        string        `yaml:"model"`
	Endpoint     string        `yaml:"endpoint"`
	Temperature  float64       `yaml:"temperature"`
	Timeout      time.Duration `yaml:"timeout"`
	MinRequests  uint32        `yaml:"breaker_min_requests"`
	FailureRatio float64       `yaml:"breaker_failure_ratio"`
	OpenTimeout  time.Duration `yaml:"breaker_open_timeout"`
}

// Load reads and parses the config file at path, applies environment
// overrides and defaults, then expands paths relative to the config directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	finish(&cfg, filepath.Dir(path))
	return &cfg, nil
}

// Default returns the configuration used when no config file exists, with
// environment overrides applied and relative paths resolved against baseDir.
func Default(baseDir string) *Config {
	var cfg Config
	finish(&cfg, baseDir)
	return &cfg
}

func finish(cfg *Config, baseDir string) {
	ApplyEnv(cfg, os.Getenv)
	ApplyDefaults(cfg)

	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, baseDir)
	cfg.Storage.BleveIndexPath = expandPath(cfg.Storage.BleveIndexPath, baseDir)
	cfg.Storage.VectorIndexPath = expandPath(cfg.Storage.VectorIndexPath, baseDir)
	cfg.Graph.DatabasePath = expandPath(cfg.Graph.DatabasePath, baseDir)
	cfg.Graph.DataDir = expandPath(cfg.Graph.DataDir, baseDir)
	if cfg.Embedding.ModelPath != "" {
		cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, baseDir)
	}
	for i := range cfg.Watch.Directories {
		cfg.Watch.Directories[i] = expandPath(cfg.Watch.Directories[i], baseDir)
	}
}

// Save writes the config to path. Secrets taken from the environment are not written.
func Save(path string, cfg *Config) error {
	out := *cfg
	out.Graph.Password = ""
	out.Generation.APIKey = ""
	data, err := yaml.Marshal(&out)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" or "../" are
// relative to baseDir; "~/" and other relative paths are relative to the home directory.
func expandPath(path string, baseDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if path == "." || strings.HasPrefix(path, "./") || strings.HasPrefix(path, "../") {
		return filepath.Join(baseDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, strings.TrimPrefix(path, "~/"))
	}
	return path
}
