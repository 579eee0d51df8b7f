package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"NEO4J_URI", "NEO4J_USERNAME", "NEO4J_PASSWORD", "NEO4J_DATABASE",
		"MISTRAL_API_KEY", "MISTRAL_MODEL", "MUSUBI_GRAPH_BACKEND", "MUSUBI_DATA_DIR", "MUSUBI_GENERATOR"} {
		t.Setenv(k, "")
	}
}

func TestLoad(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
server:
  host: "127.0.0.1"
  port: 9000
storage:
  database_path: "test.db"
retrieval:
  top_k: 5
generation:
  timeout: 30s
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if !filepath.IsAbs(cfg.Storage.DatabasePath) {
		t.Errorf("database_path should be absolute: %s", cfg.Storage.DatabasePath)
	}
	if cfg.Retrieval.TopK != 5 {
		t.Errorf("top_k = %d", cfg.Retrieval.TopK)
	}
	if cfg.Generation.Timeout != 30*time.Second {
		t.Errorf("timeout = %v", cfg.Generation.Timeout)
	}
	if cfg.Debug {
		t.Error("debug should default to false when unset")
	}
}

func TestLoad_missingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "none.yaml")); err == nil {
		t.Error("expected error for missing config")
	}
}

func TestLoad_invalidYAML(t *testing.T) {
	if _, err := Load(writeConfig(t, "server: [")); err == nil {
		t.Error("expected parse error")
	}
}

func TestLoad_expandPathDotSlashRelativeToConfigDir(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
storage:
  database_path: "./data/db/documents.db"
graph:
  data_dir: "../shared/data"
watch:
  directories: ["./docs"]
`)
	dir := filepath.Dir(path)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(dir, "data", "db", "documents.db"); cfg.Storage.DatabasePath != want {
		t.Errorf("database_path = %s, want %s", cfg.Storage.DatabasePath, want)
	}
	if want := filepath.Join(dir, "..", "shared", "data"); cfg.Graph.DataDir != filepath.Clean(want) {
		t.Errorf("data_dir = %s, want %s", cfg.Graph.DataDir, want)
	}
	if len(cfg.Watch.Directories) != 1 || cfg.Watch.Directories[0] != filepath.Join(dir, "docs") {
		t.Errorf("watch directories = %v", cfg.Watch.Directories)
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	if cfg.Server.Host != "localhost" || cfg.Server.Port != 8080 {
		t.Errorf("server defaults: %+v", cfg.Server)
	}
	if cfg.Retrieval.TopK != 3 {
		t.Errorf("default top_k: got %d", cfg.Retrieval.TopK)
	}
	if cfg.Retrieval.KeywordWeight != 0.4 || cfg.Retrieval.SemanticWeight != 0.6 {
		t.Errorf("weights: %f %f", cfg.Retrieval.KeywordWeight, cfg.Retrieval.SemanticWeight)
	}
	if cfg.Graph.Backend != GraphSQLite || cfg.Generation.Provider != GenerationEcho || cfg.Embedding.Provider != EmbeddingHash {
		t.Errorf("providers: graph=%s gen=%s emb=%s", cfg.Graph.Backend, cfg.Generation.Provider, cfg.Embedding.Provider)
	}
	if cfg.Generation.Model != "mistral-small-latest" {
		t.Errorf("model = %s", cfg.Generation.Model)
	}
	if len(cfg.Watch.Extensions) == 0 || cfg.Watch.Extensions[0] != ".txt" {
		t.Errorf("watch extensions: got %v", cfg.Watch.Extensions)
	}
	if cfg.Watch.Recursive != nil {
		t.Error("recursive should stay unset without directories")
	}
}

func TestApplyDefaults_keepsExplicitWeights(t *testing.T) {
	cfg := &Config{Retrieval: RetrievalConfig{SemanticWeight: 1}}
	ApplyDefaults(cfg)
	if cfg.Retrieval.KeywordWeight != 0 || cfg.Retrieval.SemanticWeight != 1 {
		t.Errorf("weights overwritten: %+v", cfg.Retrieval)
	}
}

func TestApplyDefaults_WatchRecursiveWhenDirectoriesSet(t *testing.T) {
	cfg := &Config{Watch: WatchConfig{Directories: []string{"/tmp/docs"}}}
	ApplyDefaults(cfg)
	if cfg.Watch.Recursive == nil || !*cfg.Watch.Recursive {
		t.Error("recursive should default to true when directories are set")
	}
}

func TestWatchConfig_RecursiveOrDefault(t *testing.T) {
	f := false
	tests := []struct {
		name string
		w    WatchConfig
		want bool
	}{
		{"nil_returns_true", WatchConfig{}, true},
		{"false_returns_false", WatchConfig{Recursive: &f}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.w.RecursiveOrDefault(); got != tt.want {
				t.Errorf("RecursiveOrDefault() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSave_omitsSecrets(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "saved.yaml")
	cfg := &Config{
		Server:     ServerConfig{Host: "localhost", Port: 9090},
		Storage:    StorageConfig{DatabasePath: "/tmp/db"},
		Graph:      GraphConfig{Password: "hunter22"},
		Generation: GenerationConfig{APIKey: "sk-secret"},
	}
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Server.Port != 9090 {
		t.Errorf("loaded port: got %d", loaded.Server.Port)
	}
	if loaded.Graph.Password != "" || loaded.Generation.APIKey != "" {
		t.Error("secrets should not be written")
	}
	if cfg.Graph.Password != "hunter22" {
		t.Error("Save must not modify its argument")
	}
}

func TestDefault(t *testing.T) {
	clearEnv(t)
	base := t.TempDir()
	cfg := Default(base)
	if cfg.Graph.DataDir != filepath.Join(base, "data") {
		t.Errorf("data_dir = %s", cfg.Graph.DataDir)
	}
	if !filepath.IsAbs(cfg.Storage.BleveIndexPath) {
		t.Errorf("bleve path not absolute: %s", cfg.Storage.BleveIndexPath)
	}
}
