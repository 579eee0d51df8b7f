package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads variables from the given .env files (default ".env") into
// the process environment without overriding variables already set.
// Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

// ApplyEnv overrides cfg with the environment variables read through getenv.
// NEO4J_URI selects the neo4j backend and MISTRAL_API_KEY the mistral
// generator unless the config file names a provider explicitly.
func ApplyEnv(cfg *Config, getenv func(string) string) {
	set := func(dst *string, key string) bool {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
			return true
		}
		return false
	}
	if set(&cfg.Graph.URI, "NEO4J_URI") && cfg.Graph.Backend == "" {
		cfg.Graph.Backend = GraphNeo4j
	}
	set(&cfg.Graph.Username, "NEO4J_USERNAME")
	set(&cfg.Graph.Password, "NEO4J_PASSWORD")
	set(&cfg.Graph.Database, "NEO4J_DATABASE")
	set(&cfg.Graph.Backend, "MUSUBI_GRAPH_BACKEND")
	set(&cfg.Graph.DataDir, "MUSUBI_DATA_DIR")
	if set(&cfg.Generation.APIKey, "MISTRAL_API_KEY") && cfg.Generation.Provider == "" {
		cfg.Generation.Provider = GenerationMistral
	}
	set(&cfg.Generation.Model, "MISTRAL_MODEL")
	set(&cfg.Generation.Provider, "MUSUBI_GENERATOR")
}

// Check is one line of the environment report.
type Check struct {
	Name  string
	Value string // masked for secrets
	OK    bool
	// Required checks fail the report when not OK.
	Required bool
}

// MaskSecret shows the first ten characters of long secrets and hides short ones entirely.
func MaskSecret(v string) string {
	if len(v) > 10 {
		return v[:10] + "..."
	}
	return "***"
}

// CheckEnvironment reports the settings the selected providers need. The
// second result is false when any required setting is missing.
func CheckEnvironment(cfg *Config) ([]Check, bool) {
	var checks []Check
	add := func(name, value string, secret, required bool) {
		c := Check{Name: name, OK: value != "", Required: required}
		switch {
		case value == "":
			c.Value = "MISSING"
		case secret:
			c.Value = MaskSecret(value)
		default:
			c.Value = value
		}
		checks = append(checks, c)
	}

	mistral := cfg.Generation.Provider == GenerationMistral
	add("MISTRAL_API_KEY", cfg.Generation.APIKey, true, mistral)
	add("MISTRAL_MODEL", cfg.Generation.Model, false, mistral)

	neo := cfg.Graph.Backend == GraphNeo4j
	add("NEO4J_URI", cfg.Graph.URI, false, neo)
	add("NEO4J_USERNAME", cfg.Graph.Username, false, neo)
	add("NEO4J_PASSWORD", cfg.Graph.Password, true, neo)
	add("NEO4J_DATABASE", cfg.Graph.Database, false, neo)

	dataDir := cfg.Graph.DataDir
	if info, err := os.Stat(dataDir); err != nil || !info.IsDir() {
		dataDir = ""
	}
	add("graph data directory", dataDir, false, true)

	ok := true
	for _, c := range checks {
		if c.Required && !c.OK {
			ok = false
		}
	}
	return checks, ok
}
