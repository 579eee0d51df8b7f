// Package main is the musubi CLI entry point.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/musubi/internal/classifier"
	"github.com/hyperjump/musubi/internal/cli"
	"github.com/hyperjump/musubi/internal/config"
	"github.com/hyperjump/musubi/internal/embedding"
	"github.com/hyperjump/musubi/internal/extract"
	"github.com/hyperjump/musubi/internal/generation"
	"github.com/hyperjump/musubi/internal/graph"
	"github.com/hyperjump/musubi/internal/graphctx"
	"github.com/hyperjump/musubi/internal/indexer"
	"github.com/hyperjump/musubi/internal/keyword"
	"github.com/hyperjump/musubi/internal/metrics"
	"github.com/hyperjump/musubi/internal/models"
	"github.com/hyperjump/musubi/internal/router"
	"github.com/hyperjump/musubi/internal/search"
	"github.com/hyperjump/musubi/internal/server"
	"github.com/hyperjump/musubi/internal/storage"
	"github.com/hyperjump/musubi/internal/vector"
	"github.com/hyperjump/musubi/internal/watcher"
	"github.com/hyperjump/musubi/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/musubi/config.yaml"

// loadConfig loads config from path. When path is the default, config.yaml in
// the current directory wins if it exists; when neither exists the built-in
// defaults are used with paths relative to the current directory.
// Returns the config and the path that was actually loaded ("" for defaults).
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, "", fmt.Errorf("failed to get working directory: %w", err)
		}
		fallback := filepath.Join(cwd, "config.yaml")
		if _, statErr := os.Stat(fallback); statErr == nil {
			cfg, loadErr := config.Load(fallback)
			if loadErr != nil {
				return nil, "", loadErr
			}
			return cfg, fallback, nil
		}
		if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
			return config.Default(cwd), "", nil
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load .env: %v\n", err)
		os.Exit(1)
	}
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "ask":
		runAsk()
	case "explain":
		runExplain()
	case "index":
		runIndex()
	case "delete":
		runDelete()
	case "load-graph":
		runLoadGraph()
	case "status":
		runStatus()
	case "check":
		runCheck()
	case "examples":
		runExamples()
	case "version", "--version", "-v":
		fmt.Printf("musubi version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

// setup loads the config and creates the logger shared by every command.
func setup(configPath string, debugFlag bool) (*config.Config, string, *zap.Logger, bool) {
	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || debugFlag
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	return cfg, resolved, logger, debugMode
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging (file indexing, graph queries, routing)")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, logger, debugMode := setup(*configPath, *debug)
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
		zap.String("graph_backend", cfg.Graph.Backend),
		zap.String("generator", cfg.Generation.Provider),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	components, err := initializeComponents(cfg, logger, debugMode)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()
	if err := components.openGraph(ctx, cfg, logger, debugMode); err != nil {
		logger.Fatal("Failed to open graph", zap.Error(err))
	}
	if err := components.openRouter(cfg, logger, debugMode); err != nil {
		logger.Fatal("Failed to create generator", zap.Error(err))
	}

	watchSvc := newWatcher(cfg, components, logger, debugMode)
	if watchSvc != nil {
		if err := watchSvc.Start(ctx); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
		watchSvc.SyncExisting()
		defer watchSvc.Stop()
	}

	srv := server.NewServer(
		components.Router,
		components.Engine,
		components.Indexer,
		components.Storage,
		&cfg.Server,
		logger,
		server.WithGraph(components.Loader, components.Graph),
		server.WithVectorIndex(components.VectorIndex),
		server.WithMetrics(components.Metrics),
		server.WithStoragePaths(&cfg.Storage),
	)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()

	logger.Info("Shutting down...")
	if err := components.Indexer.Save(); err != nil {
		logger.Warn("vector index save failed", zap.String("path", cfg.Storage.VectorIndexPath), zap.Error(err))
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(shutdownCtx)
}

// newWatcher builds the watch targets: configured document directories are
// reindexed file by file, and the graph data directory triggers one reload
// per burst of changes. Returns nil when nothing is watched.
func newWatcher(cfg *config.Config, c *Components, logger *zap.Logger, debug bool) *watcher.Watcher {
	exts := cfg.Watch.Extensions
	var targets []watcher.Target
	for _, dir := range cfg.Watch.Directories {
		targets = append(targets, watcher.Target{
			Root:       dir,
			Extensions: exts,
			Recursive:  cfg.Watch.RecursiveOrDefault(),
			OnChange: func(path string) {
				indexed, err := c.Indexer.IndexFile(context.Background(), path, exts)
				if err != nil {
					logger.Warn("watch index file failed", zap.String("path", path), zap.Error(err))
					return
				}
				if indexed {
					c.saveVectors(logger)
				}
			},
			OnRemove: func(path string) {
				if err := c.Indexer.DeleteFile(context.Background(), path); err != nil {
					logger.Warn("watch delete by path failed", zap.String("path", path), zap.Error(err))
					return
				}
				c.saveVectors(logger)
			},
		})
	}
	if cfg.Watch.GraphData && c.Loader != nil {
		targets = append(targets, watcher.Target{
			Root:       c.Loader.DataDir(),
			Extensions: []string{".json"},
			Coalesce:   true,
			OnChange: func(string) {
				report, err := c.Loader.Load(context.Background())
				if err != nil {
					logger.Warn("graph reload failed", zap.String("dir", c.Loader.DataDir()), zap.Error(err))
					return
				}
				logger.Info("graph reloaded",
					zap.Strings("loaded", report.Loaded),
					zap.Strings("skipped", report.Skipped),
					zap.Duration("elapsed", report.Elapsed))
			},
		})
	}
	if len(targets) == 0 {
		return nil
	}
	var opts []watcher.Option
	if debug {
		opts = append(opts, watcher.WithLogger(logger))
	}
	return watcher.New(targets, opts...)
}

// argsReorder moves each flag and its value to the front so
// "musubi ask what sold --output json" parses the flag. Positional words keep
// their order. Every ask and explain flag takes a value, so a flag without
// "=" consumes the next token. Everything after "--" stays positional.
func argsReorder(args []string) []string {
	flags := make([]string, 0, len(args))
	positional := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		a := args[i]
		if a == "--" {
			flags = append(flags, a)
			positional = append(positional, args[i+1:]...)
			break
		}
		if len(a) < 2 || a[0] != '-' {
			positional = append(positional, a)
			continue
		}
		flags = append(flags, a)
		if !strings.Contains(a, "=") && i+1 < len(args) {
			i++
			flags = append(flags, args[i])
		}
	}
	return append(flags, positional...)
}

// buildQuestion joins positional args into the question text.
func buildQuestion(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// parseAskFlags parses ask flags. An empty strategy means route automatically.
func parseAskFlags(args []string) (question string, force *models.Strategy, format cli.OutputFormat, configPath string, err error) {
	fs := flag.NewFlagSet("ask", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	cfgPath := fs.String("config", defaultConfigPath, "config file path")
	strategy := fs.String("strategy", "", "force a strategy: simple or multi_hop")
	output := fs.String("output", "text", "output format: text or json")
	if err = fs.Parse(argsReorder(args)); err != nil {
		return "", nil, "", "", err
	}
	question = buildQuestion(fs.Args())
	if question == "" {
		return "", nil, "", "", fmt.Errorf("%w: question is empty", models.ErrInvalidInput)
	}
	if *strategy != "" {
		s, perr := models.ParseStrategy(*strategy)
		if perr != nil {
			return "", nil, "", "", perr
		}
		force = &s
	}
	format, err = cli.ParseOutputFormat(*output)
	if err != nil {
		return "", nil, "", "", err
	}
	return question, force, format, *cfgPath, nil
}

func runAsk() {
	question, force, format, configPath, err := parseAskFlags(os.Args[2:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		fmt.Fprintln(os.Stderr, "Usage: musubi ask [--strategy simple|multi_hop] [--output text|json] <question>")
		os.Exit(1)
	}

	cfg, _, logger, debugMode := setup(configPath, false)
	defer logger.Sync()

	ctx := context.Background()
	components, err := initializeComponents(cfg, logger, debugMode)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()
	if err := components.openGraph(ctx, cfg, logger, debugMode); err != nil {
		logger.Fatal("Failed to open graph", zap.Error(err))
	}
	if err := components.openRouter(cfg, logger, debugMode); err != nil {
		logger.Fatal("Failed to create generator", zap.Error(err))
	}

	result, err := components.Router.Answer(ctx, question, components.Engine, force)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ask failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteAnswer(os.Stdout, result, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runExplain() {
	fs := flag.NewFlagSet("explain", flag.ExitOnError)
	output := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(argsReorder(os.Args[2:]))

	format, err := cli.ParseOutputFormat(*output)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	explanation, err := router.New(nil, nil).ExplainRouting(buildQuestion(fs.Args()))
	if err != nil {
		fmt.Println("Usage: musubi explain <question>")
		os.Exit(1)
	}
	if err := cli.WriteExplanation(os.Stdout, explanation, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runExamples() {
	fs := flag.NewFlagSet("examples", flag.ExitOnError)
	output := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format, err := cli.ParseOutputFormat(*output)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteExamples(os.Stdout, classifier.ExampleQuestions, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runIndex() {
	fs := flag.NewFlagSet("index", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: musubi index [flags] <file-or-directory>")
		os.Exit(1)
	}
	path := fs.Arg(0)

	cfg, _, logger, debugMode := setup(*configPath, false)
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger, debugMode)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	ctx := context.Background()
	info, err := os.Stat(path)
	if err != nil {
		fmt.Printf("Failed to stat path: %v\n", err)
		os.Exit(1)
	}

	if info.IsDir() {
		n, err := components.Indexer.IndexDirectory(ctx, path, cfg.Watch.Extensions)
		components.saveVectors(logger)
		if err != nil {
			fmt.Printf("Indexed %d file(s) from %s with errors: %v\n", n, path, err)
			os.Exit(1)
		}
		fmt.Printf("Indexed %d file(s) from %s\n", n, path)
		return
	}

	// Single file: no extension filter
	indexed, err := components.Indexer.IndexFile(ctx, path, nil)
	if err != nil {
		fmt.Printf("Indexing failed: %v\n", err)
		os.Exit(1)
	}
	if !indexed {
		fmt.Printf("Unchanged, skipped: %s\n", path)
		return
	}
	components.saveVectors(logger)
	fmt.Printf("Document indexed successfully: %s\n", path)
}

func runDelete() {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: musubi delete [flags] <document-id>")
		os.Exit(1)
	}
	docID := fs.Arg(0)

	cfg, _, logger, debugMode := setup(*configPath, false)
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger, debugMode)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	if err := components.Indexer.DeleteDocument(context.Background(), docID); err != nil {
		fmt.Printf("Deletion failed: %v\n", err)
		os.Exit(1)
	}
	components.saveVectors(logger)
	fmt.Printf("Document deleted: %s\n", docID)
}

func runLoadGraph() {
	fs := flag.NewFlagSet("load-graph", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	dataDir := fs.String("data", "", "dataset directory (default: graph.data_dir)")
	output := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format, err := cli.ParseOutputFormat(*output)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	cfg, _, logger, debugMode := setup(*configPath, false)
	defer logger.Sync()
	if *dataDir != "" {
		abs, err := filepath.Abs(*dataDir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid data directory: %v\n", err)
			os.Exit(1)
		}
		cfg.Graph.DataDir = abs
	}

	ctx := context.Background()
	c := &Components{}
	defer c.Close()
	if err := c.openGraph(ctx, cfg, logger, debugMode); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open graph: %v\n", err)
		os.Exit(1)
	}
	report, err := c.Loader.Load(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Load failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteLoadReport(os.Stdout, report, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (for direct storage mode)")
	serverURL := fs.String("server", "", "server URL; empty reads storage directly")
	output := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format, err := cli.ParseOutputFormat(*output)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	var status *cli.Status
	if *serverURL != "" {
		status, err = statusViaHTTP(*serverURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
	} else {
		cfg, _, logger, debugMode := setup(*configPath, false)
		defer logger.Sync()

		components, err := initializeComponents(cfg, logger, debugMode)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
			os.Exit(1)
		}
		defer components.Close()

		status, err = components.status(context.Background(), cfg, logger, debugMode)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
	}

	if err := cli.WriteStatus(os.Stdout, status, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func statusViaHTTP(serverURL string) (*cli.Status, error) {
	resp, err := http.Get(strings.TrimRight(serverURL, "/") + "/api/v1/status")
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var s cli.Status
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &s, nil
}

func runCheck() {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	checks, ok := config.CheckEnvironment(cfg)
	cli.WriteChecks(os.Stdout, checks, ok)
	if !ok {
		os.Exit(1)
	}
}

// Components holds initialized services. Graph and Router are set only by
// the commands that need them.
type Components struct {
	Storage      storage.Storage
	Embedder     embedding.Embedder
	VectorIndex  *vector.MemoryIndex
	KeywordIndex keyword.KeywordIndex
	Engine       *search.Engine
	Indexer      *indexer.Indexer
	Metrics      *metrics.Metrics

	Graph  graph.Store
	Loader *graph.Loader
	Router *router.Router
}

// Close releases every opened component.
func (c *Components) Close() {
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
	if c.VectorIndex != nil {
		_ = c.VectorIndex.Close()
	}
	if c.KeywordIndex != nil {
		_ = c.KeywordIndex.Close()
	}
	if c.Graph != nil {
		_ = c.Graph.Close()
	}
}

func (c *Components) saveVectors(logger *zap.Logger) {
	if err := c.Indexer.Save(); err != nil {
		logger.Warn("vector index save failed", zap.Error(err))
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger, debug bool) (*Components, error) {
	c := &Components{Metrics: metrics.New()}

	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	c.Storage = store

	embedder, err := newEmbedder(&cfg.Embedding, logger)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.Embedder = embedder

	vectorIndex, err := vector.NewMemoryIndex(embedder.Dimensions())
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize vector index: %w", err)
	}
	if cfg.Storage.VectorIndexPath != "" {
		if _, statErr := os.Stat(cfg.Storage.VectorIndexPath); statErr == nil {
			if loadErr := vectorIndex.Load(cfg.Storage.VectorIndexPath); loadErr != nil {
				logger.Warn("vector index load skipped (reindex to rebuild)",
					zap.String("path", cfg.Storage.VectorIndexPath), zap.Error(loadErr))
			}
		}
	}
	c.VectorIndex = vectorIndex
	if debug {
		logger.Debug("vector index initialized", zap.Int("size", vectorIndex.Size()), zap.Int("dimensions", vectorIndex.Dimensions()))
	}

	keywordIndex, err := keyword.NewBleveIndex(cfg.Storage.BleveIndexPath)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize keyword index: %w", err)
	}
	c.KeywordIndex = keywordIndex

	var engineOpts []search.Option
	idxOpts := []indexer.IndexerOption{indexer.WithVectorPath(cfg.Storage.VectorIndexPath)}
	if debug {
		engineOpts = append(engineOpts, search.WithLogger(logger))
		idxOpts = append(idxOpts, indexer.WithLogger(logger))
	}
	c.Engine = search.NewEngine(store, embedder, vectorIndex, keywordIndex, &cfg.Retrieval, engineOpts...)
	c.Indexer = indexer.NewIndexer(store, embedder, vectorIndex, keywordIndex, &cfg.Retrieval, extract.NewExtractor(), idxOpts...)
	return c, nil
}

// newEmbedder creates the configured embedder. The ONNX embedder is wrapped
// in a cache; the hash embedder is cheap enough to run uncached.
func newEmbedder(cfg *config.EmbeddingConfig, logger *zap.Logger) (embedding.Embedder, error) {
	switch cfg.Provider {
	case config.EmbeddingONNX:
		onnx, err := embedding.NewONNXEmbedder(embedding.ONNXConfig{
			ModelPath:   cfg.ModelPath,
			Dimensions:  cfg.Dimensions,
			MaxTokens:   cfg.MaxTokens,
			LibraryPath: cfg.LibraryPath,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize onnx embedder: %w", err)
		}
		logger.Info("embedder initialized", zap.String("provider", cfg.Provider), zap.String("model", cfg.ModelPath))
		return embedding.NewCachedEmbedder(onnx, cfg.CacheSize), nil
	case config.EmbeddingHash, "":
		return embedding.NewHashEmbedder(cfg.Dimensions), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
}

// openGraph connects the configured graph backend and its loader.
func (c *Components) openGraph(ctx context.Context, cfg *config.Config, logger *zap.Logger, debug bool) error {
	var store graph.Store
	switch cfg.Graph.Backend {
	case config.GraphNeo4j:
		g, err := graph.NewNeo4jGraph(ctx, graph.Neo4jConfig{
			URI:      cfg.Graph.URI,
			Username: cfg.Graph.Username,
			Password: cfg.Graph.Password,
			Database: cfg.Graph.Database,
		})
		if err != nil {
			return fmt.Errorf("failed to connect neo4j: %w", err)
		}
		store = g
	case config.GraphSQLite, "":
		g, err := graph.NewSQLiteGraph(cfg.Graph.DatabasePath)
		if err != nil {
			return fmt.Errorf("failed to open graph database: %w", err)
		}
		store = g
	default:
		return fmt.Errorf("unknown graph backend %q", cfg.Graph.Backend)
	}
	c.Graph = store

	var loaderOpts []graph.LoaderOption
	if debug {
		loaderOpts = append(loaderOpts, graph.WithLoaderLogger(logger))
	}
	c.Loader = graph.NewLoader(store, cfg.Graph.DataDir, loaderOpts...)
	return nil
}

// openRouter builds the query router over the opened graph.
func (c *Components) openRouter(cfg *config.Config, logger *zap.Logger, debug bool) error {
	gen, err := newGenerator(&cfg.Generation, logger)
	if err != nil {
		return err
	}
	var libOpts []graph.LibraryOption
	var extOpts []graphctx.ExtractorOption
	routerOpts := []router.Option{router.WithTopK(cfg.Retrieval.TopK), router.WithMetrics(c.Metrics)}
	if debug {
		libOpts = append(libOpts, graph.WithLogger(logger))
		extOpts = append(extOpts, graphctx.WithLogger(logger))
		routerOpts = append(routerOpts, router.WithLogger(logger))
	}
	extractor := graphctx.NewExtractor(graph.NewLibrary(c.Graph, libOpts...), extOpts...)
	c.Router = router.New(extractor, gen, routerOpts...)
	return nil
}

func newGenerator(cfg *config.GenerationConfig, logger *zap.Logger) (generation.Generator, error) {
	switch cfg.Provider {
	case config.GenerationMistral:
		g, err := generation.NewMistralGenerator(generation.MistralConfig{
			APIKey:       cfg.APIKey,
			Model:        cfg.Model,
			Endpoint:     cfg.Endpoint,
			Temperature:  cfg.Temperature,
			Timeout:      cfg.Timeout,
			MinRequests:  cfg.MinRequests,
			FailureRatio: cfg.FailureRatio,
			OpenTimeout:  cfg.OpenTimeout,
		}, generation.WithLogger(logger))
		if err != nil {
			return nil, fmt.Errorf("failed to initialize mistral generator: %w", err)
		}
		return g, nil
	case config.GenerationEcho, "":
		return generation.EchoGenerator{}, nil
	default:
		return nil, fmt.Errorf("unknown generation provider %q", cfg.Provider)
	}
}

// status collects document and index counts. Graph statistics are included
// when the graph opens; a graph failure is reported, not returned.
func (c *Components) status(ctx context.Context, cfg *config.Config, logger *zap.Logger, debug bool) (*cli.Status, error) {
	docCount, err := c.Storage.CountDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("count documents failed: %w", err)
	}
	chunkCount, err := c.Storage.CountChunks(ctx)
	if err != nil {
		return nil, fmt.Errorf("count chunks failed: %w", err)
	}
	s := &cli.Status{
		Documents:       docCount,
		Chunks:          chunkCount,
		VectorIndexSize: c.VectorIndex.Size(),
		GraphBackend:    cfg.Graph.Backend,
	}
	if diskBytes, err := storage.DiskUsageBytes(cfg.Storage.DatabasePath, cfg.Storage.BleveIndexPath, cfg.Storage.VectorIndexPath); err == nil {
		s.DiskUsageBytes = diskBytes
	}

	if c.Graph == nil {
		if err := c.openGraph(ctx, cfg, logger, debug); err != nil {
			s.GraphError = err.Error()
			return s, nil
		}
	}
	stats, err := c.Graph.Stats(ctx)
	if err != nil {
		s.GraphError = err.Error()
		return s, nil
	}
	s.Graph = stats
	return s, nil
}

func printUsage() {
	fmt.Println(`musubi - Hybrid graph and vector question answering

Usage:
  musubi server [flags]              Start the HTTP server
  musubi ask [flags] <question>      Answer a question
  musubi explain <question>          Show which strategy a question routes to
  musubi index [flags] <file|dir>    Index a document or a directory
  musubi delete [flags] <id>         Delete a document
  musubi load-graph [flags]          Load the graph from the dataset files
  musubi status [flags]              Show document, index and graph status
  musubi check [flags]               Check required environment settings
  musubi examples                    Show example questions per strategy
  musubi version                     Show version
  musubi help                        Show this help

Common Flags:
  --config string    Config file path (default: /usr/local/etc/musubi/config.yaml,
                     ./config.yaml wins when present)

Server Flags:
  --debug            Enable debug logging

Ask Flags:
  --strategy string  Force a strategy: simple or multi_hop (default: classify)
  --output string    Output format: text or json (default: text)

Load-graph Flags:
  --data string      Dataset directory (default: graph.data_dir)

Status Flags:
  --server string    Server URL; empty reads storage directly
  --output string    Output format: text or json (default: text)

Environment:
  MISTRAL_API_KEY, MISTRAL_MODEL        Mistral generator
  NEO4J_URI, NEO4J_USERNAME,
  NEO4J_PASSWORD, NEO4J_DATABASE        Neo4j graph backend
  MUSUBI_GRAPH_BACKEND, MUSUBI_DATA_DIR,
  MUSUBI_GENERATOR                      Overrides
  A .env file in the working directory is loaded first.

Examples:
  musubi load-graph --data ./data
  musubi index ./docs
  musubi ask "Quels événements ont utilisé des produits vendus à Pollutec Paris?"
  musubi ask --strategy simple --output json "Quel est le prix du GreenPower Compact?"
  musubi explain "Quel est le CO2 total économisé par le PG-M01?"
  musubi status --output json`)
}
