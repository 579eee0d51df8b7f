package graph

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// LoadReport describes which dataset files a load used.
type LoadReport struct {
	Loaded  []string      `json:"loaded"`
	Skipped []string      `json:"skipped"`
	Stats   *Stats        `json:"stats,omitempty"`
	Elapsed time.Duration `json:"elapsed"`
}

// ReadDataset reads the dataset files from dir. Missing files are reported as
// skipped; malformed files fail the read.
func ReadDataset(dir string) (*Dataset, *LoadReport, error) {
	ds := &Dataset{}
	report := &LoadReport{}

	readInto := func(name string, v any) (bool, error) {
		err := decodeFile(filepath.Join(dir, name), v)
		if errors.Is(err, fs.ErrNotExist) {
			report.Skipped = append(report.Skipped, name)
			return false, nil
		}
		if err != nil {
			return false, err
		}
		report.Loaded = append(report.Loaded, name)
		return true, nil
	}

	var products productsFile
	ok, err := readInto(ProductsFile, &products)
	if err != nil {
		return nil, nil, err
	}
	if ok {
		ds.addProducts(&products)
	}

	var events eventsFile
	ok, err = readInto(EventsFile, &events)
	if err != nil {
		return nil, nil, err
	}
	if ok {
		ds.addEvents(&events)
	}

	var rd rdFile
	ok, err = readInto(RDFile, &rd)
	if err != nil {
		return nil, nil, err
	}
	if ok {
		ds.addProjects(&rd)
	}

	ds.prune()
	return ds, report, nil
}

// Loader (re)builds a graph store from the dataset files of a directory.
type Loader struct {
	store   Store
	dataDir string
	logger  *zap.Logger // optional; when set, logs load progress
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithLoaderLogger sets a logger for load progress.
func WithLoaderLogger(l *zap.Logger) LoaderOption {
	return func(ld *Loader) { ld.logger = l }
}

// NewLoader creates a loader for store reading from dataDir.
func NewLoader(store Store, dataDir string, opts ...LoaderOption) *Loader {
	ld := &Loader{store: store, dataDir: dataDir}
	for _, opt := range opts {
		opt(ld)
	}
	return ld
}

// DataDir returns the directory the loader reads from.
func (ld *Loader) DataDir() string {
	return ld.dataDir
}

// Load clears the store and loads the dataset. When no file is present the
// graph is left empty; this is not an error.
func (ld *Loader) Load(ctx context.Context) (*LoadReport, error) {
	start := time.Now()
	ds, report, err := ReadDataset(ld.dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read graph dataset: %w", err)
	}
	for _, name := range report.Skipped {
		if ld.logger != nil {
			ld.logger.Warn("graph dataset file not found, skipped",
				zap.String("file", filepath.Join(ld.dataDir, name)))
		}
	}
	if err := ld.store.Replace(ctx, ds); err != nil {
		return nil, fmt.Errorf("failed to load graph: %w", err)
	}
	stats, err := ld.store.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count graph: %w", err)
	}
	report.Stats = stats
	report.Elapsed = time.Since(start)
	if ld.logger != nil {
		ld.logger.Info("graph loaded",
			zap.Strings("files", report.Loaded),
			zap.Int("products", len(ds.Products)),
			zap.Int("tradeshows", len(ds.TradeShows)),
			zap.Int("events", len(ds.Events)),
			zap.Int("rd_projects", len(ds.Projects)),
			zap.Duration("elapsed", report.Elapsed))
		if len(report.Loaded) == 0 {
			ld.logger.Warn("no graph dataset file found; the graph is empty", zap.String("dir", ld.dataDir))
		}
	}
	return report, nil
}
