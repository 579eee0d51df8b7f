// Package watcher re-indexes document directories and reloads graph data when files change.
package watcher

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const defaultDebounce = 400 * time.Millisecond

// Target is a watched root directory with its own file filter and callbacks.
type Target struct {
	Root       string
	Extensions []string // empty matches every file
	Recursive  bool
	// OnChange is called after a matching file is created or written and
	// the debounce delay has passed without further events.
	OnChange func(path string)
	// OnRemove is called when a matching file is removed or renamed away.
	OnRemove func(path string)
	// Coalesce debounces all events under Root together and calls the
	// callbacks once per burst with the last path seen.
	Coalesce bool
}

func (t *Target) matches(path string) bool {
	return matchExtension(path, t.Extensions)
}

// Watcher dispatches fsnotify events to the targets that contain them.
type Watcher struct {
	debounce time.Duration
	logger   *zap.Logger // optional; when set, logs debug events

	mu        sync.Mutex
	targets   []*Target
	rootPaths map[string][]string // root -> watched directories
	timers    map[string]*time.Timer
	fw        *fsnotify.Watcher
	done      chan struct{}
	stopOnce  sync.Once
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets a logger for debug output (directory changes, file events, etc.).
func WithLogger(l *zap.Logger) Option {
	return func(w *Watcher) { w.logger = l }
}

// WithDebounce sets the quiet period before callbacks run.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// New creates a watcher for the given targets.
func New(targets []Target, opts ...Option) *Watcher {
	w := &Watcher{
		debounce:  defaultDebounce,
		rootPaths: make(map[string][]string),
		timers:    make(map[string]*time.Timer),
		done:      make(chan struct{}),
	}
	for i := range targets {
		t := targets[i]
		t.Root = cleanAbs(t.Root)
		w.targets = append(w.targets, &t)
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func cleanAbs(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}

// Start adds every target root (creating missing roots) and processes events
// until ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.fw != nil {
		w.mu.Unlock()
		return nil
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		w.mu.Unlock()
		return err
	}
	w.fw = fw
	for _, t := range w.targets {
		if err := w.addRootLocked(t); err != nil {
			_ = fw.Close()
			w.fw = nil
			w.mu.Unlock()
			return err
		}
	}
	if w.logger != nil {
		w.logger.Debug("watcher started", zap.Strings("roots", w.rootsLocked()))
	}
	w.mu.Unlock()
	go w.run(ctx, fw)
	return nil
}

func (w *Watcher) run(ctx context.Context, fw *fsnotify.Watcher) {
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-w.done:
			return
		case ev, ok := <-fw.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			if w.logger != nil {
				w.logger.Debug("watcher error", zap.Error(err))
			}
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	path := filepath.Clean(ev.Name)
	t := w.targetFor(path)
	if t == nil {
		return
	}
	if w.logger != nil {
		w.logger.Debug("watcher event", zap.String("op", ev.Op.String()), zap.String("path", path))
	}
	switch {
	case ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write):
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			w.handleNewDirectory(t, path)
			return
		}
		if t.matches(path) && t.OnChange != nil {
			w.schedule(t, path, t.OnChange)
		}
	case ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename):
		if !t.matches(path) {
			return
		}
		if t.Coalesce {
			// a reload reads the whole directory, so removals are changes too
			if t.OnChange != nil {
				w.schedule(t, path, t.OnChange)
			}
			return
		}
		w.cancel(path)
		if t.OnRemove != nil {
			t.OnRemove(path)
		}
	}
}

// targetFor returns the target with the longest root containing path.
func (w *Watcher) targetFor(path string) *Target {
	w.mu.Lock()
	defer w.mu.Unlock()
	var best *Target
	for _, t := range w.targets {
		if inDir(t.Root, path) && (best == nil || len(t.Root) > len(best.Root)) {
			best = t
		}
	}
	return best
}

// handleNewDirectory watches a directory created (or moved) under t and
// processes the files already inside it.
func (w *Watcher) handleNewDirectory(t *Target, dirPath string) {
	w.mu.Lock()
	fw := w.fw
	w.mu.Unlock()
	if fw == nil {
		return
	}
	if !t.Recursive {
		return
	}
	_ = filepath.WalkDir(dirPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if err := fw.Add(path); err != nil && w.logger != nil {
			w.logger.Debug("watcher failed to add directory", zap.String("path", path), zap.Error(err))
		}
		w.mu.Lock()
		w.rootPaths[t.Root] = append(w.rootPaths[t.Root], path)
		w.mu.Unlock()
		return nil
	})
	w.syncTarget(t, dirPath)
}

func inDir(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func matchExtension(path string, extensions []string) bool {
	if len(extensions) == 0 {
		return true
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	for _, e := range extensions {
		if strings.TrimPrefix(strings.ToLower(e), ".") == ext {
			return true
		}
	}
	return false
}

// schedule runs fn(path) after the debounce delay, restarting the delay on
// every new event for the same key.
func (w *Watcher) schedule(t *Target, path string, fn func(string)) {
	key := path
	if t.Coalesce {
		key = t.Root
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if timer, ok := w.timers[key]; ok {
		timer.Stop()
	}
	w.timers[key] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.timers, key)
		w.mu.Unlock()
		if w.logger != nil {
			w.logger.Debug("watcher dispatching change", zap.String("path", path))
		}
		fn(path)
	})
}

func (w *Watcher) cancel(key string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if timer, ok := w.timers[key]; ok {
		timer.Stop()
		delete(w.timers, key)
	}
}

// Add starts watching a new target. Existing files are processed when syncExisting is set.
func (w *Watcher) Add(target Target, syncExisting bool) error {
	target.Root = cleanAbs(target.Root)
	w.mu.Lock()
	for _, t := range w.targets {
		if t.Root == target.Root {
			w.mu.Unlock()
			return nil
		}
	}
	t := &target
	if w.fw != nil {
		if err := w.addRootLocked(t); err != nil {
			w.mu.Unlock()
			return err
		}
	}
	w.targets = append(w.targets, t)
	w.mu.Unlock()
	if w.logger != nil {
		w.logger.Debug("watcher directory added", zap.String("path", t.Root), zap.Bool("sync_existing", syncExisting))
	}
	if syncExisting {
		go w.syncTarget(t, t.Root)
	}
	return nil
}

func (w *Watcher) addRootLocked(t *Target) error {
	if err := os.MkdirAll(t.Root, 0755); err != nil {
		return err
	}
	var paths []string
	if t.Recursive {
		err := filepath.WalkDir(t.Root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() {
				return nil
			}
			if err := w.fw.Add(path); err != nil {
				return err
			}
			paths = append(paths, path)
			return nil
		})
		if err != nil {
			return err
		}
	} else {
		if err := w.fw.Add(t.Root); err != nil {
			return err
		}
		paths = append(paths, t.Root)
	}
	w.rootPaths[t.Root] = paths
	return nil
}

// syncTarget calls OnChange for every matching file under dir. Coalesced
// targets get a single call.
func (w *Watcher) syncTarget(t *Target, dir string) {
	if t.OnChange == nil {
		return
	}
	if w.logger != nil {
		w.logger.Debug("watcher syncing directory", zap.String("root", dir))
	}
	var first string
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !t.matches(path) {
			return nil
		}
		if !t.Recursive && filepath.Dir(path) != dir {
			return nil
		}
		if t.Coalesce {
			if first == "" {
				first = path
			}
			return nil
		}
		t.OnChange(path)
		return nil
	})
	if t.Coalesce && first != "" {
		t.OnChange(first)
	}
}

// Remove stops watching root. Indexed documents are left untouched.
func (w *Watcher) Remove(root string) error {
	root = cleanAbs(root)
	w.mu.Lock()
	defer w.mu.Unlock()
	idx := -1
	for i, t := range w.targets {
		if t.Root == root {
			idx = i
			break
		}
	}
	if idx < 0 {
		return errors.New("directory is not watched: " + root)
	}
	if w.fw != nil {
		for _, p := range w.rootPaths[root] {
			_ = w.fw.Remove(p)
		}
	}
	delete(w.rootPaths, root)
	w.targets = append(w.targets[:idx], w.targets[idx+1:]...)
	if w.logger != nil {
		w.logger.Debug("watcher directory removed", zap.String("path", root))
	}
	return nil
}

// Roots returns the watched root directories.
func (w *Watcher) Roots() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.rootsLocked()
}

func (w *Watcher) rootsLocked() []string {
	roots := make([]string, len(w.targets))
	for i, t := range w.targets {
		roots[i] = t.Root
	}
	return roots
}

// SyncExisting processes the files already present under every root.
func (w *Watcher) SyncExisting() {
	w.mu.Lock()
	targets := append([]*Target(nil), w.targets...)
	w.mu.Unlock()
	for _, t := range targets {
		w.syncTarget(t, t.Root)
	}
}

// Stop stops the watcher and releases resources. Pending callbacks are dropped.
func (w *Watcher) Stop() {
	w.mu.Lock()
	for key, timer := range w.timers {
		timer.Stop()
		delete(w.timers, key)
	}
	fw := w.fw
	w.fw = nil
	w.mu.Unlock()
	w.stopOnce.Do(func() { close(w.done) })
	if fw != nil {
		_ = fw.Close()
	}
}
