// Package watch reloads file-backed configuration (the static configuration
// table, the model manifest) when the files change on disk.
package watch

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce is the quiet period before a change is reported
const DefaultDebounce = 100 * time.Millisecond

// ignoredPatterns match editor swap and backup files
var ignoredPatterns = []string{"*.swp", "*.swx", "*~", "*.tmp", ".*"}

// Watcher reports content changes of a fixed set of files. Parent
// directories are watched so that editors replacing a file on save are
// seen. Events that leave a file's content unchanged are dropped.
type Watcher struct {
	fs       *fsnotify.Watcher
	onChange func([]string) error
	debounce time.Duration
	logger   *zap.Logger

	mu      sync.Mutex
	digests map[string][32]byte
	pending map[string]struct{}
	timer   *time.Timer
	stopped bool

	done chan struct{}
	wg   sync.WaitGroup
}

// Option configures a Watcher
type Option func(*Watcher)

// WithDebounce sets the quiet period; non-positive values are ignored
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// New creates a watcher for paths. Empty paths are skipped. onChange
// receives the sorted absolute paths whose content changed; its error is
// logged.
func New(paths []string, onChange func([]string) error, opts ...Option) (*Watcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	w := &Watcher{
		fs:       fs,
		onChange: onChange,
		debounce: DefaultDebounce,
		logger:   zap.NewNop(),
		digests:  make(map[string][32]byte),
		pending:  make(map[string]struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	for _, p := range paths {
		if p == "" {
			continue
		}
		abs, err := filepath.Abs(p)
		if err != nil {
			fs.Close()
			return nil, fmt.Errorf("failed to resolve %s: %w", p, err)
		}
		abs = filepath.Clean(abs)
		w.digests[abs] = digest(abs)
	}
	return w, nil
}

// Start watches the parent directories and begins delivering changes
func (w *Watcher) Start() error {
	seen := make(map[string]bool)
	for path := range w.digests {
		dir := filepath.Dir(path)
		if seen[dir] {
			continue
		}
		seen[dir] = true
		if err := w.fs.Add(dir); err != nil {
			return fmt.Errorf("failed to watch directory %s: %w", dir, err)
		}
		w.logger.Debug("watching directory", zap.String("dir", dir))
	}

	w.wg.Add(1)
	go w.loop()
	return nil
}

// Stop ends watching and drops pending changes. It is safe to call more
// than once.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return nil
	}
	w.stopped = true
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()

	close(w.done)
	w.wg.Wait()
	return w.fs.Close()
}

func (w *Watcher) loop() {
	defer w.wg.Done()

	for {
		select {
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
				continue
			}
			if path, ok := w.watched(event.Name); ok {
				w.schedule(path)
			}

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.Warn("file watcher error", zap.Error(err))

		case <-w.done:
			return
		}
	}
}

// schedule records a candidate change and restarts the quiet period
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}

	w.pending[path] = struct{}{}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.flush)
}

// flush reports the pending paths whose content digest moved
func (w *Watcher) flush() {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	var changed []string
	for path := range w.pending {
		sum := digest(path)
		if sum != w.digests[path] {
			w.digests[path] = sum
			changed = append(changed, path)
		}
	}
	w.pending = make(map[string]struct{})
	w.mu.Unlock()

	if len(changed) == 0 {
		return
	}
	sort.Strings(changed)

	w.logger.Info("watched files changed", zap.Strings("files", changed))
	if err := w.onChange(changed); err != nil {
		w.logger.Warn("reload after file change failed", zap.Strings("files", changed), zap.Error(err))
	}
}

// watched maps an event path to a watched file, skipping editor files
func (w *Watcher) watched(name string) (string, bool) {
	if ignored(filepath.Base(name)) {
		return "", false
	}
	abs, err := filepath.Abs(name)
	if err != nil {
		return "", false
	}
	abs = filepath.Clean(abs)
	_, ok := w.digests[abs]
	return abs, ok
}

func ignored(base string) bool {
	if strings.HasPrefix(base, ".") {
		return true
	}
	for _, pattern := range ignoredPatterns {
		if ok, _ := filepath.Match(pattern, base); ok {
			return true
		}
	}
	return false
}

// digest hashes a file's content. Missing or unreadable files hash to the
// zero digest, so deleting a file is a change and recreating it is another.
func digest(path string) [32]byte {
	data, err := os.ReadFile(path)
	if err != nil {
		return [32]byte{}
	}
	return sha256.Sum256(data)
}
