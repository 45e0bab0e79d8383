// SPDX-License-Identifier: MPL-2.0

// Package watch rebuilds a project when its sources change.
//
// A Watcher monitors the script, library and asset roots recursively plus a
// few individual files (the project file, the base document) and invokes a
// callback once the filesystem has been quiet for the debounce period.
// Events inside the window are coalesced so the callback fires once with
// every changed path.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
)

// defaultDebounce lets an editor's write-then-rename settle into one rebuild.
const defaultDebounce = 300 * time.Millisecond

// defaultIgnores lists path patterns that never trigger a rebuild.
var defaultIgnores = []string{
	"**/.git/**",
	"**/__pycache__/**",
	"**/*.pyc",
	"**/*.swp",
	"**/*~",
	"**/.~lock.*#",
	"**/.DS_Store",
}

var (
	// ErrNothingToWatch is returned when a Config has neither roots nor files.
	ErrNothingToWatch = errors.New("nothing to watch")
	// ErrInvalidPattern is the sentinel wrapped by InvalidPatternError.
	ErrInvalidPattern = errors.New("invalid watch pattern")
	// ErrAlreadyRunning is returned by a second call to Run.
	ErrAlreadyRunning = errors.New("watch: Run called more than once")
)

type (
	// Config holds the parameters for a Watcher.
	Config struct {
		// Roots are directories watched recursively. Roots that do not exist
		// are skipped.
		Roots []string

		// Files are watched individually through their parent directory.
		Files []string

		// Patterns are doublestar globs matched against paths relative to
		// their root. An empty slice accepts every non-ignored file.
		// Patterns do not filter Files.
		Patterns []string

		// Ignore adds to the built-in ignore patterns.
		Ignore []string

		// Debounce is the quiet period before the callback fires. Zero or
		// negative values fall back to defaultDebounce.
		Debounce time.Duration

		// OnChange receives the sorted absolute paths changed since the last
		// call. A nil callback is a no-op.
		OnChange func(ctx context.Context, changed []string) error

		Logger *slog.Logger
	}

	// InvalidPatternError reports a glob that doublestar rejects.
	InvalidPatternError struct {
		Label   string
		Pattern string
		Err     error
	}

	// Watcher monitors the configured paths. Run must be called exactly once.
	Watcher struct {
		cfg      Config
		fsw      *fsnotify.Watcher
		roots    []string
		files    map[string]struct{}
		ignores  []string
		debounce time.Duration
		logger   *slog.Logger
		started  atomic.Bool
	}
)

func (e *InvalidPatternError) Error() string {
	return fmt.Sprintf("invalid %s pattern %q: %v", e.Label, e.Pattern, e.Err)
}

// Unwrap returns ErrInvalidPattern.
func (e *InvalidPatternError) Unwrap() error { return ErrInvalidPattern }

// Validate checks the patterns and that there is something to watch.
func (c Config) Validate() error {
	if len(c.Roots) == 0 && len(c.Files) == 0 {
		return ErrNothingToWatch
	}
	var errs []error
	for _, set := range []struct {
		label    string
		patterns []string
	}{{"watch", c.Patterns}, {"ignore", c.Ignore}} {
		for _, pat := range set.patterns {
			if !doublestar.ValidatePattern(pat) {
				errs = append(errs, &InvalidPatternError{Label: set.label, Pattern: pat, Err: doublestar.ErrBadPattern})
			}
		}
	}
	return errors.Join(errs...)
}

// New creates a Watcher and registers every existing root directory.
func New(cfg Config) (*Watcher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("watch: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = defaultDebounce
	}

	w := &Watcher{
		cfg:      cfg,
		files:    make(map[string]struct{}, len(cfg.Files)),
		ignores:  slices.Concat(defaultIgnores, cfg.Ignore),
		debounce: debounce,
		logger:   logger,
	}
	for _, root := range cfg.Roots {
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, fmt.Errorf("watch: resolve %q: %w", root, err)
		}
		w.roots = append(w.roots, abs)
	}
	for _, f := range cfg.Files {
		abs, err := filepath.Abs(f)
		if err != nil {
			return nil, fmt.Errorf("watch: resolve %q: %w", f, err)
		}
		w.files[abs] = struct{}{}
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: create fsnotify watcher: %w", err)
	}
	w.fsw = fsw

	if err := w.register(); err != nil {
		if closeErr := fsw.Close(); closeErr != nil {
			logger.Warn("watch: close after init failure", "error", closeErr)
		}
		return nil, err
	}
	return w, nil
}

// Run blocks until ctx is cancelled, dispatching debounced callbacks. At most
// one callback runs at a time; changes arriving during a callback are
// delivered by the next one. It returns nil on cancellation and an error
// when the underlying watcher breaks.
func (w *Watcher) Run(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	var (
		mu      sync.Mutex
		pending = make(map[string]struct{})
		timer   *time.Timer
		running atomic.Bool
	)

	fire := func() {
		if ctx.Err() != nil {
			return
		}
		if !running.CompareAndSwap(false, true) {
			w.logger.Debug("rebuild still running, postponing")
			mu.Lock()
			if timer != nil {
				timer.Reset(w.debounce)
			}
			mu.Unlock()
			return
		}
		defer running.Store(false)

		mu.Lock()
		if len(pending) == 0 {
			mu.Unlock()
			return
		}
		changed := slices.Sorted(maps.Keys(pending))
		clear(pending)
		mu.Unlock()

		if w.cfg.OnChange != nil {
			if err := w.cfg.OnChange(ctx, changed); err != nil {
				w.logger.Error("rebuild failed", "error", err)
			}
		}
	}

	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
		if closeErr := w.fsw.Close(); closeErr != nil {
			w.logger.Warn("watch: close fsnotify", "error", closeErr)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case evt, ok := <-w.fsw.Events:
			if !ok {
				return errors.New("watch: fsnotify event channel closed unexpectedly")
			}
			if !w.accept(evt.Name) {
				continue
			}
			if evt.Has(fsnotify.Create) {
				w.maybeAddDir(evt.Name)
			}

			mu.Lock()
			pending[evt.Name] = struct{}{}
			if timer == nil {
				timer = time.AfterFunc(w.debounce, fire)
			} else {
				timer.Reset(w.debounce)
			}
			mu.Unlock()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return errors.New("watch: fsnotify error channel closed unexpectedly")
			}
			if isFatalFsnotifyError(err) {
				return fmt.Errorf("watch: fatal fsnotify error: %w", err)
			}
			w.logger.Warn("watch: fsnotify error", "error", err)
		}
	}
}

// Watched returns the directories registered with fsnotify, sorted.
func (w *Watcher) Watched() []string {
	list := w.fsw.WatchList()
	slices.Sort(list)
	return list
}

// register adds every non-ignored directory below the roots, and the parent
// directory of every file.
func (w *Watcher) register() error {
	for _, root := range w.roots {
		if info, err := os.Stat(root); err != nil || !info.IsDir() {
			w.logger.Debug("watch: skipping missing root", "root", root)
			continue
		}
		walkErr := filepath.WalkDir(root, func(path string, d os.DirEntry, walkDirErr error) error {
			if walkDirErr != nil {
				w.logger.Warn("watch: skipping inaccessible path", "path", path, "error", walkDirErr)
				return nil //nolint:nilerr // skip what cannot be read
			}
			if !d.IsDir() {
				return nil
			}
			if path != root && w.ignoredDir(root, path) {
				return filepath.SkipDir
			}
			if err := w.fsw.Add(path); err != nil {
				return fmt.Errorf("watch: add directory %q: %w", path, err)
			}
			return nil
		})
		if walkErr != nil {
			return walkErr
		}
	}

	parents := make(map[string]struct{})
	for f := range w.files {
		parents[filepath.Dir(f)] = struct{}{}
	}
	for _, dir := range slices.Sorted(maps.Keys(parents)) {
		if slices.Contains(w.fsw.WatchList(), dir) {
			continue
		}
		if err := w.fsw.Add(dir); err != nil {
			return fmt.Errorf("watch: add directory %q: %w", dir, err)
		}
	}
	return nil
}

// accept reports whether an event on path should schedule a callback.
func (w *Watcher) accept(path string) bool {
	if _, ok := w.files[path]; ok {
		return true
	}
	root, rel, ok := w.relative(path)
	if !ok {
		return false
	}
	if w.isIgnored(rel) {
		return false
	}
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		// new directories are registered, their files report the changes
		return !w.ignoredDir(root, path)
	}
	return w.matchesPatterns(rel)
}

// relative finds the deepest root containing path.
func (w *Watcher) relative(path string) (root, rel string, ok bool) {
	for _, r := range w.roots {
		candidate, err := filepath.Rel(r, path)
		if err != nil || candidate == ".." || strings.HasPrefix(candidate, ".."+string(filepath.Separator)) {
			continue
		}
		if !ok || len(r) > len(root) {
			root, rel, ok = r, candidate, true
		}
	}
	return root, rel, ok
}

func (w *Watcher) maybeAddDir(path string) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return
	}
	root, _, ok := w.relative(path)
	if !ok || w.ignoredDir(root, path) {
		return
	}
	if err := w.fsw.Add(path); err != nil {
		w.logger.Warn("watch: add new directory", "path", path, "error", err)
	}
}

func (w *Watcher) ignoredDir(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return w.isIgnored(rel) || w.isIgnored(rel+"/")
}

func (w *Watcher) isIgnored(rel string) bool {
	return matchAny(w.ignores, rel)
}

func (w *Watcher) matchesPatterns(rel string) bool {
	return len(w.cfg.Patterns) == 0 || matchAny(w.cfg.Patterns, rel)
}

func matchAny(patterns []string, rel string) bool {
	normalized := filepath.ToSlash(rel)
	for _, pat := range patterns {
		if matched, err := doublestar.Match(pat, normalized); err == nil && matched {
			return true
		}
	}
	return false
}

// DefaultIgnores returns a copy of the built-in ignore patterns.
func DefaultIgnores() []string {
	return slices.Clone(defaultIgnores)
}
