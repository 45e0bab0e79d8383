// SPDX-License-Identifier: MPL-2.0

package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// startWatcher runs w until the test ends and fails the test if Run errors.
func startWatcher(t *testing.T, w *Watcher) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-errCh:
			if err != nil {
				t.Errorf("Run() error: %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Error("Run() did not return after cancellation")
		}
	})
}

func mkdirs(t *testing.T, dirs ...string) {
	t.Helper()
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0o755); err != nil {
			t.Fatal(err)
		}
	}
}

func write(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("x = 1\n"), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestWatcherDebounce(t *testing.T) {
	t.Parallel()

	src := filepath.Join(t.TempDir(), "src")
	mkdirs(t, src)

	var (
		mu        sync.Mutex
		calls     int
		collected []string
	)
	done := make(chan struct{})

	w, err := New(Config{
		Roots:    []string{src},
		Debounce: 100 * time.Millisecond,
		OnChange: func(_ context.Context, changed []string) error {
			mu.Lock()
			defer mu.Unlock()
			calls++
			collected = append(collected, changed...)
			if calls == 1 {
				close(done)
			}
			return nil
		},
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	startWatcher(t, w)

	for _, name := range []string{"a.py", "b.py", "c.py"} {
		write(t, filepath.Join(src, name))
		time.Sleep(10 * time.Millisecond)
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for callback")
	}
	time.Sleep(250 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if calls != 1 {
		t.Errorf("expected 1 debounced callback, got %d", calls)
	}
	for _, name := range []string{"a.py", "b.py", "c.py"} {
		if !slices.Contains(collected, filepath.Join(src, name)) {
			t.Errorf("expected %q in changed files, got %v", name, collected)
		}
	}
	if !slices.IsSorted(collected) {
		t.Errorf("changed paths should be sorted: %v", collected)
	}
}

func TestWatcherIgnoreAndPatterns(t *testing.T) {
	t.Parallel()

	src := filepath.Join(t.TempDir(), "src")
	mkdirs(t, src)

	fired := make(chan []string, 10)
	w, err := New(Config{
		Roots:    []string{src},
		Patterns: []string{"**/*.py"},
		Ignore:   []string{"**/scratch_*.py"},
		Debounce: 50 * time.Millisecond,
		OnChange: func(_ context.Context, changed []string) error {
			fired <- changed
			return nil
		},
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	startWatcher(t, w)

	write(t, filepath.Join(src, "notes.txt"))
	write(t, filepath.Join(src, "scratch_1.py"))

	select {
	case changed := <-fired:
		t.Fatalf("callback should not fire for filtered files, got %v", changed)
	case <-time.After(300 * time.Millisecond):
	}

	write(t, filepath.Join(src, "main.py"))
	select {
	case changed := <-fired:
		if !slices.Equal(changed, []string{filepath.Join(src, "main.py")}) {
			t.Errorf("changed = %v", changed)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for callback")
	}
}

func TestWatcherFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	project := filepath.Join(dir, "calcpack.cue")
	write(t, project)

	fired := make(chan []string, 10)
	w, err := New(Config{
		Files:    []string{project},
		Debounce: 50 * time.Millisecond,
		OnChange: func(_ context.Context, changed []string) error {
			fired <- changed
			return nil
		},
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	startWatcher(t, w)

	write(t, filepath.Join(dir, "unrelated.txt"))
	select {
	case changed := <-fired:
		t.Fatalf("sibling files must not trigger, got %v", changed)
	case <-time.After(300 * time.Millisecond):
	}

	write(t, project)
	select {
	case changed := <-fired:
		if !slices.Contains(changed, project) {
			t.Errorf("changed = %v, want %s", changed, project)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for callback")
	}
}

func TestWatcherNewDirectory(t *testing.T) {
	t.Parallel()

	src := filepath.Join(t.TempDir(), "src")
	mkdirs(t, src)

	fired := make(chan []string, 10)
	w, err := New(Config{
		Roots:    []string{src},
		Patterns: []string{"**/*.py"},
		Debounce: 50 * time.Millisecond,
		OnChange: func(_ context.Context, changed []string) error {
			fired <- changed
			return nil
		},
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	startWatcher(t, w)

	pkg := filepath.Join(src, "pkg")
	mkdirs(t, pkg)
	time.Sleep(100 * time.Millisecond)
	write(t, filepath.Join(pkg, "mod.py"))

	deadline := time.After(5 * time.Second)
	for {
		select {
		case changed := <-fired:
			if slices.Contains(changed, filepath.Join(pkg, "mod.py")) {
				return
			}
		case <-deadline:
			t.Fatal("file in a new directory was not reported")
		}
	}
}

func TestWatcherSkipIfBusy(t *testing.T) {
	t.Parallel()

	src := filepath.Join(t.TempDir(), "src")
	mkdirs(t, src)

	var (
		active  atomic.Int32
		overlap atomic.Bool
		calls   atomic.Int32
	)
	w, err := New(Config{
		Roots:    []string{src},
		Debounce: 30 * time.Millisecond,
		OnChange: func(_ context.Context, _ []string) error {
			if active.Add(1) > 1 {
				overlap.Store(true)
			}
			defer active.Add(-1)
			calls.Add(1)
			time.Sleep(200 * time.Millisecond)
			return nil
		},
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	startWatcher(t, w)

	write(t, filepath.Join(src, "a.py"))
	time.Sleep(80 * time.Millisecond)
	write(t, filepath.Join(src, "b.py"))
	time.Sleep(600 * time.Millisecond)

	if overlap.Load() {
		t.Error("callbacks must not run concurrently")
	}
	if calls.Load() < 2 {
		t.Errorf("postponed changes should be delivered, got %d calls", calls.Load())
	}
}

func TestWatcherCallbackError(t *testing.T) {
	t.Parallel()

	src := filepath.Join(t.TempDir(), "src")
	mkdirs(t, src)

	var calls atomic.Int32
	w, err := New(Config{
		Roots:    []string{src},
		Debounce: 30 * time.Millisecond,
		OnChange: func(_ context.Context, _ []string) error {
			calls.Add(1)
			return errors.New("build failed")
		},
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	startWatcher(t, w)

	write(t, filepath.Join(src, "a.py"))
	time.Sleep(200 * time.Millisecond)
	write(t, filepath.Join(src, "b.py"))
	time.Sleep(200 * time.Millisecond)

	if calls.Load() < 2 {
		t.Errorf("a failing callback must not stop the watcher, got %d calls", calls.Load())
	}
}

func TestWatcherMissingRootAndIgnoredDirs(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	src := filepath.Join(root, "src")
	mkdirs(t, filepath.Join(src, "pkg"), filepath.Join(src, "__pycache__"))

	w, err := New(Config{Roots: []string{src, filepath.Join(root, "opt")}})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	defer func() {
		if err := w.fsw.Close(); err != nil {
			t.Error(err)
		}
	}()

	want := []string{src, filepath.Join(src, "pkg")}
	if got := w.Watched(); !slices.Equal(got, want) {
		t.Errorf("Watched() = %v, want %v", got, want)
	}
}

func TestWatcherDoubleRun(t *testing.T) {
	t.Parallel()

	w, err := New(Config{Roots: []string{t.TempDir()}})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	startWatcher(t, w)
	time.Sleep(20 * time.Millisecond)

	if err := w.Run(context.Background()); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("second Run() = %v, want ErrAlreadyRunning", err)
	}
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     Config
		wantErr error
	}{
		{"roots only", Config{Roots: []string{"src"}}, nil},
		{"files only", Config{Files: []string{"calcpack.cue"}}, nil},
		{"nothing", Config{}, ErrNothingToWatch},
		{"bad pattern", Config{Roots: []string{"src"}, Patterns: []string{"[a-"}}, ErrInvalidPattern},
		{"bad ignore", Config{Roots: []string{"src"}, Ignore: []string{"{a,b"}}, ErrInvalidPattern},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}

	var patErr *InvalidPatternError
	err := Config{Roots: []string{"src"}, Ignore: []string{"[a-"}}.Validate()
	if !errors.As(err, &patErr) || patErr.Label != "ignore" || patErr.Pattern != "[a-" {
		t.Errorf("expected *InvalidPatternError for the ignore pattern, got %v", err)
	}
}

func TestDefaultIgnores(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path    string
		ignored bool
	}{
		{".git/config", true},
		{"pkg/__pycache__/mod.cpython-311.pyc", true},
		{"mod.pyc", true},
		{"main.py.swp", true},
		{"main.py~", true},
		{".~lock.report.ods#", true},
		{"sub/.DS_Store", true},
		{"main.py", false},
		{"pkg/__init__.py", false},
		{"data/table.csv", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			t.Parallel()
			if got := matchAny(DefaultIgnores(), tt.path); got != tt.ignored {
				t.Errorf("ignored(%q) = %v, want %v", tt.path, got, tt.ignored)
			}
		})
	}
}
