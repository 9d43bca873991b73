// Package watch rebuilds when the rendered site changes.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/docexport/internal/logfields"
)

// RebuildFunc runs one full pipeline pass.
type RebuildFunc func(ctx context.Context) error

// Config configures a Watcher.
type Config struct {
	Root        string
	Exclude     []string // directories whose changes are ignored (export output)
	QuietWindow time.Duration
	MaxDelay    time.Duration
}

// Watcher triggers rebuilds on filesystem changes under Root. Rebuilds run
// one at a time; changes during a rebuild queue exactly one follow-up.
type Watcher struct {
	root      string
	exclude   []string
	fs        *fsnotify.Watcher
	debouncer *Debouncer
	rebuild   RebuildFunc
}

// New creates a watcher over cfg.Root.
func New(cfg Config, rebuild RebuildFunc) (*Watcher, error) {
	if cfg.QuietWindow <= 0 {
		cfg.QuietWindow = 300 * time.Millisecond
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 5 * time.Second
	}
	debouncer, err := NewDebouncer(cfg.QuietWindow, cfg.MaxDelay)
	if err != nil {
		return nil, err
	}

	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("resolve watch root: %w", err)
	}
	var exclude []string
	for _, e := range cfg.Exclude {
		if e == "" {
			continue
		}
		if abs, err := filepath.Abs(e); err == nil {
			exclude = append(exclude, abs)
		}
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("fsnotify: %w", err)
	}
	w := &Watcher{root: root, exclude: exclude, fs: fw, debouncer: debouncer, rebuild: rebuild}
	if err := w.addDirsRecursive(root); err != nil {
		_ = fw.Close()
		return nil, err
	}
	return w, nil
}

// Run blocks until ctx is done, rebuilding after each debounced burst of
// changes. Rebuild errors are logged; the watcher keeps running.
func (w *Watcher) Run(ctx context.Context) error {
	defer func() { _ = w.fs.Close() }()

	var workers workerGroup
	defer func() {
		// Workers stop with ctx; a rebuild in flight gets a grace period.
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer stopCancel()
		if err := workers.StopAndWait(stopCtx); err != nil {
			slog.Warn("Watcher workers did not stop in time", logfields.Error(err))
		}
	}()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	workers.Go(func() { w.debouncer.Run(ctx) })
	workers.Go(func() { w.rebuildLoop(ctx) })

	slog.Info("Watching rendered site for changes", logfields.Path(w.root))
	for {
		select {
		case <-ctx.Done():
			slog.Info("Stopping watcher")
			return nil
		case ev, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ev)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			slog.Warn("Watcher error", logfields.Error(err))
		}
	}
}

func (w *Watcher) rebuildLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case n := <-w.debouncer.C():
			slog.Info("Change detected; rebuilding", slog.Int("changes", n))
			t0 := time.Now()
			if err := w.rebuild(ctx); err != nil {
				slog.Warn("Rebuild failed", logfields.Error(err))
				continue
			}
			slog.Info("Rebuild finished", logfields.DurationMS(float64(time.Since(t0).Milliseconds())))
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	if shouldIgnoreEvent(ev.Name) || w.excluded(ev.Name) {
		return
	}
	if ev.Has(fsnotify.Create) {
		if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
			_ = w.addDirsRecursive(ev.Name)
		}
	}
	slog.Debug("File change detected", logfields.Path(ev.Name), "op", ev.Op.String())
	w.debouncer.Trigger()
}

func (w *Watcher) addDirsRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if w.excluded(path) {
			return filepath.SkipDir
		}
		if err := w.fs.Add(path); err != nil {
			slog.Warn("Watch add failed", logfields.Path(path), logfields.Error(err))
		}
		return nil
	})
}

func (w *Watcher) excluded(path string) bool {
	for _, e := range w.exclude {
		if path == e || strings.HasPrefix(path, e+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// shouldIgnoreEvent reports editor temp files and other noise.
func shouldIgnoreEvent(path string) bool {
	base := filepath.Base(path)
	switch {
	case strings.HasPrefix(base, "."):
		return true
	case strings.HasSuffix(base, "~"), strings.HasSuffix(base, ".swp"), strings.HasSuffix(base, ".swx"):
		return true
	case strings.HasPrefix(base, "#") && strings.HasSuffix(base, "#"):
		return true
	case base == "Thumbs.db":
		return true
	}
	return false
}
