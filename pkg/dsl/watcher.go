package dsl

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce is the quiet period a Watcher waits for before reloading.
const DefaultDebounce = 100 * time.Millisecond

// ReloadFunc receives a freshly loaded and validated rule set.
type ReloadFunc func(set *RuleSet) error

// Watcher reloads a rule file when it changes on disk. Bursts of events are
// coalesced into one reload. A file that fails to load is reported and the
// callback is not invoked, so callers keep their previous rule set.
type Watcher struct {
	path     string
	debounce time.Duration
	logger   *zap.Logger
	watcher  *fsnotify.Watcher
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounce sets the debounce interval.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithWatchLogger sets the watcher logger.
func WithWatchLogger(logger *zap.Logger) WatcherOption {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// NewWatcher starts watching the directory holding path. Watching the
// directory keeps working when editors replace the file instead of writing it.
func NewWatcher(path string, opts ...WatcherOption) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve rule file path: %w", err)
	}

	w := &Watcher{
		path:     abs,
		debounce: DefaultDebounce,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}

	w.watcher = fw
	return w, nil
}

// Path returns the absolute path of the watched rule file.
func (w *Watcher) Path() string {
	return w.path
}

// Watch blocks until ctx is cancelled, calling onReload after each change.
// The underlying watcher is closed on return.
func (w *Watcher) Watch(ctx context.Context, onReload ReloadFunc) error {
	defer w.watcher.Close()

	w.logger.Info("rule watcher started",
		zap.String("path", w.path),
		zap.Int64("debounce_ms", w.debounce.Milliseconds()),
	)

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("rule watcher stopped")
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if !w.relevant(event) {
				continue
			}

			w.logger.Debug("rule file event",
				zap.String("path", event.Name),
				zap.String("op", event.Op.String()),
			)

			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			w.reload(onReload)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			w.logger.Error("rule watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != w.path {
		return false
	}
	return event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0
}

func (w *Watcher) reload(onReload ReloadFunc) {
	set, err := Load(w.path)
	if err != nil {
		w.logger.Error("failed to reload rules, keeping previous set",
			zap.String("path", w.path),
			zap.Error(err),
		)
		return
	}

	if err := onReload(set); err != nil {
		w.logger.Error("rule reload rejected",
			zap.String("path", w.path),
			zap.Error(err),
		)
		return
	}

	w.logger.Info("rules reloaded",
		zap.String("path", w.path),
		zap.Int("rules", len(set.Rules)),
	)
}
