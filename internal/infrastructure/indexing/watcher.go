package indexing

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultWatchExtensions are the knowledge base files that trigger a rebuild.
var DefaultWatchExtensions = []string{".txt", ".pdf", ".json", ".csv", ".xlsx"}

const DefaultDebounce = 2 * time.Second

// Watcher runs a callback once a burst of file changes in a directory has
// settled.
type Watcher struct {
	watcher    *fsnotify.Watcher
	extensions []string
	ignore     map[string]bool
	debounce   time.Duration
	logger     *slog.Logger
}

type WatcherOptions struct {
	Extensions []string
	// Ignore lists base names whose changes are ignored, such as the index
	// file the callback writes itself.
	Ignore   []string
	Debounce time.Duration
	Logger   *slog.Logger
}

func NewWatcher(opts WatcherOptions) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	if len(opts.Extensions) == 0 {
		opts.Extensions = DefaultWatchExtensions
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	ignore := make(map[string]bool, len(opts.Ignore))
	for _, name := range opts.Ignore {
		ignore[name] = true
	}
	return &Watcher{
		watcher:    w,
		extensions: opts.Extensions,
		ignore:     ignore,
		debounce:   opts.Debounce,
		logger:     opts.Logger,
	}, nil
}

// Run watches dir until ctx is done. onChange runs on the watcher goroutine,
// so changes arriving while it runs are coalesced into the next call.
func (w *Watcher) Run(ctx context.Context, dir string, onChange func(context.Context) error) error {
	defer w.watcher.Close()
	if err := w.watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	// settle is nil while no change is pending.
	var settle <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			w.logger.Debug("knowledge_base_changed", "file", event.Name, "op", event.Op.String())
			settle = time.After(w.debounce)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher_error", "error", err.Error())
		case <-settle:
			settle = nil
			if err := onChange(ctx); err != nil {
				w.logger.Error("rebuild_failed", "error", err.Error())
			}
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) &&
		!event.Op.Has(fsnotify.Remove) && !event.Op.Has(fsnotify.Rename) {
		return false
	}
	base := filepath.Base(event.Name)
	if w.ignore[base] || strings.HasPrefix(base, ".") {
		return false
	}
	ext := strings.ToLower(filepath.Ext(base))
	for _, e := range w.extensions {
		if ext == e {
			return true
		}
	}
	return false
}
