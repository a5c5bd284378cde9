package workspace

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
	"github.com/opencode-ai/lspbridge/internal/document"
	"github.com/opencode-ai/lspbridge/internal/logging"
	"github.com/opencode-ai/lspbridge/internal/lsp"
)

const defaultSettle = 100 * time.Millisecond

// Reloader is the part of a session the watcher drives.
type Reloader interface {
	Documents() []document.Document
	Reload(ctx context.Context, uri, content string) (bool, error)
}

type WatcherOptions struct {
	Root string
	// Ignore holds doublestar patterns matched against slash-separated
	// paths relative to Root.
	Ignore []string
	// Settle is how long a burst of events must be quiet before the
	// affected files are read. Defaults to 100ms.
	Settle time.Duration
	Target Reloader
}

// Watcher reloads resident documents when their files change on disk.
type Watcher struct {
	root   string
	ignore []string
	settle time.Duration
	target Reloader
	fsw    *fsnotify.Watcher
}

func NewWatcher(opts WatcherOptions) (*Watcher, error) {
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve workspace root: %w", err)
	}
	for _, pattern := range opts.Ignore {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid ignore pattern %q", pattern)
		}
	}
	settle := opts.Settle
	if settle <= 0 {
		settle = defaultSettle
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	w := &Watcher{
		root:   root,
		ignore: opts.Ignore,
		settle: settle,
		target: opts.Target,
		fsw:    fsw,
	}
	if err := w.addRecursive(root); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

// Ignored reports whether path is excluded by the ignore patterns.
func (w *Watcher) Ignored(path string, dir bool) bool {
	rel, err := filepath.Rel(w.root, path)
	if err != nil || rel == "." {
		return false
	}
	rel = filepath.ToSlash(rel)
	for _, pattern := range w.ignore {
		if doublestar.MatchUnvalidated(pattern, rel) {
			return true
		}
		// A directory is skipped when patterns exclude everything below it.
		if dir && doublestar.MatchUnvalidated(pattern, rel+"/x") {
			return true
		}
	}
	return false
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return fmt.Errorf("failed to watch %s: %w", root, err)
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if w.Ignored(path, true) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			logging.Warn("failed to watch directory", "path", path, "error", err)
		}
		return nil
	})
}

// Run delivers changes until ctx is done. It closes the watcher on return.
func (w *Watcher) Run(ctx context.Context) error {
	defer logging.RecoverPanic("workspace-watcher", nil)
	defer w.fsw.Close()

	timer := time.NewTimer(w.settle)
	timer.Stop()
	pending := make(map[string]fsnotify.Op)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if w.Ignored(event.Name, false) {
				continue
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.addRecursive(event.Name); err != nil {
						logging.Warn("failed to watch new directory", "path", event.Name, "error", err)
					}
					continue
				}
			}
			pending[event.Name] |= event.Op
			timer.Reset(w.settle)

		case <-timer.C:
			w.deliver(ctx, pending)
			clear(pending)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				logging.Warn("file watcher overflowed, some external changes may be missed")
				continue
			}
			logging.Error("file watcher error", "error", err)
		}
	}
}

func (w *Watcher) deliver(ctx context.Context, pending map[string]fsnotify.Op) {
	resident := make(map[string]bool)
	for _, doc := range w.target.Documents() {
		resident[doc.URI] = true
	}

	for path, op := range pending {
		uri := lsp.PathToURI(path)
		if !resident[uri] {
			continue
		}
		if op.Has(fsnotify.Remove) || op.Has(fsnotify.Rename) {
			if _, err := os.Stat(path); err != nil {
				logging.Warn("open document was removed from disk", "uri", uri)
				continue
			}
		}
		content, err := os.ReadFile(path)
		if err != nil {
			logging.Warn("failed to read changed document", "uri", uri, "error", err)
			continue
		}
		reloaded, err := w.target.Reload(ctx, uri, string(content))
		if err != nil {
			logging.Warn("failed to reload document", "uri", uri, "error", err)
			continue
		}
		if reloaded {
			logging.Info("document reloaded from disk", "uri", uri)
		}
	}
}
