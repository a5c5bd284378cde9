package workspace

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/opencode-ai/lspbridge/internal/document"
	"github.com/opencode-ai/lspbridge/internal/lsp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReloader struct {
	mu       sync.Mutex
	docs     []document.Document
	reloaded map[string]string
}

func newFakeReloader(uris ...string) *fakeReloader {
	r := &fakeReloader{reloaded: make(map[string]string)}
	for _, uri := range uris {
		r.docs = append(r.docs, document.Document{URI: uri})
	}
	return r
}

func (r *fakeReloader) Documents() []document.Document {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.docs
}

func (r *fakeReloader) Reload(ctx context.Context, uri, content string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reloaded[uri] = content
	return true, nil
}

func (r *fakeReloader) content(uri string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	content, ok := r.reloaded[uri]
	return content, ok
}

func TestWatcher_Ignored(t *testing.T) {
	root := t.TempDir()
	w := &Watcher{root: root, ignore: []string{"**/.git/**", "**/node_modules/**", "**/*.swp"}}

	tests := []struct {
		path    string
		dir     bool
		ignored bool
	}{
		{".git", true, true},
		{".git/config", false, true},
		{"web/node_modules", true, true},
		{"web/node_modules/react/index.js", false, true},
		{"src/.a.ts.swp", false, true},
		{"src/a.ts", false, false},
		{"src", true, false},
		{"", true, false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.ignored, w.Ignored(filepath.Join(root, tt.path), tt.dir))
		})
	}
}

func TestNewWatcher_InvalidPattern(t *testing.T) {
	_, err := NewWatcher(WatcherOptions{Root: t.TempDir(), Ignore: []string{"[a-"}})
	assert.ErrorContains(t, err, "invalid ignore pattern")
}

func TestWatcher_ReloadsResidentDocuments(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src"), 0o755))
	resident := filepath.Join(root, "src", "a.ts")
	other := filepath.Join(root, "src", "b.ts")
	require.NoError(t, os.WriteFile(resident, []byte("let x=1"), 0o644))
	require.NoError(t, os.WriteFile(other, []byte("b"), 0o644))

	target := newFakeReloader(lsp.PathToURI(resident))
	w, err := NewWatcher(WatcherOptions{Root: root, Settle: 10 * time.Millisecond, Target: target})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.NoError(t, os.WriteFile(other, []byte("b2"), 0o644))
	require.NoError(t, os.WriteFile(resident, []byte("let x=5"), 0o644))

	require.Eventually(t, func() bool {
		content, ok := target.content(lsp.PathToURI(resident))
		return ok && content == "let x=5"
	}, 2*time.Second, 10*time.Millisecond)
	_, ok := target.content(lsp.PathToURI(other))
	assert.False(t, ok, "files that are not open are not reloaded")

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestWatcher_SkipsIgnoredDirectories(t *testing.T) {
	root := t.TempDir()
	ignoredDir := filepath.Join(root, "node_modules")
	require.NoError(t, os.MkdirAll(ignoredDir, 0o755))
	path := filepath.Join(ignoredDir, "lib.js")
	require.NoError(t, os.WriteFile(path, []byte("a"), 0o644))

	target := newFakeReloader(lsp.PathToURI(path))
	w, err := NewWatcher(WatcherOptions{
		Root:   root,
		Ignore: []string{"**/node_modules/**"},
		Settle: 10 * time.Millisecond,
		Target: target,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	require.NoError(t, os.WriteFile(path, []byte("b"), 0o644))
	time.Sleep(100 * time.Millisecond)
	_, ok := target.content(lsp.PathToURI(path))
	assert.False(t, ok)
}
