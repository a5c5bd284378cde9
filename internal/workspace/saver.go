// Package workspace connects a session to the files on disk.
package workspace

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/opencode-ai/lspbridge/internal/autosave"
	"github.com/opencode-ai/lspbridge/internal/logging"
	"github.com/opencode-ai/lspbridge/internal/lsp"
)

const defaultFileMode fs.FileMode = 0o644

// FileSaver writes documents with file:// URIs to disk. Content goes to a
// temporary file next to the target which then replaces it, so readers
// never see a partial write.
type FileSaver struct {
	// Mode is used for files that do not exist yet. Existing files keep
	// their mode.
	Mode fs.FileMode
}

var _ autosave.Saver = (*FileSaver)(nil)

func (s *FileSaver) Save(ctx context.Context, uri, content string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := lsp.URIToPath(uri)
	if err != nil {
		return err
	}

	mode := s.Mode
	if mode == 0 {
		mode = defaultFileMode
	}
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() {
		if tmp != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if _, err := tmp.WriteString(content); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Chmod(mode); err != nil {
		return fmt.Errorf("failed to set mode of %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	tmp = nil

	logging.Debug("document written", "path", path, "bytes", len(content))
	return nil
}
