package lsp

import (
	"fmt"
	"net/url"
	"path/filepath"
)

// PathToURI converts a filesystem path to a file:// URI. Relative paths are
// resolved against the working directory.
func PathToURI(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(path)}
	return u.String()
}

// URIToPath converts a file:// URI back to a filesystem path. URIs with any
// other scheme are not backed by disk.
func URIToPath(uri string) (string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("failed to parse uri: %w", err)
	}
	if u.Scheme != "file" {
		return "", fmt.Errorf("not a file uri: %s", uri)
	}
	return filepath.FromSlash(u.Path), nil
}
