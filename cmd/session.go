package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/opencode-ai/lspbridge/internal/diagnostics"
	"github.com/opencode-ai/lspbridge/internal/lsp"
	"github.com/opencode-ai/lspbridge/internal/session"
	"golang.org/x/sync/errgroup"
)

// openFiles reads files from disk into the session and returns their URIs
// in argument order.
func openFiles(ctx context.Context, sess *session.Session, files []string) ([]string, error) {
	uris := make([]string, 0, len(files))
	for _, file := range files {
		content, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", file, err)
		}
		uri := lsp.PathToURI(file)
		if _, err := sess.Open(ctx, uri, string(content), ""); err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", file, err)
		}
		uris = append(uris, uri)
	}
	return uris, nil
}

// waitReady blocks until the language service is Ready.
func waitReady(ctx context.Context, sess *session.Session, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	states := sess.SubscribeState(ctx)
	if sess.ConnectionState() == lsp.StateReady {
		return nil
	}
	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("language service not ready (%s): %w", sess.ConnectionState(), ctx.Err())
		case event, ok := <-states:
			if !ok {
				return fmt.Errorf("language service stopped")
			}
			if event.Payload == lsp.StateReady {
				return nil
			}
		}
	}
}

// waitDiagnostics gives the server up to timeout to publish diagnostics for
// every uri. Documents the server stays silent about count as clean.
func waitDiagnostics(ctx context.Context, sess *session.Session, uris []string, timeout time.Duration) []diagnostics.Set {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	sets := make([]diagnostics.Set, len(uris))
	g, ctx := errgroup.WithContext(ctx)
	for i, uri := range uris {
		g.Go(func() error {
			stream := sess.Diagnostics(ctx, uri)
			sets[i] = diagnostics.Set{URI: uri}
			// The first value is the current set, which may already hold
			// what the server published; a later one replaces it.
			for set := range stream {
				sets[i] = set
				if len(set.Diagnostics) > 0 {
					break
				}
			}
			return nil
		})
	}
	g.Wait()
	return sets
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
