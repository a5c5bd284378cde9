package session

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/opencode-ai/lspbridge/internal/diagnostics"
	"github.com/opencode-ai/lspbridge/internal/document"
	"github.com/opencode-ai/lspbridge/internal/logging"
	"github.com/opencode-ai/lspbridge/internal/lsp"
	"github.com/opencode-ai/lspbridge/internal/pubsub"
)

// Format asks the language service to format uri and applies the edits as
// one unit. The active document does not change while waiting; a result
// for a document that is no longer active still lands in that document.
func (s *Session) Format(ctx context.Context, uri string) (document.Document, error) {
	s.mu.Lock()
	if err := s.mountedLocked(); err != nil {
		s.mu.Unlock()
		return document.Document{}, err
	}
	doc, err := s.docs.Get(uri)
	s.mu.Unlock()
	if err != nil {
		return document.Document{}, err
	}
	if s.service == nil {
		return doc, lsp.ErrServiceUnavailable
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(s.ctx, cancel)
	defer stop()

	edits, err := s.service.Format(ctx, uri, lsp.FormattingOptions{
		TabSize:      s.editor.TabSize,
		InsertSpaces: s.editor.InsertSpaces,
	})
	if err != nil {
		return doc, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.aliveLocked(); err != nil {
		return doc, err
	}
	updated, err := s.docs.ApplyEdits(uri, doc.Version, edits)
	if err != nil {
		return doc, &lsp.FormatError{URI: uri, Err: err}
	}
	if updated.Version == doc.Version {
		return updated, nil
	}
	if s.active == uri {
		s.surface.Update(updated)
	}
	s.changedLocked(ctx, updated)
	return updated, nil
}

// Rename moves a document to a new URI. The language service must be Ready;
// otherwise nothing changes. The cached view state does not survive.
func (s *Session) Rename(ctx context.Context, oldURI, newURI string) (document.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.aliveLocked(); err != nil {
		return document.Document{}, err
	}
	doc, err := s.docs.Get(oldURI)
	if err != nil {
		return document.Document{}, err
	}
	if s.docs.Has(newURI) {
		return document.Document{}, fmt.Errorf("%s: %w", newURI, document.ErrExists)
	}
	if s.service == nil || s.service.State() != lsp.StateReady {
		return document.Document{}, lsp.ErrServiceUnavailable
	}

	renamed := doc
	renamed.URI = newURI
	if err := s.service.Rename(ctx, oldURI, textDocument(renamed)); err != nil {
		return document.Document{}, err
	}

	s.diagMu.Lock()
	renamed, err = s.docs.Rename(oldURI, newURI)
	if err == nil {
		s.diags.Rename(oldURI, newURI)
	}
	s.diagMu.Unlock()
	if err != nil {
		return document.Document{}, err
	}
	s.autosave.Rename(oldURI, newURI)

	if s.active == oldURI {
		s.active = newURI
		s.watchDecorationsLocked(newURI)
	}
	if s.cb.OnRemoveFile != nil {
		s.cb.OnRemoveFile(oldURI)
	}
	if s.cb.OnChangeFile != nil {
		s.cb.OnChangeFile(newURI, renamed.Content)
	}
	s.Publish(pubsub.DeletedEvent, doc)
	s.Publish(pubsub.CreatedEvent, renamed)
	return renamed, nil
}

// Diagnostics streams the diagnostics of uri: the current set first, then
// every replacement. The channel closes when ctx ends or the session is
// unmounted. Subscribing again restarts from the current set.
func (s *Session) Diagnostics(ctx context.Context, uri string) <-chan diagnostics.Set {
	w := s.diags.Watch(uri)
	go func() {
		select {
		case <-ctx.Done():
		case <-s.ctx.Done():
		}
		w.Dispose()
	}()
	return w.C
}

// AllDiagnostics returns the diagnostics of every document that has any.
func (s *Session) AllDiagnostics() []diagnostics.Set {
	return s.diags.All()
}

// handleDiagnostics runs on the language service reader. It must not take
// s.mu: the session holds it while writing to the same connection.
func (s *Session) handleDiagnostics(params json.RawMessage) {
	parsed, err := lsp.ParseDiagnostics(params)
	if err != nil {
		logging.Warn("dropping diagnostics notification", "error", err)
		return
	}
	set := diagnostics.FromProtocol(parsed)

	s.diagMu.Lock()
	defer s.diagMu.Unlock()
	if !s.docs.Has(set.URI) {
		logging.Debug("dropping diagnostics for closed document", "uri", set.URI)
		return
	}
	s.diags.Replace(set.URI, set.Diagnostics)
}

// watchDecorationsLocked keeps the surface decorations in step with the
// diagnostics of the active document.
func (s *Session) watchDecorationsLocked(uri string) {
	if s.decorations != nil {
		s.decorations.Dispose()
	}
	w := s.diags.Watch(uri)
	s.decorations = w

	go func() {
		defer logging.RecoverPanic("session-decorations", nil)
		for set := range w.C {
			s.mu.Lock()
			if s.decorations == w && s.active == set.URI {
				s.surface.SetDecorations(set.URI, set.Diagnostics)
			}
			s.mu.Unlock()
		}
	}()
}
