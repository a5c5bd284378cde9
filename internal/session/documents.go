package session

import (
	"context"
	"errors"

	"github.com/opencode-ai/lspbridge/internal/document"
	"github.com/opencode-ai/lspbridge/internal/logging"
	"github.com/opencode-ai/lspbridge/internal/lsp"
	"github.com/opencode-ai/lspbridge/internal/pubsub"
)

// Open makes a document resident, or updates it if it already is. An empty
// language is inferred from the URI.
func (s *Session) Open(ctx context.Context, uri, content, language string) (document.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.aliveLocked(); err != nil {
		return document.Document{}, err
	}

	if !s.docs.Has(uri) {
		if language == "" {
			language = string(lsp.DetectLanguageID(uri))
		}
		doc, _, err := s.docs.CreateOrUpdate(uri, content, language)
		if err != nil {
			return document.Document{}, err
		}
		s.Publish(pubsub.CreatedEvent, doc)
		if s.service != nil {
			if err := s.service.OpenFile(ctx, textDocument(doc)); err != nil {
				logging.Warn("failed to announce document", "uri", uri, "error", err)
			}
		}
		return doc, nil
	}

	// Content and language are separate updates: new content is an edit,
	// a new language re-announces the document.
	doc, changed, err := s.docs.CreateOrUpdate(uri, content, "")
	if err != nil {
		return document.Document{}, err
	}
	if changed {
		s.changedLocked(ctx, doc)
	}
	if language != "" && language != doc.Language {
		return s.setLanguageLocked(ctx, uri, language)
	}
	return doc, nil
}

// Activate binds uri to the surface. The outgoing document's view state is
// captured before the switch and the incoming one's restored after it.
func (s *Session) Activate(uri string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.mountedLocked(); err != nil {
		return err
	}
	doc, err := s.docs.Get(uri)
	if err != nil {
		return err
	}
	if s.active == uri {
		return nil
	}

	if s.active != "" {
		if err := s.docs.CaptureViewState(s.active, s.surface.ViewState()); err != nil {
			logging.Debug("view state not captured", "uri", s.active, "error", err)
		}
	}
	s.surface.Show(doc)
	if state, ok := s.docs.RestoreViewState(uri); ok {
		s.surface.RestoreViewState(state)
	}

	s.active = uri
	s.state = StateDisplaying
	s.watchDecorationsLocked(uri)
	return nil
}

// Change records new content for a resident document: the host is told,
// autosave is re-armed and the language service is updated, in that order.
func (s *Session) Change(ctx context.Context, uri, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.aliveLocked(); err != nil {
		return err
	}
	if !s.docs.Has(uri) {
		return document.ErrNotFound
	}
	doc, changed, err := s.docs.CreateOrUpdate(uri, content, "")
	if err != nil {
		return err
	}
	if changed {
		s.changedLocked(ctx, doc)
	}
	return nil
}

func (s *Session) changedLocked(ctx context.Context, doc document.Document) {
	if s.cb.OnChangeFile != nil {
		s.cb.OnChangeFile(doc.URI, doc.Content)
	}
	if err := s.autosave.Schedule(doc.URI, doc.Content); err != nil {
		logging.Debug("autosave not scheduled", "uri", doc.URI, "error", err)
	}
	s.notifyChangeLocked(ctx, doc)
	s.Publish(pubsub.UpdatedEvent, doc)
}

func (s *Session) notifyChangeLocked(ctx context.Context, doc document.Document) {
	if s.service == nil {
		return
	}
	if err := s.service.NotifyChange(ctx, textDocument(doc)); err != nil {
		logging.Warn("failed to send change to language service", "uri", doc.URI, "error", err)
	}
}

// SetLanguage reclassifies a document and re-announces it to the language
// service under the new language.
func (s *Session) SetLanguage(ctx context.Context, uri, language string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.aliveLocked(); err != nil {
		return err
	}
	_, err := s.setLanguageLocked(ctx, uri, language)
	return err
}

func (s *Session) setLanguageLocked(ctx context.Context, uri, language string) (document.Document, error) {
	doc, err := s.docs.SetLanguage(uri, language)
	if err != nil {
		return document.Document{}, err
	}
	if s.service != nil {
		if err := s.service.CloseFile(ctx, uri); err != nil {
			logging.Warn("failed to close document for language change", "uri", uri, "error", err)
		}
		if err := s.service.OpenFile(ctx, textDocument(doc)); err != nil {
			logging.Warn("failed to re-open document for language change", "uri", uri, "error", err)
		}
	}
	s.Publish(pubsub.UpdatedEvent, doc)
	return doc, nil
}

// Close saves pending changes of uri and removes it with its view state and
// diagnostics. If the save fails the document stays open.
func (s *Session) Close(ctx context.Context, uri string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.aliveLocked(); err != nil {
		return err
	}
	if !s.docs.Has(uri) {
		return document.ErrNotFound
	}
	if err := s.autosave.Flush(ctx, uri); err != nil {
		return err
	}

	s.diagMu.Lock()
	doc, err := s.docs.Close(uri)
	s.diags.Clear(uri)
	s.diagMu.Unlock()
	if err != nil {
		return err
	}

	if s.service != nil {
		if err := s.service.CloseFile(ctx, uri); err != nil {
			logging.Warn("failed to close document in language service", "uri", uri, "error", err)
		}
	}
	if s.active == uri {
		s.active = ""
		s.state = StateIdle
		if s.decorations != nil {
			s.decorations.Dispose()
			s.decorations = nil
		}
	}
	if s.cb.OnRemoveFile != nil {
		s.cb.OnRemoveFile(uri)
	}
	s.Publish(pubsub.DeletedEvent, doc)
	return nil
}

// Reload applies a change made outside the session, typically on disk.
// Documents with unsaved edits keep them; reloaded reports whether content
// was replaced.
func (s *Session) Reload(ctx context.Context, uri, content string) (reloaded bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.aliveLocked(); err != nil {
		return false, err
	}
	current, err := s.docs.Get(uri)
	if err != nil {
		return false, err
	}
	if current.Dirty || s.autosave.Pending(uri) {
		logging.Warn("document changed externally while it has unsaved edits, keeping local content", "uri", uri)
		return false, nil
	}

	doc, changed, err := s.docs.Reload(uri, content)
	if err != nil || !changed {
		return false, err
	}
	if s.cb.OnChangeFile != nil {
		s.cb.OnChangeFile(uri, doc.Content)
	}
	if s.active == uri {
		s.surface.Update(doc)
	}
	s.notifyChangeLocked(ctx, doc)
	s.Publish(pubsub.UpdatedEvent, doc)
	return true, nil
}

func (s *Session) Get(uri string) (document.Document, error) {
	return s.docs.Get(uri)
}

// Documents lists resident documents ordered by URI.
func (s *Session) Documents() []document.Document {
	return s.docs.List()
}

func (s *Session) Dirty(uri string) (bool, error) {
	doc, err := s.docs.Get(uri)
	if err != nil {
		return false, err
	}
	return doc.Dirty, nil
}

// Save writes uri now instead of waiting for the quiet period. It is the
// user-initiated retry after a failed autosave.
func (s *Session) Save(ctx context.Context, uri string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.aliveLocked(); err != nil {
		return err
	}
	doc, err := s.docs.Get(uri)
	if err != nil {
		return err
	}
	if !doc.Dirty && !s.autosave.Pending(uri) {
		return nil
	}
	return s.autosave.Save(ctx, uri, doc.Content)
}

func (s *Session) onSaved(uri, content string, err error) {
	if err != nil {
		return
	}
	doc, err := s.docs.MarkSaved(uri, content)
	if errors.Is(err, document.ErrNotFound) {
		return
	}
	if err != nil {
		logging.Warn("failed to mark document saved", "uri", uri, "error", err)
		return
	}
	s.Publish(pubsub.UpdatedEvent, doc)
}
