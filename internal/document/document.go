// Package document is the authoritative in-memory store of open documents.
// It has no network or persistence side effects; callers decide when
// content reaches the language service or disk.
package document

import (
	"errors"
	"slices"
	"strings"
	"sync"
)

var (
	ErrNotFound    = errors.New("document not found")
	ErrExists      = errors.New("document already exists")
	ErrInvalidURI  = errors.New("document uri is empty")
	ErrStaleEdits  = errors.New("document changed since edits were computed")
	ErrInvalidEdit = errors.New("invalid text edit")
)

// ViewState is the opaque cursor, scroll and fold state of an editing
// surface. The store never looks inside it.
type ViewState []byte

// Document is a snapshot of one open file.
type Document struct {
	URI       string
	Language  string
	Content   string
	Version   int
	ViewState ViewState
	Dirty     bool
}

type entry struct {
	doc   Document
	saved string
}

func (e *entry) snapshot() Document {
	doc := e.doc
	doc.ViewState = slices.Clone(e.doc.ViewState)
	doc.Dirty = e.doc.Content != e.saved
	return doc
}

// Store keeps at most one Document per URI.
type Store struct {
	mu   sync.RWMutex
	docs map[string]*entry
}

func NewStore() *Store {
	return &Store{docs: make(map[string]*entry)}
}

func (s *Store) Get(uri string) (Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.docs[uri]
	if !ok {
		return Document{}, ErrNotFound
	}
	return e.snapshot(), nil
}

func (s *Store) Has(uri string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.docs[uri]
	return ok
}

// List returns all resident documents ordered by URI.
func (s *Store) List() []Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	docs := make([]Document, 0, len(s.docs))
	for _, e := range s.docs {
		docs = append(docs, e.snapshot())
	}
	slices.SortFunc(docs, func(a, b Document) int {
		return strings.Compare(a.URI, b.URI)
	})
	return docs
}

// CreateOrUpdate upserts a document. A new document takes content as its
// saved baseline and starts clean. For an existing document, different
// content overwrites and leaves it dirty; identical arguments change
// nothing. An empty language keeps the current one. changed reports whether
// content or language moved.
func (s *Store) CreateOrUpdate(uri, content, language string) (doc Document, changed bool, err error) {
	if uri == "" {
		return Document{}, false, ErrInvalidURI
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.docs[uri]
	if !ok {
		e = &entry{
			doc: Document{
				URI:      uri,
				Language: language,
				Content:  content,
				Version:  1,
			},
			saved: content,
		}
		s.docs[uri] = e
		return e.snapshot(), true, nil
	}

	if content != e.doc.Content {
		e.doc.Content = content
		e.doc.Version++
		changed = true
	}
	if language != "" && language != e.doc.Language {
		e.doc.Language = language
		changed = true
	}
	return e.snapshot(), changed, nil
}

// SetLanguage reclassifies an existing document.
func (s *Store) SetLanguage(uri, language string) (Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.docs[uri]
	if !ok {
		return Document{}, ErrNotFound
	}
	e.doc.Language = language
	return e.snapshot(), nil
}

func (s *Store) CaptureViewState(uri string, state ViewState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.docs[uri]
	if !ok {
		return ErrNotFound
	}
	e.doc.ViewState = slices.Clone(state)
	return nil
}

// RestoreViewState returns the cached view state of uri, if any.
func (s *Store) RestoreViewState(uri string) (ViewState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.docs[uri]
	if !ok || e.doc.ViewState == nil {
		return nil, false
	}
	return slices.Clone(e.doc.ViewState), true
}

// MarkSaved records content as persisted. The document stays dirty when it
// has been edited again since content was captured.
func (s *Store) MarkSaved(uri, content string) (Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.docs[uri]
	if !ok {
		return Document{}, ErrNotFound
	}
	e.saved = content
	return e.snapshot(), nil
}

// Reload replaces content with an externally persisted version, which also
// becomes the saved baseline.
func (s *Store) Reload(uri, content string) (Document, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.docs[uri]
	if !ok {
		return Document{}, false, ErrNotFound
	}
	e.saved = content
	if e.doc.Content == content {
		return e.snapshot(), false, nil
	}
	e.doc.Content = content
	e.doc.Version++
	return e.snapshot(), true, nil
}

// Rename swaps the key of a document. Content and dirty state move with it;
// the cached view state is discarded since it is keyed by URI.
func (s *Store) Rename(oldURI, newURI string) (Document, error) {
	if newURI == "" {
		return Document{}, ErrInvalidURI
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.docs[oldURI]
	if !ok {
		return Document{}, ErrNotFound
	}
	if _, taken := s.docs[newURI]; taken {
		return Document{}, ErrExists
	}
	delete(s.docs, oldURI)
	e.doc.URI = newURI
	e.doc.ViewState = nil
	s.docs[newURI] = e
	return e.snapshot(), nil
}

// Close removes a document together with its view state.
func (s *Store) Close(uri string) (Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.docs[uri]
	if !ok {
		return Document{}, ErrNotFound
	}
	delete(s.docs, uri)
	return e.snapshot(), nil
}
