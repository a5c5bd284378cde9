package app

import (
	"encoding/json"
	"sync"

	"github.com/opencode-ai/lspbridge/internal/diagnostics"
	"github.com/opencode-ai/lspbridge/internal/document"
	"github.com/opencode-ai/lspbridge/internal/pubsub"
	"github.com/opencode-ai/lspbridge/internal/session"
)

// Cursor is the view state kept by the headless surface.
type Cursor struct {
	Line      uint32 `json:"line"`
	Character uint32 `json:"character"`
}

// HeadlessSurface stands in for a visible editor when running from the
// command line. Decorations are republished to subscribers.
type HeadlessSurface struct {
	*pubsub.Broker[diagnostics.Set]

	mu      sync.Mutex
	created bool
	options session.SurfaceOptions
	doc     document.Document
	cursor  Cursor
}

func NewHeadlessSurface() *HeadlessSurface {
	return &HeadlessSurface{Broker: pubsub.NewBroker[diagnostics.Set]()}
}

func (s *HeadlessSurface) Create(container any, opts session.SurfaceOptions) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.created = true
	s.options = opts
	return nil
}

// Options returns the editor settings the surface was created with.
func (s *HeadlessSurface) Options() session.SurfaceOptions {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.options
}

func (s *HeadlessSurface) Show(doc document.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc = doc
	s.cursor = Cursor{}
}

func (s *HeadlessSurface) Update(doc document.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if doc.URI == s.doc.URI {
		s.doc = doc
	}
}

func (s *HeadlessSurface) ViewState() document.ViewState {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := json.Marshal(s.cursor)
	if err != nil {
		return nil
	}
	return data
}

func (s *HeadlessSurface) RestoreViewState(state document.ViewState) {
	var cursor Cursor
	if err := json.Unmarshal(state, &cursor); err != nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cursor = cursor
}

// MoveCursor sets the cursor of the displayed document.
func (s *HeadlessSurface) MoveCursor(c Cursor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cursor = c
}

func (s *HeadlessSurface) Cursor() Cursor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor
}

// Displayed returns the document currently shown.
func (s *HeadlessSurface) Displayed() document.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc
}

func (s *HeadlessSurface) SetDecorations(uri string, diags []diagnostics.Diagnostic) {
	s.Publish(pubsub.UpdatedEvent, diagnostics.Set{URI: uri, Diagnostics: diags})
}

func (s *HeadlessSurface) Dispose() {
	s.mu.Lock()
	s.created = false
	s.mu.Unlock()
	s.Shutdown()
}
