// Package session coordinates one editing surface with the documents shown
// in it, the language service and autosave.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/opencode-ai/lspbridge/internal/autosave"
	"github.com/opencode-ai/lspbridge/internal/config"
	"github.com/opencode-ai/lspbridge/internal/diagnostics"
	"github.com/opencode-ai/lspbridge/internal/document"
	"github.com/opencode-ai/lspbridge/internal/logging"
	"github.com/opencode-ai/lspbridge/internal/lsp"
	"github.com/opencode-ai/lspbridge/internal/lsp/protocol"
	"github.com/opencode-ai/lspbridge/internal/pubsub"
)

type State int

const (
	StateUninitialized State = iota
	StateMounting
	StateIdle
	StateDisplaying
	StateUnmounting
	StateUnmounted
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateMounting:
		return "mounting"
	case StateIdle:
		return "idle"
	case StateDisplaying:
		return "displaying"
	case StateUnmounting:
		return "unmounting"
	case StateUnmounted:
		return "unmounted"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

var (
	ErrSurfaceUnavailable = errors.New("editing surface unavailable")
	ErrNotMounted         = errors.New("session not mounted")
	ErrUnmounted          = errors.New("session unmounted")
)

// Surface is the visible editing widget. All calls come from the session
// with its lock held, so implementations need no locking of their own.
type Surface interface {
	// Create builds the widget inside the host container.
	Create(container any, opts SurfaceOptions) error
	// Show binds doc to the widget, replacing whatever was displayed.
	Show(doc document.Document)
	// Update replaces the content of the displayed document in place.
	Update(doc document.Document)
	ViewState() document.ViewState
	RestoreViewState(state document.ViewState)
	SetDecorations(uri string, diags []diagnostics.Diagnostic)
	Dispose()
}

// SurfaceOptions is the editor configuration the surface is built with.
type SurfaceOptions struct {
	Theme        string
	TabSize      int
	InsertSpaces bool
}

// Callbacks let the host follow document content. They are called
// synchronously, in the order the changes happened.
type Callbacks struct {
	OnChangeFile func(uri, content string)
	OnRemoveFile func(uri string)
}

type Options struct {
	// ID names the session in logs and history. Generated when empty.
	ID      string
	Editor  config.EditorConfig
	Surface Surface
	// LanguageService is optional; without it format and rename fail with
	// lsp.ErrServiceUnavailable.
	LanguageService lsp.Service
	Saver           autosave.Saver
	Callbacks       Callbacks
}

// Session owns one surface and everything bound to it. Create one per
// mount and discard it after Unmount.
type Session struct {
	*pubsub.Broker[document.Document]

	id      string
	editor  config.EditorConfig
	surface Surface
	service lsp.Service
	cb      Callbacks

	docs     *document.Store
	diags    *diagnostics.Store
	autosave *autosave.Tracker

	// ctx is cancelled on Unmount, dropping results still in flight.
	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	state       State
	active      string
	decorations *diagnostics.Watch

	// diagMu makes "is the document open" and "store its diagnostics" one
	// step with respect to Close.
	diagMu sync.Mutex
}

func New(opts Options) *Session {
	id := opts.ID
	if id == "" {
		id = uuid.New().String()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		Broker:  pubsub.NewBroker[document.Document](),
		id:      id,
		editor:  opts.Editor,
		surface: opts.Surface,
		service: opts.LanguageService,
		cb:      opts.Callbacks,
		docs:    document.NewStore(),
		diags:   diagnostics.NewStore(),
		ctx:     ctx,
		cancel:  cancel,
		state:   StateUninitialized,
	}
	saver := opts.Saver
	if saver == nil {
		saver = autosave.SaverFunc(func(context.Context, string, string) error { return nil })
	}
	s.autosave = autosave.New(autosave.Options{
		Delay:   opts.Editor.AutosaveDelay,
		Saver:   saver,
		OnSaved: s.onSaved,
	})
	return s
}

func (s *Session) ID() string { return s.id }

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Active returns the URI bound to the surface, or "".
func (s *Session) Active() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

func (s *Session) mountedLocked() error {
	switch s.state {
	case StateIdle, StateDisplaying:
		return nil
	case StateUnmounting, StateUnmounted:
		return ErrUnmounted
	default:
		return ErrNotMounted
	}
}

func (s *Session) aliveLocked() error {
	if s.state == StateUnmounting || s.state == StateUnmounted {
		return ErrUnmounted
	}
	return nil
}

// Mount creates the surface inside container. When the container is
// missing or the surface cannot be built the session stays Mounting and a
// later Mount retries.
func (s *Session) Mount(container any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateIdle, StateDisplaying:
		return nil
	case StateUnmounting, StateUnmounted:
		return ErrUnmounted
	}
	s.state = StateMounting

	if container == nil || s.surface == nil {
		logging.Warn("editing surface has no container, waiting for the next mount", "session", s.id)
		return ErrSurfaceUnavailable
	}
	opts := SurfaceOptions{
		Theme:        s.editor.Theme,
		TabSize:      s.editor.TabSize,
		InsertSpaces: s.editor.InsertSpaces,
	}
	if err := s.surface.Create(container, opts); err != nil {
		logging.Warn("failed to create editing surface", "session", s.id, "error", err)
		return fmt.Errorf("%w: %w", ErrSurfaceUnavailable, err)
	}
	s.state = StateIdle
	logging.Debug("session mounted", "session", s.id)

	if s.service != nil {
		s.service.RegisterNotificationHandler(protocol.MethodTextDocumentPublishDiagnostic, s.handleDiagnostics)
		s.service.Start(s.ctx, s.textDocuments)
	}
	return nil
}

// Unmount tears the session down. Pending autosaves are written before it
// returns. Calling it again is a no-op.
func (s *Session) Unmount(ctx context.Context) error {
	s.mu.Lock()
	if s.state == StateUnmounting || s.state == StateUnmounted {
		s.mu.Unlock()
		return nil
	}
	mounted := s.state == StateIdle || s.state == StateDisplaying
	s.state = StateUnmounting
	s.cancel()
	s.mu.Unlock()

	var errs []error
	if err := s.autosave.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("flush autosave: %w", err))
	}
	if s.service != nil {
		if err := s.service.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close language service: %w", err))
		}
	}

	s.mu.Lock()
	if s.decorations != nil {
		s.decorations.Dispose()
		s.decorations = nil
	}
	if mounted {
		s.surface.Dispose()
	}
	s.active = ""
	s.state = StateUnmounted
	s.mu.Unlock()

	s.Shutdown()
	logging.Debug("session unmounted", "session", s.id)
	return errors.Join(errs...)
}

// ConnectionState reports the language service connection.
func (s *Session) ConnectionState() lsp.ServerState {
	if s.service == nil {
		return lsp.StateDisconnected
	}
	return s.service.State()
}

func (s *Session) SubscribeState(ctx context.Context) <-chan pubsub.Event[lsp.ServerState] {
	if s.service == nil {
		ch := make(chan pubsub.Event[lsp.ServerState])
		close(ch)
		return ch
	}
	return s.service.SubscribeState(ctx)
}

func (s *Session) textDocuments() []lsp.TextDocument {
	docs := s.docs.List()
	out := make([]lsp.TextDocument, len(docs))
	for i, doc := range docs {
		out[i] = textDocument(doc)
	}
	return out
}

func textDocument(doc document.Document) lsp.TextDocument {
	return lsp.TextDocument{
		URI:      doc.URI,
		Language: doc.Language,
		Version:  doc.Version,
		Text:     doc.Content,
	}
}
