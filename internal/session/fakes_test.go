package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/opencode-ai/lspbridge/internal/diagnostics"
	"github.com/opencode-ai/lspbridge/internal/document"
	"github.com/opencode-ai/lspbridge/internal/lsp"
	"github.com/opencode-ai/lspbridge/internal/lsp/protocol"
	"github.com/opencode-ai/lspbridge/internal/pubsub"
)

type fakeSurface struct {
	mu          sync.Mutex
	createErr   error
	created     int
	options     SurfaceOptions
	disposed    int
	events      []string
	shown       string
	content     string
	viewState   document.ViewState
	decorations map[string][]diagnostics.Diagnostic
}

func newFakeSurface() *fakeSurface {
	return &fakeSurface{decorations: make(map[string][]diagnostics.Diagnostic)}
}

func (f *fakeSurface) Create(container any, opts SurfaceOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.created++
	f.options = opts
	return nil
}

func (f *fakeSurface) Show(doc document.Document) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, "show "+doc.URI)
	f.shown = doc.URI
	f.content = doc.Content
	f.viewState = nil
}

func (f *fakeSurface) Update(doc document.Document) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, "update "+doc.URI)
	f.content = doc.Content
}

func (f *fakeSurface) ViewState() document.ViewState {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, "capture "+f.shown)
	return f.viewState
}

func (f *fakeSurface) RestoreViewState(state document.ViewState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, "restore "+string(state))
	f.viewState = state
}

func (f *fakeSurface) SetDecorations(uri string, diags []diagnostics.Diagnostic) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.decorations[uri] = diags
}

func (f *fakeSurface) Dispose() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disposed++
}

// moveCursor simulates the user scrolling the displayed document.
func (f *fakeSurface) moveCursor(line int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.viewState = document.ViewState(fmt.Sprintf(`{"line":%d}`, line))
}

func (f *fakeSurface) takeEvents() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	events := f.events
	f.events = nil
	return events
}

func (f *fakeSurface) decorationsFor(uri string) []diagnostics.Diagnostic {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.decorations[uri]
}

func (f *fakeSurface) snapshot() (shown, content string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.shown, f.content
}

type fakeService struct {
	mu          sync.Mutex
	state       lsp.ServerState
	started     bool
	closed      int
	handlers    map[string]lsp.NotificationHandler
	docs        lsp.DocumentSource
	calls       []string
	formatEdits []protocol.TextEdit
	formatErr   error
	// formatHook runs while the format request is "in flight".
	formatHook func(ctx context.Context) error
	states     *pubsub.Broker[lsp.ServerState]
}

func newFakeService() *fakeService {
	return &fakeService{
		state:    lsp.StateDisconnected,
		handlers: make(map[string]lsp.NotificationHandler),
		states:   pubsub.NewBroker[lsp.ServerState](),
	}
}

func (f *fakeService) Start(ctx context.Context, docs lsp.DocumentSource) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = true
	f.docs = docs
	f.state = lsp.StateReady
	f.states.Publish(pubsub.UpdatedEvent, f.state)
}

func (f *fakeService) setState(state lsp.ServerState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = state
	f.states.Publish(pubsub.UpdatedEvent, state)
}

func (f *fakeService) State() lsp.ServerState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *fakeService) SubscribeState(ctx context.Context) <-chan pubsub.Event[lsp.ServerState] {
	return f.states.Subscribe(ctx)
}

func (f *fakeService) RegisterNotificationHandler(method string, handler lsp.NotificationHandler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[method] = handler
}

func (f *fakeService) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeService) OpenFile(ctx context.Context, doc lsp.TextDocument) error {
	f.record(fmt.Sprintf("open %s %s", doc.URI, doc.Language))
	return nil
}

func (f *fakeService) NotifyChange(ctx context.Context, doc lsp.TextDocument) error {
	f.record(fmt.Sprintf("change %s %d", doc.URI, doc.Version))
	return nil
}

func (f *fakeService) CloseFile(ctx context.Context, uri string) error {
	f.record("close " + uri)
	return nil
}

func (f *fakeService) Format(ctx context.Context, uri string, opts lsp.FormattingOptions) ([]protocol.TextEdit, error) {
	f.mu.Lock()
	state, edits, formatErr, hook := f.state, f.formatEdits, f.formatErr, f.formatHook
	f.mu.Unlock()
	if state != lsp.StateReady {
		return nil, lsp.ErrServiceUnavailable
	}
	f.record(fmt.Sprintf("format %s tab=%d spaces=%t", uri, opts.TabSize, opts.InsertSpaces))
	if hook != nil {
		if err := hook(ctx); err != nil {
			return nil, &lsp.FormatError{URI: uri, Err: err}
		}
	}
	if formatErr != nil {
		return nil, formatErr
	}
	return edits, nil
}

func (f *fakeService) Rename(ctx context.Context, oldURI string, doc lsp.TextDocument) error {
	if f.State() != lsp.StateReady {
		return lsp.ErrServiceUnavailable
	}
	f.record(fmt.Sprintf("rename %s %s", oldURI, doc.URI))
	return nil
}

func (f *fakeService) Close(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	f.state = lsp.StateDisconnected
	return nil
}

func (f *fakeService) takeCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	calls := f.calls
	f.calls = nil
	return calls
}

// publish delivers a server notification the way the client's reader does.
func (f *fakeService) publish(t *testing.T, method string, params any) {
	t.Helper()
	raw, err := json.Marshal(params)
	if err != nil {
		t.Fatal(err)
	}
	f.publishRaw(t, method, raw)
}

func (f *fakeService) publishRaw(t *testing.T, method string, raw json.RawMessage) {
	t.Helper()
	f.mu.Lock()
	handler, ok := f.handlers[method]
	f.mu.Unlock()
	if !ok {
		t.Fatalf("no handler registered for %s", method)
	}
	handler(raw)
}

var _ lsp.Service = (*fakeService)(nil)
var _ Surface = (*fakeSurface)(nil)
