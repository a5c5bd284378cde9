package lsp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/opencode-ai/lspbridge/internal/logging"
	"github.com/opencode-ai/lspbridge/internal/lsp/protocol"
	"github.com/opencode-ai/lspbridge/internal/pubsub"
	"github.com/opencode-ai/lspbridge/internal/version"
	"github.com/sethvargo/go-retry"
	"github.com/sourcegraph/jsonrpc2"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// ServerState is the lifecycle of the connection to the language service.
type ServerState int

const (
	StateDisconnected ServerState = iota
	StateConnecting
	StateReady
	StateDegraded
)

func (s ServerState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateReady:
		return "ready"
	case StateDegraded:
		return "degraded"
	default:
		return fmt.Sprintf("ServerState(%d)", int(s))
	}
}

// TextDocument is what the server is told about an open document.
type TextDocument struct {
	URI      string
	Language string
	Version  int
	Text     string
}

// DocumentSource lists the documents to announce after every (re)connect.
type DocumentSource func() []TextDocument

// NotificationHandler receives the raw params of a server notification.
type NotificationHandler func(params json.RawMessage)

// FormattingOptions are the editor settings sent with a formatting request.
type FormattingOptions struct {
	TabSize      int
	InsertSpaces bool
}

const shutdownTimeout = time.Second

type Options struct {
	Dialer  Dialer
	RootURI string

	FormatTimeout    time.Duration
	HandshakeTimeout time.Duration
	MinBackoff       time.Duration
	MaxBackoff       time.Duration

	// Initialization is merged into initializationOptions. It must marshal
	// to a JSON object; "languages" is always overwritten.
	Initialization any

	// Debug logs every JSON-RPC message.
	Debug bool
}

// Client keeps one logical connection to a language service alive across
// transport failures.
type Client struct {
	opts Options

	mu     sync.RWMutex
	state  ServerState
	conn   *jsonrpc2.Conn
	opened map[string]struct{}
	docs   DocumentSource

	states *pubsub.Broker[ServerState]

	handlersMu           sync.RWMutex
	notificationHandlers map[string]NotificationHandler

	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	startOnce sync.Once
	closeOnce sync.Once
}

func NewClient(opts Options) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		opts:                 opts,
		state:                StateDisconnected,
		states:               pubsub.NewBroker[ServerState](),
		notificationHandlers: make(map[string]NotificationHandler),
		ctx:                  ctx,
		cancel:               cancel,
		done:                 make(chan struct{}),
	}
}

// Start begins connecting in the background. docs is consulted after each
// handshake to declare languages and re-open documents. Calling Start again
// has no effect.
func (c *Client) Start(ctx context.Context, docs DocumentSource) {
	c.startOnce.Do(func() {
		c.mu.Lock()
		c.docs = docs
		c.setStateLocked(StateConnecting)
		c.mu.Unlock()

		// Stop connecting if the caller gives up before Close.
		go func() {
			select {
			case <-ctx.Done():
				c.cancel()
			case <-c.ctx.Done():
			}
		}()
		go c.run()
	})
}

func (c *Client) State() ServerState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *Client) SubscribeState(ctx context.Context) <-chan pubsub.Event[ServerState] {
	return c.states.Subscribe(ctx)
}

// RegisterNotificationHandler routes a server notification. Handlers run on
// the connection's reader, one at a time and in arrival order.
func (c *Client) RegisterNotificationHandler(method string, handler NotificationHandler) {
	c.handlersMu.Lock()
	defer c.handlersMu.Unlock()
	c.notificationHandlers[method] = handler
}

func (c *Client) setStateLocked(state ServerState) {
	if c.state == state {
		return
	}
	logging.Debug("language service state", "from", c.state, "to", state)
	c.state = state
	c.states.Publish(pubsub.UpdatedEvent, state)
}

func (c *Client) run() {
	defer close(c.done)
	defer func() {
		c.mu.Lock()
		c.setStateLocked(StateDisconnected)
		c.mu.Unlock()
	}()
	defer logging.RecoverPanic("lsp-client", nil)

	for {
		conn, err := c.connect()
		if err != nil {
			return
		}

		select {
		case <-conn.DisconnectNotify():
			logging.Warn("language service connection lost, reconnecting")
			c.mu.Lock()
			if c.conn == conn {
				c.conn = nil
				c.opened = nil
			}
			c.setStateLocked(StateDegraded)
			c.mu.Unlock()
		case <-c.ctx.Done():
			c.shutdown(conn)
			return
		}
	}
}

func (c *Client) backoff() retry.Backoff {
	b := retry.NewExponential(c.opts.MinBackoff)
	b = retry.WithJitterPercent(20, b)
	return retry.WithCappedDuration(c.opts.MaxBackoff, b)
}

// connect retries until a handshake succeeds or the client is closed.
func (c *Client) connect() (*jsonrpc2.Conn, error) {
	var conn *jsonrpc2.Conn
	attempt := 0
	err := retry.Do(c.ctx, c.backoff(), func(ctx context.Context) error {
		attempt++
		cn, err := c.dialAndInitialize(ctx)
		if err != nil {
			logging.Warn("language service connection attempt failed", "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}
		conn = cn
		return nil
	})
	return conn, err
}

func (c *Client) dialAndInitialize(ctx context.Context) (*jsonrpc2.Conn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, c.opts.HandshakeTimeout)
	defer cancel()

	stream, err := c.opts.Dialer.Dial(dialCtx)
	if err != nil {
		return nil, err
	}

	var connOpts []jsonrpc2.ConnOpt
	if c.opts.Debug {
		connOpts = append(connOpts, jsonrpc2.LogMessages(slog.NewLogLogger(slog.Default().Handler(), slog.LevelDebug)))
	}
	conn := jsonrpc2.NewConn(c.ctx, stream, jsonrpc2.HandlerWithError(c.handle), connOpts...)

	c.mu.RLock()
	docs := c.documents()
	c.mu.RUnlock()

	if err := c.initialize(dialCtx, conn, LanguagesOf(docs)); err != nil {
		conn.Close()
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ctx.Err() != nil {
		conn.Close()
		return nil, c.ctx.Err()
	}
	c.conn = conn
	c.opened = make(map[string]struct{})
	// Re-read under the lock: documents opened during the handshake are
	// announced here, later ones by OpenFile.
	for _, doc := range c.documents() {
		if err := c.didOpenLocked(ctx, doc); err != nil {
			logging.Warn("failed to re-open document", "uri", doc.URI, "error", err)
		}
	}
	c.setStateLocked(StateReady)
	return conn, nil
}

func (c *Client) documents() []TextDocument {
	if c.docs == nil {
		return nil
	}
	return c.docs()
}

func (c *Client) initialize(ctx context.Context, conn *jsonrpc2.Conn, languages []string) error {
	initOpts, err := initializationOptions(c.opts.Initialization, languages)
	if err != nil {
		return err
	}

	pid := protocol.Integer(os.Getpid())
	clientVersion := version.Version
	params := protocol.InitializeParams{
		ProcessID: &pid,
		ClientInfo: &protocol.ClientInfo{
			Name:    "lspbridge",
			Version: &clientVersion,
		},
		Capabilities:          protocol.BridgeCapabilities(),
		InitializationOptions: initOpts,
	}
	if c.opts.RootURI != "" {
		root := protocol.DocumentUri(c.opts.RootURI)
		params.RootURI = &root
	}

	var result protocol.InitializeResult
	if err := conn.Call(ctx, protocol.MethodInitialize, params, &result); err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	if info := result.ServerInfo; info != nil {
		serverVersion := ""
		if info.Version != nil {
			serverVersion = *info.Version
		}
		logging.Info("language service initialized", "server", info.Name, "version", serverVersion)
	}
	if err := conn.Notify(ctx, protocol.MethodInitialized, struct{}{}); err != nil {
		return fmt.Errorf("initialized: %w", err)
	}
	return nil
}

// initializationOptions merges the configured options with the languages in
// use.
func initializationOptions(user any, languages []string) (json.RawMessage, error) {
	base := []byte("{}")
	if user != nil {
		b, err := json.Marshal(user)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal initialization options: %w", err)
		}
		if !gjson.ParseBytes(b).IsObject() {
			return nil, fmt.Errorf("initialization options must be a JSON object, got %s", b)
		}
		base = b
	}
	if languages == nil {
		languages = []string{}
	}
	out, err := sjson.SetBytes(base, "languages", languages)
	if err != nil {
		return nil, fmt.Errorf("failed to set languages: %w", err)
	}
	return out, nil
}

func (c *Client) shutdown(conn *jsonrpc2.Conn) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := conn.Call(ctx, protocol.MethodShutdown, nil, nil); err != nil {
		logging.Debug("language service shutdown failed", "error", err)
	} else if err := conn.Notify(ctx, protocol.MethodExit, nil); err != nil {
		logging.Debug("language service exit failed", "error", err)
	}
	conn.Close()
}

func (c *Client) handle(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (any, error) {
	var params json.RawMessage
	if req.Params != nil {
		params = *req.Params
	}

	if req.Notif {
		c.handleNotification(req.Method, params)
		return nil, nil
	}

	switch req.Method {
	case protocol.MethodWorkspaceConfiguration:
		// One entry per requested item; null means "use your defaults".
		n := gjson.GetBytes(params, "items.#").Int()
		return make([]any, n), nil
	case protocol.MethodClientRegisterCapability,
		protocol.MethodWorkDoneProgressCreate,
		"client/unregisterCapability",
		"window/showMessageRequest":
		return nil, nil
	default:
		logging.Debug("unhandled server request", "method", req.Method)
		return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeMethodNotFound, Message: "method not supported: " + req.Method}
	}
}

func (c *Client) handleNotification(method string, params json.RawMessage) {
	switch method {
	case protocol.MethodWindowLogMessage, protocol.MethodWindowShowMessage:
		logServerMessage(params)
		return
	}

	c.handlersMu.RLock()
	handler, ok := c.notificationHandlers[method]
	c.handlersMu.RUnlock()
	if !ok {
		logging.Debug("unhandled notification", "method", method)
		return
	}
	handler(params)
}

func logServerMessage(params json.RawMessage) {
	var msg protocol.LogMessageParams
	if err := json.Unmarshal(params, &msg); err != nil {
		logging.Warn("malformed log message from language service", "error", err)
		return
	}
	switch msg.Type {
	case protocol.MessageTypeError:
		logging.Error("language service", "message", msg.Message)
	case protocol.MessageTypeWarning:
		logging.Warn("language service", "message", msg.Message)
	case protocol.MessageTypeInfo:
		logging.Info("language service", "message", msg.Message)
	default:
		logging.Debug("language service", "message", msg.Message)
	}
}

// readyConn returns the live connection, or ErrServiceUnavailable.
func (c *Client) readyConn() (*jsonrpc2.Conn, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.state != StateReady || c.conn == nil {
		return nil, ErrServiceUnavailable
	}
	return c.conn, nil
}

func (c *Client) didOpenLocked(ctx context.Context, doc TextDocument) error {
	if _, ok := c.opened[doc.URI]; ok {
		return nil
	}
	params := protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{
			URI:        doc.URI,
			LanguageID: doc.Language,
			Version:    int32(doc.Version),
			Text:       doc.Text,
		},
	}
	if err := c.conn.Notify(ctx, protocol.MethodTextDocumentDidOpen, params); err != nil {
		return err
	}
	c.opened[doc.URI] = struct{}{}
	return nil
}

// OpenFile announces a document. While the connection is down this is a
// no-op; the document is announced after the next handshake.
func (c *Client) OpenFile(ctx context.Context, doc TextDocument) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateReady || c.conn == nil {
		return nil
	}
	return c.didOpenLocked(ctx, doc)
}

// NotifyChange sends the full new text of an open document.
func (c *Client) NotifyChange(ctx context.Context, doc TextDocument) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateReady || c.conn == nil {
		return nil
	}
	if _, ok := c.opened[doc.URI]; !ok {
		return c.didOpenLocked(ctx, doc)
	}
	params := protocol.DidChangeTextDocumentParams{
		TextDocument: protocol.VersionedTextDocumentIdentifier{
			TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: doc.URI},
			Version:                int32(doc.Version),
		},
		ContentChanges: []any{
			protocol.TextDocumentContentChangeEventWhole{Text: doc.Text},
		},
	}
	return c.conn.Notify(ctx, protocol.MethodTextDocumentDidChange, params)
}

func (c *Client) CloseFile(ctx context.Context, uri string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.opened[uri]; !ok || c.conn == nil {
		return nil
	}
	delete(c.opened, uri)
	params := protocol.DidCloseTextDocumentParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: uri},
	}
	return c.conn.Notify(ctx, protocol.MethodTextDocumentDidClose, params)
}

// Format asks the server for the edits that format uri. The call is bounded
// by the configured format timeout.
func (c *Client) Format(ctx context.Context, uri string, opts FormattingOptions) ([]protocol.TextEdit, error) {
	conn, err := c.readyConn()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.opts.FormatTimeout)
	defer cancel()

	params := protocol.DocumentFormattingParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: uri},
		Options: protocol.FormattingOptions{
			protocol.FormattingTabSize:      opts.TabSize,
			protocol.FormattingInsertSpaces: opts.InsertSpaces,
		},
	}
	var edits []protocol.TextEdit
	if err := conn.Call(ctx, protocol.MethodTextDocumentFormatting, params, &edits); err != nil {
		return nil, &FormatError{URI: uri, Err: callError(protocol.MethodTextDocumentFormatting, err)}
	}
	return edits, nil
}

// Rename tells the server oldURI is now doc.URI. It is a notification; the
// server does not answer.
func (c *Client) Rename(ctx context.Context, oldURI string, doc TextDocument) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateReady || c.conn == nil {
		return ErrServiceUnavailable
	}

	params := protocol.RenameFilesParams{
		Files: []protocol.FileRename{{OldURI: oldURI, NewURI: doc.URI}},
	}
	if err := c.conn.Notify(ctx, protocol.MethodWorkspaceDidRenameFiles, params); err != nil {
		return callError(protocol.MethodWorkspaceDidRenameFiles, err)
	}
	if _, ok := c.opened[oldURI]; ok {
		delete(c.opened, oldURI)
		closeParams := protocol.DidCloseTextDocumentParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: oldURI},
		}
		if err := c.conn.Notify(ctx, protocol.MethodTextDocumentDidClose, closeParams); err != nil {
			return callError(protocol.MethodTextDocumentDidClose, err)
		}
	}
	return callError(protocol.MethodTextDocumentDidOpen, c.didOpenLocked(ctx, doc))
}

// callError classifies a failed call. Server replies and context errors are
// returned as is; anything else means the transport broke underneath.
func callError(method string, err error) error {
	var (
		rpcErr    *jsonrpc2.Error
		typeErr   *json.UnmarshalTypeError
		syntaxErr *json.SyntaxError
	)
	switch {
	case err == nil:
		return nil
	case errors.As(err, &rpcErr),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return err
	case errors.As(err, &typeErr), errors.As(err, &syntaxErr):
		return &ProtocolError{Method: method, Err: err}
	default:
		return fmt.Errorf("%w: %w", ErrConnectionLost, err)
	}
}

// Close shuts the server down and stops reconnecting. It is safe to call
// more than once.
func (c *Client) Close(ctx context.Context) error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		c.startOnce.Do(func() { close(c.done) })

		select {
		case <-c.done:
		case <-ctx.Done():
			err = ctx.Err()
		}

		c.mu.Lock()
		if c.conn != nil {
			c.conn.Close()
			c.conn = nil
		}
		c.opened = nil
		c.setStateLocked(StateDisconnected)
		c.mu.Unlock()
		c.states.Shutdown()
	})
	return err
}
