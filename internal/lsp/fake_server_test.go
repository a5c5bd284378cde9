package lsp

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/opencode-ai/lspbridge/internal/lsp/protocol"
	"github.com/sourcegraph/jsonrpc2"
	"github.com/stretchr/testify/require"
)

type message struct {
	Method string
	Params json.RawMessage
}

// fakeServer is an in-memory language server reached through net.Pipe. It
// records every message it receives.
type fakeServer struct {
	mu          sync.Mutex
	dials       int
	failDials   int
	conns       []*jsonrpc2.Conn
	received    []message
	formatEdits []protocol.TextEdit
	formatErr   *jsonrpc2.Error
	formatDelay time.Duration
	initResult  any
	block       chan struct{}
}

func newFakeServer(t *testing.T) *fakeServer {
	s := &fakeServer{block: make(chan struct{})}
	t.Cleanup(func() {
		s.release()
		s.mu.Lock()
		conns := s.conns
		s.mu.Unlock()
		for _, c := range conns {
			c.Close()
		}
	})
	return s
}

func (s *fakeServer) Dial(ctx context.Context) (jsonrpc2.ObjectStream, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dials++
	if s.failDials > 0 {
		s.failDials--
		return nil, errors.New("connection refused")
	}

	client, server := net.Pipe()
	conn := jsonrpc2.NewConn(context.Background(),
		jsonrpc2.NewBufferedStream(server, jsonrpc2.VSCodeObjectCodec{}),
		jsonrpc2.HandlerWithError(s.handle))
	s.conns = append(s.conns, conn)
	return jsonrpc2.NewBufferedStream(client, jsonrpc2.VSCodeObjectCodec{}), nil
}

func (s *fakeServer) handle(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (any, error) {
	var params json.RawMessage
	if req.Params != nil {
		params = append(params, *req.Params...)
	}
	s.mu.Lock()
	s.received = append(s.received, message{Method: req.Method, Params: params})
	edits, formatErr, delay := s.formatEdits, s.formatErr, s.formatDelay
	initResult := s.initResult
	block := s.block
	s.mu.Unlock()

	switch req.Method {
	case protocol.MethodInitialize:
		if initResult != nil {
			return initResult, nil
		}
		return map[string]any{
			"capabilities": map[string]any{},
			"serverInfo":   map[string]any{"name": "fake"},
		}, nil
	case protocol.MethodTextDocumentFormatting:
		if delay < 0 {
			<-block
		}
		time.Sleep(max(delay, 0))
		if formatErr != nil {
			return nil, formatErr
		}
		return edits, nil
	}
	return nil, nil
}

func (s *fakeServer) release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	select {
	case <-s.block:
	default:
		close(s.block)
	}
}

func (s *fakeServer) dialCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dials
}

func (s *fakeServer) messages(method string) []message {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []message
	for _, m := range s.received {
		if method == "" || m.Method == method {
			out = append(out, m)
		}
	}
	return out
}

// waitMessages waits until at least n messages for method were recorded.
// Notifications are recorded on the server's reader goroutine and can trail
// the client's own state events.
func (s *fakeServer) waitMessages(t *testing.T, method string, n int) []message {
	t.Helper()
	require.Eventually(t, func() bool {
		return len(s.messages(method)) >= n
	}, 2*time.Second, 5*time.Millisecond, "waiting for %d %s", n, method)
	return s.messages(method)
}

func (s *fakeServer) methods() []string {
	var out []string
	for _, m := range s.messages("") {
		out = append(out, m.Method)
	}
	return out
}

func (s *fakeServer) lastConn() *jsonrpc2.Conn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conns[len(s.conns)-1]
}

// drop closes the current connection from the server side.
func (s *fakeServer) drop() {
	s.lastConn().Close()
}

func (s *fakeServer) notify(t *testing.T, method string, params any) {
	t.Helper()
	if err := s.lastConn().Notify(context.Background(), method, params); err != nil {
		t.Fatalf("notify %s: %v", method, err)
	}
}
