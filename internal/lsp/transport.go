package lsp

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sourcegraph/jsonrpc2"
	jsonrpcws "github.com/sourcegraph/jsonrpc2/websocket"
)

// Dialer opens a fresh message stream to the language service. It is called
// once per connection attempt.
type Dialer interface {
	Dial(ctx context.Context) (jsonrpc2.ObjectStream, error)
}

// WebSocketDialer reaches a language service that speaks JSON-RPC over a
// WebSocket, one message per frame.
type WebSocketDialer struct {
	URL    string
	Header http.Header
	Dialer *websocket.Dialer
}

func (d WebSocketDialer) Dial(ctx context.Context) (jsonrpc2.ObjectStream, error) {
	dialer := d.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	conn, resp, err := dialer.DialContext(ctx, d.URL, d.Header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %s: %w", d.URL, resp.Status, err)
		}
		return nil, fmt.Errorf("dial %s: %w", d.URL, err)
	}
	return jsonrpcws.NewObjectStream(conn), nil
}

// CommandDialer starts a language server process and talks to it over
// stdio with Content-Length framing.
type CommandDialer struct {
	Command string
	Args    []string
	Env     map[string]string
	Dir     string
	// Stderr receives the server's own log output. Discarded when nil.
	Stderr io.Writer
}

func (d CommandDialer) Dial(ctx context.Context) (jsonrpc2.ObjectStream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// The process outlives the dial context; it is stopped when the stream
	// is closed.
	cmd := exec.Command(d.Command, d.Args...)
	cmd.Dir = d.Dir
	cmd.Env = os.Environ()
	for k, v := range d.Env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}
	cmd.Stderr = d.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", d.Command, err)
	}

	proc := &processPipe{cmd: cmd, stdin: stdin, stdout: stdout}
	return jsonrpc2.NewBufferedStream(proc, jsonrpc2.VSCodeObjectCodec{}), nil
}

const processExitGrace = 2 * time.Second

type processPipe struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser
}

func (p *processPipe) Read(b []byte) (int, error)  { return p.stdout.Read(b) }
func (p *processPipe) Write(b []byte) (int, error) { return p.stdin.Write(b) }

// Close closes stdin, gives the server a moment to exit on its own and
// kills it otherwise.
func (p *processPipe) Close() error {
	p.stdin.Close()

	exited := make(chan error, 1)
	go func() { exited <- p.cmd.Wait() }()
	select {
	case err := <-exited:
		return ignoreExitError(err)
	case <-time.After(processExitGrace):
		p.cmd.Process.Kill()
		return ignoreExitError(<-exited)
	}
}

func ignoreExitError(err error) error {
	if _, ok := err.(*exec.ExitError); ok {
		return nil
	}
	return err
}
