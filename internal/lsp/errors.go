package lsp

import (
	"errors"
	"fmt"
)

var (
	// ErrServiceUnavailable is returned by operations issued while the
	// connection is not Ready.
	ErrServiceUnavailable = errors.New("language service unavailable")
	// ErrConnectionLost fails calls that were in flight when the transport
	// dropped. They are never re-sent.
	ErrConnectionLost = errors.New("language service connection lost")
)

// FormatError reports a failed textDocument/formatting round trip. The
// document is left untouched and the caller may retry.
type FormatError struct {
	URI string
	Err error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("format %s: %v", e.URI, e.Err)
}

func (e *FormatError) Unwrap() error { return e.Err }

// ProtocolError is a malformed payload received from the server.
type ProtocolError struct {
	Method string
	Err    error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("malformed %s payload: %v", e.Method, e.Err)
}

func (e *ProtocolError) Unwrap() error { return e.Err }
