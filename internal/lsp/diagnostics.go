package lsp

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/opencode-ai/lspbridge/internal/lsp/protocol"
	"github.com/tidwall/gjson"
)

// ParseDiagnostics decodes a textDocument/publishDiagnostics payload. The
// shape is checked before decoding so a broken notification is rejected as a
// whole instead of yielding half-filled diagnostics.
func ParseDiagnostics(raw json.RawMessage) (protocol.PublishDiagnosticsParams, error) {
	var params protocol.PublishDiagnosticsParams
	if err := validateDiagnostics(raw); err != nil {
		return params, &ProtocolError{Method: protocol.MethodTextDocumentPublishDiagnostic, Err: err}
	}
	if err := json.Unmarshal(raw, &params); err != nil {
		return params, &ProtocolError{Method: protocol.MethodTextDocumentPublishDiagnostic, Err: err}
	}
	return params, nil
}

func validateDiagnostics(raw []byte) error {
	if !gjson.ValidBytes(raw) {
		return errors.New("invalid json")
	}
	payload := gjson.ParseBytes(raw)
	if !payload.IsObject() {
		return errors.New("params is not an object")
	}
	if uri := payload.Get("uri"); uri.Type != gjson.String || uri.Str == "" {
		return errors.New("missing uri")
	}
	diags := payload.Get("diagnostics")
	if !diags.IsArray() {
		return errors.New("diagnostics is not an array")
	}

	var err error
	diags.ForEach(func(key, d gjson.Result) bool {
		switch {
		case !d.Get("range.start.line").Exists(), !d.Get("range.end.line").Exists():
			err = fmt.Errorf("diagnostic %d has no range", key.Int())
		case d.Get("message").Type != gjson.String:
			err = fmt.Errorf("diagnostic %d has no message", key.Int())
		case d.Get("severity").Exists() && d.Get("severity").Type != gjson.Number:
			err = fmt.Errorf("diagnostic %d has a non-numeric severity", key.Int())
		}
		return err == nil
	})
	return err
}
