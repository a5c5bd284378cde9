package lsp

import (
	"encoding/json"
	"testing"

	"github.com/opencode-ai/lspbridge/internal/lsp/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDiagnostics(t *testing.T) {
	raw := json.RawMessage(`{
		"uri": "file:///work/a.ts",
		"version": 2,
		"diagnostics": [
			{"range": {"start": {"line": 0, "character": 4}, "end": {"line": 0, "character": 5}},
			 "severity": 1, "source": "ts", "code": 2304, "message": "Cannot find name 'x'."},
			{"range": {"start": {"line": 3, "character": 0}, "end": {"line": 3, "character": 1}},
			 "message": "no severity"}
		]
	}`)

	params, err := ParseDiagnostics(raw)
	require.NoError(t, err)
	assert.Equal(t, "file:///work/a.ts", params.URI)
	require.Len(t, params.Diagnostics, 2)
	require.NotNil(t, params.Diagnostics[0].Severity)
	assert.Equal(t, protocol.SeverityError, *params.Diagnostics[0].Severity)
	assert.Nil(t, params.Diagnostics[1].Severity)
}

func TestParseDiagnostics_Malformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", `{"uri":`},
		{"not an object", `[1,2]`},
		{"missing uri", `{"diagnostics": []}`},
		{"diagnostics not an array", `{"uri": "a.ts", "diagnostics": {}}`},
		{"missing range", `{"uri": "a.ts", "diagnostics": [{"message": "x"}]}`},
		{"missing message", `{"uri": "a.ts", "diagnostics": [{"range": {"start": {"line": 0}, "end": {"line": 0}}}]}`},
		{"string severity", `{"uri": "a.ts", "diagnostics": [{"range": {"start": {"line": 0}, "end": {"line": 0}}, "message": "x", "severity": "error"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDiagnostics(json.RawMessage(tt.raw))
			var pe *ProtocolError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, protocol.MethodTextDocumentPublishDiagnostic, pe.Method)
		})
	}
}
