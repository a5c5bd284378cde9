// Package protocol exposes the subset of the Language Server Protocol the
// editor bridge speaks, as aliases of glsp's 3.16 definitions.
package protocol

import (
	"encoding/json"
	"fmt"

	lsp "github.com/tliron/glsp/protocol_3_16"
)

type (
	DocumentUri                     = lsp.DocumentUri
	Position                        = lsp.Position
	Range                           = lsp.Range
	TextEdit                        = lsp.TextEdit
	Diagnostic                      = lsp.Diagnostic
	DiagnosticSeverity              = lsp.DiagnosticSeverity
	PublishDiagnosticsParams        = lsp.PublishDiagnosticsParams
	TextDocumentIdentifier          = lsp.TextDocumentIdentifier
	VersionedTextDocumentIdentifier = lsp.VersionedTextDocumentIdentifier
	TextDocumentItem                = lsp.TextDocumentItem
	DidOpenTextDocumentParams       = lsp.DidOpenTextDocumentParams
	DidChangeTextDocumentParams     = lsp.DidChangeTextDocumentParams
	DidCloseTextDocumentParams      = lsp.DidCloseTextDocumentParams
	DocumentFormattingParams        = lsp.DocumentFormattingParams
	FormattingOptions               = lsp.FormattingOptions
	RenameFilesParams               = lsp.RenameFilesParams
	FileRename                      = lsp.FileRename
)

const (
	SeverityError       = lsp.DiagnosticSeverityError
	SeverityWarning     = lsp.DiagnosticSeverityWarning
	SeverityInformation = lsp.DiagnosticSeverityInformation
	SeverityHint        = lsp.DiagnosticSeverityHint
)

type (
	Integer                             = lsp.Integer
	MessageType                         = lsp.MessageType
	LogMessageParams                    = lsp.LogMessageParams
	InitializeParams                    = lsp.InitializeParams
	InitializeResult                    = lsp.InitializeResult
	ClientCapabilities                  = lsp.ClientCapabilities
	TextDocumentContentChangeEventWhole = lsp.TextDocumentContentChangeEventWhole
)

// ClientInfo is the anonymous clientInfo struct of InitializeParams.
type ClientInfo = struct {
	Name    string  `json:"name"`
	Version *string `json:"version,omitempty"`
}

const (
	MessageTypeError   = lsp.MessageTypeError
	MessageTypeWarning = lsp.MessageTypeWarning
	MessageTypeInfo    = lsp.MessageTypeInfo
	MessageTypeLog     = lsp.MessageTypeLog
)

// Method names used on the wire.
const (
	MethodInitialize                    = lsp.MethodInitialize
	MethodInitialized                   = lsp.MethodInitialized
	MethodShutdown                      = lsp.MethodShutdown
	MethodExit                          = lsp.MethodExit
	MethodTextDocumentDidOpen           = lsp.MethodTextDocumentDidOpen
	MethodTextDocumentDidChange         = lsp.MethodTextDocumentDidChange
	MethodTextDocumentDidClose          = lsp.MethodTextDocumentDidClose
	MethodTextDocumentFormatting        = lsp.MethodTextDocumentFormatting
	MethodTextDocumentPublishDiagnostic = lsp.ServerTextDocumentPublishDiagnostics
	MethodWorkspaceDidRenameFiles       = lsp.MethodWorkspaceDidRenameFiles
	MethodWorkspaceConfiguration        = lsp.ServerWorkspaceConfiguration
	MethodClientRegisterCapability      = lsp.ServerClientRegisterCapability
	MethodWorkDoneProgressCreate        = lsp.ServerWindowWorkDoneProgressCreate
	MethodWindowLogMessage              = lsp.ServerWindowLogMessage
	MethodWindowShowMessage             = lsp.ServerWindowShowMessage
)

// FormattingOptions keys.
const (
	FormattingTabSize      = "tabSize"
	FormattingInsertSpaces = "insertSpaces"
)

// bridgeCapabilities is what the client implements: full-text sync,
// whole-document formatting, versioned diagnostics, workspace/configuration
// and didRenameFiles.
const bridgeCapabilities = `{
	"textDocument": {
		"synchronization": {"dynamicRegistration": false, "didSave": false},
		"formatting": {"dynamicRegistration": false},
		"publishDiagnostics": {"relatedInformation": false, "versionSupport": true}
	},
	"workspace": {
		"configuration": true,
		"fileOperations": {"didRename": true}
	}
}`

// BridgeCapabilities returns the capabilities sent in the initialize request.
// glsp declares the workspace block as an anonymous struct, so the value is
// decoded rather than built field by field.
func BridgeCapabilities() ClientCapabilities {
	var caps ClientCapabilities
	if err := json.Unmarshal([]byte(bridgeCapabilities), &caps); err != nil {
		panic(fmt.Sprintf("protocol: invalid client capabilities: %v", err))
	}
	return caps
}
