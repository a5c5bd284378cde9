// Package diagnostics holds the per-document diagnostic sets pushed by the
// language service. A new notification always replaces the previous set for
// its URI; sets are never merged or patched.
package diagnostics

import (
	"fmt"

	"github.com/opencode-ai/lspbridge/internal/lsp/protocol"
)

// Severity is the editor-facing severity tier of a diagnostic.
type Severity int

const (
	SeverityError Severity = iota + 1
	SeverityWarning
	SeverityInfo
	SeverityHint
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "Error"
	case SeverityWarning:
		return "Warn"
	case SeverityHint:
		return "Hint"
	default:
		return "Info"
	}
}

// Diagnostic is one annotation attached to a range of a document.
type Diagnostic struct {
	Range    protocol.Range `json:"range"`
	Severity Severity       `json:"severity"`
	Message  string         `json:"message"`
	Source   string         `json:"source,omitempty"`
	Code     string         `json:"code,omitempty"`
}

// Set is the complete diagnostic state of one document.
type Set struct {
	URI         string       `json:"uri"`
	Diagnostics []Diagnostic `json:"diagnostics"`
}

// MapSeverity converts a protocol severity. A missing or unknown severity
// lands in the Info tier.
func MapSeverity(severity *protocol.DiagnosticSeverity) Severity {
	if severity == nil {
		return SeverityInfo
	}
	switch *severity {
	case protocol.SeverityError:
		return SeverityError
	case protocol.SeverityWarning:
		return SeverityWarning
	case protocol.SeverityInformation:
		return SeverityInfo
	case protocol.SeverityHint:
		return SeverityHint
	default:
		return SeverityInfo
	}
}

// FromProtocol converts a publishDiagnostics payload, keeping the order the
// server sent.
func FromProtocol(params protocol.PublishDiagnosticsParams) Set {
	set := Set{
		URI:         params.URI,
		Diagnostics: make([]Diagnostic, 0, len(params.Diagnostics)),
	}
	for _, d := range params.Diagnostics {
		diag := Diagnostic{
			Range:    d.Range,
			Severity: MapSeverity(d.Severity),
			Message:  d.Message,
		}
		if d.Source != nil {
			diag.Source = *d.Source
		}
		if d.Code != nil && d.Code.Value != nil {
			diag.Code = fmt.Sprint(d.Code.Value)
		}
		set.Diagnostics = append(set.Diagnostics, diag)
	}
	return set
}

// Count returns the number of diagnostics of the given severity.
func (s Set) Count(severity Severity) int {
	n := 0
	for _, d := range s.Diagnostics {
		if d.Severity == severity {
			n++
		}
	}
	return n
}
