package format

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/opencode-ai/lspbridge/internal/diagnostics"
	"github.com/opencode-ai/lspbridge/internal/lsp"
)

var (
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	hintStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	pathStyle    = lipgloss.NewStyle().Bold(true)
)

// Summary counts diagnostics per severity.
type Summary struct {
	Errors   int `json:"errors"`
	Warnings int `json:"warnings"`
	Infos    int `json:"infos"`
	Hints    int `json:"hints"`
}

func Summarize(sets []diagnostics.Set) Summary {
	var s Summary
	for _, set := range sets {
		s.Errors += set.Count(diagnostics.SeverityError)
		s.Warnings += set.Count(diagnostics.SeverityWarning)
		s.Infos += set.Count(diagnostics.SeverityInfo)
		s.Hints += set.Count(diagnostics.SeverityHint)
	}
	return s
}

func (s Summary) String() string {
	if s == (Summary{}) {
		return "No diagnostics"
	}
	parts := []string{
		plural(s.Errors, "error"),
		plural(s.Warnings, "warning"),
	}
	if s.Infos > 0 {
		parts = append(parts, plural(s.Infos, "info"))
	}
	if s.Hints > 0 {
		parts = append(parts, plural(s.Hints, "hint"))
	}
	return strings.Join(parts, ", ")
}

func plural(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

// Sorted orders sets by URI and each set's diagnostics by severity, then
// position. The input is not modified.
func Sorted(sets []diagnostics.Set) []diagnostics.Set {
	out := make([]diagnostics.Set, 0, len(sets))
	for _, set := range sets {
		diags := slices.Clone(set.Diagnostics)
		slices.SortStableFunc(diags, func(a, b diagnostics.Diagnostic) int {
			if a.Severity != b.Severity {
				return int(a.Severity) - int(b.Severity)
			}
			if a.Range.Start.Line != b.Range.Start.Line {
				return int(a.Range.Start.Line) - int(b.Range.Start.Line)
			}
			return int(a.Range.Start.Character) - int(b.Range.Start.Character)
		})
		out = append(out, diagnostics.Set{URI: set.URI, Diagnostics: diags})
	}
	slices.SortFunc(out, func(a, b diagnostics.Set) int {
		return strings.Compare(a.URI, b.URI)
	})
	return out
}

type jsonReport struct {
	Files   []diagnostics.Set `json:"files"`
	Summary Summary           `json:"summary"`
}

// WriteDiagnostics renders sets in the given format. Styling only applies
// to Text.
func WriteDiagnostics(w io.Writer, sets []diagnostics.Set, format OutputFormat, styled bool) error {
	sorted := Sorted(sets)
	switch format {
	case JSON:
		files := make([]diagnostics.Set, 0, len(sorted))
		for _, set := range sorted {
			if len(set.Diagnostics) > 0 {
				files = append(files, set)
			}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(jsonReport{Files: files, Summary: Summarize(sorted)})
	case Text, "":
		return writeText(w, sorted, styled)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

func writeText(w io.Writer, sets []diagnostics.Set, styled bool) error {
	render := func(style lipgloss.Style, s string) string {
		if !styled {
			return s
		}
		return style.Render(s)
	}

	var b strings.Builder
	for _, set := range sets {
		name := displayPath(set.URI)
		for _, d := range set.Diagnostics {
			// Positions are zero-based on the wire and one-based for people.
			location := fmt.Sprintf("%s:%d:%d", name, d.Range.Start.Line+1, d.Range.Start.Character+1)
			fmt.Fprintf(&b, "%s: %s: %s", render(pathStyle, location), render(severityStyle(d.Severity), d.Severity.String()), d.Message)
			if d.Source != "" || d.Code != "" {
				fmt.Fprintf(&b, " [%s]", strings.Trim(d.Source+" "+d.Code, " "))
			}
			b.WriteByte('\n')
		}
	}
	b.WriteString(Summarize(sets).String())
	b.WriteByte('\n')
	_, err := io.WriteString(w, b.String())
	return err
}

func severityStyle(s diagnostics.Severity) lipgloss.Style {
	switch s {
	case diagnostics.SeverityError:
		return errorStyle
	case diagnostics.SeverityWarning:
		return warningStyle
	case diagnostics.SeverityHint:
		return hintStyle
	default:
		return infoStyle
	}
}

func displayPath(uri string) string {
	if path, err := lsp.URIToPath(uri); err == nil {
		return path
	}
	return uri
}
