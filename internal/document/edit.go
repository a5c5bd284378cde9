package document

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"unicode/utf16"

	"github.com/opencode-ai/lspbridge/internal/lsp/protocol"
)

// ApplyEdits applies a batch of LSP text edits to uri as one unit. Every
// range refers to the content at version; if the document moved on, the
// batch is rejected with ErrStaleEdits. Overlapping or inverted ranges
// reject the whole batch. Insertions at the same position are applied in
// the order given, ahead of a replacement starting there.
func (s *Store) ApplyEdits(uri string, version int, edits []protocol.TextEdit) (Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.docs[uri]
	if !ok {
		return Document{}, ErrNotFound
	}
	if e.doc.Version != version {
		return Document{}, fmt.Errorf("%w: have version %d, edits target %d", ErrStaleEdits, e.doc.Version, version)
	}
	if len(edits) == 0 {
		return e.snapshot(), nil
	}

	content, err := applyTextEdits(e.doc.Content, edits)
	if err != nil {
		return Document{}, err
	}
	if content != e.doc.Content {
		e.doc.Content = content
		e.doc.Version++
	}
	return e.snapshot(), nil
}

type resolvedEdit struct {
	start, end int
	text       string
	index      int
}

func applyTextEdits(content string, edits []protocol.TextEdit) (string, error) {
	starts := lineStarts(content)

	resolved := make([]resolvedEdit, len(edits))
	for i, edit := range edits {
		start := offsetAt(content, starts, edit.Range.Start)
		end := offsetAt(content, starts, edit.Range.End)
		if end < start {
			return "", fmt.Errorf("%w: edit %d ends before it starts", ErrInvalidEdit, i)
		}
		resolved[i] = resolvedEdit{start: start, end: end, text: edit.NewText, index: i}
	}

	// An insertion at the start of a replaced range sorts before it.
	slices.SortStableFunc(resolved, func(a, b resolvedEdit) int {
		if c := cmp.Compare(a.start, b.start); c != 0 {
			return c
		}
		return cmp.Compare(a.end, b.end)
	})
	for i := 1; i < len(resolved); i++ {
		if resolved[i].start < resolved[i-1].end {
			return "", fmt.Errorf("%w: edits %d and %d overlap", ErrInvalidEdit, resolved[i-1].index, resolved[i].index)
		}
	}

	var b strings.Builder
	b.Grow(len(content))
	last := 0
	for _, r := range resolved {
		b.WriteString(content[last:r.start])
		b.WriteString(r.text)
		last = r.end
	}
	b.WriteString(content[last:])
	return b.String(), nil
}

// lineStarts returns the byte offset of every line. "\n", "\r\n" and a lone
// "\r" all end a line.
func lineStarts(content string) []int {
	starts := []int{0}
	for i := 0; i < len(content); i++ {
		switch content[i] {
		case '\n':
			starts = append(starts, i+1)
		case '\r':
			if i+1 < len(content) && content[i+1] == '\n' {
				i++
			}
			starts = append(starts, i+1)
		}
	}
	return starts
}

func lineEnd(content string, starts []int, line int) int {
	if line+1 >= len(starts) {
		return len(content)
	}
	end := starts[line+1]
	if end > 0 && content[end-1] == '\n' {
		end--
	}
	if end > 0 && content[end-1] == '\r' {
		end--
	}
	return end
}

// offsetAt maps an LSP position (UTF-16 code units) to a byte offset. Lines
// past the end clamp to the end of the document and characters past the end
// of a line clamp to the line end.
func offsetAt(content string, starts []int, pos protocol.Position) int {
	line := int(pos.Line)
	if line >= len(starts) {
		return len(content)
	}
	start := starts[line]
	end := lineEnd(content, starts, line)
	want := int(pos.Character)

	units := 0
	for i, r := range content[start:end] {
		if units >= want {
			return start + i
		}
		units += utf16.RuneLen(r)
	}
	return end
}
