package document

import (
	"testing"

	"github.com/opencode-ai/lspbridge/internal/lsp/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func edit(sl, sc, el, ec uint32, text string) protocol.TextEdit {
	return protocol.TextEdit{
		Range: protocol.Range{
			Start: protocol.Position{Line: sl, Character: sc},
			End:   protocol.Position{Line: el, Character: ec},
		},
		NewText: text,
	}
}

func TestApplyTextEdits(t *testing.T) {
	tests := []struct {
		name    string
		content string
		edits   []protocol.TextEdit
		want    string
	}{
		{
			name:    "single replacement",
			content: "let x=1",
			edits:   []protocol.TextEdit{edit(0, 4, 0, 7, "x = 1;")},
			want:    "let x = 1;",
		},
		{
			name:    "multiple edits given out of order",
			content: "a\nb\nc",
			edits: []protocol.TextEdit{
				edit(2, 0, 2, 1, "C"),
				edit(0, 0, 0, 1, "A"),
			},
			want: "A\nb\nC",
		},
		{
			name:    "inserts at the same position keep their order",
			content: "x",
			edits: []protocol.TextEdit{
				edit(0, 0, 0, 0, "1"),
				edit(0, 0, 0, 0, "2"),
			},
			want: "12x",
		},
		{
			name:    "insert at the start of a replaced range",
			content: "let x=1",
			edits: []protocol.TextEdit{
				edit(0, 0, 0, 3, ""),
				edit(0, 0, 0, 0, "const"),
			},
			want: "const x=1",
		},
		{
			name:    "insert at the end of a replaced range",
			content: "let x=1",
			edits: []protocol.TextEdit{
				edit(0, 3, 0, 3, ";"),
				edit(0, 0, 0, 3, "var"),
			},
			want: "var; x=1",
		},
		{
			name:    "utf-16 columns after a surrogate pair",
			content: "a😀b",
			edits:   []protocol.TextEdit{edit(0, 3, 0, 4, "B")},
			want:    "a😀B",
		},
		{
			name:    "crlf line endings",
			content: "one\r\ntwo\r\n",
			edits:   []protocol.TextEdit{edit(1, 0, 1, 3, "2")},
			want:    "one\r\n2\r\n",
		},
		{
			name:    "range past the end clamps to the document end",
			content: "func main() {\n}\n",
			edits:   []protocol.TextEdit{edit(0, 0, 99, 0, "func main() {}\n")},
			want:    "func main() {}\n",
		},
		{
			name:    "character past the line end clamps",
			content: "ab\ncd",
			edits:   []protocol.TextEdit{edit(0, 1, 0, 50, "")},
			want:    "a\ncd",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := applyTextEdits(tt.content, tt.edits)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestApplyTextEdits_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		edits []protocol.TextEdit
	}{
		{
			name: "overlapping",
			edits: []protocol.TextEdit{
				edit(0, 0, 0, 5, "x"),
				edit(0, 3, 0, 7, "y"),
			},
		},
		{
			name: "replacements with the same start",
			edits: []protocol.TextEdit{
				edit(0, 0, 0, 3, "x"),
				edit(0, 0, 0, 5, "y"),
			},
		},
		{
			name: "insert inside a replaced range",
			edits: []protocol.TextEdit{
				edit(0, 0, 0, 5, "x"),
				edit(0, 2, 0, 2, "y"),
			},
		},
		{
			name:  "inverted",
			edits: []protocol.TextEdit{edit(0, 5, 0, 2, "x")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := applyTextEdits("let x=1", tt.edits)
			assert.ErrorIs(t, err, ErrInvalidEdit)
		})
	}
}

func TestStore_ApplyEditsIsAllOrNothing(t *testing.T) {
	s := NewStore()
	_, _, err := s.CreateOrUpdate("a.ts", "let x=1", "typescript")
	require.NoError(t, err)

	_, err = s.ApplyEdits("a.ts", 1, []protocol.TextEdit{
		edit(0, 0, 0, 3, "const"),
		edit(0, 2, 0, 5, "oops"),
	})
	require.ErrorIs(t, err, ErrInvalidEdit)

	doc, err := s.Get("a.ts")
	require.NoError(t, err)
	assert.Equal(t, "let x=1", doc.Content)
	assert.Equal(t, 1, doc.Version)
}

func TestStore_ApplyEdits(t *testing.T) {
	s := NewStore()
	_, _, err := s.CreateOrUpdate("a.ts", "let x=1", "typescript")
	require.NoError(t, err)

	doc, err := s.ApplyEdits("a.ts", 1, []protocol.TextEdit{edit(0, 4, 0, 7, "x = 1;")})
	require.NoError(t, err)
	assert.Equal(t, "let x = 1;", doc.Content)
	assert.Equal(t, 2, doc.Version)
	assert.True(t, doc.Dirty)

	// No edits means nothing to do and no version bump.
	doc, err = s.ApplyEdits("a.ts", 2, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, doc.Version)
}

func TestStore_ApplyEditsRejectsStaleVersion(t *testing.T) {
	s := NewStore()
	_, _, err := s.CreateOrUpdate("a.ts", "let x=1", "typescript")
	require.NoError(t, err)
	_, _, err = s.CreateOrUpdate("a.ts", "let y=1", "typescript")
	require.NoError(t, err)

	_, err = s.ApplyEdits("a.ts", 1, []protocol.TextEdit{edit(0, 4, 0, 7, "x = 1;")})
	assert.ErrorIs(t, err, ErrStaleEdits)

	doc, err := s.Get("a.ts")
	require.NoError(t, err)
	assert.Equal(t, "let y=1", doc.Content)

	_, err = s.ApplyEdits("missing.ts", 1, nil)
	assert.ErrorIs(t, err, ErrNotFound)
}
