package servers

import (
	"testing"

	"github.com/opencode-ai/lspbridge/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func byID(servers []Server) map[string]Server {
	m := make(map[string]Server, len(servers))
	for _, s := range servers {
		m[s.ID] = s
	}
	return m
}

func TestResolve_Defaults(t *testing.T) {
	servers := Resolve(nil)
	assert.Len(t, servers, len(Builtin))

	gopls, ok := byID(servers)["gopls"]
	require.True(t, ok)
	assert.Equal(t, []string{"gopls"}, gopls.Command)
	init, ok := gopls.Initialization.(map[string]any)
	require.True(t, ok)
	assert.Contains(t, init, "gofumpt")
}

func TestResolve_UserDisablesBuiltin(t *testing.T) {
	servers := byID(Resolve(map[string]config.LSPConfig{
		"gopls": {Disabled: true},
	}))
	_, ok := servers["gopls"]
	assert.False(t, ok)
	_, ok = servers["typescript"]
	assert.True(t, ok)
}

func TestResolve_UserOverrides(t *testing.T) {
	init := map[string]any{"setting": true}
	servers := byID(Resolve(map[string]config.LSPConfig{
		"gopls": {
			Command:        "/custom/gopls",
			Args:           []string{"-rpc.trace"},
			Extensions:     []string{".go", ".mod"},
			Env:            map[string]string{"GOFLAGS": "-mod=vendor"},
			Initialization: init,
		},
		"typescript": {Args: []string{"--ignored"}},
	}))

	gopls := servers["gopls"]
	assert.Equal(t, []string{"/custom/gopls", "-rpc.trace"}, gopls.Command)
	assert.Equal(t, []string{".go", ".mod"}, gopls.Extensions)
	assert.Equal(t, map[string]string{"GOFLAGS": "-mod=vendor"}, gopls.Env)
	assert.Equal(t, init, gopls.Initialization)

	// Args without a command keep the built-in command line.
	assert.Equal(t, []string{"typescript-language-server", "--stdio"}, servers["typescript"].Command)
}

func TestResolve_CustomServer(t *testing.T) {
	servers := Resolve(map[string]config.LSPConfig{
		"my-lsp": {
			Command:    "my-lsp-server",
			Args:       []string{"--stdio"},
			Extensions: []string{".custom"},
		},
		"disabled-lsp": {Command: "x", Disabled: true},
		"no-command":   {Extensions: []string{".nc"}},
	})
	m := byID(servers)

	custom, ok := m["my-lsp"]
	require.True(t, ok)
	assert.Equal(t, []string{"my-lsp-server", "--stdio"}, custom.Command)
	assert.Equal(t, "my-lsp", servers[len(servers)-1].ID, "custom servers come after built-ins")

	_, ok = m["disabled-lsp"]
	assert.False(t, ok)
	_, ok = m["no-command"]
	assert.False(t, ok)
}

func TestForFile(t *testing.T) {
	servers := Resolve(nil)

	s, ok := ForFile(servers, "/work/src/App.TSX")
	require.True(t, ok)
	assert.Equal(t, "typescript", s.ID)

	s, ok = ForFile(servers, "main.go")
	require.True(t, ok)
	assert.Equal(t, "gopls", s.ID)

	_, ok = ForFile(servers, "notes.txt")
	assert.False(t, ok)
}

func TestLookPath_MissingBinary(t *testing.T) {
	s := Server{ID: "x", Command: []string{"lspbridge-no-such-server"}, InstallHint: "npm i x"}
	_, err := s.LookPath()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "npm i x")

	_, err = Server{ID: "empty"}.LookPath()
	assert.Error(t, err)
}

func TestBuiltin_Consistent(t *testing.T) {
	seen := make(map[string]bool)
	for _, s := range Builtin {
		assert.False(t, seen[s.ID], "duplicate server ID: %s", s.ID)
		seen[s.ID] = true
		assert.NotEmpty(t, s.Extensions, "server %s has no extensions", s.ID)
		assert.NotEmpty(t, s.Command, "server %s has no command", s.ID)
	}
}
