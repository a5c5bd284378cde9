// Package servers knows which stdio language server to launch for a file
// when no remote language service address is configured.
package servers

// Definition describes a built-in stdio language server.
type Definition struct {
	ID         string
	Extensions []string
	Command    []string
	// InstallHint is shown when the command cannot be found on PATH.
	InstallHint string
	DefaultInit map[string]any
}

// Builtin is the registry of known servers. Extensions may overlap; the
// first definition wins.
var Builtin = []Definition{
	{
		ID:          "typescript",
		Extensions:  []string{".ts", ".tsx", ".js", ".jsx", ".mjs", ".cjs", ".mts", ".cts"},
		Command:     []string{"typescript-language-server", "--stdio"},
		InstallHint: "npm install -g typescript-language-server typescript",
	},
	{
		ID:          "gopls",
		Extensions:  []string{".go"},
		Command:     []string{"gopls"},
		InstallHint: "go install golang.org/x/tools/gopls@latest",
		DefaultInit: map[string]any{
			"gofumpt": false,
		},
	},
	{
		ID:          "pyright",
		Extensions:  []string{".py"},
		Command:     []string{"pyright-langserver", "--stdio"},
		InstallHint: "npm install -g pyright",
	},
	{
		ID:          "vscode-css",
		Extensions:  []string{".css", ".scss", ".less"},
		Command:     []string{"vscode-css-language-server", "--stdio"},
		InstallHint: "npm install -g vscode-langservers-extracted",
	},
	{
		ID:          "vscode-html",
		Extensions:  []string{".html", ".htm"},
		Command:     []string{"vscode-html-language-server", "--stdio"},
		InstallHint: "npm install -g vscode-langservers-extracted",
	},
	{
		ID:          "vscode-json",
		Extensions:  []string{".json", ".jsonc"},
		Command:     []string{"vscode-json-language-server", "--stdio"},
		InstallHint: "npm install -g vscode-langservers-extracted",
	},
	{
		ID:          "yaml",
		Extensions:  []string{".yaml", ".yml"},
		Command:     []string{"yaml-language-server", "--stdio"},
		InstallHint: "npm install -g yaml-language-server",
	},
	{
		ID:          "bash",
		Extensions:  []string{".sh", ".bash", ".zsh"},
		Command:     []string{"bash-language-server", "start"},
		InstallHint: "npm install -g bash-language-server",
	},
	{
		ID:         "rust-analyzer",
		Extensions: []string{".rs"},
		Command:    []string{"rust-analyzer"},
	},
	{
		ID:         "clangd",
		Extensions: []string{".c", ".cpp", ".cc", ".cxx", ".h", ".hpp"},
		Command:    []string{"clangd"},
	},
	{
		ID:         "lua-ls",
		Extensions: []string{".lua"},
		Command:    []string{"lua-language-server"},
	},
	{
		ID:         "zls",
		Extensions: []string{".zig"},
		Command:    []string{"zls"},
	},
}
