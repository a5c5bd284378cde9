package servers

import (
	"fmt"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"

	"github.com/opencode-ai/lspbridge/internal/config"
)

// Server is a launchable server after merging the registry with user
// configuration.
type Server struct {
	ID             string
	Extensions     []string
	Command        []string
	Env            map[string]string
	Initialization any
	InstallHint    string
}

// Resolve merges the built-in registry with per-server overrides from the
// configuration. Overrides with an unknown name add a custom server.
// Disabled servers are left out.
func Resolve(overrides map[string]config.LSPConfig) []Server {
	var result []Server
	seen := make(map[string]bool, len(Builtin))

	for _, def := range Builtin {
		seen[def.ID] = true
		server := Server{
			ID:          def.ID,
			Extensions:  def.Extensions,
			Command:     def.Command,
			InstallHint: def.InstallHint,
		}
		if def.DefaultInit != nil {
			server.Initialization = def.DefaultInit
		}
		if override, ok := overrides[def.ID]; ok {
			if override.Disabled {
				continue
			}
			server = applyOverride(server, override)
		}
		result = append(result, server)
	}

	custom := make([]string, 0, len(overrides))
	for name := range overrides {
		if !seen[name] {
			custom = append(custom, name)
		}
	}
	slices.Sort(custom)
	for _, name := range custom {
		override := overrides[name]
		if override.Disabled || override.Command == "" {
			continue
		}
		result = append(result, applyOverride(Server{ID: name}, override))
	}
	return result
}

func applyOverride(server Server, override config.LSPConfig) Server {
	if override.Command != "" {
		server.Command = append([]string{override.Command}, override.Args...)
	}
	if len(override.Extensions) > 0 {
		server.Extensions = override.Extensions
	}
	if len(override.Env) > 0 {
		server.Env = override.Env
	}
	if override.Initialization != nil {
		server.Initialization = override.Initialization
	}
	return server
}

// ForFile returns the first server handling the extension of path.
func ForFile(servers []Server, path string) (Server, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	for _, s := range servers {
		if slices.Contains(s.Extensions, ext) {
			return s, true
		}
	}
	return Server{}, false
}

// LookPath resolves the server binary on PATH.
func (s Server) LookPath() (string, error) {
	if len(s.Command) == 0 {
		return "", fmt.Errorf("server %s has no command", s.ID)
	}
	bin, err := exec.LookPath(s.Command[0])
	if err != nil {
		if s.InstallHint != "" {
			return "", fmt.Errorf("%s not found, install it with: %s", s.Command[0], s.InstallHint)
		}
		return "", fmt.Errorf("%s not found on PATH: %w", s.Command[0], err)
	}
	return bin, nil
}
