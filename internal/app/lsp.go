package app

import (
	"fmt"
	"io"
	"os"

	"github.com/opencode-ai/lspbridge/internal/config"
	"github.com/opencode-ai/lspbridge/internal/logging"
	"github.com/opencode-ai/lspbridge/internal/lsp"
	"github.com/opencode-ai/lspbridge/internal/lsp/servers"
)

// newDialer picks the language service transport. An explicit address wins,
// then an explicit command, then the first built-in or configured server
// that handles one of files.
func newDialer(cfg *config.Config, files []string) (lsp.Dialer, any, error) {
	ls := cfg.LanguageService
	switch {
	case ls.Address != "":
		logging.Info("using remote language service", "address", ls.Address)
		return lsp.WebSocketDialer{URL: ls.Address}, ls.Initialization, nil
	case ls.Command != "":
		logging.Info("using language service command", "command", ls.Command, "args", ls.Args)
		return lsp.CommandDialer{
			Command: ls.Command,
			Args:    ls.Args,
			Env:     ls.Env,
			Dir:     cfg.WorkingDir,
			Stderr:  serverStderr(cfg),
		}, ls.Initialization, nil
	}

	resolved := servers.Resolve(cfg.LSP)
	for _, file := range files {
		server, ok := servers.ForFile(resolved, file)
		if !ok {
			continue
		}
		bin, err := server.LookPath()
		if err != nil {
			return nil, nil, err
		}
		logging.Info("using built-in language server", "name", server.ID, "command", bin)
		initialization := server.Initialization
		if ls.Initialization != nil {
			initialization = ls.Initialization
		}
		return lsp.CommandDialer{
			Command: bin,
			Args:    server.Command[1:],
			Env:     server.Env,
			Dir:     cfg.WorkingDir,
			Stderr:  serverStderr(cfg),
		}, initialization, nil
	}
	return nil, nil, fmt.Errorf("no language server configured for %v", files)
}

func serverStderr(cfg *config.Config) io.Writer {
	if cfg.DebugLSP {
		return os.Stderr
	}
	return nil
}
