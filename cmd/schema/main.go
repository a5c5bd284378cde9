package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/opencode-ai/lspbridge/internal/config"
	"github.com/opencode-ai/lspbridge/internal/lsp/servers"
)

func main() {
	schema := generateSchema()

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(schema); err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding schema: %v\n", err)
		os.Exit(1)
	}
}

func str(description string) map[string]any {
	return map[string]any{"type": "string", "description": description}
}

func boolean(description string, def bool) map[string]any {
	return map[string]any{"type": "boolean", "description": description, "default": def}
}

func stringList(description string) map[string]any {
	return map[string]any{
		"type":        "array",
		"description": description,
		"items":       map[string]any{"type": "string"},
	}
}

func stringMap(description string) map[string]any {
	return map[string]any{
		"type":                 "object",
		"description":          description,
		"additionalProperties": map[string]any{"type": "string"},
	}
}

// duration values are Go duration strings such as "250ms" or "30s".
func duration(description string, def fmt.Stringer) map[string]any {
	return map[string]any{
		"type":        "string",
		"description": description,
		"pattern":     `^([0-9]+(\.[0-9]+)?(ns|us|µs|ms|s|m|h))+$`,
		"default":     def.String(),
	}
}

func object(description string, properties map[string]any) map[string]any {
	return map[string]any{
		"type":        "object",
		"description": description,
		"properties":  properties,
	}
}

func generateSchema() map[string]any {
	builtin := make([]string, 0, len(servers.Builtin))
	for _, def := range servers.Builtin {
		builtin = append(builtin, def.ID)
	}

	lspServer := object("Language server override", map[string]any{
		"disabled":       boolean("Do not start this server", false),
		"command":        str("Executable to run"),
		"args":           stringList("Command arguments"),
		"extensions":     stringList("File extensions handled by the server, with the leading dot"),
		"env":            stringMap("Extra environment variables"),
		"initialization": map[string]any{"type": "object", "description": "initializationOptions sent to the server"},
	})

	return map[string]any{
		"$schema":     "http://json-schema.org/draft-07/schema#",
		"title":       "lspbridge Configuration",
		"description": "Configuration schema for lspbridge",
		"type":        "object",
		"properties": map[string]any{
			"data": object("Storage configuration", map[string]any{
				"directory": map[string]any{
					"type":        "string",
					"description": "Directory where history is stored",
					"default":     ".lspbridge",
				},
			}),
			"wd":       str("Working directory"),
			"debug":    boolean("Enable debug logging", false),
			"debugLSP": boolean("Log every language server message", false),
			"editor": object("Editor session settings", map[string]any{
				"autosaveDelay": duration("Quiet period after the last edit before saving", config.DefaultAutosaveDelay),
				"tabSize": map[string]any{
					"type":        "integer",
					"description": "Indentation width used when formatting",
					"minimum":     1,
					"default":     config.DefaultTabSize,
				},
				"insertSpaces": boolean("Indent with spaces when formatting", true),
				"theme":        str("Theme name passed to the editing surface"),
			}),
			"languageService": object("Language service connection", map[string]any{
				"address":          str("ws:// or wss:// URL of a language service; takes precedence over command"),
				"command":          str("Language server executable speaking LSP over stdio"),
				"args":             stringList("Command arguments"),
				"env":              stringMap("Extra environment variables for command"),
				"formatTimeout":    duration("How long a format request may take", config.DefaultFormatTimeout),
				"handshakeTimeout": duration("How long the initialize handshake may take", config.DefaultHandshakeTimeout),
				"minBackoff":       duration("First reconnect delay", config.DefaultMinBackoff),
				"maxBackoff":       duration("Longest reconnect delay", config.DefaultMaxBackoff),
				"initialization":   map[string]any{"type": "object", "description": "Extra initializationOptions"},
			}),
			"lsp": map[string]any{
				"type":                 "object",
				"description":          fmt.Sprintf("Per-server overrides. Built-in servers: %v", builtin),
				"additionalProperties": lspServer,
			},
			"workspace": object("Workspace watcher", map[string]any{
				"watch":  boolean("Reload open documents changed on disk", true),
				"ignore": stringList("Doublestar patterns, relative to the working directory, that are not watched"),
			}),
			"history": object("Saved version history", map[string]any{
				"disabled": boolean("Do not record saved versions", false),
			}),
		},
	}
}
