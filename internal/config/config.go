// Package config manages application configuration from various sources.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/opencode-ai/lspbridge/internal/logging"
	"github.com/spf13/viper"
)

// Data defines storage configuration.
type Data struct {
	Directory string `json:"directory,omitempty"`
}

// EditorConfig holds the settings handed to an editor session at construction.
type EditorConfig struct {
	// AutosaveDelay is the quiet period after the last edit before a save.
	AutosaveDelay time.Duration `json:"autosaveDelay"`
	TabSize       int           `json:"tabSize"`
	InsertSpaces  bool          `json:"insertSpaces"`
	Theme         string        `json:"theme,omitempty"`
}

// LanguageServiceConfig describes how to reach the external analysis process.
// Address takes precedence over Command when both are set.
type LanguageServiceConfig struct {
	Address          string            `json:"address,omitempty"`
	Command          string            `json:"command,omitempty"`
	Args             []string          `json:"args,omitempty"`
	Env              map[string]string `json:"env,omitempty"`
	FormatTimeout    time.Duration     `json:"formatTimeout"`
	HandshakeTimeout time.Duration     `json:"handshakeTimeout"`
	MinBackoff       time.Duration     `json:"minBackoff"`
	MaxBackoff       time.Duration     `json:"maxBackoff"`
	Initialization   any               `json:"initialization,omitempty"`
}

// LSPConfig overrides the built-in stdio server for one language.
type LSPConfig struct {
	Disabled       bool              `json:"disabled"`
	Command        string            `json:"command"`
	Args           []string          `json:"args"`
	Extensions     []string          `json:"extensions,omitempty"`
	Env            map[string]string `json:"env,omitempty"`
	Initialization any               `json:"initialization,omitempty"`
}

// WorkspaceConfig controls the on-disk workspace watcher.
type WorkspaceConfig struct {
	Watch  bool     `json:"watch"`
	Ignore []string `json:"ignore,omitempty"`
}

// HistoryConfig controls the local sqlite history of saved versions.
type HistoryConfig struct {
	Disabled bool `json:"disabled,omitempty"`
}

// Config is the main configuration structure for the application.
type Config struct {
	Data            Data                  `json:"data"`
	WorkingDir      string                `json:"wd,omitempty"`
	Editor          EditorConfig          `json:"editor"`
	LanguageService LanguageServiceConfig `json:"languageService"`
	LSP             map[string]LSPConfig  `json:"lsp,omitempty"`
	Workspace       WorkspaceConfig       `json:"workspace"`
	History         HistoryConfig         `json:"history"`
	Debug           bool                  `json:"debug,omitempty"`
	DebugLSP        bool                  `json:"debugLSP,omitempty"`
}

// Application constants
const (
	defaultDataDirectory = ".lspbridge"
	defaultLogLevel      = "info"
	appName              = "lspbridge"

	DefaultAutosaveDelay    = time.Second
	DefaultTabSize          = 4
	DefaultFormatTimeout    = 5 * time.Second
	DefaultHandshakeTimeout = 30 * time.Second
	DefaultMinBackoff       = 250 * time.Millisecond
	DefaultMaxBackoff       = 30 * time.Second
)

var defaultIgnore = []string{
	"**/.git/**",
	"**/node_modules/**",
	"**/.lspbridge/**",
	"**/*.swp",
	"**/*~",
}

// Global configuration instance
var cfg *Config

// Reset clears the global configuration, allowing Load to be called again.
// This is intended for use in tests only.
func Reset() {
	cfg = nil
	viper.Reset()
}

// Load initializes the configuration from environment variables and config files.
// If debug is true, debug mode is enabled and log level is set to debug.
// It returns an error if configuration loading fails.
func Load(workingDir string, debug bool) (*Config, error) {
	if cfg != nil {
		return cfg, nil
	}

	cfg = &Config{
		WorkingDir: workingDir,
		LSP:        make(map[string]LSPConfig),
	}

	configureViper()
	setDefaults(debug)

	// Read global config
	if err := readConfig(viper.ReadInConfig()); err != nil {
		return cfg, err
	}

	// Load and merge local config
	mergeLocalConfig(workingDir)

	// Apply configuration to the struct
	if err := viper.Unmarshal(cfg); err != nil {
		return cfg, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaultValues()
	defaultLevel := slog.LevelInfo
	if cfg.Debug {
		defaultLevel = slog.LevelDebug
	}
	if cfg.Debug {
		// Configure logger
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: defaultLevel,
		}))
		slog.SetDefault(logger)
	} else {
		// Configure logger
		logger := slog.New(slog.NewTextHandler(logging.NewWriter(), &slog.HandlerOptions{
			Level: defaultLevel,
		}))
		slog.SetDefault(logger)
	}

	// Validate configuration
	if err := Validate(); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// configureViper sets up viper's configuration paths and environment variables.
func configureViper() {
	viper.SetConfigName(fmt.Sprintf(".%s", appName))
	viper.SetConfigType("json")
	viper.AddConfigPath("$HOME")
	viper.AddConfigPath(fmt.Sprintf("$XDG_CONFIG_HOME/%s", appName))
	viper.AddConfigPath(fmt.Sprintf("$HOME/.config/%s", appName))
	viper.SetEnvPrefix(strings.ToUpper(appName))
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
}

// setDefaults configures default values for configuration options.
func setDefaults(debug bool) {
	viper.SetDefault("data.directory", defaultDataDirectory)

	viper.SetDefault("editor.autosaveDelay", DefaultAutosaveDelay)
	viper.SetDefault("editor.tabSize", DefaultTabSize)
	viper.SetDefault("editor.insertSpaces", true)
	viper.SetDefault("editor.theme", "vs-dark")

	viper.SetDefault("languageService.formatTimeout", DefaultFormatTimeout)
	viper.SetDefault("languageService.handshakeTimeout", DefaultHandshakeTimeout)
	viper.SetDefault("languageService.minBackoff", DefaultMinBackoff)
	viper.SetDefault("languageService.maxBackoff", DefaultMaxBackoff)

	viper.SetDefault("workspace.watch", true)
	viper.SetDefault("workspace.ignore", defaultIgnore)

	if debug {
		viper.SetDefault("debug", true)
		viper.Set("log.level", "debug")
	} else {
		viper.SetDefault("debug", false)
		viper.SetDefault("log.level", defaultLogLevel)
	}
}

// readConfig handles the result of reading a configuration file.
func readConfig(err error) error {
	if err == nil {
		return nil
	}

	// It's okay if the config file doesn't exist
	if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		return nil
	}

	return fmt.Errorf("failed to read config: %w", err)
}

// mergeLocalConfig loads and merges configuration from the local directory.
func mergeLocalConfig(workingDir string) {
	local := viper.New()
	local.SetConfigName(fmt.Sprintf(".%s", appName))
	local.SetConfigType("json")
	local.AddConfigPath(workingDir)

	// Merge local config if it exists
	if err := local.ReadInConfig(); err == nil {
		viper.MergeConfigMap(local.AllSettings())
	}
}

// applyDefaultValues sets default values for configuration fields that need processing.
func applyDefaultValues() {
	if cfg.Data.Directory != "" && !filepath.IsAbs(cfg.Data.Directory) && cfg.WorkingDir != "" {
		cfg.Data.Directory = filepath.Join(cfg.WorkingDir, cfg.Data.Directory)
	}
}

// Validate checks the loaded configuration and repairs values that would make
// an editor session misbehave, logging every adjustment.
func Validate() error {
	if cfg == nil {
		return fmt.Errorf("config not loaded")
	}

	if err := validateEditor(&cfg.Editor); err != nil {
		return err
	}
	if err := validateLanguageService(&cfg.LanguageService); err != nil {
		return err
	}

	for name, server := range cfg.LSP {
		if !server.Disabled && server.Command == "" && len(server.Args) > 0 {
			logging.Warn("lsp server has args but no command, disabling", "name", name)
			server.Disabled = true
			cfg.LSP[name] = server
		}
	}
	return nil
}

func validateEditor(editor *EditorConfig) error {
	if editor.AutosaveDelay < 0 {
		return fmt.Errorf("editor.autosaveDelay must not be negative, got %s", editor.AutosaveDelay)
	}
	if editor.AutosaveDelay == 0 {
		logging.Warn("autosave delay not set, using default", "default", DefaultAutosaveDelay)
		editor.AutosaveDelay = DefaultAutosaveDelay
	}
	if editor.TabSize <= 0 {
		logging.Warn("invalid tab size, using default", "tabSize", editor.TabSize, "default", DefaultTabSize)
		editor.TabSize = DefaultTabSize
	}
	return nil
}

func validateLanguageService(ls *LanguageServiceConfig) error {
	if ls.Address != "" && !strings.HasPrefix(ls.Address, "ws://") && !strings.HasPrefix(ls.Address, "wss://") {
		return fmt.Errorf("languageService.address must be a ws:// or wss:// URL, got %q", ls.Address)
	}
	if ls.FormatTimeout <= 0 {
		ls.FormatTimeout = DefaultFormatTimeout
	}
	if ls.HandshakeTimeout <= 0 {
		ls.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if ls.MinBackoff <= 0 {
		ls.MinBackoff = DefaultMinBackoff
	}
	if ls.MaxBackoff <= 0 {
		ls.MaxBackoff = DefaultMaxBackoff
	}
	if ls.MaxBackoff < ls.MinBackoff {
		logging.Warn("max backoff below min backoff, clamping",
			"minBackoff", ls.MinBackoff,
			"maxBackoff", ls.MaxBackoff)
		ls.MaxBackoff = ls.MinBackoff
	}
	return nil
}

// Get returns the current configuration.
// It's safe to call this function multiple times.
func Get() *Config {
	return cfg
}

// WorkingDirectory returns the current working directory from the configuration.
func WorkingDirectory() string {
	if cfg == nil {
		panic("config not loaded")
	}
	return cfg.WorkingDir
}
